package usecase

import (
	"context"
	"encoding/json"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"
)

type AdminUserUsecase struct {
	users     repo.UserRepository
	auditRepo repo.AuditLogRepository
	clock     Clock
}

func NewAdminUserUsecase(users repo.UserRepository, auditRepo repo.AuditLogRepository, clock Clock) *AdminUserUsecase {
	return &AdminUserUsecase{users: users, auditRepo: auditRepo, clock: clock}
}

type UserListOutput struct {
	Users []UserDTO `json:"users"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

type UpdateUserStatusInput struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"userId"`
	NewTokenVersion int   `json:"newTokenVersion"`
}

func (u *AdminUserUsecase) List(ctx context.Context, f repo.UserListFilter) (UserListOutput, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	if f.Role != nil && *f.Role != model.RoleCustomer && *f.Role != model.RoleAdmin {
		return UserListOutput{}, validationError("invalid role")
	}

	users, total, err := u.users.List(ctx, f)
	if err != nil {
		return UserListOutput{}, internalError(err, "list users")
	}
	out := UserListOutput{Users: make([]UserDTO, 0, len(users)), Total: total, Page: f.Page, Limit: f.Limit}
	for i := range users {
		out.Users = append(out.Users, toUserDTO(&users[i]))
	}
	return out, nil
}

// 有効/無効の切り替え。無効化したらtokenも失効させる
func (u *AdminUserUsecase) SetStatus(ctx context.Context, actorID, targetID int64, in UpdateUserStatusInput) (UserDTO, error) {
	if in.IsActive == nil {
		return UserDTO{}, validationError("isActive is required")
	}
	if actorID == targetID && !*in.IsActive {
		return UserDTO{}, validationError("cannot deactivate yourself")
	}

	user, err := u.users.FindByID(ctx, targetID)
	if err != nil {
		return UserDTO{}, notFoundOrInternal(err, "user")
	}
	before := user.IsActive

	if err := u.users.SetActive(ctx, targetID, *in.IsActive); err != nil {
		return UserDTO{}, notFoundOrInternal(err, "user")
	}
	if !*in.IsActive {
		if _, err := u.users.IncrementTokenVersion(ctx, targetID); err != nil {
			return UserDTO{}, internalError(err, "bump token version")
		}
	}
	user.IsActive = *in.IsActive

	b, _ := json.Marshal(map[string]bool{"isActive": before})
	a, _ := json.Marshal(map[string]bool{"isActive": user.IsActive})
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionUpdateUserStatus,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    u.clock.Now(),
	}); err != nil {
		return UserDTO{}, internalError(err, "create audit log")
	}
	return toUserDTO(user), nil
}

// token_versionを+1して発行済みtokenを全て無効にする
func (u *AdminUserUsecase) ForceLogout(ctx context.Context, actorID, targetID int64) (ForceLogoutResponse, error) {
	if targetID <= 0 {
		return ForceLogoutResponse{}, validationError("invalid user id")
	}
	user, err := u.users.FindByID(ctx, targetID)
	if err != nil {
		return ForceLogoutResponse{}, notFoundOrInternal(err, "user")
	}

	tv, err := u.users.IncrementTokenVersion(ctx, targetID)
	if err != nil {
		return ForceLogoutResponse{}, notFoundOrInternal(err, "user")
	}

	b, _ := json.Marshal(map[string]int{"tokenVersion": user.TokenVersion})
	a, _ := json.Marshal(map[string]int{"tokenVersion": tv})
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionForceLogout,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    u.clock.Now(),
	}); err != nil {
		return ForceLogoutResponse{}, internalError(err, "create audit log")
	}
	return ForceLogoutResponse{UserID: targetID, NewTokenVersion: tv}, nil
}
