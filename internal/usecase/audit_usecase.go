package usecase

import (
	"context"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"
)

type AuditUsecase struct {
	auditRepo repo.AuditLogRepository
}

func NewAuditUsecase(auditRepo repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{auditRepo: auditRepo}
}

// 新しい順。limitは最大200
func (u *AuditUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		return nil, validationError("invalid offset")
	}
	for _, a := range f.Actions {
		if !a.Valid() {
			return nil, NewValidationError("invalid action", map[string]any{"action": a})
		}
	}
	for _, rt := range f.ResourceTypes {
		if !rt.Valid() {
			return nil, NewValidationError("invalid resourceType", map[string]any{"resourceType": rt})
		}
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedTo.Before(*f.CreatedFrom) {
		return nil, validationError("to must be after from")
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, internalError(err, "list audit logs")
	}
	return logs, nil
}
