package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
)

type CategoryUsecase struct {
	categories repo.CategoryRepository
	auditRepo  repo.AuditLogRepository
	clock      Clock
}

func NewCategoryUsecase(categories repo.CategoryRepository, auditRepo repo.AuditLogRepository, clock Clock) *CategoryUsecase {
	return &CategoryUsecase{categories: categories, auditRepo: auditRepo, clock: clock}
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"max=255"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parentId"`
	IsActive    bool   `json:"isActive"`
	SortOrder   int    `json:"sortOrder"`
}

// 公開中のみ
func (u *CategoryUsecase) List(ctx context.Context) ([]model.Category, error) {
	list, err := u.categories.List(ctx, false)
	if err != nil {
		return nil, internalError(err, "list categories")
	}
	return list, nil
}

func (u *CategoryUsecase) GetBySlug(ctx context.Context, slug string) (model.Category, error) {
	c, err := u.categories.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return model.Category{}, notFoundOrInternal(err, "category")
	}
	if !c.IsActive {
		return model.Category{}, notFound("category not found")
	}
	return c, nil
}

func (u *CategoryUsecase) AdminList(ctx context.Context) ([]model.Category, error) {
	list, err := u.categories.List(ctx, true)
	if err != nil {
		return nil, internalError(err, "list categories")
	}
	return list, nil
}

func (u *CategoryUsecase) AdminCreate(ctx context.Context, actorID int64, in CategoryInput) (model.Category, error) {
	c, err := u.fromInput(ctx, model.Category{}, in)
	if err != nil {
		return model.Category{}, err
	}
	created, err := u.categories.Create(ctx, c)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, conflict("slug already exists")
	}
	if err != nil {
		return model.Category{}, internalError(err, "create category")
	}
	if err := u.audit(ctx, actorID, created.ID, nil, &created); err != nil {
		return model.Category{}, err
	}
	return created, nil
}

func (u *CategoryUsecase) AdminUpdate(ctx context.Context, actorID, id int64, in CategoryInput) (model.Category, error) {
	cur, err := u.categories.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, notFoundOrInternal(err, "category")
	}
	if in.ParentID != nil && *in.ParentID == id {
		return model.Category{}, validationError("category cannot be its own parent")
	}
	next, err := u.fromInput(ctx, cur, in)
	if err != nil {
		return model.Category{}, err
	}
	err = u.categories.Update(ctx, next)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, conflict("slug already exists")
	}
	if err != nil {
		return model.Category{}, notFoundOrInternal(err, "category")
	}
	if err := u.audit(ctx, actorID, id, &cur, &next); err != nil {
		return model.Category{}, err
	}
	return next, nil
}

// 商品が残っているカテゴリは消せない
func (u *CategoryUsecase) AdminDelete(ctx context.Context, actorID, id int64) (SuccessResponse, error) {
	cur, err := u.categories.FindByID(ctx, id)
	if err != nil {
		return SuccessResponse{}, notFoundOrInternal(err, "category")
	}
	has, err := u.categories.HasProducts(ctx, id)
	if err != nil {
		return SuccessResponse{}, internalError(err, "check category products")
	}
	if has {
		return SuccessResponse{}, conflict("category has products")
	}
	if err := u.categories.Delete(ctx, id); err != nil {
		return SuccessResponse{}, notFoundOrInternal(err, "category")
	}
	if err := u.audit(ctx, actorID, id, &cur, nil); err != nil {
		return SuccessResponse{}, err
	}
	return SuccessResponse{Message: "category deleted"}, nil
}

func (u *CategoryUsecase) fromInput(ctx context.Context, c model.Category, in CategoryInput) (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, validationError("name required")
	}
	if in.ParentID != nil {
		if _, err := u.categories.FindByID(ctx, *in.ParentID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return model.Category{}, validationError("parent category not found")
			}
			return model.Category{}, internalError(err, "find parent category")
		}
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = slugify(name)
	}

	c.Name = name
	c.Slug = slug
	c.Description = in.Description
	c.ParentID = in.ParentID
	c.IsActive = in.IsActive
	c.SortOrder = in.SortOrder
	return c, nil
}

func (u *CategoryUsecase) audit(ctx context.Context, actorID, id int64, before, after *model.Category) error {
	log := model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionChangeCategory,
		ResourceType: model.AuditResourceCategory,
		ResourceID:   id,
		CreatedAt:    u.clock.Now(),
	}
	if before != nil {
		b, _ := json.Marshal(before)
		log.BeforeJSON = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		log.AfterJSON = string(a)
	}
	if err := u.auditRepo.Create(ctx, log); err != nil {
		return internalError(err, "create audit log")
	}
	return nil
}
