package repository

import (
	"context"

	"air5star/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context, includeInactive bool) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	FindBySlug(ctx context.Context, slug string) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, id int64) error
	// 商品が紐付いているか（削除可否の判定）
	HasProducts(ctx context.Context, id int64) (bool, error)
}
