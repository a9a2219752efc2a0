package repository

import (
	"context"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"gorm.io/gorm"
)

type categoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) repo.CategoryRepository {
	return &categoryGormRepository{db: db}
}

func (r *categoryGormRepository) List(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	q := r.db.WithContext(ctx).Model(&model.Category{})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var list []model.Category
	if err := q.Order("sort_order asc, name asc").Find(&list).Error; err != nil {
		return []model.Category{}, err
	}
	return list, nil
}

func (r *categoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Category{}, translateError(err)
	}
	return c, nil
}

func (r *categoryGormRepository) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return model.Category{}, translateError(err)
	}
	return c, nil
}

func (r *categoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, translateError(err)
	}
	return c, nil
}

func (r *categoryGormRepository) Update(ctx context.Context, c model.Category) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Category{}).
		Where("id = ?", c.ID).
		Select("name", "slug", "description", "parent_id", "is_active", "sort_order").
		Updates(c))
}

func (r *categoryGormRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Delete(&model.Category{}, id))
}

func (r *categoryGormRepository) HasProducts(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("category_id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
