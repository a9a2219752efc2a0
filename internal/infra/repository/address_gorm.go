package repository

import (
	"air5star/internal/domain/model"
	repo "air5star/internal/repository"
	"context"

	"gorm.io/gorm"
)

type addressGormRepository struct {
	db *gorm.DB
}

// DI
func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

// 住所を作成
func (r *addressGormRepository) Create(ctx context.Context, address model.Address) (model.Address, error) {
	if err := r.db.WithContext(ctx).Create(&address).Error; err != nil {
		return model.Address{}, translateError(err)
	}
	return address, nil
}

// ユーザーの住所一覧を返す
func (r *addressGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	var list []model.Address
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// 住所IDで1件取得
func (r *addressGormRepository) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	var a model.Address
	if err := r.db.WithContext(ctx).First(&a, addressID).Error; err != nil {
		return model.Address{}, translateError(err)
	}
	return a, nil
}

// 住所を更新
func (r *addressGormRepository) Update(ctx context.Context, address model.Address) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("id = ? AND user_id = ?", address.ID, address.UserID).
		Select(
			"full_name",
			"phone",
			"line1",
			"line2",
			"landmark",
			"city",
			"state",
			"postal_code",
			"country",
			"updated_at",
		).
		Updates(address))
}

// 住所を削除
func (r *addressGormRepository) Delete(ctx context.Context, addressID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("id = ?", addressID).
		Delete(&model.Address{}))
}

// そのユーザーのdefaultを全て false
func (r *addressGormRepository) ClearDefault(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("user_id = ? AND is_default = TRUE", userID).
		Update("is_default", false).Error
}

// 指定住所だけ true
func (r *addressGormRepository) MarkDefault(ctx context.Context, userID, addressID int64) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("id = ? AND user_id = ?", addressID, userID).
		Update("is_default", true))
}
