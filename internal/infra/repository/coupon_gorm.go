package repository

import (
	"context"
	"strings"
	"time"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CouponGormRepository struct {
	db *gorm.DB
}

func NewCouponGormRepository(db *gorm.DB) *CouponGormRepository {
	return &CouponGormRepository{db: db}
}

// 有効・期間内・全体上限内（value降順）
func (r *CouponGormRepository) ListActiveAt(ctx context.Context, now time.Time) ([]model.Coupon, error) {
	var list []model.Coupon
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("valid_from <= ? AND valid_until >= ?", now, now).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		Order("value desc, id asc").
		Find(&list).Error
	if err != nil {
		return []model.Coupon{}, err
	}
	return list, nil
}

func (r *CouponGormRepository) List(ctx context.Context) ([]model.Coupon, error) {
	var list []model.Coupon
	if err := r.db.WithContext(ctx).Order("id desc").Find(&list).Error; err != nil {
		return []model.Coupon{}, err
	}
	return list, nil
}

func (r *CouponGormRepository) FindByID(ctx context.Context, id int64) (model.Coupon, error) {
	var c model.Coupon
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Coupon{}, translateError(err)
	}
	return c, nil
}

// codeは大文字で保存している
func (r *CouponGormRepository) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&c).Error
	if err != nil {
		return model.Coupon{}, translateError(err)
	}
	return c, nil
}

func (r *CouponGormRepository) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Coupon{}, translateError(err)
	}
	return c, nil
}

// users の行を FOR UPDATE で取る。commitまで後続の確定は待つ
func (r *CouponGormRepository) LockUserRedemptions(ctx context.Context, userID int64) error {
	var u model.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", userID).
		Take(&u).Error
	return translateError(err)
}

type couponUsageCount struct {
	CouponID int64
	Count    int64
}

func (r *CouponGormRepository) CountUsagesByUser(ctx context.Context, userID int64) (map[int64]int64, error) {
	var rows []couponUsageCount
	err := r.db.WithContext(ctx).
		Model(&model.CouponUsage{}).
		Select("coupon_id, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("coupon_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(rows))
	for _, row := range rows {
		out[row.CouponID] = row.Count
	}
	return out, nil
}

// 全体上限が残っているときだけ+1
func (r *CouponGormRepository) IncrementUsage(ctx context.Context, couponID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CouponGormRepository) CreateUsage(ctx context.Context, usage model.CouponUsage) error {
	return translateError(r.db.WithContext(ctx).Create(&usage).Error)
}

func (r *CouponGormRepository) FindApplied(ctx context.Context, userID int64) (model.AppliedCoupon, error) {
	var a model.AppliedCoupon
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error; err != nil {
		return model.AppliedCoupon{}, translateError(err)
	}
	return a, nil
}

// 1ユーザー1件。既にあれば差し替え
func (r *CouponGormRepository) SetApplied(ctx context.Context, applied model.AppliedCoupon) error {
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"coupon_id", "applied_at"}),
		}).
		Create(&applied).Error)
}

func (r *CouponGormRepository) ClearApplied(ctx context.Context, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.AppliedCoupon{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

var _ repo.CouponRepository = (*CouponGormRepository)(nil)
