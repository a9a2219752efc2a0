package repository

import (
	"context"
	"time"

	"air5star/internal/domain/model"
)

type CouponRepository interface {
	// 有効フラグ・期間・全体上限を満たすもの（value降順）
	ListActiveAt(ctx context.Context, now time.Time) ([]model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
	FindByID(ctx context.Context, id int64) (model.Coupon, error)
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)

	// 同じユーザーの確定処理を直列にする（tx内でのみ意味がある）
	LockUserRedemptions(ctx context.Context, userID int64) error
	// coupon_id -> そのユーザーの利用回数
	CountUsagesByUser(ctx context.Context, userID int64) (map[int64]int64, error)
	// 全体上限が残っているときだけ used_count を+1
	IncrementUsage(ctx context.Context, couponID int64) (bool, error)
	CreateUsage(ctx context.Context, usage model.CouponUsage) error

	// 適用中クーポン（1ユーザー1件）
	FindApplied(ctx context.Context, userID int64) (model.AppliedCoupon, error)
	SetApplied(ctx context.Context, applied model.AppliedCoupon) error
	ClearApplied(ctx context.Context, userID int64) (bool, error)
}
