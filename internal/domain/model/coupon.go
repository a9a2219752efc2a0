package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponTypePercentage   CouponType = "PERCENTAGE"
	CouponTypeFixedAmount  CouponType = "FIXED_AMOUNT"
	CouponTypeFreeShipping CouponType = "FREE_SHIPPING"
)

func (t CouponType) Valid() bool {
	switch t {
	case CouponTypePercentage, CouponTypeFixedAmount, CouponTypeFreeShipping:
		return true
	}
	return false
}

type Coupon struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Description string     `gorm:"type:text" json:"description"`
	Type        CouponType `gorm:"type:varchar(20);not null" json:"type"`
	// PERCENTAGEなら%、FIXED_AMOUNTなら金額
	Value          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	MinOrderAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"minOrderAmount"`
	// nilなら上限なし
	MaxDiscountAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"maxDiscountAmount,omitempty"`
	// nilなら無制限
	UsageLimit *int64 `json:"usageLimit,omitempty"`
	UsedCount  int64  `gorm:"not null;default:0" json:"usedCount"`
	// 0なら無制限（per_user_limitポリシーのときのみ参照）
	PerUserLimit int64     `gorm:"not null;default:1" json:"perUserLimit"`
	ValidFrom    time.Time `gorm:"not null;index" json:"validFrom"`
	ValidUntil   time.Time `gorm:"not null;index" json:"validUntil"`
	IsActive     bool      `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// 有効期間内か（両端を含む）
func (c Coupon) IsWithinWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// 全体の使用回数が残っているか
func (c Coupon) HasRemainingUses() bool {
	return c.UsageLimit == nil || c.UsedCount < *c.UsageLimit
}

// 利用履歴
type CouponUsage struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID int64     `gorm:"not null;index:idx_coupon_usages_coupon_user" json:"couponId"`
	UserID   int64     `gorm:"not null;index:idx_coupon_usages_coupon_user" json:"userId"`
	OrderID  int64     `gorm:"not null;index" json:"orderId"`
	UsedAt   time.Time `gorm:"not null" json:"usedAt"`
}

// ユーザーがチェックアウト前に適用中のクーポン（1ユーザー1件）
type AppliedCoupon struct {
	UserID    int64     `gorm:"primaryKey" json:"userId"`
	CouponID  int64     `gorm:"not null" json:"couponId"`
	AppliedAt time.Time `gorm:"not null" json:"appliedAt"`
}
