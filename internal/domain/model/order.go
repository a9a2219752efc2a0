package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// 終端状態
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// 予約在庫を持っている状態（出荷前）
func (s OrderStatus) HoldsReservation() bool {
	return s == OrderStatusConfirmed || s == OrderStatusProcessing
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Order struct {
	ID                int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber       string           `gorm:"type:varchar(40);not null;uniqueIndex" json:"orderNumber"`
	UserID            int64            `gorm:"not null;index" json:"userId"`
	Status            OrderStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus     PaymentStatus    `gorm:"type:varchar(20);not null" json:"paymentStatus"`
	Subtotal          decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Discount          decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Shipping          decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"shipping"`
	Tax               decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Total             decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total"`
	RefundAmount      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"refundAmount,omitempty"`
	CouponID          *int64           `gorm:"index" json:"couponId,omitempty"`
	ShippingAddressID int64            `gorm:"not null" json:"shippingAddressId"`
	Notes             string           `gorm:"type:text" json:"notes"`
	CancelReason      string           `gorm:"type:text" json:"cancelReason,omitempty"`
	// 決済ゲートウェイ側の注文ID。二重登録防止に使う
	PaymentOrderID string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"paymentOrderId"`
	PaymentID      string    `gorm:"type:varchar(100);not null" json:"paymentId"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
