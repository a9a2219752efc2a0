package model

import "time"

// 注文ステータス変更の追記専用ログ。「いつその状態になったか」の正。
type OrderTracking struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64       `gorm:"not null;index" json:"orderId"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	Message   string      `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time   `gorm:"not null;index" json:"createdAt"`
}

func (OrderTracking) TableName() string {
	return "order_tracking"
}
