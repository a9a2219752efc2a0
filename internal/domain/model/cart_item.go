package model

import "time"

// (user_id, product_id) で一意
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_cart_items_user_product" json:"userId"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_cart_items_user_product;index" json:"productId"`
	Quantity  int64     `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`

	User    *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Product *Product `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
