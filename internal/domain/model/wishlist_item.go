package model

import "time"

type WishlistItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"userId"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_wishlist_user_product;index" json:"productId"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`

	User    *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Product *Product `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
