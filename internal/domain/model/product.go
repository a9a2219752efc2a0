package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 公開中(IsActive)の商品は Price > 0
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU         string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`
	Slug        string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Brand       string          `gorm:"type:varchar(100)" json:"brand"`
	ImageURL    string          `gorm:"type:varchar(512)" json:"imageUrl"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	MRP         decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null" json:"mrp"`
	IsActive    bool            `gorm:"not null;default:false;index" json:"isActive"`
	CategoryID  int64           `gorm:"not null;index" json:"categoryId"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 公開できる状態か
func (p Product) IsSellable() bool {
	return p.IsActive && p.Price.IsPositive()
}
