package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"not null;index" json:"orderId"`
	ProductID           int64           `gorm:"not null;index" json:"productId"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"productNameSnapshot"`
	SKUSnapshot         string          `gorm:"column:sku_snapshot;type:varchar(64);not null" json:"skuSnapshot"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPriceSnapshot"`
	MRPSnapshot         decimal.Decimal `gorm:"column:mrp_snapshot;type:numeric(12,2);not null" json:"mrpSnapshot"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPriceSnapshot.Mul(decimal.NewFromInt(i.Quantity))
}
