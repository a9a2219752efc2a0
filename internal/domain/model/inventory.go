package model

import "time"

// 商品と1対1。予約数は注文確定で増え、キャンセル/出荷で減る。
type Inventory struct {
	ProductID        int64     `gorm:"primaryKey" json:"productId"`
	StockQuantity    int64     `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stockQuantity"`
	ReservedQuantity int64     `gorm:"not null;default:0;check:reserved_quantity >= 0" json:"reservedQuantity"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (Inventory) TableName() string {
	return "inventories"
}

// 販売可能数 = max(在庫 - 予約, 0)
func (i Inventory) AvailableStock() int64 {
	return AvailableStock(i.StockQuantity, i.ReservedQuantity)
}

func AvailableStock(stock, reserved int64) int64 {
	if avail := stock - reserved; avail > 0 {
		return avail
	}
	return 0
}
