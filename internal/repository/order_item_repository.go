package repository

import (
	"context"

	"air5star/internal/domain/model"
)

// 注文明細。商品名・SKU・単価は確定時のスナップショットで、後から書き換えない
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 一覧画面用。明細の無い注文は空スライス
	ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
}
