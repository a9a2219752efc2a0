package repository

import (
	"context"
	"time"

	"air5star/internal/domain/model"

	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 行ロック付き（状態遷移の直前に使う）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order *model.Order) error
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error
	// CANCELLED + REFUNDED と返金額を同時に書く
	MarkCancelled(ctx context.Context, orderID int64, refund decimal.Decimal, reason string) error

	//決済注文IDで検索（同じIDなら同じ注文を返す）
	FindByPaymentOrderID(ctx context.Context, userID int64, paymentOrderID string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}

// 注文の状態履歴
type OrderTrackingRepository interface {
	Append(ctx context.Context, entry model.OrderTracking) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderTracking, error)
	// 指定ステータスに入った最初の記録
	FindFirstByStatus(ctx context.Context, orderID int64, status model.OrderStatus) (model.OrderTracking, bool, error)
}
