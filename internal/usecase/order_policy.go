package usecase

import (
	"time"

	"air5star/internal/config"
	"air5star/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 顧客キャンセルの条件と返金計算
type OrderPolicy struct {
	CancellationWindow  time.Duration
	CancellationFeeRate decimal.Decimal
}

func NewOrderPolicy(cfg *config.Config) OrderPolicy {
	return OrderPolicy{
		CancellationWindow:  cfg.Order.CancellationWindow,
		CancellationFeeRate: cfg.Order.CancellationFeeRate,
	}
}

// CONFIRMEDからwindow以内のみ（境界はOK）
func (p OrderPolicy) CheckCustomerCancel(status model.OrderStatus, confirmedAt, now time.Time) *HTTPError {
	if status != model.OrderStatusConfirmed {
		return businessError(CodeInvalidOrderState, "order cannot be cancelled in status "+string(status)).
			WithDetails(map[string]any{"status": status})
	}
	deadline := confirmedAt.Add(p.CancellationWindow)
	if now.After(deadline) {
		return businessError(CodeWindowExpired, "cancellation window has expired").
			WithDetails(map[string]any{"deadline": deadline})
	}
	return nil
}

// 返金額 = round(total × (1 - fee), 2)
func (p OrderPolicy) Refund(total decimal.Decimal) (refund, fee decimal.Decimal) {
	refund = total.Mul(decimal.NewFromInt(1).Sub(p.CancellationFeeRate)).Round(2)
	return refund, total.Sub(refund)
}

// 管理者が進められる遷移
var adminTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusConfirmed:  {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
	model.OrderStatusCancelled:  {model.OrderStatusRefunded},
}

func canTransition(from, to model.OrderStatus) bool {
	for _, s := range adminTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func parseOrderStatus(s string) (model.OrderStatus, bool) {
	st := model.OrderStatus(s)
	switch st {
	case model.OrderStatusConfirmed, model.OrderStatusProcessing, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCancelled, model.OrderStatusRefunded:
		return st, true
	}
	return "", false
}
