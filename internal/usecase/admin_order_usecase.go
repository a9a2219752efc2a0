package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
)

type AdminOrderUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	items    repo.OrderItemRepository
	tracking repo.OrderTrackingRepository
	metrics  OrderMetrics
	clock    Clock
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	tracking repo.OrderTrackingRepository,
	metrics OrderMetrics,
	clock Clock,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:       tx,
		orders:   orders,
		items:    items,
		tracking: tracking,
		metrics:  metrics,
		clock:    clock,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message" validate:"max=500"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	if f.Status != "" {
		if _, ok := parseOrderStatus(f.Status); !ok {
			return OrderListOutput{}, validationError("invalid status")
		}
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, internalError(err, "list orders")
	}

	list, err := withItems(ctx, u.items, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Orders: list, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (OrderOutput, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, notFoundOrInternal(err, "order")
	}
	return loadOrderOutput(ctx, u.items, u.tracking, o)
}

// ステータス更新。SHIPPEDで予約確定、CANCELLEDで予約戻し＋全額返金。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorID, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, unauthorized("unauthorized")
	}
	next, ok := parseOrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !ok {
		return OrderOutput{}, validationError("invalid status")
	}

	var out OrderOutput
	changed := false

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOrInternal(err, "order")
		}

		// すでに同じなら何もしない
		if o.Status == next {
			out, err = loadOrderOutput(ctx, r.OrderItems(), r.Tracking(), o)
			return err
		}
		if !canTransition(o.Status, next) {
			return businessError(CodeInvalidOrderState, "cannot change order from "+string(o.Status)+" to "+string(next)).
				WithDetails(map[string]any{"from": o.Status, "to": next})
		}

		before := o
		now := u.clock.Now()
		if err := applyTransition(ctx, r, &o, next, now); err != nil {
			return err
		}

		msg := strings.TrimSpace(in.Message)
		if msg == "" {
			msg = defaultTrackingMessage(next)
		}
		if err := r.Tracking().Append(ctx, model.OrderTracking{
			OrderID:   o.ID,
			Status:    next,
			Message:   msg,
			CreatedAt: now,
		}); err != nil {
			return internalError(err, "append tracking")
		}

		if err := auditOrderStatus(ctx, r.AuditLogs(), actorID, before, o, now); err != nil {
			return err
		}

		out, err = loadOrderOutput(ctx, r.OrderItems(), r.Tracking(), o)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, passOrInternal(err, "update order status")
	}

	if changed {
		u.metrics.OrderTransition(string(next))
		if next == model.OrderStatusCancelled {
			u.metrics.OrderCancelled()
		}
	}
	return out, nil
}

// 在庫・支払い状態への副作用
func applyTransition(ctx context.Context, r repo.TxRepos, o *model.Order, next model.OrderStatus, now time.Time) error {
	switch next {
	case model.OrderStatusShipped:
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return internalError(err, "list order items")
		}
		for _, it := range items {
			if err := r.Inventory().Commit(ctx, it.ProductID, it.Quantity); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return businessError(CodeInsufficientStock, "reserved stock is inconsistent").
						WithDetails(map[string]any{"productId": it.ProductID})
				}
				return internalError(err, "commit stock")
			}
		}
		if err := r.Orders().UpdateStatus(ctx, o.ID, next); err != nil {
			return internalError(err, "update order status")
		}

	case model.OrderStatusCancelled:
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return internalError(err, "list order items")
		}
		for _, it := range items {
			if err := r.Inventory().Release(ctx, it.ProductID, it.Quantity); err != nil {
				return internalError(err, "release stock")
			}
		}
		if err := r.Orders().MarkCancelled(ctx, o.ID, o.Total, "cancelled by admin"); err != nil {
			return internalError(err, "mark cancelled")
		}
		refund := o.Total
		o.RefundAmount = &refund
		o.CancelReason = "cancelled by admin"
		o.PaymentStatus = model.PaymentStatusRefunded

	case model.OrderStatusRefunded:
		if err := r.Orders().UpdateStatus(ctx, o.ID, next); err != nil {
			return internalError(err, "update order status")
		}
		if err := r.Orders().UpdatePaymentStatus(ctx, o.ID, model.PaymentStatusRefunded); err != nil {
			return internalError(err, "update payment status")
		}
		o.PaymentStatus = model.PaymentStatusRefunded

	default:
		if err := r.Orders().UpdateStatus(ctx, o.ID, next); err != nil {
			return internalError(err, "update order status")
		}
	}

	o.Status = next
	o.UpdatedAt = now
	return nil
}

func defaultTrackingMessage(s model.OrderStatus) string {
	switch s {
	case model.OrderStatusProcessing:
		return "Order is being prepared."
	case model.OrderStatusShipped:
		return "Order has been shipped."
	case model.OrderStatusDelivered:
		return "Order delivered."
	case model.OrderStatusCancelled:
		return "Order cancelled by store. Full refund initiated."
	case model.OrderStatusRefunded:
		return "Refund completed."
	}
	return "Order status updated."
}

// 監査ログ（UPDATE_ORDER_STATUS）
func auditOrderStatus(ctx context.Context, audit repo.AuditLogRepository, actorID int64, before, after model.Order, now time.Time) error {
	type snapshot struct {
		Status        model.OrderStatus   `json:"status"`
		PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	}
	b, _ := json.Marshal(snapshot{Status: before.Status, PaymentStatus: before.PaymentStatus})
	a, _ := json.Marshal(snapshot{Status: after.Status, PaymentStatus: after.PaymentStatus})

	if err := audit.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   after.ID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    now,
	}); err != nil {
		return internalError(err, "create audit log")
	}
	return nil
}
