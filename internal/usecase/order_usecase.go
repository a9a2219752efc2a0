package usecase

import (
	"context"
	"fmt"
	"strings"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	tracking  repo.OrderTrackingRepository
	addresses repo.AddressRepository
	payments  *PaymentUsecase
	evaluator CouponEvaluator
	pricing   Pricing
	policy    OrderPolicy
	metrics   OrderMetrics
	ids       IDGenerator
	clock     Clock
}

type OrderDeps struct {
	Tx        repo.TransactionManager
	Orders    repo.OrderRepository
	Items     repo.OrderItemRepository
	Tracking  repo.OrderTrackingRepository
	Addresses repo.AddressRepository
	Payments  *PaymentUsecase
	Evaluator CouponEvaluator
	Pricing   Pricing
	Policy    OrderPolicy
	Metrics   OrderMetrics
	IDs       IDGenerator
	Clock     Clock
}

func NewOrderUsecase(d OrderDeps) *OrderUsecase {
	return &OrderUsecase{
		tx:        d.Tx,
		orders:    d.Orders,
		items:     d.Items,
		tracking:  d.Tracking,
		addresses: d.Addresses,
		payments:  d.Payments,
		evaluator: d.Evaluator,
		pricing:   d.Pricing,
		policy:    d.Policy,
		metrics:   d.Metrics,
		ids:       d.IDs,
		clock:     d.Clock,
	}
}

type PlaceOrderInput struct {
	AddressID int64  `json:"addressId" validate:"required,gt=0"`
	Notes     string `json:"notes" validate:"max=1000"`
	VerifyPaymentInput
}

type OrderOutput struct {
	model.Order
	Items    []model.OrderItem     `json:"items"`
	Tracking []model.OrderTracking `json:"tracking,omitempty"`
}

type OrderListOutput struct {
	Orders []OrderOutput `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

type CancelOrderInput struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CancelOrderOutput struct {
	Order        OrderOutput     `json:"order"`
	RefundAmount decimal.Decimal `json:"refundAmount"`
	Deduction    decimal.Decimal `json:"deduction"`
	Message      string          `json:"message"`
}

// 同じ決済注文IDで再送されたら既存の注文を返す
var errAlreadyPlaced = errors.New("order already placed for payment")

// 決済確認済みのカートから注文を確定する
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, unauthorized("unauthorized")
	}
	if in.AddressID <= 0 {
		return OrderOutput{}, validationError("invalid addressId")
	}
	if err := u.payments.verify(in.VerifyPaymentInput); err != nil {
		return OrderOutput{}, err
	}

	//住所の所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		return OrderOutput{}, notFoundOrInternal(err, "address")
	}
	if addr.UserID != userID {
		return OrderOutput{}, forbidden("forbidden")
	}

	gw, err := u.payments.ownedOrder(ctx, userID, in.OrderID)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	created := false

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, found, err := r.Orders().FindByPaymentOrderID(ctx, userID, in.OrderID)
		if err != nil {
			return internalError(err, "find order by payment")
		}
		if found {
			out, err = loadOrderOutput(ctx, r.OrderItems(), r.Tracking(), existing)
			return err
		}

		cartItems, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err, "list cart items")
		}
		if len(cartItems) == 0 {
			return businessError(CodeCartEmpty, "cart is empty")
		}

		lines := make([]CheckoutLine, 0, len(cartItems))
		for _, ci := range cartItems {
			lines = append(lines, CheckoutLine{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
		products, stock, err := loadCatalog(ctx, r.Products(), r.Inventory(), lines)
		if err != nil {
			return err
		}
		results := validateLines(lines, products, stock)
		if he := firstLineError(results); he != nil {
			return he
		}

		// 予約（条件付きUPDATE）
		for _, l := range results {
			ok, err := r.Inventory().Reserve(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return internalError(err, "reserve stock")
			}
			if !ok {
				u.metrics.ReservationRejected()
				return insufficientStock(products[l.ProductID], l.AvailableStock, l.Quantity)
			}
		}

		subtotal := linesSubtotal(results)
		now := u.clock.Now()

		coupon, err := findAppliedCoupon(ctx, r.Coupons(), userID)
		if err != nil {
			return err
		}
		if coupon != nil {
			if err := u.redeemable(ctx, r.Coupons(), *coupon, userID, subtotal); err != nil {
				return err
			}
		}
		totals := u.pricing.Compute(subtotal, coupon)
		// 支払額とカート合計が一致しないと確定しない
		if toMinorUnits(totals.Total) != gw.Amount {
			return businessError(CodePaymentVerificationFailed, "paid amount does not match order total").
				WithDetails(map[string]any{"expected": toMinorUnits(totals.Total), "paid": gw.Amount})
		}

		order := model.Order{
			OrderNumber:       "A5S-" + u.ids.NewID(),
			UserID:            userID,
			Status:            model.OrderStatusConfirmed,
			PaymentStatus:     model.PaymentStatusPaid,
			Subtotal:          totals.Subtotal,
			Discount:          totals.Discount,
			Shipping:          totals.Shipping,
			Tax:               totals.Tax,
			Total:             totals.Total,
			ShippingAddressID: addr.ID,
			Notes:             strings.TrimSpace(in.Notes),
			PaymentOrderID:    in.OrderID,
			PaymentID:         in.PaymentID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if coupon != nil {
			order.CouponID = &coupon.ID
		}
		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return errAlreadyPlaced
			}
			return internalError(err, "create order")
		}

		orderItems := make([]model.OrderItem, 0, len(results))
		for _, l := range results {
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           l.ProductID,
				ProductNameSnapshot: l.Name,
				SKUSnapshot:         l.SKU,
				UnitPriceSnapshot:   l.UnitPrice,
				MRPSnapshot:         l.MRP,
				Quantity:            l.Quantity,
				CreatedAt:           now,
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return internalError(err, "create order items")
		}

		if coupon != nil {
			if err := r.Coupons().CreateUsage(ctx, model.CouponUsage{
				CouponID: coupon.ID,
				UserID:   userID,
				OrderID:  order.ID,
				UsedAt:   now,
			}); err != nil {
				return internalError(err, "create coupon usage")
			}
			if _, err := r.Coupons().ClearApplied(ctx, userID); err != nil {
				return internalError(err, "clear applied coupon")
			}
		}

		entry := model.OrderTracking{
			OrderID:   order.ID,
			Status:    model.OrderStatusConfirmed,
			Message:   "Order confirmed. Payment received.",
			CreatedAt: now,
		}
		if err := r.Tracking().Append(ctx, entry); err != nil {
			return internalError(err, "append tracking")
		}

		if err := r.CartItems().ClearByUserID(ctx, userID); err != nil {
			return internalError(err, "clear cart")
		}

		out = OrderOutput{Order: order, Items: orderItems, Tracking: []model.OrderTracking{entry}}
		created = true
		return nil
	})

	if errors.Is(err, errAlreadyPlaced) {
		// 同時に同じ決済で確定された
		existing, found, ferr := u.orders.FindByPaymentOrderID(ctx, userID, in.OrderID)
		if ferr != nil || !found {
			return OrderOutput{}, conflict("order already placed for this payment")
		}
		return loadOrderOutput(ctx, u.items, u.tracking, existing)
	}
	if err != nil {
		return OrderOutput{}, passOrInternal(err, "place order")
	}
	if created {
		u.metrics.OrderPlaced()
	}
	return out, nil
}

// 確定時にもう一度クーポンを判定し、全体の使用回数を確保する。
// 利用回数はユーザー行のロックを取ってから数える
func (u *OrderUsecase) redeemable(ctx context.Context, coupons repo.CouponRepository, c model.Coupon, userID int64, subtotal decimal.Decimal) error {
	if err := coupons.LockUserRedemptions(ctx, userID); err != nil {
		return internalError(err, "lock coupon redemptions")
	}
	usage, err := coupons.CountUsagesByUser(ctx, userID)
	if err != nil {
		return internalError(err, "count coupon usages")
	}
	if he := u.evaluator.Check(c, u.clock.Now(), subtotal, usage[c.ID]); he != nil {
		return he
	}
	ok, err := coupons.IncrementUsage(ctx, c.ID)
	if err != nil {
		return internalError(err, "increment coupon usage")
	}
	if !ok {
		return businessError(CodeCouponNotEligible, "coupon usage limit reached")
	}
	return nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, unauthorized("unauthorized")
	}
	page, limit = normalizePage(page, limit)

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, internalError(err, "list orders")
	}

	list, err := withItems(ctx, u.items, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Orders: list, Total: total, Page: page, Limit: limit}, nil
}

// 明細と追跡履歴つき。他人の注文は存在しない扱い
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, unauthorized("unauthorized")
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, notFoundOrInternal(err, "order")
	}
	if o.UserID != userID {
		return OrderOutput{}, notFound("order not found")
	}
	return loadOrderOutput(ctx, u.items, u.tracking, o)
}

// 顧客キャンセル（手数料控除後に返金）
func (u *OrderUsecase) Cancel(ctx context.Context, userID, orderID int64, in CancelOrderInput) (CancelOrderOutput, error) {
	if userID <= 0 {
		return CancelOrderOutput{}, unauthorized("unauthorized")
	}

	var out CancelOrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOrInternal(err, "order")
		}
		if o.UserID != userID {
			return notFound("order not found")
		}

		confirmedAt := o.UpdatedAt
		first, found, err := r.Tracking().FindFirstByStatus(ctx, o.ID, model.OrderStatusConfirmed)
		if err != nil {
			return internalError(err, "find confirmed tracking")
		}
		if found {
			confirmedAt = first.CreatedAt
		}

		now := u.clock.Now()
		if he := u.policy.CheckCustomerCancel(o.Status, confirmedAt, now); he != nil {
			return he
		}

		refund, fee := u.policy.Refund(o.Total)
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			reason = "cancelled by customer"
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return internalError(err, "list order items")
		}
		for _, it := range items {
			if err := r.Inventory().Release(ctx, it.ProductID, it.Quantity); err != nil {
				return internalError(err, "release stock")
			}
		}

		if err := r.Orders().MarkCancelled(ctx, o.ID, refund, reason); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return businessError(CodeInvalidOrderState, "order cannot be cancelled")
			}
			return internalError(err, "mark cancelled")
		}

		msg := fmt.Sprintf("Order cancelled by customer. Refund of %s initiated after %s cancellation fee.",
			refund.StringFixed(2), fee.StringFixed(2))
		if err := r.Tracking().Append(ctx, model.OrderTracking{
			OrderID:   o.ID,
			Status:    model.OrderStatusCancelled,
			Message:   msg,
			CreatedAt: now,
		}); err != nil {
			return internalError(err, "append tracking")
		}

		o.Status = model.OrderStatusCancelled
		o.PaymentStatus = model.PaymentStatusRefunded
		o.RefundAmount = &refund
		o.CancelReason = reason
		o.UpdatedAt = now

		detail, err := loadOrderOutput(ctx, r.OrderItems(), r.Tracking(), o)
		if err != nil {
			return err
		}
		out = CancelOrderOutput{Order: detail, RefundAmount: refund, Deduction: fee, Message: msg}
		return nil
	})
	if err != nil {
		return CancelOrderOutput{}, passOrInternal(err, "cancel order")
	}

	u.metrics.OrderCancelled()
	return out, nil
}

func loadOrderOutput(
	ctx context.Context,
	items repo.OrderItemRepository,
	tracking repo.OrderTrackingRepository,
	o model.Order,
) (OrderOutput, error) {
	its, err := items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, internalError(err, "list order items")
	}
	tr, err := tracking.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, internalError(err, "list order tracking")
	}
	return OrderOutput{Order: o, Items: its, Tracking: tr}, nil
}

// 一覧用。明細はまとめて引く
func withItems(ctx context.Context, items repo.OrderItemRepository, orders []model.Order) ([]OrderOutput, error) {
	out := make([]OrderOutput, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	byOrder, err := items.ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err, "list order items")
	}
	for _, o := range orders {
		its := byOrder[o.ID]
		if its == nil {
			its = []model.OrderItem{}
		}
		out = append(out, OrderOutput{Order: o, Items: its})
	}
	return out, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
