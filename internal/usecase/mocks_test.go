package usecase

import (
	"context"
	"time"

	"air5star/internal/domain/model"
	"air5star/internal/infra/payment"
	repo "air5star/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// Clock / Tx
// =====================

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ id string }

func (s seqIDs) NewID() string { return s.id }

// WithinTx はそのまま fn を呼ぶ（mockをtx内repoとして渡す）
type fakeTx struct{ repos *mockTxRepos }

func (f fakeTx) WithinTx(_ context.Context, fn func(r repo.TxRepos) error) error {
	return fn(f.repos)
}

type mockTxRepos struct {
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	tracking   *TrackingRepoMock
	cartItems  *CartItemRepoMock
	inventory  *InventoryRepoMock
	products   *ProductRepoMock
	coupons    *CouponRepoMock
	addresses  repo.AddressRepository
	auditLogs  *AuditRepoMock
}

func newMockTxRepos() *mockTxRepos {
	return &mockTxRepos{
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		tracking:   new(TrackingRepoMock),
		cartItems:  new(CartItemRepoMock),
		inventory:  new(InventoryRepoMock),
		products:   new(ProductRepoMock),
		coupons:    new(CouponRepoMock),
		auditLogs:  new(AuditRepoMock),
	}
}

func (r *mockTxRepos) Orders() repo.OrderRepository           { return r.orders }
func (r *mockTxRepos) OrderItems() repo.OrderItemRepository   { return r.orderItems }
func (r *mockTxRepos) Tracking() repo.OrderTrackingRepository { return r.tracking }
func (r *mockTxRepos) CartItems() repo.CartItemRepository     { return r.cartItems }
func (r *mockTxRepos) Inventory() repo.InventoryRepository    { return r.inventory }
func (r *mockTxRepos) Products() repo.ProductRepository       { return r.products }
func (r *mockTxRepos) Coupons() repo.CouponRepository         { return r.coupons }
func (r *mockTxRepos) Addresses() repo.AddressRepository      { return r.addresses }
func (r *mockTxRepos) AuditLogs() repo.AuditLogRepository     { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	panic("not used")
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) FindByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	args := m.Called(ctx, productID)
	inv, _ := args.Get(0).(model.Inventory)
	return inv, args.Error(1)
}

func (m *InventoryRepoMock) FindByProductIDs(ctx context.Context, ids []int64) (map[int64]model.Inventory, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).(map[int64]model.Inventory)
	return out, args.Error(1)
}

func (m *InventoryRepoMock) Init(ctx context.Context, productID int64, stock int64) error {
	return m.Called(ctx, productID, stock).Error(0)
}

func (m *InventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) (int64, error) {
	args := m.Called(ctx, productID, newStock)
	return args.Get(0).(int64), args.Error(1)
}

func (m *InventoryRepoMock) Reserve(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) Release(ctx context.Context, productID int64, qty int64) error {
	return m.Called(ctx, productID, qty).Error(0)
}

func (m *InventoryRepoMock) Commit(ctx context.Context, productID int64, qty int64) error {
	return m.Called(ctx, productID, qty).Error(0)
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return m.Called(ctx, adj).Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) FindByUserAndProduct(ctx context.Context, userID, productID int64) (model.CartItem, error) {
	args := m.Called(ctx, userID, productID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) Save(ctx context.Context, userID, productID, qty int64) (model.CartItem, error) {
	args := m.Called(ctx, userID, productID, qty)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, userID, productID, qty int64) error {
	return m.Called(ctx, userID, productID, qty).Error(0)
}

func (m *CartItemRepoMock) Delete(ctx context.Context, userID, productID int64) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *CartItemRepoMock) ClearByUserID(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type CouponRepoMock struct{ mock.Mock }

func (m *CouponRepoMock) ListActiveAt(ctx context.Context, now time.Time) ([]model.Coupon, error) {
	args := m.Called(ctx, now)
	list, _ := args.Get(0).([]model.Coupon)
	return list, args.Error(1)
}

func (m *CouponRepoMock) List(ctx context.Context) ([]model.Coupon, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Coupon)
	return list, args.Error(1)
}

func (m *CouponRepoMock) FindByID(ctx context.Context, id int64) (model.Coupon, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Coupon)
	return c, args.Error(1)
}

func (m *CouponRepoMock) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	args := m.Called(ctx, code)
	c, _ := args.Get(0).(model.Coupon)
	return c, args.Error(1)
}

func (m *CouponRepoMock) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	args := m.Called(ctx, c)
	created, _ := args.Get(0).(model.Coupon)
	return created, args.Error(1)
}

func (m *CouponRepoMock) LockUserRedemptions(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *CouponRepoMock) CountUsagesByUser(ctx context.Context, userID int64) (map[int64]int64, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(map[int64]int64)
	return out, args.Error(1)
}

func (m *CouponRepoMock) IncrementUsage(ctx context.Context, couponID int64) (bool, error) {
	args := m.Called(ctx, couponID)
	return args.Bool(0), args.Error(1)
}

func (m *CouponRepoMock) CreateUsage(ctx context.Context, usage model.CouponUsage) error {
	return m.Called(ctx, usage).Error(0)
}

func (m *CouponRepoMock) FindApplied(ctx context.Context, userID int64) (model.AppliedCoupon, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(model.AppliedCoupon)
	return a, args.Error(1)
}

func (m *CouponRepoMock) SetApplied(ctx context.Context, applied model.AppliedCoupon) error {
	return m.Called(ctx, applied).Error(0)
}

func (m *CouponRepoMock) ClearApplied(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	list, _ := args.Get(0).([]model.Order)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil {
		order.ID = 100
	}
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return m.Called(ctx, orderID, status).Error(0)
}

func (m *OrderRepoMock) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error {
	return m.Called(ctx, orderID, status).Error(0)
}

func (m *OrderRepoMock) MarkCancelled(ctx context.Context, orderID int64, refund decimal.Decimal, reason string) error {
	return m.Called(ctx, orderID, refund, reason).Error(0)
}

func (m *OrderRepoMock) FindByPaymentOrderID(ctx context.Context, userID int64, paymentOrderID string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, paymentOrderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.Order)
	return list, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return m.Called(ctx, orderID, items).Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	args := m.Called(ctx, orderIDs)
	out, _ := args.Get(0).(map[int64][]model.OrderItem)
	return out, args.Error(1)
}

type TrackingRepoMock struct{ mock.Mock }

func (m *TrackingRepoMock) Append(ctx context.Context, entry model.OrderTracking) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *TrackingRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderTracking, error) {
	args := m.Called(ctx, orderID)
	list, _ := args.Get(0).([]model.OrderTracking)
	return list, args.Error(1)
}

func (m *TrackingRepoMock) FindFirstByStatus(ctx context.Context, orderID int64, status model.OrderStatus) (model.OrderTracking, bool, error) {
	args := m.Called(ctx, orderID, status)
	tr, _ := args.Get(0).(model.OrderTracking)
	return tr, args.Bool(1), args.Error(2)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]model.AuditLog)
	return list, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) UpdateProfile(ctx context.Context, userID int64, name, phone string) error {
	return m.Called(ctx, userID, name, phone).Error(0)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *UserRepoMock) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func (m *UserRepoMock) SetActive(ctx context.Context, userID int64, isActive bool) error {
	return m.Called(ctx, userID, isActive).Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *UserRepoMock) List(ctx context.Context, f repo.UserListFilter) ([]model.User, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.User)
	return list, args.Get(1).(int64), args.Error(2)
}

type ResetRepoMock struct{ mock.Mock }

func (m *ResetRepoMock) Create(ctx context.Context, token model.PasswordResetToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *ResetRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	t, _ := args.Get(0).(model.PasswordResetToken)
	return t, args.Error(1)
}

func (m *ResetRepoMock) MarkUsed(ctx context.Context, tokenID int64, usedAt time.Time) error {
	return m.Called(ctx, tokenID, usedAt).Error(0)
}

// =====================
// Ports
// =====================

type MetricsMock struct{ mock.Mock }

func (m *MetricsMock) OrderPlaced()                  { m.Called() }
func (m *MetricsMock) OrderCancelled()               { m.Called() }
func (m *MetricsMock) OrderTransition(status string) { m.Called(status) }
func (m *MetricsMock) SignatureFailed()              { m.Called() }
func (m *MetricsMock) ReservationRejected()          { m.Called() }

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (payment.GatewayOrder, error) {
	args := m.Called(ctx, amountMinor, currency, receipt)
	o, _ := args.Get(0).(payment.GatewayOrder)
	return o, args.Error(1)
}

func (m *GatewayMock) FetchOrder(ctx context.Context, orderID string) (payment.GatewayOrder, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(payment.GatewayOrder)
	return o, args.Error(1)
}

func (m *GatewayMock) KeyID() string { return "rzp_test_key" }

type MailerMock struct{ mock.Mock }

func (m *MailerMock) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	return m.Called(ctx, to, resetURL).Error(0)
}

type HasherMock struct{ mock.Mock }

func (m *HasherMock) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

func (m *HasherMock) Verify(plain string, hashed string) bool {
	return m.Called(plain, hashed).Bool(0)
}

type TokenIssuerMock struct{ mock.Mock }

func (m *TokenIssuerMock) Issue(user *model.User, ttl time.Duration, now time.Time) (string, time.Time, error) {
	args := m.Called(user, ttl, now)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// 検証は常に通す
type passValidator struct{}

func (passValidator) ValidateRegister(context.Context, string, string) error { return nil }
func (passValidator) ValidateLogin(context.Context, string, string) error    { return nil }
func (passValidator) ValidatePassword(context.Context, string) error         { return nil }

// HTTPError のコードを確認
func errCode(err error) ErrorCode {
	if he, ok := AsHTTPError(err); ok {
		return he.Code
	}
	return ""
}
