package repository

import (
	"context"

	repo "air5star/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	tracking   repo.OrderTrackingRepository
	cartItems  repo.CartItemRepository
	inventory  repo.InventoryRepository
	products   repo.ProductRepository
	coupons    repo.CouponRepository
	addresses  repo.AddressRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository           { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository   { return r.orderItems }
func (r *txReposGorm) Tracking() repo.OrderTrackingRepository { return r.tracking }
func (r *txReposGorm) CartItems() repo.CartItemRepository     { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository    { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository       { return r.products }
func (r *txReposGorm) Coupons() repo.CouponRepository         { return r.coupons }
func (r *txReposGorm) Addresses() repo.AddressRepository      { return r.addresses }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository     { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:     NewOrderGormRepository(tx),
			orderItems: NewOrderItemGormRepository(tx),
			tracking:   NewOrderTrackingGormRepository(tx),
			cartItems:  NewCartItemGormRepository(tx),
			inventory:  NewInventoryGormRepository(tx),
			products:   NewProductGormRepository(tx),
			coupons:    NewCouponGormRepository(tx),
			addresses:  NewAddressGormRepository(tx),
			auditLogs:  NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
