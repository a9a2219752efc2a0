package repository

import (
	"context"

	"air5star/internal/domain/model"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

// スナップショットは呼び出し側で埋めておく
func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

// 1クエリでまとめて引く
func (r *OrderItemGormRepository) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	out := make(map[int64][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var items []model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("order_id asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, id := range orderIDs {
		out[id] = []model.OrderItem{}
	}
	for _, it := range items {
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, nil
}

type OrderTrackingGormRepository struct {
	db *gorm.DB
}

func NewOrderTrackingGormRepository(db *gorm.DB) *OrderTrackingGormRepository {
	return &OrderTrackingGormRepository{db: db}
}

// 追記のみ
func (r *OrderTrackingGormRepository) Append(ctx context.Context, entry model.OrderTracking) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *OrderTrackingGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderTracking, error) {
	var list []model.OrderTracking
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at asc, id asc").Find(&list).Error
	if err != nil {
		return []model.OrderTracking{}, err
	}
	return list, nil
}

func (r *OrderTrackingGormRepository) FindFirstByStatus(ctx context.Context, orderID int64, status model.OrderStatus) (model.OrderTracking, bool, error) {
	var list []model.OrderTracking
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, status).
		Order("created_at asc, id asc").
		Limit(1).
		Find(&list).Error
	if err != nil {
		return model.OrderTracking{}, false, err
	}
	if len(list) == 0 {
		return model.OrderTracking{}, false, nil
	}
	return list[0], true, nil
}
