package repository

import (
	"context"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) FindByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	var inv model.Inventory
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&inv).Error; err != nil {
		return model.Inventory{}, translateError(err)
	}
	return inv, nil
}

// 在庫行が無い商品はmapに入らない
func (r *InventoryGormRepository) FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]model.Inventory, error) {
	out := make(map[int64]model.Inventory, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []model.Inventory
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, inv := range rows {
		out[inv.ProductID] = inv
	}
	return out, nil
}

func (r *InventoryGormRepository) Init(ctx context.Context, productID int64, stock int64) error {
	inv := model.Inventory{ProductID: productID, StockQuantity: stock}
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&inv).Error)
}

// 在庫の現在値を設定
func (r *InventoryGormRepository) SetStock(ctx context.Context, productID int64, newStock int64) (int64, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&inv).Error
	if err != nil {
		return 0, translateError(err)
	}

	if err := affected(r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("stock_quantity", newStock)); err != nil {
		return 0, err
	}
	return inv.StockQuantity, nil
}

// 販売可能数が足りるときだけ予約を増やす
func (r *InventoryGormRepository) Reserve(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ? AND stock_quantity - reserved_quantity >= ?", productID, qty).
		Update("reserved_quantity", gorm.Expr("reserved_quantity + ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 予約戻し（キャンセル）
func (r *InventoryGormRepository) Release(ctx context.Context, productID int64, qty int64) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("reserved_quantity", gorm.Expr("GREATEST(reserved_quantity - ?, 0)", qty)))
}

// 出荷確定。予約と在庫を同じだけ減らす
func (r *InventoryGormRepository) Commit(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ? AND reserved_quantity >= ? AND stock_quantity >= ?", productID, qty, qty).
		Updates(map[string]any{
			"stock_quantity":    gorm.Expr("stock_quantity - ?", qty),
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}
