package repository

import (
	"context"

	"air5star/internal/domain/model"
)

// 在庫台帳。予約の増減は条件付きUPDATE1本で行う。
type InventoryRepository interface {
	FindByProductID(ctx context.Context, productID int64) (model.Inventory, error)
	FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]model.Inventory, error)

	// 在庫行を作成（既にあれば何もしない）
	Init(ctx context.Context, productID int64, stock int64) error

	// 在庫の現在値を設定し、変更前の値を返す
	SetStock(ctx context.Context, productID int64, newStock int64) (int64, error)

	// 販売可能数が足りるときだけ予約を増やす
	Reserve(ctx context.Context, productID int64, qty int64) (bool, error)

	// 予約戻し（キャンセル）。0未満にはしない
	Release(ctx context.Context, productID int64, qty int64) error

	// 出荷確定：在庫と予約を同時に減らす
	Commit(ctx context.Context, productID int64, qty int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
