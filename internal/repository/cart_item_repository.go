package repository

import (
	"context"

	"air5star/internal/domain/model"
)

// カートは (user_id, product_id) 単位
type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	FindByUserAndProduct(ctx context.Context, userID, productID int64) (model.CartItem, error)
	// 数量を上書きで保存（無ければ作成）
	Save(ctx context.Context, userID, productID, qty int64) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, productID, qty int64) error
	Delete(ctx context.Context, userID, productID int64) error
	ClearByUserID(ctx context.Context, userID int64) error
}

type WishlistRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
	// 既にあれば何もしない
	Add(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
}
