package usecase

import (
	"context"
	"time"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type WishlistUsecase struct {
	wishlist  repo.WishlistRepository
	products  repo.ProductRepository
	inventory repo.InventoryRepository
}

func NewWishlistUsecase(
	wishlist repo.WishlistRepository,
	products repo.ProductRepository,
	inventory repo.InventoryRepository,
) *WishlistUsecase {
	return &WishlistUsecase{wishlist: wishlist, products: products, inventory: inventory}
}

type WishlistItemOutput struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	ImageURL  string          `json:"imageUrl"`
	Price     decimal.Decimal `json:"price"`
	MRP       decimal.Decimal `json:"mrp"`
	InStock   bool            `json:"inStock"`
	AddedAt   time.Time       `json:"addedAt"`
}

type AddWishlistInput struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

func (u *WishlistUsecase) List(ctx context.Context, userID int64) ([]WishlistItemOutput, error) {
	if userID <= 0 {
		return nil, unauthorized("unauthorized")
	}

	items, err := u.wishlist.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError(err, "list wishlist")
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err, "find products")
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	stock, err := u.inventory.FindByProductIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err, "find inventory")
	}

	out := make([]WishlistItemOutput, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		out = append(out, WishlistItemOutput{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			ImageURL:  p.ImageURL,
			Price:     p.Price,
			MRP:       p.MRP,
			InStock:   p.IsSellable() && stock[p.ID].AvailableStock() > 0,
			AddedAt:   it.CreatedAt,
		})
	}
	return out, nil
}

// 何度追加しても1件
func (u *WishlistUsecase) Add(ctx context.Context, userID int64, in AddWishlistInput) (SuccessResponse, error) {
	if userID <= 0 {
		return SuccessResponse{}, unauthorized("unauthorized")
	}
	p, err := u.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return SuccessResponse{}, notFoundOrInternal(err, "product")
	}
	if !p.IsActive {
		return SuccessResponse{}, notFound("product not found")
	}
	if err := u.wishlist.Add(ctx, userID, in.ProductID); err != nil {
		return SuccessResponse{}, internalError(err, "add wishlist item")
	}
	return SuccessResponse{Message: "added to wishlist"}, nil
}

func (u *WishlistUsecase) Remove(ctx context.Context, userID, productID int64) (SuccessResponse, error) {
	if userID <= 0 {
		return SuccessResponse{}, unauthorized("unauthorized")
	}
	err := u.wishlist.Remove(ctx, userID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return SuccessResponse{}, notFound("wishlist item not found")
	}
	if err != nil {
		return SuccessResponse{}, internalError(err, "remove wishlist item")
	}
	return SuccessResponse{Message: "removed from wishlist"}, nil
}
