package usecase

import (
	"context"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジック。
// 数量は毎回在庫台帳の販売可能数で検証する。
type CartUsecase struct {
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	inventory repo.InventoryRepository
	coupons   repo.CouponRepository
	pricing   Pricing
}

func NewCartUsecase(
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	inventory repo.InventoryRepository,
	coupons repo.CouponRepository,
	pricing Pricing,
) *CartUsecase {
	return &CartUsecase{
		cartItems: cartItems,
		products:  products,
		inventory: inventory,
		coupons:   coupons,
		pricing:   pricing,
	}
}

// 商品情報つきの明細
type CartItemOutput struct {
	ProductID      int64           `json:"productId"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	ImageURL       string          `json:"imageUrl"`
	Price          decimal.Decimal `json:"price"`
	MRP            decimal.Decimal `json:"mrp"`
	Quantity       int64           `json:"quantity"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
	AvailableStock int64           `json:"availableStock"`
}

type CartOutput struct {
	Items     []CartItemOutput `json:"items"`
	ItemCount int64            `json:"itemCount"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Coupon    *CouponDTO       `json:"coupon,omitempty"`
	Totals    Totals           `json:"totals"`
}

type AddCartInput struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type UpdateCartItemInput struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type RemoveCartItemOutput struct {
	Message     string `json:"message"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// カート取得（非公開・削除済みの商品は除く）
func (u *CartUsecase) List(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, unauthorized("unauthorized")
	}

	items, err := u.cartItems.ListByUserID(ctx, userID)
	if err != nil {
		return CartOutput{}, internalError(err, "list cart items")
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.products.FindByIDs(ctx, ids)
	if err != nil {
		return CartOutput{}, internalError(err, "find products")
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	stock, err := u.inventory.FindByProductIDs(ctx, ids)
	if err != nil {
		return CartOutput{}, internalError(err, "find inventory")
	}

	out := CartOutput{Items: make([]CartItemOutput, 0, len(items)), Subtotal: decimal.Zero}
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsSellable() {
			continue
		}
		line := toCartItemOutput(p, it.Quantity, stock[p.ID].AvailableStock())
		out.Items = append(out.Items, line)
		out.ItemCount += it.Quantity
		out.Subtotal = out.Subtotal.Add(line.LineTotal)
	}

	coupon, err := findAppliedCoupon(ctx, u.coupons, userID)
	if err != nil {
		return CartOutput{}, err
	}
	if coupon != nil {
		dto := toCouponDTO(*coupon)
		out.Coupon = &dto
	}
	out.Totals = u.pricing.Compute(out.Subtotal, coupon)
	return out, nil
}

// 追加（同じ商品は数量を合算）。合算後も販売可能数以内。
func (u *CartUsecase) Add(ctx context.Context, userID int64, in AddCartInput) (CartItemOutput, error) {
	if userID <= 0 {
		return CartItemOutput{}, unauthorized("unauthorized")
	}
	if in.ProductID <= 0 {
		return CartItemOutput{}, validationError("invalid productId")
	}
	if in.Quantity < 1 {
		return CartItemOutput{}, validationError("quantity must be at least 1")
	}

	p, available, err := u.sellable(ctx, in.ProductID)
	if err != nil {
		return CartItemOutput{}, err
	}

	var existing int64
	cur, err := u.cartItems.FindByUserAndProduct(ctx, userID, in.ProductID)
	switch {
	case err == nil:
		existing = cur.Quantity
	case !errors.Is(err, repo.ErrNotFound):
		return CartItemOutput{}, internalError(err, "find cart item")
	}

	newQty := existing + in.Quantity
	if newQty > available {
		return CartItemOutput{}, insufficientStock(p, available, newQty)
	}

	saved, err := u.cartItems.Save(ctx, userID, in.ProductID, newQty)
	if err != nil {
		return CartItemOutput{}, internalError(err, "save cart item")
	}
	return toCartItemOutput(p, saved.Quantity, available), nil
}

// 数量の上書き
func (u *CartUsecase) Update(ctx context.Context, userID, productID int64, in UpdateCartItemInput) (CartItemOutput, error) {
	if userID <= 0 {
		return CartItemOutput{}, unauthorized("unauthorized")
	}
	if in.Quantity < 1 {
		return CartItemOutput{}, validationError("quantity must be at least 1")
	}

	if _, err := u.cartItems.FindByUserAndProduct(ctx, userID, productID); err != nil {
		return CartItemOutput{}, notFoundOrInternal(err, "cart item")
	}

	p, available, err := u.sellable(ctx, productID)
	if err != nil {
		return CartItemOutput{}, err
	}
	if in.Quantity > available {
		return CartItemOutput{}, insufficientStock(p, available, in.Quantity)
	}

	if err := u.cartItems.UpdateQuantity(ctx, userID, productID, in.Quantity); err != nil {
		return CartItemOutput{}, notFoundOrInternal(err, "cart item")
	}
	return toCartItemOutput(p, in.Quantity, available), nil
}

// 明細削除
func (u *CartUsecase) Remove(ctx context.Context, userID, productID int64) (RemoveCartItemOutput, error) {
	if userID <= 0 {
		return RemoveCartItemOutput{}, unauthorized("unauthorized")
	}

	if _, err := u.cartItems.FindByUserAndProduct(ctx, userID, productID); err != nil {
		return RemoveCartItemOutput{}, notFoundOrInternal(err, "cart item")
	}

	// 名前は返却用。商品が消えていても削除はする
	var name string
	if p, err := u.products.FindByID(ctx, productID); err == nil {
		name = p.Name
	}

	if err := u.cartItems.Delete(ctx, userID, productID); err != nil {
		return RemoveCartItemOutput{}, notFoundOrInternal(err, "cart item")
	}
	return RemoveCartItemOutput{
		Message:     "item removed from cart",
		ProductID:   productID,
		ProductName: name,
	}, nil
}

// 公開中の商品と販売可能数
func (u *CartUsecase) sellable(ctx context.Context, productID int64) (model.Product, int64, error) {
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, 0, productUnavailable(productID)
	}
	if err != nil {
		return model.Product{}, 0, internalError(err, "find product")
	}
	if !p.IsSellable() {
		return model.Product{}, 0, productUnavailable(productID)
	}

	inv, err := u.inventory.FindByProductID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return p, 0, nil
	}
	if err != nil {
		return model.Product{}, 0, internalError(err, "find inventory")
	}
	return p, inv.AvailableStock(), nil
}

func toCartItemOutput(p model.Product, qty, available int64) CartItemOutput {
	return CartItemOutput{
		ProductID:      p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		ImageURL:       p.ImageURL,
		Price:          p.Price,
		MRP:            p.MRP,
		Quantity:       qty,
		LineTotal:      p.Price.Mul(decimal.NewFromInt(qty)),
		AvailableStock: available,
	}
}

func insufficientStock(p model.Product, available, requested int64) *HTTPError {
	return businessError(CodeInsufficientStock, "insufficient stock for "+p.Name).
		WithDetails(map[string]any{
			"productId":         p.ID,
			"availableStock":    available,
			"requestedQuantity": requested,
		})
}

func productUnavailable(productID int64) *HTTPError {
	return businessError(CodeProductUnavailable, "product is not available").
		WithDetails(map[string]any{"productId": productID})
}
