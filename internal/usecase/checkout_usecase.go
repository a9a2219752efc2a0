package usecase

import (
	"context"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/shopspring/decimal"
)

// 決済前の最終確認。予約はしない。
type CheckoutUsecase struct {
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	inventory repo.InventoryRepository
	coupons   repo.CouponRepository
	pricing   Pricing
}

func NewCheckoutUsecase(
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	inventory repo.InventoryRepository,
	coupons repo.CouponRepository,
	pricing Pricing,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		cartItems: cartItems,
		products:  products,
		inventory: inventory,
		coupons:   coupons,
		pricing:   pricing,
	}
}

type CheckoutLine struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

// 空ならカートの内容で検証する
type CheckoutValidateInput struct {
	Items []CheckoutLine `json:"items" validate:"omitempty,dive"`
}

type CheckoutLineResult struct {
	ProductID         int64           `json:"productId"`
	Quantity          int64           `json:"quantity"`
	Valid             bool            `json:"valid"`
	Code              ErrorCode       `json:"code,omitempty"`
	Message           string          `json:"message,omitempty"`
	Name              string          `json:"name,omitempty"`
	SKU               string          `json:"sku,omitempty"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	MRP               decimal.Decimal `json:"mrp"`
	AvailableStock    int64           `json:"availableStock"`
	RequestedQuantity int64           `json:"requestedQuantity"`
}

type CheckoutValidation struct {
	IsValid bool                 `json:"isValid"`
	Items   []CheckoutLineResult `json:"items"`
	Totals  *Totals              `json:"totals,omitempty"`
}

func (u *CheckoutUsecase) Validate(ctx context.Context, userID int64, in CheckoutValidateInput) (CheckoutValidation, error) {
	if userID <= 0 {
		return CheckoutValidation{}, unauthorized("unauthorized")
	}

	lines := in.Items
	// 同じ商品の行が複数あると在庫判定が行ごとになるので受け付けない
	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if _, dup := seen[l.ProductID]; dup {
			return CheckoutValidation{}, NewValidationError("duplicate productId in items",
				map[string]any{"productId": l.ProductID})
		}
		seen[l.ProductID] = struct{}{}
	}
	if len(lines) == 0 {
		items, err := u.cartItems.ListByUserID(ctx, userID)
		if err != nil {
			return CheckoutValidation{}, internalError(err, "list cart items")
		}
		for _, it := range items {
			lines = append(lines, CheckoutLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}
	if len(lines) == 0 {
		return CheckoutValidation{}, businessError(CodeCartEmpty, "cart is empty")
	}

	products, stock, err := loadCatalog(ctx, u.products, u.inventory, lines)
	if err != nil {
		return CheckoutValidation{}, err
	}
	results := validateLines(lines, products, stock)

	out := CheckoutValidation{IsValid: allValid(results), Items: results}
	if out.IsValid {
		coupon, err := findAppliedCoupon(ctx, u.coupons, userID)
		if err != nil {
			return CheckoutValidation{}, err
		}
		totals := u.pricing.Compute(linesSubtotal(results), coupon)
		out.Totals = &totals
	}
	return out, nil
}

// 商品と在庫をまとめて引く
func loadCatalog(
	ctx context.Context,
	products repo.ProductRepository,
	inventory repo.InventoryRepository,
	lines []CheckoutLine,
) (map[int64]model.Product, map[int64]model.Inventory, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	list, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, internalError(err, "find products")
	}
	byID := make(map[int64]model.Product, len(list))
	for _, p := range list {
		byID[p.ID] = p
	}
	stock, err := inventory.FindByProductIDs(ctx, ids)
	if err != nil {
		return nil, nil, internalError(err, "find inventory")
	}
	return byID, stock, nil
}

// 入力順に1行ずつ判定する
func validateLines(lines []CheckoutLine, products map[int64]model.Product, stock map[int64]model.Inventory) []CheckoutLineResult {
	out := make([]CheckoutLineResult, 0, len(lines))
	for _, l := range lines {
		r := CheckoutLineResult{ProductID: l.ProductID, Quantity: l.Quantity, RequestedQuantity: l.Quantity}

		p, ok := products[l.ProductID]
		if !ok || !p.IsSellable() {
			r.Code = CodeProductUnavailable
			r.Message = "product is not available"
			out = append(out, r)
			continue
		}
		r.Name = p.Name
		r.SKU = p.SKU
		r.UnitPrice = p.Price
		r.MRP = p.MRP
		r.AvailableStock = stock[l.ProductID].AvailableStock()

		if l.Quantity > r.AvailableStock {
			r.Code = CodeInsufficientStock
			r.Message = "insufficient stock for " + p.Name
			out = append(out, r)
			continue
		}
		r.Valid = true
		out = append(out, r)
	}
	return out
}

func allValid(results []CheckoutLineResult) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}

func linesSubtotal(results []CheckoutLineResult) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range results {
		sum = sum.Add(r.UnitPrice.Mul(decimal.NewFromInt(r.Quantity)))
	}
	return sum
}

// 最初に失敗した行をエラーにする
func firstLineError(results []CheckoutLineResult) *HTTPError {
	for _, r := range results {
		if r.Valid {
			continue
		}
		he := businessError(r.Code, r.Message)
		if r.Code == CodeInsufficientStock {
			return he.WithDetails(map[string]any{
				"productId":         r.ProductID,
				"availableStock":    r.AvailableStock,
				"requestedQuantity": r.RequestedQuantity,
			})
		}
		return he.WithDetails(map[string]any{"productId": r.ProductID})
	}
	return nil
}
