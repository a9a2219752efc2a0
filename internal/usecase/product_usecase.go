package usecase

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	tx            repo.TransactionManager
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	categoryRepo  repo.CategoryRepository
	clock         Clock
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	categoryRepo repo.CategoryRepository,
	clock Clock,
) *ProductUsecase {
	return &ProductUsecase{
		tx:            tx,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		categoryRepo:  categoryRepo,
		clock:         clock,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string // slug
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// 在庫つきの商品
type ProductOutput struct {
	model.Product
	AvailableStock int64 `json:"availableStock"`
	InStock        bool  `json:"inStock"`
}

type ProductListOutput struct {
	Items []ProductOutput `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type ProductInput struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Slug        string          `json:"slug" validate:"max=255"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Brand       string          `json:"brand" validate:"max=100"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url,max=512"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	IsActive    bool            `json:"isActive"`
	CategoryID  int64           `json:"categoryId" validate:"required,gt=0"`
	// 作成時のみ
	InitialStock int64 `json:"initialStock" validate:"min=0"`
}

type SetInventoryInput struct {
	Stock  *int64 `json:"stock" validate:"required,min=0"`
	Reason string `json:"reason" validate:"required,max=255"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in, false)
}

func (u *ProductUsecase) AdminListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in, true)
}

func (u *ProductUsecase) list(ctx context.Context, in ListProductsInput, includeInactive bool) (ProductListOutput, error) {
	in.Page, in.Limit = normalizePage(in.Page, in.Limit)
	if len(in.Q) > 100 {
		return ProductListOutput{}, validationError("q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, validationError("minPrice must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, validationError("maxPrice must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, validationError("minPrice must be <= maxPrice")
	}
	switch in.Sort {
	case "", "newest", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, validationError("invalid sort")
	}

	q := repo.ProductListQuery{
		Page:            in.Page,
		Limit:           in.Limit,
		Q:               strings.TrimSpace(in.Q),
		MinPrice:        in.MinPrice,
		MaxPrice:        in.MaxPrice,
		Sort:            in.Sort,
		IncludeInactive: includeInactive,
	}
	if slug := strings.TrimSpace(in.Category); slug != "" {
		c, err := u.categoryRepo.FindBySlug(ctx, slug)
		if errors.Is(err, repo.ErrNotFound) {
			return ProductListOutput{Items: []ProductOutput{}, Page: in.Page, Limit: in.Limit}, nil
		}
		if err != nil {
			return ProductListOutput{}, internalError(err, "find category")
		}
		q.CategoryID = &c.ID
	}

	items, total, err := u.productRepo.List(ctx, q)
	if err != nil {
		return ProductListOutput{}, internalError(err, "list products")
	}
	out, err := u.withStock(ctx, items)
	if err != nil {
		return ProductListOutput{}, err
	}
	return ProductListOutput{Items: out, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 非公開は404
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductOutput, error) {
	if productID <= 0 {
		return ProductOutput{}, validationError("invalid product id")
	}
	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductOutput{}, notFoundOrInternal(err, "product")
	}
	if !p.IsActive {
		return ProductOutput{}, notFound("product not found")
	}
	out, err := u.withStock(ctx, []model.Product{p})
	if err != nil {
		return ProductOutput{}, err
	}
	return out[0], nil
}

func (u *ProductUsecase) withStock(ctx context.Context, items []model.Product) ([]ProductOutput, error) {
	ids := make([]int64, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	stock, err := u.inventoryRepo.FindByProductIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err, "find inventory")
	}
	out := make([]ProductOutput, 0, len(items))
	for _, p := range items {
		avail := stock[p.ID].AvailableStock()
		out = append(out, ProductOutput{Product: p, AvailableStock: avail, InStock: p.IsSellable() && avail > 0})
	}
	return out, nil
}

// 商品と在庫行を同じtxで作る
func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in ProductInput) (ProductOutput, error) {
	p, err := u.productFromInput(ctx, model.Product{}, in)
	if err != nil {
		return ProductOutput{}, err
	}
	if in.InitialStock < 0 {
		return ProductOutput{}, validationError("initialStock must be >= 0")
	}

	var created model.Product
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		created, err = r.Products().Create(ctx, p)
		if errors.Is(err, repo.ErrDuplicate) {
			return conflict("sku or slug already exists")
		}
		if err != nil {
			return internalError(err, "create product")
		}
		if err := r.Inventory().Init(ctx, created.ID, in.InitialStock); err != nil {
			return internalError(err, "init inventory")
		}
		if in.InitialStock > 0 {
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID:   created.ID,
				AdminUserID: adminUserID,
				Delta:       in.InitialStock,
				Reason:      "initial stock",
				CreatedAt:   u.clock.Now(),
			}); err != nil {
				return internalError(err, "create adjustment")
			}
		}
		return nil
	})
	if err != nil {
		return ProductOutput{}, passOrInternal(err, "create product")
	}
	return ProductOutput{Product: created, AvailableStock: in.InitialStock, InStock: created.IsSellable() && in.InitialStock > 0}, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, productID int64, in ProductInput) (ProductOutput, error) {
	cur, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductOutput{}, notFoundOrInternal(err, "product")
	}
	p, err := u.productFromInput(ctx, cur, in)
	if err != nil {
		return ProductOutput{}, err
	}

	err = u.productRepo.Update(ctx, p)
	if errors.Is(err, repo.ErrDuplicate) {
		return ProductOutput{}, conflict("sku or slug already exists")
	}
	if err != nil {
		return ProductOutput{}, notFoundOrInternal(err, "product")
	}
	out, err := u.withStock(ctx, []model.Product{p})
	if err != nil {
		return ProductOutput{}, err
	}
	return out[0], nil
}

// 論理削除（注文明細のスナップショットは残る）
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, productID int64) (SuccessResponse, error) {
	if productID <= 0 {
		return SuccessResponse{}, validationError("invalid product id")
	}
	if err := u.productRepo.SoftDelete(ctx, productID); err != nil {
		return SuccessResponse{}, notFoundOrInternal(err, "product")
	}
	return SuccessResponse{Message: "product deleted"}, nil
}

// 在庫の現在値を設定。予約数を下回る値は不可。
func (u *ProductUsecase) AdminSetInventory(ctx context.Context, adminUserID, productID int64, in SetInventoryInput) (model.Inventory, error) {
	if adminUserID <= 0 {
		return model.Inventory{}, unauthorized("unauthorized")
	}
	if in.Stock == nil || *in.Stock < 0 {
		return model.Inventory{}, validationError("stock must be >= 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return model.Inventory{}, validationError("reason required")
	}
	newStock := *in.Stock

	var out model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, productID); err != nil {
			return notFoundOrInternal(err, "product")
		}
		if err := r.Inventory().Init(ctx, productID, 0); err != nil {
			return internalError(err, "init inventory")
		}
		cur, err := r.Inventory().FindByProductID(ctx, productID)
		if err != nil {
			return internalError(err, "find inventory")
		}
		if newStock < cur.ReservedQuantity {
			return validationError("stock cannot be lower than reserved quantity").
				WithDetails(map[string]any{"reservedQuantity": cur.ReservedQuantity})
		}

		prev, err := r.Inventory().SetStock(ctx, productID, newStock)
		if err != nil {
			return notFoundOrInternal(err, "inventory")
		}

		now := u.clock.Now()
		//履歴を作成（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			AdminUserID: adminUserID,
			Delta:       newStock - prev,
			Reason:      reason,
			CreatedAt:   now,
		}); err != nil {
			return internalError(err, "create adjustment")
		}

		//「誰が」「何を」「どの対象に」「どう変えたか」を残す
		before, _ := json.Marshal(map[string]int64{"stockQuantity": prev})
		after, _ := json.Marshal(map[string]int64{"stockQuantity": newStock})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    now,
		}); err != nil {
			return internalError(err, "create audit log")
		}

		cur.StockQuantity = newStock
		cur.UpdatedAt = now
		out = cur
		return nil
	})
	if err != nil {
		return model.Inventory{}, passOrInternal(err, "set inventory")
	}
	return out, nil
}

func (u *ProductUsecase) productFromInput(ctx context.Context, p model.Product, in ProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, validationError("name required")
	}
	if strings.TrimSpace(in.SKU) == "" {
		return model.Product{}, validationError("sku required")
	}
	if in.Price.IsNegative() || in.MRP.IsNegative() {
		return model.Product{}, validationError("price must be >= 0")
	}
	// 公開するなら価格は必須
	if in.IsActive && !in.Price.IsPositive() {
		return model.Product{}, validationError("active product must have a price greater than 0")
	}
	mrp := in.MRP
	if mrp.IsZero() {
		mrp = in.Price
	}
	if mrp.LessThan(in.Price) {
		return model.Product{}, validationError("mrp must be >= price")
	}

	if _, err := u.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Product{}, validationError("category not found")
		}
		return model.Product{}, internalError(err, "find category")
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = slugify(name + " " + in.SKU)
	}

	p.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	p.Slug = slug
	p.Name = name
	p.Description = in.Description
	p.Brand = strings.TrimSpace(in.Brand)
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.Price = in.Price.Round(2)
	p.MRP = mrp.Round(2)
	p.IsActive = in.IsActive
	p.CategoryID = in.CategoryID
	return p, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
