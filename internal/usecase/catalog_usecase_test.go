package usecase

import (
	"context"
	"testing"
	"time"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var catalogNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type CategoryRepoMock struct{ mock.Mock }

func (m *CategoryRepoMock) List(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	args := m.Called(ctx, includeInactive)
	list, _ := args.Get(0).([]model.Category)
	return list, args.Error(1)
}

func (m *CategoryRepoMock) FindByID(ctx context.Context, id int64) (model.Category, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Category), args.Error(1)
}

func (m *CategoryRepoMock) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(model.Category), args.Error(1)
}

func (m *CategoryRepoMock) Create(ctx context.Context, c model.Category) (model.Category, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.Category), args.Error(1)
}

func (m *CategoryRepoMock) Update(ctx context.Context, c model.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *CategoryRepoMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *CategoryRepoMock) HasProducts(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type productFixture struct {
	uc         *ProductUsecase
	repos      *mockTxRepos
	categories *CategoryRepoMock
}

// tx外の読み取りもtx内と同じmockを使う
func newProductFixture() productFixture {
	repos := newMockTxRepos()
	categories := new(CategoryRepoMock)
	uc := NewProductUsecase(fakeTx{repos: repos}, repos.products, repos.inventory, categories, fixedClock{now: catalogNow})
	return productFixture{uc: uc, repos: repos, categories: categories}
}

func splitAC() ProductInput {
	return ProductInput{
		SKU:          "ac-split-2t",
		Name:         "Split AC 2T",
		Price:        d("45990"),
		IsActive:     true,
		CategoryID:   3,
		InitialStock: 5,
	}
}

func TestProductUsecase_List_UnknownCategoryIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	f.categories.On("FindBySlug", ctx, "chillers").Return(model.Category{}, repo.ErrNotFound)

	out, err := f.uc.ListPublicProducts(ctx, ListProductsInput{Category: "chillers"})

	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, 1, out.Page)
	f.repos.products.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestProductUsecase_List_RejectsBadFilters(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	lo, hi := d("50000"), d("30000")

	_, err := f.uc.ListPublicProducts(ctx, ListProductsInput{MinPrice: &lo, MaxPrice: &hi})
	assert.Equal(t, CodeValidation, errCode(err))

	_, err = f.uc.ListPublicProducts(ctx, ListProductsInput{Sort: "popular"})
	assert.Equal(t, CodeValidation, errCode(err))
}

func TestProductUsecase_List_PublicExcludesInactive(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	f.categories.On("FindBySlug", ctx, "split-ac").Return(model.Category{ID: 3, Slug: "split-ac"}, nil)
	f.repos.products.On("List", ctx, mock.MatchedBy(func(q repo.ProductListQuery) bool {
		return !q.IncludeInactive && q.CategoryID != nil && *q.CategoryID == 3 && q.Limit == 20
	})).Return([]model.Product{inverter()}, int64(1), nil)
	f.repos.inventory.On("FindByProductIDs", ctx, []int64{11}).
		Return(map[int64]model.Inventory{11: {ProductID: 11, StockQuantity: 4, ReservedQuantity: 4}}, nil)

	out, err := f.uc.ListPublicProducts(ctx, ListProductsInput{Category: "split-ac", Limit: 20})

	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(0), out.Items[0].AvailableStock)
	assert.False(t, out.Items[0].InStock)
}

func TestProductUsecase_GetProductDetail(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	hidden := inverter()
	hidden.ID = 12
	hidden.IsActive = false
	f.repos.products.On("FindByID", ctx, int64(11)).Return(inverter(), nil)
	f.repos.products.On("FindByID", ctx, int64(12)).Return(hidden, nil)
	f.repos.products.On("FindByID", ctx, int64(13)).Return(model.Product{}, repo.ErrNotFound)
	f.repos.inventory.On("FindByProductIDs", ctx, []int64{11}).
		Return(map[int64]model.Inventory{11: {ProductID: 11, StockQuantity: 10, ReservedQuantity: 3}}, nil)

	out, err := f.uc.GetProductDetail(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.AvailableStock)
	assert.True(t, out.InStock)

	_, err = f.uc.GetProductDetail(ctx, 12)
	assert.Equal(t, CodeNotFound, errCode(err))

	_, err = f.uc.GetProductDetail(ctx, 13)
	assert.Equal(t, CodeNotFound, errCode(err))
}

func TestProductUsecase_AdminCreateProduct(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	f.categories.On("FindByID", ctx, int64(3)).Return(model.Category{ID: 3}, nil)
	f.repos.products.On("Create", ctx, mock.MatchedBy(func(p model.Product) bool {
		return p.SKU == "AC-SPLIT-2T" && p.Slug == "split-ac-2t-ac-split-2t" && p.MRP.Equal(d("45990"))
	})).Return(model.Product{ID: 21, SKU: "AC-SPLIT-2T", Name: "Split AC 2T", Price: d("45990"), MRP: d("45990"), IsActive: true, CategoryID: 3}, nil)
	f.repos.inventory.On("Init", ctx, int64(21), int64(5)).Return(nil)
	f.repos.inventory.On("CreateAdjustment", ctx, model.InventoryAdjustment{
		ProductID: 21, AdminUserID: 9, Delta: 5, Reason: "initial stock", CreatedAt: catalogNow,
	}).Return(nil)

	out, err := f.uc.AdminCreateProduct(ctx, 9, splitAC())

	require.NoError(t, err)
	assert.Equal(t, int64(21), out.ID)
	assert.Equal(t, int64(5), out.AvailableStock)
	assert.True(t, out.InStock)
	f.repos.inventory.AssertExpectations(t)
}

func TestProductUsecase_AdminCreateProduct_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	f.categories.On("FindByID", ctx, int64(3)).Return(model.Category{ID: 3}, nil)
	f.categories.On("FindByID", ctx, int64(4)).Return(model.Category{}, repo.ErrNotFound)
	f.repos.products.On("Create", ctx, mock.Anything).Return(model.Product{}, repo.ErrDuplicate)

	// 公開するのに価格0
	in := splitAC()
	in.Price = d("0")
	_, err := f.uc.AdminCreateProduct(ctx, 9, in)
	assert.Equal(t, CodeValidation, errCode(err))

	// MRP < price
	in = splitAC()
	in.MRP = d("40000")
	_, err = f.uc.AdminCreateProduct(ctx, 9, in)
	assert.Equal(t, CodeValidation, errCode(err))

	in = splitAC()
	in.CategoryID = 4
	_, err = f.uc.AdminCreateProduct(ctx, 9, in)
	assert.Equal(t, CodeValidation, errCode(err))

	_, err = f.uc.AdminCreateProduct(ctx, 9, splitAC())
	assert.Equal(t, CodeConflict, errCode(err))
}

func TestProductUsecase_AdminSetInventory(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	stock := int64(25)
	f.repos.products.On("FindByID", ctx, int64(11)).Return(inverter(), nil)
	f.repos.inventory.On("Init", ctx, int64(11), int64(0)).Return(nil)
	f.repos.inventory.On("FindByProductID", ctx, int64(11)).
		Return(model.Inventory{ProductID: 11, StockQuantity: 10, ReservedQuantity: 3}, nil)
	f.repos.inventory.On("SetStock", ctx, int64(11), int64(25)).Return(int64(10), nil)
	f.repos.inventory.On("CreateAdjustment", ctx, model.InventoryAdjustment{
		ProductID: 11, AdminUserID: 9, Delta: 15, Reason: "restock", CreatedAt: catalogNow,
	}).Return(nil)
	f.repos.auditLogs.On("Create", ctx, model.AuditLog{
		ActorUserID:  9,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   11,
		BeforeJSON:   `{"stockQuantity":10}`,
		AfterJSON:    `{"stockQuantity":25}`,
		CreatedAt:    catalogNow,
	}).Return(nil)

	out, err := f.uc.AdminSetInventory(ctx, 9, 11, SetInventoryInput{Stock: &stock, Reason: " restock "})

	require.NoError(t, err)
	assert.Equal(t, int64(25), out.StockQuantity)
	assert.Equal(t, int64(22), out.AvailableStock())
	f.repos.auditLogs.AssertExpectations(t)
}

func TestProductUsecase_AdminSetInventory_BelowReserved(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	stock := int64(2)
	f.repos.products.On("FindByID", ctx, int64(11)).Return(inverter(), nil)
	f.repos.inventory.On("Init", ctx, int64(11), int64(0)).Return(nil)
	f.repos.inventory.On("FindByProductID", ctx, int64(11)).
		Return(model.Inventory{ProductID: 11, StockQuantity: 10, ReservedQuantity: 3}, nil)

	_, err := f.uc.AdminSetInventory(ctx, 9, 11, SetInventoryInput{Stock: &stock, Reason: "count"})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, he.Code)
	assert.Equal(t, int64(3), he.Details["reservedQuantity"])
	f.repos.inventory.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
}

func newCategoryUsecase() (*CategoryUsecase, *CategoryRepoMock, *AuditRepoMock) {
	categories := new(CategoryRepoMock)
	audit := new(AuditRepoMock)
	return NewCategoryUsecase(categories, audit, fixedClock{now: catalogNow}), categories, audit
}

func TestCategoryUsecase_GetBySlugHidesInactive(t *testing.T) {
	ctx := context.Background()
	uc, categories, _ := newCategoryUsecase()
	categories.On("FindBySlug", ctx, "vrf").Return(model.Category{ID: 5, Slug: "vrf", IsActive: false}, nil)

	_, err := uc.GetBySlug(ctx, " vrf ")

	assert.Equal(t, CodeNotFound, errCode(err))
}

func TestCategoryUsecase_AdminCreateAudits(t *testing.T) {
	ctx := context.Background()
	uc, categories, audit := newCategoryUsecase()
	categories.On("Create", ctx, model.Category{Name: "Window AC", Slug: "window-ac", IsActive: true}).
		Return(model.Category{ID: 6, Name: "Window AC", Slug: "window-ac", IsActive: true}, nil)
	audit.On("Create", ctx, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 9 && l.ResourceID == 6 && l.BeforeJSON == "" && l.AfterJSON != "" &&
			l.Action == model.AuditActionChangeCategory
	})).Return(nil)

	out, err := uc.AdminCreate(ctx, 9, CategoryInput{Name: " Window AC ", IsActive: true})

	require.NoError(t, err)
	assert.Equal(t, int64(6), out.ID)
	audit.AssertExpectations(t)
}

func TestCategoryUsecase_AdminUpdateRejectsSelfParent(t *testing.T) {
	ctx := context.Background()
	uc, categories, _ := newCategoryUsecase()
	categories.On("FindByID", ctx, int64(6)).Return(model.Category{ID: 6, Name: "Window AC"}, nil)
	self := int64(6)

	_, err := uc.AdminUpdate(ctx, 9, 6, CategoryInput{Name: "Window AC", ParentID: &self})

	assert.Equal(t, CodeValidation, errCode(err))
}

func TestCategoryUsecase_AdminDeleteWithProducts(t *testing.T) {
	ctx := context.Background()
	uc, categories, audit := newCategoryUsecase()
	categories.On("FindByID", ctx, int64(3)).Return(model.Category{ID: 3}, nil)
	categories.On("HasProducts", ctx, int64(3)).Return(true, nil)

	_, err := uc.AdminDelete(ctx, 9, 3)

	assert.Equal(t, CodeConflict, errCode(err))
	categories.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
