package handler

import (
	"net/http"
	"strings"

	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products, /categories の公開API
type ProductHandler struct {
	products   *usecase.ProductUsecase
	categories *usecase.CategoryUsecase
}

// DI
func NewProductHandler(products *usecase.ProductUsecase, categories *usecase.CategoryUsecase) *ProductHandler {
	return &ProductHandler{products: products, categories: categories}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo, _ Guards) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.GET("/categories", h.listCategories)
	e.GET("/categories/:slug", h.category)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, err := listProductsInput(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.products.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.products.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) listCategories(c echo.Context) error {
	out, err := h.categories.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) category(c echo.Context) error {
	out, err := h.categories.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// page, limit, q, category, minPrice, maxPrice, sort
func listProductsInput(c echo.Context) (usecase.ListProductsInput, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	minPrice, err := queryDecimalPtr(c, "minPrice")
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	maxPrice, err := queryDecimalPtr(c, "maxPrice")
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	return usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        strings.TrimSpace(c.QueryParam("q")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	}, nil
}

func queryDecimalPtr(c echo.Context, name string) (*decimal.Decimal, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &d, nil
}
