package handler

import (
	"net/http"
	"strings"

	"air5star/internal/domain/model"
	"air5star/internal/repository"
	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin 以下（ログイン以外）
type AdminHandler struct {
	products   *usecase.ProductUsecase
	categories *usecase.CategoryUsecase
	orders     *usecase.AdminOrderUsecase
	users      *usecase.AdminUserUsecase
	coupons    *usecase.CouponUsecase
	audit      *usecase.AuditUsecase
}

type AdminDeps struct {
	Products   *usecase.ProductUsecase
	Categories *usecase.CategoryUsecase
	Orders     *usecase.AdminOrderUsecase
	Users      *usecase.AdminUserUsecase
	Coupons    *usecase.CouponUsecase
	Audit      *usecase.AuditUsecase
}

// DI
func NewAdminHandler(d AdminDeps) *AdminHandler {
	return &AdminHandler{
		products:   d.Products,
		categories: d.Categories,
		orders:     d.Orders,
		users:      d.Users,
		coupons:    d.Coupons,
		audit:      d.Audit,
	}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	cat := e.Group("/admin/categories", g.Admin...)
	cat.GET("", h.listCategories)
	cat.POST("", h.createCategory)
	cat.PUT("/:id", h.updateCategory)
	cat.DELETE("/:id", h.deleteCategory)

	p := e.Group("/admin/products", g.Admin...)
	p.GET("", h.listProducts)
	p.POST("", h.createProduct)
	p.GET("/:id", h.getProduct)
	p.PUT("/:id", h.updateProduct)
	p.DELETE("/:id", h.deleteProduct)
	p.PUT("/:id/inventory", h.setInventory)

	u := e.Group("/admin/users", g.Admin...)
	u.GET("", h.listUsers)
	u.PATCH("/:id/status", h.setUserStatus)
	u.POST("/:id/force-logout", h.forceLogout)

	o := e.Group("/admin/orders", g.Admin...)
	o.GET("", h.listOrders)
	o.GET("/:id", h.getOrder)
	o.PATCH("/:id/status", h.updateOrderStatus)

	cp := e.Group("/admin/coupons", g.Admin...)
	cp.GET("", h.listCoupons)
	cp.POST("", h.createCoupon)

	a := e.Group("/admin/audit-logs", g.Admin...)
	a.GET("", h.listAuditLogs)
}

// ---- categories

func (h *AdminHandler) listCategories(c echo.Context) error {
	out, err := h.categories.AdminList(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) createCategory(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.CategoryInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.categories.AdminCreate(c.Request().Context(), actorID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminHandler) updateCategory(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.CategoryInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.categories.AdminUpdate(c.Request().Context(), actorID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) deleteCategory(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.categories.AdminDelete(c.Request().Context(), actorID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ---- products

// 非公開の商品も含む
func (h *AdminHandler) listProducts(c echo.Context) error {
	in, err := listProductsInput(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.products.AdminListProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) getProduct(c echo.Context) error {
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

func (h *AdminHandler) createProduct(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.ProductInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.products.AdminCreateProduct(c.Request().Context(), actorID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminHandler) updateProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.ProductInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.products.AdminUpdateProduct(c.Request().Context(), id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) deleteProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.products.AdminDeleteProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) setInventory(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.SetInventoryInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.products.AdminSetInventory(c.Request().Context(), actorID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ---- users

// q, role, isActive, page, limit
func (h *AdminHandler) listUsers(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return writeError(c, err)
	}
	isActive, err := queryBoolPtr(c, "isActive")
	if err != nil {
		return writeError(c, err)
	}
	f := repository.UserListFilter{
		Page:     page,
		Limit:    limit,
		Q:        strings.TrimSpace(c.QueryParam("q")),
		IsActive: isActive,
	}
	if v := c.QueryParam("role"); v != "" {
		role := model.Role(v)
		if role != model.RoleCustomer && role != model.RoleAdmin {
			return writeError(c, usecase.NewHTTPError(http.StatusBadRequest, "invalid role"))
		}
		f.Role = &role
	}
	out, err := h.users.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) setUserStatus(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.UpdateUserStatusInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.users.SetStatus(c.Request().Context(), actorID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) forceLogout(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.users.ForceLogout(c.Request().Context(), actorID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ---- orders

// status, userId, from, to, page, limit
func (h *AdminHandler) listOrders(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return writeError(c, err)
	}
	userID, err := queryInt64Ptr(c, "userId")
	if err != nil {
		return writeError(c, err)
	}
	from, err := queryTimePtr(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTimePtr(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orders.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))),
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) getOrder(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orders.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) updateOrderStatus(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.AdminUpdateOrderStatusInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.orders.UpdateStatus(c.Request().Context(), actorID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ---- coupons

func (h *AdminHandler) listCoupons(c echo.Context) error {
	out, err := h.coupons.AdminList(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) createCoupon(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.CreateCouponInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.coupons.AdminCreate(c.Request().Context(), actorID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// ---- audit logs

// actorUserId, action, resourceType, resourceId, from, to, limit, offset
func (h *AdminHandler) listAuditLogs(c echo.Context) error {
	var f repository.AuditLogFilter
	var err error
	if f.ActorUserID, err = queryInt64Ptr(c, "actorUserId"); err != nil {
		return writeError(c, err)
	}
	if f.ResourceID, err = queryInt64Ptr(c, "resourceId"); err != nil {
		return writeError(c, err)
	}
	if f.CreatedFrom, err = queryTimePtr(c, "from"); err != nil {
		return writeError(c, err)
	}
	if f.CreatedTo, err = queryTimePtr(c, "to"); err != nil {
		return writeError(c, err)
	}
	if f.Limit, err = queryInt(c, "limit", 50); err != nil {
		return writeError(c, err)
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		return writeError(c, err)
	}
	// カンマ区切りで複数可（resourceType=coupon,category）
	for _, v := range queryList(c, "action") {
		f.Actions = append(f.Actions, model.AuditAction(strings.ToUpper(v)))
	}
	for _, v := range queryList(c, "resourceType") {
		f.ResourceTypes = append(f.ResourceTypes, model.AuditResourceType(strings.ToLower(v)))
	}
	out, err := h.audit.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
