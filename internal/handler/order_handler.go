package handler

import (
	"net/http"

	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /orders と /addresses
type OrderHandler struct {
	orders    *usecase.OrderUsecase
	addresses *usecase.AddressUsecase
}

// DI
func NewOrderHandler(orders *usecase.OrderUsecase, addresses *usecase.AddressUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, addresses: addresses}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	o := e.Group("/orders", g.Customer...)
	o.POST("", h.place)
	o.GET("", h.list)
	o.GET("/:id", h.get)
	o.POST("/:id/cancel", h.cancel)

	a := e.Group("/addresses", g.Customer...)
	a.GET("", h.listAddresses)
	a.POST("", h.createAddress)
	a.GET("/:id", h.getAddress)
	a.PUT("/:id", h.updateAddress)
	a.PATCH("/:id", h.updateAddress)
	a.DELETE("/:id", h.deleteAddress)
	a.POST("/:id/default", h.setDefaultAddress)
}

func (h *OrderHandler) place(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.PlaceOrderInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.orders.PlaceOrder(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orders.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orders.GetMyOrder(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// reason は任意
func (h *OrderHandler) cancel(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.CancelOrderInput
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return writeError(c, err)
		}
	}
	out, err := h.orders.Cancel(c.Request().Context(), userID, orderID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listAddresses(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.addresses.List(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) getAddress(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.addresses.Get(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) createAddress(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.AddressInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.addresses.Create(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) updateAddress(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.AddressInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.addresses.Update(c.Request().Context(), userID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) deleteAddress(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.addresses.Delete(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) setDefaultAddress(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.addresses.SetDefault(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
