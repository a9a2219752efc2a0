package handler

import (
	"net/http"

	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cart と /wishlist
type CartHandler struct {
	cart     *usecase.CartUsecase
	wishlist *usecase.WishlistUsecase
}

// DI
func NewCartHandler(cart *usecase.CartUsecase, wishlist *usecase.WishlistUsecase) *CartHandler {
	return &CartHandler{cart: cart, wishlist: wishlist}
}

// 古いクライアント向けに POST でも更新・削除できる
func (h *CartHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	c := e.Group("/cart", g.Customer...)
	c.GET("", h.list)
	c.POST("", h.add)
	c.PATCH("/items/:productId", h.update)
	c.POST("/items/:productId", h.update)
	c.DELETE("/items/:productId", h.remove)
	c.POST("/items/:productId/remove", h.remove)

	w := e.Group("/wishlist", g.Customer...)
	w.GET("", h.listWishlist)
	w.POST("", h.addWishlist)
	w.DELETE("/:productId", h.removeWishlist)
}

func (h *CartHandler) list(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.cart.List(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) add(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.AddCartInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.cart.Add(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.UpdateCartItemInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.cart.Update(c.Request().Context(), userID, productID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) remove(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.cart.Remove(c.Request().Context(), userID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) listWishlist(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.wishlist.List(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addWishlist(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.AddWishlistInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.wishlist.Add(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeWishlist(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.wishlist.Remove(c.Request().Context(), userID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
