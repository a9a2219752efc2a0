package handler

import (
	"net/http"

	"air5star/internal/infra/logging"
	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

// /coupons, /checkout, /payments
type CheckoutHandler struct {
	coupons  *usecase.CouponUsecase
	checkout *usecase.CheckoutUsecase
	payments *usecase.PaymentUsecase
}

// DI
func NewCheckoutHandler(coupons *usecase.CouponUsecase, checkout *usecase.CheckoutUsecase, payments *usecase.PaymentUsecase) *CheckoutHandler {
	return &CheckoutHandler{coupons: coupons, checkout: checkout, payments: payments}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	cp := e.Group("/coupons", g.Customer...)
	cp.GET("/available", h.availableCoupons)
	cp.POST("/apply", h.applyCoupon)
	cp.DELETE("/remove", h.removeCoupon)
	cp.POST("/remove", h.removeCoupon)

	co := e.Group("/checkout", g.Customer...)
	co.POST("/validate", h.validate)

	// ゲートウェイからのリダイレクトは認証なし
	e.POST("/payments/callback", h.callback)

	p := e.Group("/payments", g.Customer...)
	p.POST("/orders", h.createPaymentOrder)
	p.POST("/verify", h.verify)
}

func (h *CheckoutHandler) availableCoupons(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.coupons.ListAvailable(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) applyCoupon(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req ApplyCouponRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.coupons.Apply(c.Request().Context(), userID, req.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) removeCoupon(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.coupons.Remove(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 空 body ならカートを検証
func (h *CheckoutHandler) validate(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.CheckoutValidateInput
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return writeError(c, err)
		}
	}
	out, err := h.checkout.Validate(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) createPaymentOrder(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.payments.CreateOrderForCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) verify(c echo.Context) error {
	var req usecase.VerifyPaymentInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, usecase.NewValidationError("invalid body", nil))
	}
	out, err := h.payments.Verify(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// form を読んでフロントへ302
func (h *CheckoutHandler) callback(c echo.Context) error {
	var req usecase.VerifyPaymentInput
	if err := c.Bind(&req); err != nil {
		// 欠けた項目はリダイレクト先で failed になる
		logging.FromContext(c.Request().Context()).Warn("payment callback bind failed", zap.Error(err))
	}
	return c.Redirect(http.StatusFound, h.payments.CallbackRedirectURL(req))
}
