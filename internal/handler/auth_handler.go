package handler

import (
	"net/http"
	"time"

	"air5star/internal/config"
	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /auth, /users/me, /admin/login のHTTP
type AuthHandler struct {
	uc           *usecase.AuthUsecase
	cookieName   string
	cookieSecure bool
	cookieTTL    time.Duration
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		uc:           uc,
		cookieName:   cfg.Admin.CookieName,
		cookieSecure: cfg.Admin.CookieSecure || cfg.IsProduction(),
		cookieTTL:    cfg.Admin.TokenTTL,
	}
}

type AdminLoginResponse struct {
	User      usecase.UserDTO `json:"user"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	a := e.Group("/auth")
	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/forgot-password", h.forgotPassword)
	a.POST("/reset-password", h.resetPassword)

	u := e.Group("/users", g.Customer...)
	u.GET("/me", h.me)
	u.PATCH("/me", h.updateMe)

	e.POST("/admin/login", h.adminLogin)
	e.POST("/admin/logout", h.adminLogout)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req usecase.RegisterInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req usecase.LoginInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 登録有無に関わらず200
func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req usecase.ForgotPasswordInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.uc.ForgotPassword(c.Request().Context(), req))
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req usecase.ResetPasswordInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ResetPassword(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) updateMe(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req usecase.UpdateProfileInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// tokenはHttpOnly cookieでだけ渡す
func (h *AuthHandler) adminLogin(c echo.Context) error {
	var req usecase.LoginInput
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.AdminLogin(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(h.adminCookie(out.Token.AccessToken, int(h.cookieTTL.Seconds()), out.Token.ExpiresAt))
	return c.JSON(http.StatusOK, AdminLoginResponse{User: out.User, ExpiresAt: out.Token.ExpiresAt})
}

func (h *AuthHandler) adminLogout(c echo.Context) error {
	c.SetCookie(h.adminCookie("", -1, time.Unix(0, 0)))
	return c.JSON(http.StatusOK, usecase.SuccessResponse{Message: "logged out"})
}

func (h *AuthHandler) adminCookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
