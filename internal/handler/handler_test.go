package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"air5star/internal/config"
	"air5star/internal/domain/model"
	"air5star/internal/infra/auth"
	"air5star/internal/infra/logging"
	"air5star/internal/middleware"
	"air5star/internal/repository"
	"air5star/internal/usecase"
	"air5star/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "handler-secret"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.AccessTTL = 24 * time.Hour
	cfg.Admin.TokenTTL = 8 * time.Hour
	cfg.Admin.CookieName = "admin-token"
	cfg.Payment.KeySecret = "test_secret"
	cfg.Payment.Currency = "INR"
	cfg.Frontend.URL = "http://localhost:3000/"
	return cfg
}

type stubUsers struct {
	repository.UserRepository
	byEmail map[string]*model.User
}

func (s stubUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (stubUsers) UpdateLastLogin(context.Context, int64, time.Time) error { return nil }

type loginOnlyValidator struct{}

func (loginOnlyValidator) ValidateRegister(context.Context, string, string) error { return nil }
func (loginOnlyValidator) ValidateLogin(context.Context, string, string) error    { return nil }
func (loginOnlyValidator) ValidatePassword(context.Context, string) error         { return nil }

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type countingMetrics struct {
	usecase.OrderMetrics
	signatureFailed int
}

func (m *countingMetrics) SignatureFailed() { m.signatureFailed++ }

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.NewEchoValidator(validator.New())
	return e
}

func do(e *echo.Echo, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	cfg := testConfig()
	hasher := auth.NewBcryptHasher(cfg)
	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	jwt, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	users := stubUsers{byEmail: map[string]*model.User{
		"admin@air5star.in": {ID: 9, Email: "admin@air5star.in", PasswordHash: hash, Role: model.RoleAdmin, IsActive: true},
		"asha@example.com":  {ID: 1, Email: "asha@example.com", PasswordHash: hash, Role: model.RoleCustomer, IsActive: true},
	}}
	uc := usecase.NewAuthUsecase(usecase.AuthDeps{
		Config:    cfg,
		Users:     users,
		Hasher:    hasher,
		Tokens:    jwt,
		Validator: loginOnlyValidator{},
		Clock:     fixedClock{},
		Logger:    zap.NewNop(),
	})
	return NewAuthHandler(uc, cfg)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_AdminLoginSetsCookie(t *testing.T) {
	e := newEcho()
	newAuthHandler(t).RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/admin/login", echo.MIMEApplicationJSON,
		`{"email":"admin@air5star.in","password":"password123"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, "admin-token")
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 8*60*60, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)

	// token は body に出さない
	assert.NotContains(t, rec.Body.String(), cookie.Value)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
}

func TestAuthHandler_AdminLoginRejectsCustomer(t *testing.T) {
	e := newEcho()
	newAuthHandler(t).RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/admin/login", echo.MIMEApplicationJSON,
		`{"email":"asha@example.com","password":"password123"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(usecase.CodeForbidden), decodeError(t, rec).Code)
	assert.Nil(t, findCookie(rec, "admin-token"))
}

func TestAuthHandler_AdminLogoutClearsCookie(t *testing.T) {
	e := newEcho()
	newAuthHandler(t).RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/admin/logout", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, "admin-token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	e := newEcho()
	newAuthHandler(t).RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/auth/login", echo.MIMEApplicationJSON, `{"email":"not-an-email"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(usecase.CodeValidation), body.Code)
	fields, ok := body.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", fields["email"])
	assert.Equal(t, "is required", fields["password"])
}

func TestAuthHandler_LoginReturnsBearerToken(t *testing.T) {
	e := newEcho()
	newAuthHandler(t).RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/auth/login", echo.MIMEApplicationJSON,
		`{"email":"Asha@Example.com","password":"password123"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Bearer", out.Token.TokenType)
	assert.Equal(t, 24*60*60, out.Token.ExpiresIn)
	assert.Equal(t, int64(1), out.User.ID)
}

func newCheckoutHandler() (*CheckoutHandler, *countingMetrics) {
	m := &countingMetrics{}
	payments := usecase.NewPaymentUsecase(testConfig(), nil, nil, m, nil)
	return NewCheckoutHandler(nil, nil, payments), m
}

func TestCheckoutHandler_CallbackRedirects(t *testing.T) {
	e := newEcho()
	h, _ := newCheckoutHandler()
	h.RegisterRoutes(e, Guards{})

	form := url.Values{
		"razorpay_order_id":   {"order_Q1"},
		"razorpay_payment_id": {"pay_Q1"},
		"razorpay_signature":  {"sig"},
	}
	rec := do(e, http.MethodPost, "/payments/callback", echo.MIMEApplicationForm, form.Encode())

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "/checkout/verify", loc.Path)
	assert.Equal(t, "order_Q1", loc.Query().Get("razorpay_order_id"))
	assert.Equal(t, "pay_Q1", loc.Query().Get("razorpay_payment_id"))
}

func TestCheckoutHandler_CallbackWithoutFields(t *testing.T) {
	e := newEcho()
	h, _ := newCheckoutHandler()
	h.RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/payments/callback", echo.MIMEApplicationForm, "")

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderLocation), "status=failed")
}

func TestCheckoutHandler_CallbackMalformedBodyIsLogged(t *testing.T) {
	e := newEcho()
	h, _ := newCheckoutHandler()
	h.RegisterRoutes(e, Guards{})

	core, logs := observer.New(zap.WarnLevel)
	req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(`{"razorpay_order_id":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(logging.ContextWithLogger(req.Context(), zap.New(core)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderLocation), "status=failed")
	require.Equal(t, 1, logs.FilterMessage("payment callback bind failed").Len())
}

func TestCheckoutHandler_VerifyBadSignature(t *testing.T) {
	e := newEcho()
	h, m := newCheckoutHandler()
	h.RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/payments/verify", echo.MIMEApplicationJSON,
		`{"razorpay_order_id":"order_Q1","razorpay_payment_id":"pay_Q1","razorpay_signature":"deadbeef"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(usecase.CodePaymentVerificationFailed), decodeError(t, rec).Code)
	assert.Equal(t, 1, m.signatureFailed)
}

type denyAll struct{}

func (denyAll) Parse(string) (*auth.Claims, error) { return nil, auth.ErrInvalidToken }

func TestCustomerRoutesRequireToken(t *testing.T) {
	e := newEcho()
	g := Guards{Customer: []echo.MiddlewareFunc{middleware.AuthJWT(denyAll{}, "")}}
	NewCartHandler(nil, nil).RegisterRoutes(e, g)
	NewOrderHandler(nil, nil).RegisterRoutes(e, g)

	for _, target := range []string{"/cart", "/wishlist", "/orders", "/addresses"} {
		rec := do(e, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestWriteError(t *testing.T) {
	e := newEcho()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, usecase.NewValidationError("bad", map[string]any{"availableStock": 2})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "bad", body.Error)
	assert.EqualValues(t, 2, body.Details["availableStock"])

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, errors.New("db down")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decodeError(t, rec)
	assert.Equal(t, string(usecase.CodeInternal), body.Code)
	assert.NotContains(t, body.Error, "db down")
}

func TestQueryList(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/?resourceType=coupon,%20category&resourceType=order&action=", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, []string{"coupon", "category", "order"}, queryList(c, "resourceType"))
	assert.Empty(t, queryList(c, "action"))
	assert.Empty(t, queryList(c, "missing"))
}

func TestQueryHelpers(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/?page=x&from=2026-05-01&to=2026-05-02T10:00:00Z&active=true&minPrice=-1", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	_, err := queryInt(c, "page", 1)
	assert.Error(t, err)

	limit, err := queryInt(c, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	from, err := queryTimePtr(c, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := queryTimePtr(c, "to")
	require.NoError(t, err)
	assert.Equal(t, 10, to.Hour())

	active, err := queryBoolPtr(c, "active")
	require.NoError(t, err)
	assert.True(t, *active)

	_, err = queryDecimalPtr(c, "minPrice")
	assert.Error(t, err)

	c.SetParamNames("id")
	c.SetParamValues("0")
	_, err = pathID(c, "id")
	assert.Error(t, err)
}
