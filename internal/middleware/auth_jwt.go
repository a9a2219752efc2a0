package middleware

import (
	"net/http"
	"strings"

	"air5star/internal/infra/auth"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

// JWTService.Parse を満たすもの
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// JWT検証ミドルウェア。
// Authorization: Bearer を優先し、無ければ管理画面用cookieを見る。
func AuthJWT(tokens TokenParser, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken, ok := tokenFromRequest(c, cookieName)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("UNAUTHORIZED", "unauthorized"))
			}

			//署名・期限・claimを検証する
			claims, err := tokens.Parse(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("UNAUTHORIZED", "unauthorized"))
			}

			//contextへ保存
			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxUserRoleKey, string(claims.Role))
			c.Set(CtxTokenVersionKey, claims.TokenVersion)

			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context, cookieName string) (string, bool) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if authz != "" {
		//Bearer形式か確認してtokenを抜く
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		raw := strings.TrimSpace(parts[1])
		return raw, raw != ""
	}

	if cookieName == "" {
		return "", false
	}
	ck, err := c.Cookie(cookieName)
	if err != nil || strings.TrimSpace(ck.Value) == "" {
		return "", false
	}
	return ck.Value, true
}

// AuthJWTが入れたuser_idを取り出す
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	return id, ok && id > 0
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func errorJSON(code, msg string) errorResponse {
	return errorResponse{Error: msg, Code: code}
}
