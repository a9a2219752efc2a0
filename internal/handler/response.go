package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"air5star/internal/infra/logging"
	"air5star/internal/middleware"
	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// エラーの共通形
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// ルートごとに付けるミドルウェア
type Guards struct {
	Customer []echo.MiddlewareFunc
	Admin    []echo.MiddlewareFunc
}

// usecaseのエラーをJSONにする。500は原因をログにだけ出す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	he, ok := usecase.AsHTTPError(err)
	if !ok {
		he = &usecase.HTTPError{Status: http.StatusInternalServerError, Code: usecase.CodeInternal, Message: "internal error"}
	}
	if he.Status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("route", c.Path()),
			zap.Error(err),
		)
	}
	return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: string(he.Code), Details: he.Details})
}

// body を読んで validate タグを検証
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewValidationError("invalid body", nil)
	}
	return c.Validate(req)
}

func currentUserID(c echo.Context) (int64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, usecase.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

// /:id などの正の整数
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// 空なら def
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &n, nil
}

func queryBoolPtr(c echo.Context, name string) (*bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &b, nil
}

// RFC3339 か YYYY-MM-DD
func queryTimePtr(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
}

// a,b,c と ?x=a&x=b の両方を受ける。空要素は捨てる
func queryList(c echo.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryParams()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
