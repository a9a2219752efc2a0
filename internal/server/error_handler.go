package server

import (
	"fmt"
	"net/http"

	"air5star/internal/handler"
	"air5star/internal/infra/logging"
	"air5star/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrorHandlerはハンドラの外で起きたエラー（404, 405, 413, panic など）を共通の形にする
func ErrorHandler(base *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ue, ok := usecase.AsHTTPError(err)
		if !ok {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				ue, _ = usecase.AsHTTPError(usecase.NewHTTPError(he.Code, messageOf(he)))
			} else {
				ue = &usecase.HTTPError{Status: http.StatusInternalServerError, Code: usecase.CodeInternal, Message: "internal error"}
			}
		}
		status := ue.Status
		body := handler.ErrorResponse{Error: ue.Message, Code: string(ue.Code), Details: ue.Details}

		if status >= http.StatusInternalServerError {
			logging.FromContext(c.Request().Context()).Error("unhandled error",
				zap.String("route", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			base.Warn("write error response failed", zap.Error(err))
		}
	}
}

func messageOf(he *echo.HTTPError) string {
	if s, ok := he.Message.(string); ok {
		return s
	}
	return fmt.Sprint(he.Message)
}
