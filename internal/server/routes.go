package server

import (
	"net/http"

	"air5star/internal/handler"
	"air5star/internal/infra/metrics"

	"github.com/labstack/echo/v4"
)

type routeRegistrar interface {
	RegisterRoutes(e *echo.Echo, g handler.Guards)
}

// 全ルートを登録
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics, g handler.Guards, handlers ...routeRegistrar) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	for _, h := range handlers {
		h.RegisterRoutes(e, g)
	}
}
