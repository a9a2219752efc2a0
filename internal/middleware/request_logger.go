package middleware

import (
	"time"

	"air5star/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HTTPのメトリクス
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// traceparent の取り出し、X-Request-ID、リクエスト単位のロガー、メトリクス。
func RequestLogger(base *zap.Logger, observer HTTPObserver) echo.MiddlewareFunc {
	prop := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, otel.GetTextMapPropagator())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := prop.Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			sc := trace.SpanContextFromContext(ctx)

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			fields := []zap.Field{zap.String("request_id", rid)}
			if sc.IsValid() {
				fields = append(fields,
					zap.String("trace_id", sc.TraceID().String()),
					zap.String("span_id", sc.SpanID().String()),
				)
			}
			logger := base.With(fields...)
			c.SetRequest(req.WithContext(logging.ContextWithLogger(ctx, logger)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// ステータスを確定させる
				c.Error(err)
			}
			elapsed := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if observer != nil {
				observer.ObserveHTTP(req.Method, route, status, elapsed)
			}

			logger.Info("request",
				zap.String("method", req.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
			)
			return nil
		}
	}
}
