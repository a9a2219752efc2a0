package server

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"air5star/internal/config"
	"air5star/internal/handler"
	"air5star/internal/infra/auth"
	"air5star/internal/infra/metrics"
	"air5star/internal/middleware"
	"air5star/internal/repository"
	"air5star/internal/validator"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Paramsはfxから受け取る依存
type Params struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	JWT      *auth.JWTService
	Users    repository.UserRepository
	Validate *govalidator.Validate

	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	Admin    *handler.AdminHandler
}

type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	echo   *echo.Echo
}

// echoの組み立てとstart/stopの登録
func New(p Params) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// 順番: panic回収 → request id → ログ → CORS → body制限
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(p.Logger, p.Metrics))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     allowOrigins(p.Cfg),
		AllowCredentials: true,
	}))
	e.Use(echomiddleware.BodyLimit(p.Cfg.HTTP.BodyLimit))

	e.HTTPErrorHandler = ErrorHandler(p.Logger)
	e.Validator = validator.NewEchoValidator(p.Validate)

	guards := handler.Guards{
		Customer: []echo.MiddlewareFunc{
			middleware.AuthJWT(p.JWT, ""),
			middleware.TokenVersionGuard(p.Users),
		},
		Admin: []echo.MiddlewareFunc{
			middleware.AuthJWT(p.JWT, p.Cfg.Admin.CookieName),
			middleware.TokenVersionGuard(p.Users),
			middleware.AdminRoleGuard(),
		},
	}

	RegisterRoutes(e, p.Metrics, guards,
		p.Auth, p.Product, p.Cart, p.Checkout, p.Order, p.Admin,
	)

	s := &Server{cfg: p.Cfg, logger: p.Logger, echo: e}
	p.Lc.Append(fx.Hook{
		OnStart: s.start,
		OnStop:  s.stop,
	})
	return s
}

// Echoはテスト用
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) start(_ context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(s.cfg.HTTP.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s failed", addr)
	}
	s.echo.Listener = ln
	s.logger.Info("http server started", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	return errors.WithStack(s.echo.Shutdown(ctx))
}

// 未設定ならフロントのURLだけ許可
func allowOrigins(cfg *config.Config) []string {
	if len(cfg.HTTP.AllowOrigins) > 0 {
		return cfg.HTTP.AllowOrigins
	}
	return []string{cfg.Frontend.URL}
}
