package main

import (
	"air5star/internal/config"
	"air5star/internal/handler"
	"air5star/internal/infra/auth"
	"air5star/internal/infra/db"
	"air5star/internal/infra/logging"
	"air5star/internal/infra/mail"
	"air5star/internal/infra/metrics"
	"air5star/internal/infra/payment"
	infraRepo "air5star/internal/infra/repository"
	repo "air5star/internal/repository"
	"air5star/internal/server"
	"air5star/internal/usecase"
	"air5star/internal/validator"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectHandler(),
		fx.Invoke(
			logging.RegisterSync,
			func(*server.Server) {},
		),
	).Run()
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

// 設定・ログ・DB・メトリクス
func injectInfra() fx.Option {
	return fx.Provide(
		loadConfig,
		logging.New,
		db.New,
		metrics.New,
	)
}

// GORM実装を repository のインターフェースとして渡す
func injectRepo() fx.Option {
	return fx.Provide(
		infraRepo.NewUserGormRepository,
		infraRepo.NewPasswordResetGormRepository,
		infraRepo.NewAddressGormRepository,
		fx.Annotate(infraRepo.NewAuditLogGormRepository, fx.As(new(repo.AuditLogRepository))),
		infraRepo.NewCategoryGormRepository,
		infraRepo.NewWishlistGormRepository,
		fx.Annotate(infraRepo.NewProductGormRepository, fx.As(new(repo.ProductRepository))),
		fx.Annotate(infraRepo.NewInventoryGormRepository, fx.As(new(repo.InventoryRepository))),
		fx.Annotate(infraRepo.NewCartItemGormRepository, fx.As(new(repo.CartItemRepository))),
		fx.Annotate(infraRepo.NewCouponGormRepository, fx.As(new(repo.CouponRepository))),
		fx.Annotate(infraRepo.NewOrderGormRepository, fx.As(new(repo.OrderRepository))),
		fx.Annotate(infraRepo.NewOrderItemGormRepository, fx.As(new(repo.OrderItemRepository))),
		fx.Annotate(infraRepo.NewOrderTrackingGormRepository, fx.As(new(repo.OrderTrackingRepository))),
		fx.Annotate(infraRepo.NewTxManagerGorm, fx.As(new(repo.TransactionManager))),
	)
}

// usecaseが使う外部部品
func injectService() fx.Option {
	return fx.Provide(
		validator.New,
		validator.NewAuthValidator,
		auth.NewJWTService,
		func(s *auth.JWTService) usecase.TokenIssuer { return s },
		fx.Annotate(auth.NewBcryptHasher, fx.As(new(usecase.PasswordHasher))),
		fx.Annotate(mail.NewLogMailer, fx.As(new(usecase.Mailer))),
		fx.Annotate(payment.NewRazorpayGateway, fx.As(new(usecase.PaymentGateway))),
		func(m *metrics.Metrics) usecase.OrderMetrics { return m },
		func() usecase.Clock { return usecase.SystemClock{} },
		func() usecase.IDGenerator { return usecase.UUIDGenerator{} },
		usecase.NewPricing,
		usecase.NewOrderPolicy,
		usecase.NewCouponEvaluator,
	)
}

type authParams struct {
	fx.In

	Config    *config.Config
	Users     repo.UserRepository
	Resets    repo.PasswordResetRepository
	Hasher    usecase.PasswordHasher
	Tokens    usecase.TokenIssuer
	Mailer    usecase.Mailer
	Validator usecase.AuthValidator
	Clock     usecase.Clock
	Logger    *zap.Logger
}

func newAuthUsecase(p authParams) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(usecase.AuthDeps{
		Config:    p.Config,
		Users:     p.Users,
		Resets:    p.Resets,
		Hasher:    p.Hasher,
		Tokens:    p.Tokens,
		Mailer:    p.Mailer,
		Validator: p.Validator,
		Clock:     p.Clock,
		Logger:    p.Logger,
	})
}

type orderParams struct {
	fx.In

	Tx        repo.TransactionManager
	Orders    repo.OrderRepository
	Items     repo.OrderItemRepository
	Tracking  repo.OrderTrackingRepository
	Addresses repo.AddressRepository
	Payments  *usecase.PaymentUsecase
	Evaluator usecase.CouponEvaluator
	Pricing   usecase.Pricing
	Policy    usecase.OrderPolicy
	Metrics   usecase.OrderMetrics
	IDs       usecase.IDGenerator
	Clock     usecase.Clock
}

func newOrderUsecase(p orderParams) *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(usecase.OrderDeps{
		Tx:        p.Tx,
		Orders:    p.Orders,
		Items:     p.Items,
		Tracking:  p.Tracking,
		Addresses: p.Addresses,
		Payments:  p.Payments,
		Evaluator: p.Evaluator,
		Pricing:   p.Pricing,
		Policy:    p.Policy,
		Metrics:   p.Metrics,
		IDs:       p.IDs,
		Clock:     p.Clock,
	})
}

func injectUsecase() fx.Option {
	return fx.Provide(
		newAuthUsecase,
		newOrderUsecase,
		usecase.NewAdminUserUsecase,
		usecase.NewAuditUsecase,
		usecase.NewAddressUsecase,
		usecase.NewCategoryUsecase,
		usecase.NewProductUsecase,
		usecase.NewCartUsecase,
		usecase.NewWishlistUsecase,
		usecase.NewCouponUsecase,
		usecase.NewCheckoutUsecase,
		usecase.NewPaymentUsecase,
		usecase.NewAdminOrderUsecase,
	)
}

type adminParams struct {
	fx.In

	Products   *usecase.ProductUsecase
	Categories *usecase.CategoryUsecase
	Orders     *usecase.AdminOrderUsecase
	Users      *usecase.AdminUserUsecase
	Coupons    *usecase.CouponUsecase
	Audit      *usecase.AuditUsecase
}

func newAdminHandler(p adminParams) *handler.AdminHandler {
	return handler.NewAdminHandler(handler.AdminDeps{
		Products:   p.Products,
		Categories: p.Categories,
		Orders:     p.Orders,
		Users:      p.Users,
		Coupons:    p.Coupons,
		Audit:      p.Audit,
	})
}

func injectHandler() fx.Option {
	return fx.Provide(
		handler.NewAuthHandler,
		handler.NewProductHandler,
		handler.NewCartHandler,
		handler.NewCheckoutHandler,
		handler.NewOrderHandler,
		newAdminHandler,
		server.New,
	)
}
