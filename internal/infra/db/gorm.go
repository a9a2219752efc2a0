package db

import (
	"context"
	"fmt"

	"air5star/internal/config"
	"air5star/internal/domain/model"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		// 複数ステップの書き込みは TxManager で明示的に張る
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 newGormZapLogger(logger, cfg),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	return db, nil
}

// DATABASE_URL があれば最優先で使う
func DSN(cfg *config.Config) string {
	if cfg.Postgres.URL != "" {
		return cfg.Postgres.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User,
		cfg.Postgres.Password, cfg.Postgres.DB, cfg.Postgres.SSLMode,
	)
}

// 起動時にping（必要ならマイグレーション）、停止時にclose
func New(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping postgres")
			}
			if cfg.Postgres.Migrate {
				logger.Info("running auto migration")
				return Migrate(db.WithContext(ctx))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})
	return db, nil
}

// テーブル作成（依存順）
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.PasswordResetToken{},
		&model.Category{},
		&model.Product{},
		&model.Inventory{},
		&model.InventoryAdjustment{},
		&model.CartItem{},
		&model.WishlistItem{},
		&model.Coupon{},
		&model.CouponUsage{},
		&model.AppliedCoupon{},
		&model.Address{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderTracking{},
		&model.AuditLog{},
	); err != nil {
		return errors.Wrap(err, "auto migrate failed")
	}
	return nil
}
