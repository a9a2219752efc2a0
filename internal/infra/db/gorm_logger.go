package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"air5star/internal/config"
	"air5star/internal/infra/logging"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultGormSlowThreshold = 200 * time.Millisecond

// gormのログをzapに流す
type gormZapLogger struct {
	logger                     *zap.Logger
	level                      logger.LogLevel
	slowThreshold              time.Duration
	ignoreRecordNotFoundErrors bool
}

func newGormZapLogger(base *zap.Logger, cfg *config.Config) logger.Interface {
	level := logger.Warn
	if cfg != nil && cfg.App.LogLevel == "debug" {
		level = logger.Info
	}
	return &gormZapLogger{
		logger:                     base,
		level:                      level,
		slowThreshold:              defaultGormSlowThreshold,
		ignoreRecordNotFoundErrors: true,
	}
}

func (l *gormZapLogger) LogMode(level logger.LogLevel) logger.Interface {
	cloned := *l
	cloned.level = level
	return &cloned
}

// リクエストのロガー（request_id付き）があればそれを使う
func (l *gormZapLogger) from(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if lg := logging.FromContext(ctx); lg != zap.L() {
			return lg
		}
	}
	return l.logger
}

func (l *gormZapLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level < logger.Info || l.logger == nil {
		return
	}
	l.from(ctx).Info("gorm info", zap.String("message", fmt.Sprintf(msg, args...)))
}

func (l *gormZapLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level < logger.Warn || l.logger == nil {
		return
	}
	l.from(ctx).Warn("gorm warn", zap.String("message", fmt.Sprintf(msg, args...)))
}

func (l *gormZapLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level < logger.Error || l.logger == nil {
		return
	}
	l.from(ctx).Error("gorm error", zap.String("message", fmt.Sprintf(msg, args...)))
}

func (l *gormZapLogger) Trace(ctx context.Context, begin time.Time, sqlAndRowsFn func() (string, int64), err error) {
	if l.logger == nil || l.level == logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case l.shouldLogError(err):
		l.from(ctx).Error("gorm query failed", append(queryFields(sqlAndRowsFn, elapsed), zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= logger.Warn:
		l.from(ctx).Warn("gorm slow query", append(queryFields(sqlAndRowsFn, elapsed), zap.Duration("slow_threshold", l.slowThreshold))...)
	case l.level >= logger.Info:
		l.from(ctx).Debug("gorm query", queryFields(sqlAndRowsFn, elapsed)...)
	}
}

func queryFields(sqlAndRowsFn func() (string, int64), elapsed time.Duration) []zap.Field {
	sql, rows := sqlAndRowsFn()
	return []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
}

func (l *gormZapLogger) shouldLogError(err error) bool {
	if err == nil || l.level < logger.Error {
		return false
	}
	if l.ignoreRecordNotFoundErrors && errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	return true
}
