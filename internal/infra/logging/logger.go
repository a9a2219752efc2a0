package logging

import (
	"context"
	"strings"

	"air5star/internal/config"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JSONでstdoutに出すzapロガー。service/env を常に付ける。
func New(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stdout"}

	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.MessageKey = "msg"
	zc.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.App.LogLevel))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.App.LogLevel)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.InitialFields = map[string]any{
		"service": cfg.App.Name,
		"env":     cfg.App.Env,
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build zap logger failed")
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// 停止時にバッファを吐き出す
func RegisterSync(lc fx.Lifecycle, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
}

type ctxKey struct{}

// リクエスト単位のロガーをctxに載せる
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// ctxからロガーを取り出す。無ければグローバル
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.L()
}
