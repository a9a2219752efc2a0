package mail

import (
	"context"

	"go.uber.org/zap"
)

// 配信はログ出力のみ（SMTP連携は別途）
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	m.logger.Info("password reset mail",
		zap.String("to", to),
		zap.String("reset_url", resetURL),
	)
	return nil
}
