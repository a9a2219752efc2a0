package usecase

import (
	"context"
	"strings"
	"time"

	"air5star/internal/domain/model"
	"air5star/internal/infra/payment"

	"github.com/google/uuid"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// 注文番号などのIDを作る約束
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// 平文パスワードからハッシュへ / 照合
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hashed string) bool
}

// JWTを発行する約束
type TokenIssuer interface {
	Issue(user *model.User, ttl time.Duration, now time.Time) (string, time.Time, error)
}

// パスワード再設定メール
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// 決済ゲートウェイ
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (payment.GatewayOrder, error)
	FetchOrder(ctx context.Context, orderID string) (payment.GatewayOrder, error)
	KeyID() string
}

// 注文まわりのメトリクス
type OrderMetrics interface {
	OrderPlaced()
	OrderCancelled()
	OrderTransition(status string)
	SignatureFailed()
	ReservationRejected()
}
