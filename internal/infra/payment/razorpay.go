package payment

import (
	"context"

	"air5star/internal/config"

	"github.com/pkg/errors"
	razorpay "github.com/razorpay/razorpay-go"
)

// ゲートウェイ側の注文
type GatewayOrder struct {
	ID       string
	Amount   int64 // 最小通貨単位（paise）
	Currency string
	Receipt  string
	Status   string

	// Fetch時のみ
	AmountPaid int64
}

// razorpay-go のうち使う部分だけ
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders orderAPI
	keyID  string
}

func NewRazorpayGateway(cfg *config.Config) *RazorpayGateway {
	client := razorpay.NewClient(cfg.Payment.KeyID, cfg.Payment.KeySecret)
	return &RazorpayGateway{orders: client.Order, keyID: cfg.Payment.KeyID}
}

// 公開キー（フロントのcheckoutで使う）
func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

func (g *RazorpayGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (GatewayOrder, error) {
	body, err := g.orders.Create(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return GatewayOrder{}, errors.Wrap(err, "razorpay create order")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return GatewayOrder{}, errors.New("razorpay create order: empty id")
	}

	out := GatewayOrder{ID: id, Amount: amountMinor, Currency: currency, Receipt: receipt}
	fillOrder(&out, body)
	return out, nil
}

// 注文の金額・receiptはゲートウェイ側を正とする
func (g *RazorpayGateway) FetchOrder(_ context.Context, orderID string) (GatewayOrder, error) {
	body, err := g.orders.Fetch(orderID, nil, nil)
	if err != nil {
		return GatewayOrder{}, errors.Wrapf(err, "razorpay fetch order %s", orderID)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return GatewayOrder{}, errors.Errorf("razorpay fetch order %s: empty id", orderID)
	}
	out := GatewayOrder{ID: id}
	fillOrder(&out, body)
	return out, nil
}

// JSONの数値はfloat64で来る
func fillOrder(out *GatewayOrder, body map[string]interface{}) {
	if v, ok := body["amount"].(float64); ok {
		out.Amount = int64(v)
	}
	if v, ok := body["amount_paid"].(float64); ok {
		out.AmountPaid = int64(v)
	}
	if v, ok := body["currency"].(string); ok && v != "" {
		out.Currency = v
	}
	if v, ok := body["receipt"].(string); ok && v != "" {
		out.Receipt = v
	}
	if v, ok := body["status"].(string); ok {
		out.Status = v
	}
}
