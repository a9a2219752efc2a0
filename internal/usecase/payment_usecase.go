package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"air5star/internal/config"
	"air5star/internal/infra/payment"

	"github.com/shopspring/decimal"
)

type PaymentUsecase struct {
	gateway  PaymentGateway
	cart     *CartUsecase
	metrics  OrderMetrics
	ids      IDGenerator
	secret   string
	currency string
	feURL    string
}

func NewPaymentUsecase(
	cfg *config.Config,
	gateway PaymentGateway,
	cart *CartUsecase,
	metrics OrderMetrics,
	ids IDGenerator,
) *PaymentUsecase {
	return &PaymentUsecase{
		gateway:  gateway,
		cart:     cart,
		metrics:  metrics,
		ids:      ids,
		secret:   cfg.Payment.KeySecret,
		currency: cfg.Payment.Currency,
		feURL:    strings.TrimRight(cfg.Frontend.URL, "/"),
	}
}

type PaymentOrderOutput struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
	Totals   Totals `json:"totals"`
}

// ゲートウェイから返ってくる3点
type VerifyPaymentInput struct {
	OrderID   string `json:"razorpay_order_id" form:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature" form:"razorpay_signature"`
}

func (in VerifyPaymentInput) complete() bool {
	return strings.TrimSpace(in.OrderID) != "" &&
		strings.TrimSpace(in.PaymentID) != "" &&
		strings.TrimSpace(in.Signature) != ""
}

type VerifyPaymentOutput struct {
	Verified  bool   `json:"verified"`
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

// 現在のカート合計でゲートウェイ注文を作る
func (u *PaymentUsecase) CreateOrderForCart(ctx context.Context, userID int64) (PaymentOrderOutput, error) {
	cart, err := u.cart.List(ctx, userID)
	if err != nil {
		return PaymentOrderOutput{}, err
	}
	if len(cart.Items) == 0 {
		return PaymentOrderOutput{}, businessError(CodeCartEmpty, "cart is empty")
	}

	receipt := receiptPrefix(userID) + u.ids.NewID()
	gw, err := u.CreateOrder(ctx, cart.Totals.Total, u.currency, receipt)
	if err != nil {
		return PaymentOrderOutput{}, err
	}
	return PaymentOrderOutput{
		OrderID:  gw.ID,
		Amount:   gw.Amount,
		Currency: gw.Currency,
		KeyID:    u.gateway.KeyID(),
		Totals:   cart.Totals,
	}, nil
}

// 金額はルピーで受け取り、paiseにして送る
func (u *PaymentUsecase) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (payment.GatewayOrder, error) {
	if !amount.IsPositive() {
		return payment.GatewayOrder{}, validationError("amount must be greater than 0")
	}
	if strings.TrimSpace(currency) == "" {
		return payment.GatewayOrder{}, validationError("currency is required")
	}

	gw, err := u.gateway.CreateOrder(ctx, toMinorUnits(amount), currency, receipt)
	if err != nil {
		return payment.GatewayOrder{}, internalError(err, "create gateway order")
	}
	return gw, nil
}

func (u *PaymentUsecase) Verify(_ context.Context, in VerifyPaymentInput) (VerifyPaymentOutput, error) {
	if err := u.verify(in); err != nil {
		return VerifyPaymentOutput{}, err
	}
	return VerifyPaymentOutput{Verified: true, OrderID: in.OrderID, PaymentID: in.PaymentID}, nil
}

func (u *PaymentUsecase) verify(in VerifyPaymentInput) error {
	if !in.complete() {
		return validationError("missing payment fields")
	}
	if !payment.VerifySignature(u.secret, in.OrderID, in.PaymentID, in.Signature) {
		u.metrics.SignatureFailed()
		return businessError(CodePaymentVerificationFailed, "payment signature verification failed")
	}
	return nil
}

// receipt にユーザーIDを埋めて、確定時に持ち主を確認する
func receiptPrefix(userID int64) string {
	return fmt.Sprintf("rcpt_%d_", userID)
}

// 署名済みの決済注文をゲートウェイから引き、本人のものか確かめる
func (u *PaymentUsecase) ownedOrder(ctx context.Context, userID int64, orderID string) (payment.GatewayOrder, error) {
	gw, err := u.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return payment.GatewayOrder{}, internalError(err, "fetch gateway order")
	}
	if !strings.HasPrefix(gw.Receipt, receiptPrefix(userID)) {
		return payment.GatewayOrder{}, businessError(CodePaymentVerificationFailed, "payment order does not belong to user")
	}
	return gw, nil
}

// ゲートウェイのフォームPOSTをフロントの確認ページへ渡す
func (u *PaymentUsecase) CallbackRedirectURL(in VerifyPaymentInput) string {
	q := url.Values{}
	if !in.complete() {
		q.Set("status", "failed")
		q.Set("error", "missing_payment_fields")
		return u.feURL + "/checkout/verify?" + q.Encode()
	}
	q.Set("razorpay_order_id", in.OrderID)
	q.Set("razorpay_payment_id", in.PaymentID)
	q.Set("razorpay_signature", in.Signature)
	return u.feURL + "/checkout/verify?" + q.Encode()
}
