package usecase

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"air5star/internal/config"
	"air5star/internal/domain/model"
	"air5star/internal/infra/payment"
	repo "air5star/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// hex(HMAC-SHA256("test_secret", "order_Q1|pay_Q1"))
const validSignature = "7c257b7f1adc1a1622bd16cd336d322739b381e7e3f1474f76a3ed5f600d5bcc"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Payment.KeyID = "rzp_test_key"
	cfg.Payment.KeySecret = "test_secret"
	cfg.Payment.Currency = "INR"
	cfg.Frontend.URL = "http://localhost:3000/"
	return cfg
}

func newPaymentUsecase(cart *CartUsecase) (*PaymentUsecase, *GatewayMock, *MetricsMock) {
	gw := new(GatewayMock)
	metrics := new(MetricsMock)
	return NewPaymentUsecase(testConfig(), gw, cart, metrics, seqIDs{id: "R1"}), gw, metrics
}

func TestPaymentUsecase_Verify_KnownVector(t *testing.T) {
	uc, _, _ := newPaymentUsecase(nil)

	out, err := uc.Verify(context.Background(), VerifyPaymentInput{
		OrderID:   "order_Q1",
		PaymentID: "pay_Q1",
		Signature: validSignature,
	})
	require.NoError(t, err)
	assert.True(t, out.Verified)
	assert.Equal(t, "pay_Q1", out.PaymentID)
	assert.Equal(t, "070ea2f5813be979e4d4dd50f9840717bb01adf600c92662f401086c6cabbf9a",
		payment.Sign("s3cr3t", "order_abc", "pay_123"))
}

func TestPaymentUsecase_Verify_Mismatch(t *testing.T) {
	uc, _, metrics := newPaymentUsecase(nil)
	metrics.On("SignatureFailed").Once()

	_, err := uc.Verify(context.Background(), VerifyPaymentInput{
		OrderID:   "order_Q1",
		PaymentID: "pay_Q2",
		Signature: validSignature,
	})
	assert.Equal(t, CodePaymentVerificationFailed, errCode(err))
	metrics.AssertExpectations(t)
}

func TestPaymentUsecase_Verify_MissingFields(t *testing.T) {
	uc, _, metrics := newPaymentUsecase(nil)

	_, err := uc.Verify(context.Background(), VerifyPaymentInput{OrderID: "order_Q1", PaymentID: " "})
	assert.Equal(t, CodeValidation, errCode(err))
	metrics.AssertNotCalled(t, "SignatureFailed")
}

func TestPaymentUsecase_CreateOrder_Validation(t *testing.T) {
	ctx := context.Background()
	uc, gw, _ := newPaymentUsecase(nil)

	_, err := uc.CreateOrder(ctx, d("0"), "INR", "r")
	assert.Equal(t, CodeValidation, errCode(err))

	_, err = uc.CreateOrder(ctx, d("-5"), "INR", "r")
	assert.Equal(t, CodeValidation, errCode(err))

	_, err = uc.CreateOrder(ctx, d("10"), "", "r")
	assert.Equal(t, CodeValidation, errCode(err))

	gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentUsecase_CreateOrder_SendsPaise(t *testing.T) {
	ctx := context.Background()
	uc, gw, _ := newPaymentUsecase(nil)
	gw.On("CreateOrder", ctx, int64(1111900), "INR", "r").
		Return(payment.GatewayOrder{ID: "order_X", Amount: 1111900, Currency: "INR"}, nil)

	out, err := uc.CreateOrder(ctx, d("11119.00"), "INR", "r")
	require.NoError(t, err)
	assert.Equal(t, "order_X", out.ID)
	gw.AssertExpectations(t)
}

func TestPaymentUsecase_CreateOrderForCart(t *testing.T) {
	ctx := context.Background()
	cart, _ := cartFixture(ctx, 1, "10000", 1)
	uc, gw, _ := newPaymentUsecase(cart)

	// 10000 + 499 + 1800
	gw.On("CreateOrder", ctx, int64(1229900), "INR", "rcpt_1_R1").
		Return(payment.GatewayOrder{ID: "order_C", Amount: 1229900, Currency: "INR"}, nil)

	out, err := uc.CreateOrderForCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "order_C", out.OrderID)
	assert.Equal(t, int64(1229900), out.Amount)
	assert.Equal(t, "rzp_test_key", out.KeyID)
	assertDec(t, "12299", out.Totals.Total)
}

func TestPaymentUsecase_CreateOrderForCart_Empty(t *testing.T) {
	ctx := context.Background()
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	coupons := new(CouponRepoMock)
	cartItems.On("ListByUserID", ctx, int64(1)).Return([]model.CartItem{}, nil)
	products.On("FindByIDs", ctx, []int64{}).Return([]model.Product{}, nil)
	inventory.On("FindByProductIDs", ctx, []int64{}).Return(map[int64]model.Inventory{}, nil)
	coupons.On("FindApplied", ctx, int64(1)).Return(nil, repo.ErrNotFound)

	uc, _, _ := newPaymentUsecase(NewCartUsecase(cartItems, products, inventory, coupons, testPricing()))
	_, err := uc.CreateOrderForCart(ctx, 1)
	assert.Equal(t, CodeCartEmpty, errCode(err))
}

func TestPaymentUsecase_CallbackRedirectURL(t *testing.T) {
	uc, _, _ := newPaymentUsecase(nil)

	raw := uc.CallbackRedirectURL(VerifyPaymentInput{OrderID: "order_Q1", PaymentID: "pay_Q1", Signature: "sig"})
	require.True(t, strings.HasPrefix(raw, "http://localhost:3000/checkout/verify?"))
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "order_Q1", u.Query().Get("razorpay_order_id"))
	assert.Equal(t, "pay_Q1", u.Query().Get("razorpay_payment_id"))
	assert.Equal(t, "sig", u.Query().Get("razorpay_signature"))

	raw = uc.CallbackRedirectURL(VerifyPaymentInput{OrderID: "order_Q1"})
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "failed", u.Query().Get("status"))
	assert.Equal(t, "missing_payment_fields", u.Query().Get("error"))
}
