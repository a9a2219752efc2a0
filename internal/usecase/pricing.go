package usecase

import (
	"air5star/internal/config"
	"air5star/internal/domain/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// 注文金額の内訳
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// 送料・税率
type Pricing struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
}

func NewPricing(cfg *config.Config) Pricing {
	return Pricing{
		ShippingFee:           cfg.Order.ShippingFee,
		FreeShippingThreshold: cfg.Order.FreeShippingThreshold,
		TaxRate:               cfg.Order.TaxRate,
	}
}

// 小計 → 割引 → 送料 → 税(割引後に課税) → 合計
func (p Pricing) Compute(subtotal decimal.Decimal, coupon *model.Coupon) Totals {
	shipping := p.ShippingFee
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	discount := decimal.Zero
	if coupon != nil {
		if coupon.Type == model.CouponTypeFreeShipping {
			shipping = decimal.Zero
		} else {
			discount = CouponDiscount(*coupon, subtotal)
		}
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(p.TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal.Round(2),
		Discount: discount,
		Shipping: shipping.Round(2),
		Tax:      tax,
		Total:    taxable.Add(shipping).Add(tax).Round(2),
	}
}

// PERCENTAGE は上限あり、FIXED_AMOUNT は小計まで
func CouponDiscount(c model.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case model.CouponTypePercentage:
		d = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscountAmount != nil && d.GreaterThan(*c.MaxDiscountAmount) {
			d = *c.MaxDiscountAmount
		}
	case model.CouponTypeFixedAmount:
		d = c.Value
	default:
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2)
}

// ルピー → paise
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
