package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"air5star/internal/config"
	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 1ユーザーあたりの利用制限の解釈
type CouponEvaluator struct {
	policy string
}

func NewCouponEvaluator(cfg *config.Config) CouponEvaluator {
	return CouponEvaluator{policy: cfg.Coupon.PerUserPolicy}
}

// ユーザーがもう使えないか
func (e CouponEvaluator) UsedUp(c model.Coupon, usedByUser int64) bool {
	if e.policy == config.CouponPolicyPerUserLimit {
		return c.PerUserLimit > 0 && usedByUser >= c.PerUserLimit
	}
	// single_use: 1回でも使っていれば対象外
	return usedByUser > 0
}

// 一覧に出せるか（金額条件は見ない）
func (e CouponEvaluator) Listable(c model.Coupon, now time.Time, usedByUser int64) bool {
	return c.IsActive && c.IsWithinWindow(now) && c.HasRemainingUses() && !e.UsedUp(c, usedByUser)
}

// 適用できるか
func (e CouponEvaluator) Check(c model.Coupon, now time.Time, subtotal decimal.Decimal, usedByUser int64) *HTTPError {
	if !c.IsActive || !c.IsWithinWindow(now) {
		return businessError(CodeCouponNotEligible, "coupon is not active")
	}
	if !c.HasRemainingUses() {
		return businessError(CodeCouponNotEligible, "coupon usage limit reached")
	}
	if e.UsedUp(c, usedByUser) {
		return businessError(CodeCouponAlreadyUsed, "coupon already used")
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return businessError(CodeCouponNotEligible, "order amount below coupon minimum").
			WithDetails(map[string]any{"minOrderAmount": c.MinOrderAmount, "subtotal": subtotal})
	}
	return nil
}

type CouponDTO struct {
	ID                int64            `json:"id"`
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	Type              model.CouponType `json:"type"`
	Value             decimal.Decimal  `json:"value"`
	MinOrderAmount    decimal.Decimal  `json:"minOrderAmount"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	ValidFrom         time.Time        `json:"validFrom"`
	ValidUntil        time.Time        `json:"validUntil"`
}

type AppliedCouponOutput struct {
	Coupon CouponDTO `json:"coupon"`
	Totals Totals    `json:"totals"`
}

type CreateCouponInput struct {
	Code              string           `json:"code" validate:"required,min=3,max=50"`
	Description       string           `json:"description"`
	Type              model.CouponType `json:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	Value             decimal.Decimal  `json:"value"`
	MinOrderAmount    decimal.Decimal  `json:"minOrderAmount"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	UsageLimit        *int64           `json:"usageLimit" validate:"omitempty,min=1"`
	PerUserLimit      int64            `json:"perUserLimit" validate:"min=0"`
	ValidFrom         time.Time        `json:"validFrom" validate:"required"`
	ValidUntil        time.Time        `json:"validUntil" validate:"required"`
	IsActive          bool             `json:"isActive"`
}

type CouponUsecase struct {
	coupons   repo.CouponRepository
	cart      *CartUsecase
	auditRepo repo.AuditLogRepository
	evaluator CouponEvaluator
	pricing   Pricing
	clock     Clock
}

func NewCouponUsecase(
	coupons repo.CouponRepository,
	cart *CartUsecase,
	auditRepo repo.AuditLogRepository,
	evaluator CouponEvaluator,
	pricing Pricing,
	clock Clock,
) *CouponUsecase {
	return &CouponUsecase{
		coupons:   coupons,
		cart:      cart,
		auditRepo: auditRepo,
		evaluator: evaluator,
		pricing:   pricing,
		clock:     clock,
	}
}

// 使えるクーポン（value降順）
func (u *CouponUsecase) ListAvailable(ctx context.Context, userID int64) ([]CouponDTO, error) {
	if userID <= 0 {
		return nil, unauthorized("unauthorized")
	}
	now := u.clock.Now()

	list, err := u.coupons.ListActiveAt(ctx, now)
	if err != nil {
		return nil, internalError(err, "list coupons")
	}
	usage, err := u.coupons.CountUsagesByUser(ctx, userID)
	if err != nil {
		return nil, internalError(err, "count coupon usages")
	}

	out := make([]CouponDTO, 0, len(list))
	for _, c := range list {
		if !u.evaluator.Listable(c, now, usage[c.ID]) {
			continue
		}
		out = append(out, toCouponDTO(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out, nil
}

// 現在のカートに対して適用（1ユーザー1件）
func (u *CouponUsecase) Apply(ctx context.Context, userID int64, code string) (AppliedCouponOutput, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return AppliedCouponOutput{}, validationError("code is required")
	}

	c, err := u.coupons.FindByCode(ctx, code)
	if err != nil {
		return AppliedCouponOutput{}, notFoundOrInternal(err, "coupon")
	}

	cart, err := u.cart.List(ctx, userID)
	if err != nil {
		return AppliedCouponOutput{}, err
	}
	if len(cart.Items) == 0 {
		return AppliedCouponOutput{}, businessError(CodeCartEmpty, "cart is empty")
	}

	usage, err := u.coupons.CountUsagesByUser(ctx, userID)
	if err != nil {
		return AppliedCouponOutput{}, internalError(err, "count coupon usages")
	}
	now := u.clock.Now()
	if he := u.evaluator.Check(c, now, cart.Subtotal, usage[c.ID]); he != nil {
		return AppliedCouponOutput{}, he
	}

	if err := u.coupons.SetApplied(ctx, model.AppliedCoupon{UserID: userID, CouponID: c.ID, AppliedAt: now}); err != nil {
		return AppliedCouponOutput{}, internalError(err, "set applied coupon")
	}

	return AppliedCouponOutput{
		Coupon: toCouponDTO(c),
		Totals: u.pricing.Compute(cart.Subtotal, &c),
	}, nil
}

// 適用中クーポンを外す（無くてもOK）
func (u *CouponUsecase) Remove(ctx context.Context, userID int64) (SuccessResponse, error) {
	removed, err := u.coupons.ClearApplied(ctx, userID)
	if err != nil {
		return SuccessResponse{}, internalError(err, "clear applied coupon")
	}
	if !removed {
		return SuccessResponse{Message: "no coupon applied"}, nil
	}
	return SuccessResponse{Message: "coupon removed"}, nil
}

// 適用中クーポン（無ければnil）
func findAppliedCoupon(ctx context.Context, coupons repo.CouponRepository, userID int64) (*model.Coupon, error) {
	a, err := coupons.FindApplied(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError(err, "find applied coupon")
	}
	c, err := coupons.FindByID(ctx, a.CouponID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError(err, "find coupon")
	}
	return &c, nil
}

func (u *CouponUsecase) AdminList(ctx context.Context) ([]model.Coupon, error) {
	list, err := u.coupons.List(ctx)
	if err != nil {
		return nil, internalError(err, "list coupons")
	}
	return list, nil
}

func (u *CouponUsecase) AdminCreate(ctx context.Context, actorID int64, in CreateCouponInput) (model.Coupon, error) {
	if !in.Type.Valid() {
		return model.Coupon{}, validationError("invalid coupon type")
	}
	if !in.ValidUntil.After(in.ValidFrom) {
		return model.Coupon{}, validationError("validUntil must be after validFrom")
	}
	if in.Type == model.CouponTypePercentage && (!in.Value.IsPositive() || in.Value.GreaterThan(hundred)) {
		return model.Coupon{}, validationError("percentage value must be in (0, 100]")
	}
	if in.Type == model.CouponTypeFixedAmount && !in.Value.IsPositive() {
		return model.Coupon{}, validationError("value must be positive")
	}
	if in.MinOrderAmount.IsNegative() {
		return model.Coupon{}, validationError("minOrderAmount must not be negative")
	}

	c, err := u.coupons.Create(ctx, model.Coupon{
		Code:              in.Code,
		Description:       in.Description,
		Type:              in.Type,
		Value:             in.Value,
		MinOrderAmount:    in.MinOrderAmount,
		MaxDiscountAmount: in.MaxDiscountAmount,
		UsageLimit:        in.UsageLimit,
		PerUserLimit:      in.PerUserLimit,
		ValidFrom:         in.ValidFrom,
		ValidUntil:        in.ValidUntil,
		IsActive:          in.IsActive,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Coupon{}, conflict("coupon code already exists")
	}
	if err != nil {
		return model.Coupon{}, internalError(err, "create coupon")
	}

	after, _ := json.Marshal(c)
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionCreateCoupon,
		ResourceType: model.AuditResourceCoupon,
		ResourceID:   c.ID,
		AfterJSON:    string(after),
		CreatedAt:    u.clock.Now(),
	}); err != nil {
		return model.Coupon{}, internalError(err, "audit create coupon")
	}
	return c, nil
}

func toCouponDTO(c model.Coupon) CouponDTO {
	return CouponDTO{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		Type:              c.Type,
		Value:             c.Value,
		MinOrderAmount:    c.MinOrderAmount,
		MaxDiscountAmount: c.MaxDiscountAmount,
		ValidFrom:         c.ValidFrom,
		ValidUntil:        c.ValidUntil,
	}
}
