package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// PromotionStore is the lookup side of the promotion repository needed
// by the evaluator.
type PromotionStore interface {
	GetByCode(ctx context.Context, code string) (*model.Promotion, error)
	UsageCount(ctx context.Context, promotionID uint64) (uint32, error)
	UsageCountByCustomer(ctx context.Context, promotionID, customerID uint64) (uint32, error)
}

// PromotionEvaluator validates a promotion code against its shop, time
// window and usage caps, and computes the discount for a base total.
type PromotionEvaluator struct {
	promos PromotionStore
	now    func() time.Time
}

// NewPromotionEvaluator constructs an evaluator over the given store.
func NewPromotionEvaluator(promos PromotionStore) *PromotionEvaluator {
	return &PromotionEvaluator{promos: promos, now: func() time.Time { return time.Now().UTC() }}
}

// Quote is the result of evaluating a promotion against a base total.
// All amounts are minor units; FinalCents = BaseCents - DiscountCents.
type Quote struct {
	Promotion     *model.Promotion
	BaseCents     int64
	DiscountCents int64
	FinalCents    int64
}

// Evaluate looks up the code and applies the full validation chain:
// shop match, not disabled, inside the validity window, not a draft,
// minimum order satisfied, usage caps not reached. customerID may be
// nil for guests; the per-customer cap is then skipped and only the
// aggregate limit checked.
func (e *PromotionEvaluator) Evaluate(ctx context.Context, shopCode, code string, baseCents int64, customerID *uint64) (*Quote, error) {
	p, err := e.promos.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := e.validate(p, shopCode, baseCents); err != nil {
		return nil, err
	}
	if err := e.checkUsage(ctx, p, customerID); err != nil {
		return nil, err
	}
	discount := ComputeDiscount(p, baseCents)
	return &Quote{
		Promotion:     p,
		BaseCents:     baseCents,
		DiscountCents: discount,
		FinalCents:    baseCents - discount,
	}, nil
}

func (e *PromotionEvaluator) validate(p *model.Promotion, shopCode string, baseCents int64) error {
	if p.ShopCode != shopCode {
		return fmt.Errorf("%w: code belongs to another shop", ErrPromotionNotApplicable)
	}
	now := e.now()
	switch p.CurrentStatus(now) {
	case model.PromotionDisabled:
		return fmt.Errorf("%w: promotion is disabled", ErrPromotionNotApplicable)
	case model.PromotionScheduled:
		return fmt.Errorf("%w: promotion starts at %s", ErrPromotionNotApplicable, p.StartAt.Format(time.RFC3339))
	case model.PromotionExpired:
		return fmt.Errorf("%w: promotion expired at %s", ErrPromotionNotApplicable, p.EndAt.Format(time.RFC3339))
	case model.PromotionDraft:
		return fmt.Errorf("%w: promotion is not published", ErrPromotionNotApplicable)
	}
	if baseCents < p.MinOrderCents {
		return fmt.Errorf("%w: order total below minimum", ErrPromotionNotApplicable)
	}
	return nil
}

func (e *PromotionEvaluator) checkUsage(ctx context.Context, p *model.Promotion, customerID *uint64) error {
	if customerID != nil && p.UsagePerCustomer != nil {
		used, err := e.promos.UsageCountByCustomer(ctx, p.ID, *customerID)
		if err != nil {
			return err
		}
		if used >= *p.UsagePerCustomer {
			return fmt.Errorf("%w: per-customer limit", ErrPromotionExhausted)
		}
	}
	if p.UsageLimit != nil {
		used, err := e.promos.UsageCount(ctx, p.ID)
		if err != nil {
			return err
		}
		if used >= *p.UsageLimit {
			return fmt.Errorf("%w: total limit", ErrPromotionExhausted)
		}
	}
	return nil
}

// ComputeDiscount returns the discount in minor units for a promotion
// applied to a base total. Percent discounts are base * value / 100
// rounded to the nearest unit and clamped to MaxDiscountCents when set;
// fixed discounts are the value itself. The result is always clamped to
// [0, baseCents].
func ComputeDiscount(p *model.Promotion, baseCents int64) int64 {
	var discount int64
	switch p.DiscountType {
	case model.DiscountPercent:
		d := decimal.NewFromInt(baseCents).Mul(p.DiscountValue).Div(decimal.NewFromInt(100))
		discount = d.Round(0).IntPart()
		if p.MaxDiscountCents != nil && discount > *p.MaxDiscountCents {
			discount = *p.MaxDiscountCents
		}
	case model.DiscountFixed:
		discount = p.DiscountValue.Round(0).IntPart()
	}
	if discount < 0 {
		discount = 0
	}
	if discount > baseCents {
		discount = baseCents
	}
	return discount
}
