package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

type fakePromotionStore struct {
	promo        *model.Promotion
	err          error
	total        uint32
	perCustomer  uint32
	totalCalls   int
	byCustCalls  int
}

func (f *fakePromotionStore) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.promo, nil
}

func (f *fakePromotionStore) UsageCount(ctx context.Context, promotionID uint64) (uint32, error) {
	f.totalCalls++
	return f.total, nil
}

func (f *fakePromotionStore) UsageCountByCustomer(ctx context.Context, promotionID, customerID uint64) (uint32, error) {
	f.byCustCalls++
	return f.perCustomer, nil
}

func activePromo() *model.Promotion {
	return &model.Promotion{
		ID:            1,
		ShopCode:      "shop1",
		Code:          "SUMMER10",
		DiscountType:  model.DiscountPercent,
		DiscountValue: decimal.NewFromInt(10),
		StartAt:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndAt:         time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Status:        model.PromotionActive,
	}
}

func evaluatorAt(store PromotionStore, at time.Time) *PromotionEvaluator {
	e := NewPromotionEvaluator(store)
	e.now = func() time.Time { return at }
	return e
}

func TestEvaluateActivePercent(t *testing.T) {
	store := &fakePromotionStore{promo: activePromo()}
	e := evaluatorAt(store, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))

	quote, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), quote.DiscountCents)
	assert.Equal(t, int64(18000), quote.FinalCents)
}

func TestEvaluateWindowAndStatus(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("wrong shop", func(t *testing.T) {
		p := activePromo()
		p.ShopCode = "other"
		e := evaluatorAt(&fakePromotionStore{promo: p}, now)
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.ErrorIs(t, err, ErrPromotionNotApplicable)
	})

	t.Run("disabled", func(t *testing.T) {
		p := activePromo()
		p.Status = model.PromotionDisabled
		e := evaluatorAt(&fakePromotionStore{promo: p}, now)
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.ErrorIs(t, err, ErrPromotionNotApplicable)
	})

	t.Run("not started", func(t *testing.T) {
		e := evaluatorAt(&fakePromotionStore{promo: activePromo()}, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.ErrorIs(t, err, ErrPromotionNotApplicable)
	})

	t.Run("expired", func(t *testing.T) {
		e := evaluatorAt(&fakePromotionStore{promo: activePromo()}, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.ErrorIs(t, err, ErrPromotionNotApplicable)
	})

	t.Run("draft", func(t *testing.T) {
		p := activePromo()
		p.Status = model.PromotionDraft
		e := evaluatorAt(&fakePromotionStore{promo: p}, now)
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.ErrorIs(t, err, ErrPromotionNotApplicable)
	})

	t.Run("below minimum order", func(t *testing.T) {
		p := activePromo()
		p.MinOrderCents = 50000
		e := evaluatorAt(&fakePromotionStore{promo: p}, now)
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.ErrorIs(t, err, ErrPromotionNotApplicable)
	})
}

func TestEvaluateUsageCaps(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	limit := uint32(5)
	perCust := uint32(1)
	customer := uint64(42)

	t.Run("aggregate cap reached", func(t *testing.T) {
		p := activePromo()
		p.UsageLimit = &limit
		store := &fakePromotionStore{promo: p, total: 5}
		e := evaluatorAt(store, now)
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.ErrorIs(t, err, ErrPromotionExhausted)
	})

	t.Run("per-customer cap reached", func(t *testing.T) {
		p := activePromo()
		p.UsagePerCustomer = &perCust
		store := &fakePromotionStore{promo: p, perCustomer: 1}
		e := evaluatorAt(store, now)
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, &customer)
		assert.ErrorIs(t, err, ErrPromotionExhausted)
	})

	t.Run("guest skips per-customer cap", func(t *testing.T) {
		p := activePromo()
		p.UsagePerCustomer = &perCust
		store := &fakePromotionStore{promo: p, perCustomer: 1}
		e := evaluatorAt(store, now)
		_, err := e.Evaluate(context.Background(), "shop1", "SUMMER10", 20000, nil)
		assert.NoError(t, err)
		assert.Zero(t, store.byCustCalls)
	})
}

func TestComputeDiscount(t *testing.T) {
	t.Run("percent with cap", func(t *testing.T) {
		p := activePromo()
		cap := int64(1500)
		p.MaxDiscountCents = &cap
		assert.Equal(t, int64(1500), ComputeDiscount(p, 20000))
	})

	t.Run("percent rounds to nearest cent", func(t *testing.T) {
		p := activePromo()
		p.DiscountValue = decimal.NewFromFloat(12.5)
		// 12.5% of 999 = 124.875 -> 125
		assert.Equal(t, int64(125), ComputeDiscount(p, 999))
	})

	t.Run("fixed clamped to base", func(t *testing.T) {
		p := activePromo()
		p.DiscountType = model.DiscountFixed
		p.DiscountValue = decimal.NewFromInt(50000)
		assert.Equal(t, int64(20000), ComputeDiscount(p, 20000))
	})

	t.Run("never negative", func(t *testing.T) {
		p := activePromo()
		p.DiscountType = model.DiscountFixed
		p.DiscountValue = decimal.NewFromInt(-100)
		assert.Equal(t, int64(0), ComputeDiscount(p, 20000))
	})
}
