package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a promotion's value is applied.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// PromotionStatus is the lifecycle state of a promotion. Draft and
// disabled are sticky operator overrides; scheduled, active and expired
// are derived from the validity window.
type PromotionStatus string

const (
	PromotionDraft     PromotionStatus = "draft"
	PromotionScheduled PromotionStatus = "scheduled"
	PromotionActive    PromotionStatus = "active"
	PromotionExpired   PromotionStatus = "expired"
	PromotionDisabled  PromotionStatus = "disabled"
)

// Promotion is a shop-scoped discount code. Codes are unique per shop
// and stored uppercased; lookups are case-insensitive. Amount-typed
// fields are minor units; DiscountValue is a percentage for percent
// promotions and a minor-unit amount for fixed ones.
type Promotion struct {
	ID               uint64          // promotions.id
	ShopCode         string          // promotions.shop_code
	Code             string          // promotions.code (uppercased)
	DiscountType     DiscountType    // promotions.discount_type
	DiscountValue    decimal.Decimal // promotions.discount_value
	MaxDiscountCents *int64          // promotions.max_discount_cents (nullable)
	MinOrderCents    int64           // promotions.min_order_cents
	StartAt          time.Time       // promotions.start_at
	EndAt            time.Time       // promotions.end_at
	UsageLimit       *uint32         // promotions.usage_limit (nullable)
	UsagePerCustomer *uint32         // promotions.usage_per_customer (nullable)
	Status           PromotionStatus // promotions.status (sticky value only)
	DeletedAt        *time.Time      // promotions.deleted_at (soft delete)
}

// CurrentStatus derives the effective status at the given instant.
// Sticky draft/disabled win over the time window.
func (p *Promotion) CurrentStatus(now time.Time) PromotionStatus {
	if p.Status == PromotionDraft || p.Status == PromotionDisabled {
		return p.Status
	}
	switch {
	case now.Before(p.StartAt):
		return PromotionScheduled
	case now.After(p.EndAt):
		return PromotionExpired
	default:
		return PromotionActive
	}
}

// PromotionUsage records a single application of a promotion to a
// booking, keyed by customer when known. Usage counts against the
// aggregate and per-customer caps.
type PromotionUsage struct {
	ID            uint64    // promotion_usages.id
	PromotionID   uint64    // promotion_usages.promotion_id
	BookingCode   string    // promotion_usages.booking_code
	CustomerID    *uint64   // promotion_usages.customer_id (nullable)
	DiscountCents int64     // promotion_usages.discount_cents
	CreatedAt     time.Time // promotion_usages.created_at
}
