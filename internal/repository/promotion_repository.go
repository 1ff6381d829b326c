package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// ErrPromotionNotFound is returned when no promotion carries the code.
var ErrPromotionNotFound = errors.New("promotion not found")

// ErrPromotionGone is returned when the promotion exists but has been
// soft-deleted. Handlers translate this into HTTP 410.
var ErrPromotionGone = errors.New("promotion deleted")

// PromotionRepo provides data access to promotions and their usage
// records.
type PromotionRepo struct {
	db *sql.DB
}

// NewPromotionRepo returns a PromotionRepo bound to the given database.
func NewPromotionRepo(db *sql.DB) *PromotionRepo { return &PromotionRepo{db: db} }

// GetByCode retrieves a promotion by code, case-insensitively. The
// lookup is deliberately not scoped by shop: the evaluator checks shop
// ownership itself so a code from another shop reads as not applicable
// rather than not found. Soft-deleted promotions yield
// ErrPromotionGone.
func (r *PromotionRepo) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	const q = `SELECT id, shop_code, code, discount_type, discount_value,
	                  max_discount_cents, min_order_cents, start_at, end_at,
	                  usage_limit, usage_per_customer, status, deleted_at
	           FROM promotions
	           WHERE code = UPPER(?)
	           ORDER BY id
	           LIMIT 1`
	var p model.Promotion
	var value string
	var maxDiscount sql.NullInt64
	var usageLimit, usagePerCustomer sql.NullInt64
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&p.ID, &p.ShopCode, &p.Code, &p.DiscountType, &value,
		&maxDiscount, &p.MinOrderCents, &p.StartAt, &p.EndAt,
		&usageLimit, &usagePerCustomer, &p.Status, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	p.DiscountValue, err = decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	if maxDiscount.Valid {
		v := maxDiscount.Int64
		p.MaxDiscountCents = &v
	}
	if usageLimit.Valid {
		v := uint32(usageLimit.Int64)
		p.UsageLimit = &v
	}
	if usagePerCustomer.Valid {
		v := uint32(usagePerCustomer.Int64)
		p.UsagePerCustomer = &v
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		p.DeletedAt = &t
		return nil, ErrPromotionGone
	}
	return &p, nil
}

// UsageCount returns how many times a promotion has been applied in
// total.
func (r *PromotionRepo) UsageCount(ctx context.Context, promotionID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = ?`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q, promotionID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UsageCountByCustomer returns how many times one customer has applied
// a promotion.
func (r *PromotionRepo) UsageCountByCustomer(ctx context.Context, promotionID, customerID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = ? AND customer_id = ?`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q, promotionID, customerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// RecordUsageTx appends a usage row inside the reservation transaction
// so the cap check and the booking commit or roll back together.
func (r *PromotionRepo) RecordUsageTx(ctx context.Context, tx *sql.Tx, u *model.PromotionUsage) error {
	const q = `INSERT INTO promotion_usages (promotion_id, booking_code, customer_id, discount_cents)
	           VALUES (?, ?, ?, ?)`
	var customerID any
	if u.CustomerID != nil {
		customerID = *u.CustomerID
	}
	_, err := tx.ExecContext(ctx, q, u.PromotionID, u.BookingCode, customerID, u.DiscountCents)
	return err
}

// ReleaseUsagesTx deletes the usage rows recorded by the given
// bookings. Runs when a booking is cancelled before payment so a lapsed
// hold does not burn the promotion's caps.
func (r *PromotionRepo) ReleaseUsagesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	if len(bookingCodes) == 0 {
		return nil
	}
	placeholders := make([]string, len(bookingCodes))
	args := make([]any, len(bookingCodes))
	for i, c := range bookingCodes {
		placeholders[i] = "?"
		args[i] = c
	}
	q := `DELETE FROM promotion_usages WHERE booking_code IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}
