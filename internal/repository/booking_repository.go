package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepo provides data access to bookings, their per-slot audit
// rows and the cart-tracking convenience entries.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID on the record.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (booking_code, field_id, shop_code, customer_id, guest_name, guest_phone,
	            status, payment_status, total_price_cents, discount_cents,
	            platform_fee_cents, net_to_shop_cents, promotion_id, checkin_code)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var customerID, promotionID any
	if b.CustomerID != nil {
		customerID = *b.CustomerID
	}
	if b.PromotionID != nil {
		promotionID = *b.PromotionID
	}
	res, err := tx.ExecContext(ctx, q,
		b.BookingCode, b.FieldID, b.ShopCode, customerID, b.GuestName, b.GuestPhone,
		b.Status, b.PaymentStatus, b.TotalPriceCents, b.DiscountCents,
		b.PlatformFeeCents, b.NetToShopCents, promotionID, b.CheckinCode,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CreateSlotsBulkTx inserts all booking_slots rows of a booking in a
// single statement. Passing an empty slice has no effect.
func (r *BookingRepo) CreateSlotsBulkTx(ctx context.Context, tx *sql.Tx, slots []model.BookingSlot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO booking_slots
	          (booking_id, booking_code, field_id, quantity_id, play_date, start_time, end_time, price_cents) VALUES `
	args := make([]any, 0, len(slots)*8)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		var quantityID any
		if s.QuantityID != nil {
			quantityID = *s.QuantityID
		}
		args = append(args, s.BookingID, s.BookingCode, s.FieldID, quantityID,
			s.PlayDate, s.StartTime, s.EndTime, s.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByCode retrieves a booking by its public code.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	const q = `SELECT id, booking_code, field_id, shop_code, customer_id, guest_name, guest_phone,
	                  status, payment_status, total_price_cents, discount_cents,
	                  platform_fee_cents, net_to_shop_cents, promotion_id, checkin_code,
	                  created_at, updated_at
	           FROM bookings WHERE booking_code = ?`
	var b model.Booking
	var customerID, promotionID sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&b.ID, &b.BookingCode, &b.FieldID, &b.ShopCode, &customerID, &b.GuestName, &b.GuestPhone,
		&b.Status, &b.PaymentStatus, &b.TotalPriceCents, &b.DiscountCents,
		&b.PlatformFeeCents, &b.NetToShopCents, &promotionID, &b.CheckinCode,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if customerID.Valid {
		c := uint64(customerID.Int64)
		b.CustomerID = &c
	}
	if promotionID.Valid {
		p := uint64(promotionID.Int64)
		b.PromotionID = &p
	}
	return &b, nil
}

// UpdateStatusTx moves a booking to the given status, enforcing the
// current status at the SQL level. It returns ErrBookingNotFound when
// the booking no longer is in the expected state; callers relying on
// idempotent confirmation should check the current status first.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingCode string, from, to model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE booking_code = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, to, bookingCode, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdatePaymentStateTx moves the booking's payment side to the given
// state.
func (r *BookingRepo) UpdatePaymentStateTx(ctx context.Context, tx *sql.Tx, bookingCode string, state model.BookingPayment) error {
	const q = `UPDATE bookings SET payment_status = ?, updated_at = CURRENT_TIMESTAMP WHERE booking_code = ?`
	_, err := tx.ExecContext(ctx, q, state, bookingCode)
	return err
}

// CancelPendingTx cancels every still-pending booking among the given
// codes. Confirmed or already-cancelled bookings are left untouched,
// which makes the reaper safe to run redundantly.
func (r *BookingRepo) CancelPendingTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	if len(bookingCodes) == 0 {
		return nil
	}
	placeholders := make([]string, len(bookingCodes))
	args := make([]any, len(bookingCodes))
	for i, c := range bookingCodes {
		placeholders[i] = "?"
		args[i] = c
	}
	q := `UPDATE bookings SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
	      WHERE status = 'pending' AND booking_code IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// SlotsByCode returns the per-slot audit rows of a booking ordered by
// date then start time.
func (r *BookingRepo) SlotsByCode(ctx context.Context, bookingCode string) ([]model.BookingSlot, error) {
	const q = `SELECT id, booking_id, booking_code, field_id, quantity_id,
	                  DATE_FORMAT(play_date, '%Y-%m-%d'), TIME_FORMAT(start_time, '%H:%i'),
	                  TIME_FORMAT(end_time, '%H:%i'), price_cents
	           FROM booking_slots WHERE booking_code = ?
	           ORDER BY play_date, start_time`
	rows, err := r.db.QueryContext(ctx, q, bookingCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingSlot
	for rows.Next() {
		var s model.BookingSlot
		var quantityID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.BookingID, &s.BookingCode, &s.FieldID, &quantityID,
			&s.PlayDate, &s.StartTime, &s.EndTime, &s.PriceCents); err != nil {
			return nil, err
		}
		if quantityID.Valid {
			q := uint64(quantityID.Int64)
			s.QuantityID = &q
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCartEntryTx records a checkout-in-progress pointer for an
// authenticated customer. Best-effort convenience, not correctness.
func (r *BookingRepo) CreateCartEntryTx(ctx context.Context, tx *sql.Tx, e *model.CartEntry) error {
	const q = `INSERT INTO cart_entries (customer_id, booking_code, expires_at) VALUES (?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, e.CustomerID, e.BookingCode,
		e.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	return err
}

// DeleteCartEntriesTx removes all cart entries pointing at the given
// bookings.
func (r *BookingRepo) DeleteCartEntriesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	if len(bookingCodes) == 0 {
		return nil
	}
	placeholders := make([]string, len(bookingCodes))
	args := make([]any, len(bookingCodes))
	for i, c := range bookingCodes {
		placeholders[i] = "?"
		args[i] = c
	}
	q := `DELETE FROM cart_entries WHERE booking_code IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}
