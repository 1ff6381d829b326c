package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// ErrPaymentNotFound is returned when a payment lookup yields no rows.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepo provides data access to payments and their append-only
// action log. The log is also the idempotency record for inbound
// webhooks: a row tagged with a gateway external id means that
// notification was already handled.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_code, amount_cents, method, status, external_ref, qr_payload, created_at, updated_at`

func scanPayment(scan func(dest ...any) error) (*model.Payment, error) {
	var p model.Payment
	var externalRef sql.NullString
	err := scan(&p.ID, &p.BookingCode, &p.AmountCents, &p.Method, &p.Status,
		&externalRef, &p.QRPayload, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if externalRef.Valid {
		ref := externalRef.String
		p.ExternalRef = &ref
	}
	return &p, nil
}

// Create inserts a new pending payment. This deliberately runs outside
// the reservation transaction: if it fails, the 15-minute hold expiry
// reclaims the slots on its own.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_code, amount_cents, method, status, qr_payload)
	           VALUES (?, ?, ?, 'pending', ?)`
	res, err := r.db.ExecContext(ctx, q, p.BookingCode, p.AmountCents, p.Method, p.QRPayload)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.PaymentPending
	return nil
}

// GetByID retrieves a payment by its id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetPendingByBookingCode retrieves the pending payment of a booking,
// if one exists. Used by the webhook matcher's code candidates.
func (r *PaymentRepo) GetPendingByBookingCode(ctx context.Context, bookingCode string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_code = ? AND status = 'pending'
		 ORDER BY id DESC LIMIT 1`, bookingCode).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// LatestPendingByAmount retrieves the single most recent pending
// payment with exactly the given amount. This is the webhook matcher's
// last-resort fallback when no booking code could be extracted.
func (r *PaymentRepo) LatestPendingByAmount(ctx context.Context, amountCents int64) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = 'pending' AND amount_cents = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, amountCents).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// MarkPaidTx transitions a payment to paid, recording the external
// transaction reference when known. Only a pending payment is updated;
// the returned bool reports whether this call performed the transition,
// so a concurrent or repeated confirmation observes false and skips its
// side effects.
func (r *PaymentRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, paymentID uint64, externalRef string) (bool, error) {
	const q = `UPDATE payments
	           SET status = 'paid', external_ref = COALESCE(NULLIF(?, ''), external_ref),
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = 'pending'`
	res, err := tx.ExecContext(ctx, q, externalRef, paymentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendLog writes one audit row. PaymentID may be nil for webhook
// notifications that matched nothing.
func (r *PaymentRepo) AppendLog(ctx context.Context, l *model.PaymentLog) error {
	return r.appendLog(ctx, r.db.ExecContext, l)
}

// AppendLogTx is AppendLog inside an existing transaction.
func (r *PaymentRepo) AppendLogTx(ctx context.Context, tx *sql.Tx, l *model.PaymentLog) error {
	return r.appendLog(ctx, tx.ExecContext, l)
}

type execFn func(ctx context.Context, query string, args ...any) (sql.Result, error)

func (r *PaymentRepo) appendLog(ctx context.Context, exec execFn, l *model.PaymentLog) error {
	const q = `INSERT INTO payment_logs (payment_id, action, external_id, detail) VALUES (?, ?, ?, ?)`
	var paymentID any
	if l.PaymentID != nil {
		paymentID = *l.PaymentID
	}
	res, err := exec(ctx, q, paymentID, l.Action, l.ExternalID, l.Detail)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// HasLogWithExternalID reports whether any log row carries the given
// gateway external id. Empty ids never match.
func (r *PaymentRepo) HasLogWithExternalID(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	const q = `SELECT EXISTS(SELECT 1 FROM payment_logs WHERE external_id = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, externalID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
