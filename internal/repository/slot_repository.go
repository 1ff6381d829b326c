package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// ErrSlotTaken is returned when the unique window index rejects a held
// row because a concurrent transaction claimed the window first.
var ErrSlotTaken = errors.New("slot window already taken")

// SlotRepo provides data access to the field_slots table, the per-field
// slot ledger. Reservation attempts must serialize on a window, so the
// lock method runs SELECT ... FOR UPDATE inside the caller's
// transaction; conflict decisions are only valid after that lock is
// acquired, never from a prior unlocked read. The unique window index
// backstops the locking: when no row exists yet there is nothing to
// lock, and the index arbitrates between concurrent first inserts. All
// timestamps are UTC.
type SlotRepo struct {
	db *sql.DB
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, field_id, quantity_id,
	DATE_FORMAT(play_date, '%Y-%m-%d'), TIME_FORMAT(start_time, '%H:%i'),
	TIME_FORMAT(end_time, '%H:%i'), status, booking_code, hold_expires_at`

func scanSlot(scan func(dest ...any) error) (*model.Slot, error) {
	var s model.Slot
	var quantityID sql.NullInt64
	var bookingCode sql.NullString
	var holdExpires sql.NullTime
	err := scan(&s.ID, &s.FieldID, &quantityID, &s.PlayDate, &s.StartTime,
		&s.EndTime, &s.Status, &bookingCode, &holdExpires)
	if err != nil {
		return nil, err
	}
	if quantityID.Valid {
		q := uint64(quantityID.Int64)
		s.QuantityID = &q
	}
	if bookingCode.Valid {
		c := bookingCode.String
		s.BookingCode = &c
	}
	if holdExpires.Valid {
		t := holdExpires.Time.UTC()
		s.HoldExpiresAt = &t
	}
	return &s, nil
}

// LockWindowTx locks and returns every ledger row that can affect a
// reservation of the given window. For a quantity-specific request that
// is the same-quantity row plus any whole-field (NULL quantity) row;
// for a whole-field request it is every row of the window, since a
// whole-field booking must not overlap any court-specific one. An empty
// result means no row exists and the caller may insert a fresh held
// row. Rows are locked in id order.
func (r *SlotRepo) LockWindowTx(ctx context.Context, tx *sql.Tx, fieldID uint64, quantityID *uint64, playDate, startTime, endTime string) ([]model.Slot, error) {
	q := `SELECT ` + slotColumns + `
	      FROM field_slots
	      WHERE field_id = ? AND play_date = ? AND start_time = ? AND end_time = ?`
	args := []any{fieldID, playDate, startTime, endTime}
	if quantityID != nil {
		q += ` AND (quantity_id = ? OR quantity_id IS NULL)`
		args = append(args, *quantityID)
	}
	q += ` ORDER BY id FOR UPDATE`

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertHeldTx creates a new ledger row directly in held state for the
// given booking. The generated id is populated on the slot.
func (r *SlotRepo) InsertHeldTx(ctx context.Context, tx *sql.Tx, s *model.Slot) error {
	const q = `INSERT INTO field_slots
	           (field_id, quantity_id, play_date, start_time, end_time, status, booking_code, hold_expires_at)
	           VALUES (?, ?, ?, ?, ?, 'held', ?, ?)`
	var quantityID any
	if s.QuantityID != nil {
		quantityID = *s.QuantityID
	}
	res, err := tx.ExecContext(ctx, q, s.FieldID, quantityID, s.PlayDate, s.StartTime,
		s.EndTime, s.BookingCode, s.HoldExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrSlotTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Status = model.SlotHeld
	return nil
}

// HoldExistingTx re-claims a free row (available, cancelled, or an
// expired hold) for a new booking, resetting its quantity linkage.
func (r *SlotRepo) HoldExistingTx(ctx context.Context, tx *sql.Tx, slotID uint64, quantityID *uint64, bookingCode string, expiresAt time.Time) error {
	const q = `UPDATE field_slots
	           SET status = 'held', quantity_id = ?, booking_code = ?,
	               hold_expires_at = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	var qty any
	if quantityID != nil {
		qty = *quantityID
	}
	_, err := tx.ExecContext(ctx, q, qty, bookingCode,
		expiresAt.UTC().Format("2006-01-02 15:04:05"), slotID)
	if isDuplicateKey(err) {
		return ErrSlotTaken
	}
	return err
}

// ExpiredHoldsTx returns the held slots whose hold has lapsed,
// optionally scoped to a single field. The reaper uses the returned
// ids and booking codes to cancel stale bookings and free the slots.
func (r *SlotRepo) ExpiredHoldsTx(ctx context.Context, tx *sql.Tx, fieldID *uint64) ([]model.Slot, error) {
	q := `SELECT ` + slotColumns + `
	      FROM field_slots
	      WHERE status = 'held' AND hold_expires_at <= UTC_TIMESTAMP()`
	args := []any{}
	if fieldID != nil {
		q += ` AND field_id = ?`
		args = append(args, *fieldID)
	}
	q += ` ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseTx resets the given slot ids back to available, clearing their
// quantity and booking linkage. Only held rows are touched, so calling
// it twice for the same ids is harmless.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, slotIDs []uint64) error {
	if len(slotIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(slotIDs))
	args := make([]any, len(slotIDs))
	for i, id := range slotIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `UPDATE field_slots
	      SET status = 'available', quantity_id = NULL, booking_code = NULL,
	          hold_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
	      WHERE status = 'held' AND id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// MarkBookedByCodeTx transitions all held slots of a booking to booked
// once its payment is confirmed.
func (r *SlotRepo) MarkBookedByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error {
	const q = `UPDATE field_slots
	           SET status = 'booked', hold_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE booking_code = ? AND status = 'held'`
	_, err := tx.ExecContext(ctx, q, bookingCode)
	return err
}

// ReleaseByCodeTx frees a booking's still-held slots back to available,
// used when a pending booking is cancelled before payment.
func (r *SlotRepo) ReleaseByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error {
	const q = `UPDATE field_slots
	           SET status = 'available', quantity_id = NULL, booking_code = NULL,
	               hold_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE booking_code = ? AND status = 'held'`
	_, err := tx.ExecContext(ctx, q, bookingCode)
	return err
}

// CancelBookedByCodeTx marks a booking's booked slots cancelled while
// keeping the booking linkage for audit. Used when a paid booking is
// cancelled.
func (r *SlotRepo) CancelBookedByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error {
	const q = `UPDATE field_slots
	           SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
	           WHERE booking_code = ? AND status = 'booked'`
	_, err := tx.ExecContext(ctx, q, bookingCode)
	return err
}

// ListByFieldDate returns all ledger rows of a field for one date,
// ordered by start time. Used by the availability read after the reaper
// has swept expired holds.
func (r *SlotRepo) ListByFieldDate(ctx context.Context, fieldID uint64, playDate string) ([]model.Slot, error) {
	q := `SELECT ` + slotColumns + `
	      FROM field_slots
	      WHERE field_id = ? AND play_date = ?
	      ORDER BY start_time, quantity_id`
	rows, err := r.db.QueryContext(ctx, q, fieldID, playDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
