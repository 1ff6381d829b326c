package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// ErrPayoutNotFound is returned when a payout lookup yields no rows.
var ErrPayoutNotFound = errors.New("payout not found")

// PayoutRepo provides data access to payout requests.
type PayoutRepo struct {
	db *sql.DB
}

// NewPayoutRepo returns a PayoutRepo bound to the given database.
func NewPayoutRepo(db *sql.DB) *PayoutRepo { return &PayoutRepo{db: db} }

// CreateTx inserts a new payout in 'requested' state and populates the
// generated ID. Runs inside the same transaction as the wallet debit.
func (r *PayoutRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PayoutRequest) error {
	const q = `INSERT INTO payout_requests
	           (shop_code, bank_account_id, amount_cents, note, status, wallet_tx_id)
	           VALUES (?, ?, ?, ?, 'requested', ?)`
	res, err := tx.ExecContext(ctx, q, p.ShopCode, p.BankAccountID, p.AmountCents, p.Note, p.WalletTxID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.PayoutRequested
	return nil
}

// GetByID retrieves a payout request by id.
func (r *PayoutRepo) GetByID(ctx context.Context, id uint64) (*model.PayoutRequest, error) {
	const q = `SELECT id, shop_code, bank_account_id, amount_cents, note, reason, status, wallet_tx_id, created_at, updated_at
	           FROM payout_requests WHERE id = ?`
	var p model.PayoutRequest
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.ShopCode, &p.BankAccountID, &p.AmountCents, &p.Note, &p.Reason,
		&p.Status, &p.WalletTxID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ResolveTx moves a payout from 'requested' to the given terminal
// status, storing the decision note or rejection reason. The state
// check is part of the UPDATE, so two concurrent decisions cannot both
// succeed; the loser gets ErrInvalidPayoutState.
func (r *PayoutRepo) ResolveTx(ctx context.Context, tx *sql.Tx, payoutID uint64, to model.PayoutStatus, note, reason string) error {
	const q = `UPDATE payout_requests
	           SET status = ?, note = CONCAT(note, ?), reason = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = 'requested'`
	decisionNote := ""
	if note != "" {
		decisionNote = " | " + note
	}
	res, err := tx.ExecContext(ctx, q, to, decisionNote, reason, payoutID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidPayoutState
	}
	return nil
}
