package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// WalletRepo provides data access to shop wallets and their append-only
// transaction ledger. Every balance mutation is a single atomic
// UPDATE paired with an inserted transaction row, so the invariant
// balance == sum(transaction deltas) holds without any application
// lock.
type WalletRepo struct {
	db *sql.DB
}

// NewWalletRepo returns a WalletRepo bound to the given database.
func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

// Balance returns a shop's available balance in minor units. A shop
// without a wallet row has balance zero.
func (r *WalletRepo) Balance(ctx context.Context, shopCode string) (int64, error) {
	const q = `SELECT balance_cents FROM wallets WHERE shop_code = ?`
	var cents int64
	err := r.db.QueryRowContext(ctx, q, shopCode).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cents, nil
}

// CreditTx adds amountCents to a shop's wallet and appends the matching
// ledger row. The wallet row is created on first credit. Amount must be
// positive; the appended delta is +amountCents.
func (r *WalletRepo) CreditTx(ctx context.Context, tx *sql.Tx, shopCode string, amountCents int64, txType model.WalletTxType, status model.WalletTxStatus, reference string) (uint64, error) {
	const upsert = `INSERT INTO wallets (shop_code, balance_cents) VALUES (?, ?)
	                ON DUPLICATE KEY UPDATE balance_cents = balance_cents + VALUES(balance_cents),
	                                        updated_at = CURRENT_TIMESTAMP`
	if _, err := tx.ExecContext(ctx, upsert, shopCode, amountCents); err != nil {
		return 0, err
	}
	return r.appendTx(ctx, tx, shopCode, txType, amountCents, status, reference)
}

// DebitIfSufficientTx subtracts amountCents from a shop's wallet only
// when the remaining balance stays non-negative, and appends a pending
// debit row. The balance check and the subtraction are one statement,
// serializing concurrent payout requests on the wallet row. Returns
// ErrInsufficientBalance when the guard fails.
func (r *WalletRepo) DebitIfSufficientTx(ctx context.Context, tx *sql.Tx, shopCode string, amountCents int64, txType model.WalletTxType, reference string) (uint64, error) {
	const q = `UPDATE wallets
	           SET balance_cents = balance_cents - ?, updated_at = CURRENT_TIMESTAMP
	           WHERE shop_code = ? AND balance_cents >= ?`
	res, err := tx.ExecContext(ctx, q, amountCents, shopCode, amountCents)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrInsufficientBalance
	}
	return r.appendTx(ctx, tx, shopCode, txType, -amountCents, model.WalletTxPending, reference)
}

// MarkTransactionTx finalizes a previously appended ledger row, e.g.
// completing a payout debit on approval or reversing it on rejection.
func (r *WalletRepo) MarkTransactionTx(ctx context.Context, tx *sql.Tx, walletTxID uint64, status model.WalletTxStatus) error {
	const q = `UPDATE wallet_transactions SET status = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, status, walletTxID)
	return err
}

// ListTransactions returns a shop's ledger rows, newest first.
func (r *WalletRepo) ListTransactions(ctx context.Context, shopCode string) ([]model.WalletTransaction, error) {
	const q = `SELECT id, shop_code, tx_type, amount_cents, status, reference, created_at
	           FROM wallet_transactions WHERE shop_code = ?
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, shopCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WalletTransaction
	for rows.Next() {
		var t model.WalletTransaction
		if err := rows.Scan(&t.ID, &t.ShopCode, &t.Type, &t.AmountCents, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *WalletRepo) appendTx(ctx context.Context, tx *sql.Tx, shopCode string, txType model.WalletTxType, deltaCents int64, status model.WalletTxStatus, reference string) (uint64, error) {
	const q = `INSERT INTO wallet_transactions (shop_code, tx_type, amount_cents, status, reference)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, shopCode, txType, deltaCents, status, reference)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
