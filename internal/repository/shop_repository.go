package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// ErrShopNotFound is returned when a shop lookup yields no rows.
var ErrShopNotFound = errors.New("shop not found")

// ErrBankAccountNotFound is returned when a bank account lookup yields
// no rows for the shop.
var ErrBankAccountNotFound = errors.New("bank account not found")

// ShopRepo provides data access to shops, their payout bank accounts
// and the stored credential used to re-verify a payout actor.
type ShopRepo struct {
	db *sql.DB
}

// NewShopRepo returns a ShopRepo bound to the given database.
func NewShopRepo(db *sql.DB) *ShopRepo { return &ShopRepo{db: db} }

// GetByCode retrieves a shop by its public code.
func (r *ShopRepo) GetByCode(ctx context.Context, code string) (*model.Shop, error) {
	const q = `SELECT id, code, name, owner_user_id, created_at FROM shops WHERE code = ?`
	var s model.Shop
	err := r.db.QueryRowContext(ctx, q, code).Scan(&s.ID, &s.Code, &s.Name, &s.OwnerUserID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetBankAccount retrieves one of a shop's active payout destinations.
func (r *ShopRepo) GetBankAccount(ctx context.Context, shopCode string, accountID uint64) (*model.BankAccount, error) {
	const q = `SELECT id, shop_code, bank_name, account_number, account_name, is_active
	           FROM bank_accounts WHERE id = ? AND shop_code = ? AND is_active = 1`
	var a model.BankAccount
	err := r.db.QueryRowContext(ctx, q, accountID, shopCode).Scan(
		&a.ID, &a.ShopCode, &a.BankName, &a.AccountNumber, &a.AccountName, &a.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBankAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetUserPasswordHash returns the bcrypt hash stored for a user.
// Payout requests re-verify the actor's password against it.
func (r *ShopRepo) GetUserPasswordHash(ctx context.Context, userID uint64) (string, error) {
	const q = `SELECT password_hash FROM users WHERE id = ?`
	var hash string
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrForbidden
		}
		return "", err
	}
	return hash, nil
}
