package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// ErrFieldNotFound is returned when a field lookup yields no rows.
var ErrFieldNotFound = errors.New("field not found")

// ErrQuantityNotFound is returned when a quantity lookup yields no rows.
var ErrQuantityNotFound = errors.New("quantity not found")

// FieldRepo provides data access to fields and their quantities
// (individual courts).
type FieldRepo struct {
	db *sql.DB
}

// NewFieldRepo constructs a FieldRepo with the given DB handle.
func NewFieldRepo(db *sql.DB) *FieldRepo { return &FieldRepo{db: db} }

// GetByCode retrieves a field by its public code.
func (r *FieldRepo) GetByCode(ctx context.Context, code string) (*model.Field, error) {
	const q = `SELECT id, shop_code, code, name, default_price_cents, status, rent_count, created_at, updated_at
	           FROM fields WHERE code = ?`
	var f model.Field
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&f.ID, &f.ShopCode, &f.Code, &f.Name, &f.DefaultPriceCents,
		&f.Status, &f.RentCount, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	return &f, nil
}

// GetQuantity retrieves one court of a field, verifying it belongs to
// the field and is active.
func (r *FieldRepo) GetQuantity(ctx context.Context, fieldID, quantityID uint64) (*model.Quantity, error) {
	const q = `SELECT id, field_id, label, is_active
	           FROM quantities WHERE id = ? AND field_id = ? AND is_active = 1`
	var qty model.Quantity
	err := r.db.QueryRowContext(ctx, q, quantityID, fieldID).Scan(
		&qty.ID, &qty.FieldID, &qty.Label, &qty.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuantityNotFound
		}
		return nil, err
	}
	return &qty, nil
}

// IncrementRentTx bumps a field's confirmed-booking counter. Called at
// most once per booking, inside the payment confirmation transaction.
func (r *FieldRepo) IncrementRentTx(ctx context.Context, tx *sql.Tx, fieldID uint64) error {
	const q = `UPDATE fields SET rent_count = rent_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, fieldID)
	return err
}
