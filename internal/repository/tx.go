package repository

import (
	"context"
	"database/sql"
)

// InTx runs fn inside a database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise. Multi-step
// writes (slot locking plus booking inserts, payment confirmation,
// payout transitions) always go through this helper so that no partial
// state survives a failure.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
