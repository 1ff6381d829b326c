package service

import (
	"context"
	"database/sql"
	"log"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/monitoring"
)

// SlotReaperStore is the slice of the slot repository the reaper uses.
type SlotReaperStore interface {
	ExpiredHoldsTx(ctx context.Context, tx *sql.Tx, fieldID *uint64) ([]model.Slot, error)
	ReleaseTx(ctx context.Context, tx *sql.Tx, slotIDs []uint64) error
}

// BookingReaperStore is the slice of the booking repository the reaper uses.
type BookingReaperStore interface {
	CancelPendingTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error
	DeleteCartEntriesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error
}

// UsageReleaser frees the promotion usages of bookings cancelled before
// payment, so a lapsed hold never burns a promotion cap.
type UsageReleaser interface {
	ReleaseUsagesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error
}

// HoldReaper releases expired slot holds and cancels the pending
// bookings that created them. It runs inline before availability reads
// and reservation attempts, so the ledger self-heals without a
// scheduler.
type HoldReaper struct {
	slots    SlotReaperStore
	bookings BookingReaperStore
	usages   UsageReleaser
	runTx    func(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// NewHoldReaper constructs a reaper over the given stores.
func NewHoldReaper(slots SlotReaperStore, bookings BookingReaperStore, usages UsageReleaser,
	runTx func(ctx context.Context, fn func(tx *sql.Tx) error) error) *HoldReaper {
	return &HoldReaper{slots: slots, bookings: bookings, usages: usages, runTx: runTx}
}

// Reap releases every expired hold, scoped to one field when fieldID is
// non-nil. Failures are logged and swallowed: a broken reap must never
// block the read or reservation that triggered it.
func (r *HoldReaper) Reap(ctx context.Context, fieldID *uint64) {
	err := r.runTx(ctx, func(tx *sql.Tx) error {
		expired, err := r.slots.ExpiredHoldsTx(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		slotIDs := make([]uint64, 0, len(expired))
		codeSet := make(map[string]struct{})
		for _, s := range expired {
			slotIDs = append(slotIDs, s.ID)
			if s.BookingCode != nil {
				codeSet[*s.BookingCode] = struct{}{}
			}
		}
		codes := make([]string, 0, len(codeSet))
		for c := range codeSet {
			codes = append(codes, c)
		}

		if err := r.bookings.CancelPendingTx(ctx, tx, codes); err != nil {
			return err
		}
		if err := r.usages.ReleaseUsagesTx(ctx, tx, codes); err != nil {
			return err
		}
		if err := r.bookings.DeleteCartEntriesTx(ctx, tx, codes); err != nil {
			return err
		}
		if err := r.slots.ReleaseTx(ctx, tx, slotIDs); err != nil {
			return err
		}
		monitoring.HoldsReleasedTotal.Add(float64(len(slotIDs)))
		log.Printf("hold-reaper: released %d expired holds (%d bookings cancelled)", len(slotIDs), len(codes))
		return nil
	})
	if err != nil {
		log.Printf("hold-reaper: reap failed: %v", err)
	}
}
