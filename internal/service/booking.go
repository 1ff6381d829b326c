package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
)

// SlotReader lists ledger rows for availability rendering.
type SlotReader interface {
	ListByFieldDate(ctx context.Context, fieldID uint64, playDate string) ([]model.Slot, error)
}

// BookingReader loads bookings and their audit slots.
type BookingReader interface {
	GetByCode(ctx context.Context, code string) (*model.Booking, error)
	SlotsByCode(ctx context.Context, bookingCode string) ([]model.BookingSlot, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingCode string, from, to model.BookingStatus) error
	UpdatePaymentStateTx(ctx context.Context, tx *sql.Tx, bookingCode string, state model.BookingPayment) error
	CancelPendingTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error
	DeleteCartEntriesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error
}

// SlotCanceller undoes a booking's claim on the ledger.
type SlotCanceller interface {
	ReleaseByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error
	CancelBookedByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error
}

// WindowAvailability is one ledger row rendered for the availability
// endpoint. Held windows whose hold lapsed are shown as available even
// if the reaper has not yet swept them.
type WindowAvailability struct {
	QuantityID *uint64          `json:"quantity_id,omitempty"`
	PlayDate   string           `json:"play_date"`
	StartTime  string           `json:"start_time"`
	EndTime    string           `json:"end_time"`
	Status     model.SlotStatus `json:"status"`
}

// BookingDetail bundles a booking with its slots for the lookup
// endpoint.
type BookingDetail struct {
	Booking *model.Booking
	Slots   []model.BookingSlot
}

// BookingService serves availability reads, booking lookup and
// customer-initiated cancellation.
type BookingService struct {
	fields   FieldStore
	slots    SlotReader
	cancels  SlotCanceller
	bookings BookingReader
	usages   UsageReleaser
	reaper   *HoldReaper
	runTx    func(ctx context.Context, fn func(tx *sql.Tx) error) error
	now      func() time.Time
}

// NewBookingService wires the booking read/cancel service.
func NewBookingService(fields FieldStore, slots SlotReader, cancels SlotCanceller, bookings BookingReader,
	usages UsageReleaser, reaper *HoldReaper, runTx func(ctx context.Context, fn func(tx *sql.Tx) error) error) *BookingService {
	return &BookingService{
		fields:   fields,
		slots:    slots,
		cancels:  cancels,
		bookings: bookings,
		usages:   usages,
		reaper:   reaper,
		runTx:    runTx,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Availability returns a field's ledger rows for one date, after
// sweeping expired holds. Rows whose hold lapsed between the sweep and
// the read are reported available.
func (s *BookingService) Availability(ctx context.Context, fieldCode, playDate string) ([]WindowAvailability, error) {
	if _, err := time.Parse("2006-01-02", playDate); err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, playDate)
	}
	field, err := s.fields.GetByCode(ctx, fieldCode)
	if err != nil {
		return nil, err
	}
	s.reaper.Reap(ctx, &field.ID)

	rows, err := s.slots.ListByFieldDate(ctx, field.ID, playDate)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]WindowAvailability, 0, len(rows))
	for _, r := range rows {
		status := r.Status
		if r.HoldExpired(now) {
			status = model.SlotAvailable
		}
		out = append(out, WindowAvailability{
			QuantityID: r.QuantityID,
			PlayDate:   r.PlayDate,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			Status:     status,
		})
	}
	return out, nil
}

// Get returns a booking and its slots by booking code. When customerID
// is non-nil the booking must belong to that customer.
func (s *BookingService) Get(ctx context.Context, bookingCode string, customerID *uint64) (*BookingDetail, error) {
	booking, err := s.bookings.GetByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	if customerID != nil && (booking.CustomerID == nil || *booking.CustomerID != *customerID) {
		return nil, repository.ErrForbidden
	}
	slots, err := s.bookings.SlotsByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	return &BookingDetail{Booking: booking, Slots: slots}, nil
}

// Cancel cancels a booking. A pending booking releases its held slots
// back to available; a confirmed one marks its slots cancelled and its
// payment refunded. Completed and already-cancelled bookings are
// rejected. When customerID is non-nil the booking must belong to that
// customer.
func (s *BookingService) Cancel(ctx context.Context, bookingCode string, customerID *uint64) (*model.Booking, error) {
	booking, err := s.bookings.GetByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	if customerID != nil && (booking.CustomerID == nil || *booking.CustomerID != *customerID) {
		return nil, repository.ErrForbidden
	}
	if !booking.Status.CanTransition(model.BookingCancelled) {
		return nil, fmt.Errorf("%w: booking %s is %s and cannot be cancelled", ErrValidation, bookingCode, booking.Status)
	}

	err = s.runTx(ctx, func(tx *sql.Tx) error {
		switch booking.Status {
		case model.BookingPending:
			if err := s.bookings.CancelPendingTx(ctx, tx, []string{bookingCode}); err != nil {
				return err
			}
			// The promotion was never paid for; give the cap back.
			if err := s.usages.ReleaseUsagesTx(ctx, tx, []string{bookingCode}); err != nil {
				return err
			}
			if err := s.cancels.ReleaseByCodeTx(ctx, tx, bookingCode); err != nil {
				return err
			}
		case model.BookingConfirmed:
			if err := s.bookings.UpdateStatusTx(ctx, tx, bookingCode, model.BookingConfirmed, model.BookingCancelled); err != nil {
				return err
			}
			if err := s.bookings.UpdatePaymentStateTx(ctx, tx, bookingCode, model.BookingRefunded); err != nil {
				return err
			}
			if err := s.cancels.CancelBookedByCodeTx(ctx, tx, bookingCode); err != nil {
				return err
			}
		}
		return s.bookings.DeleteCartEntriesTx(ctx, tx, []string{bookingCode})
	})
	if err != nil {
		return nil, err
	}
	booking.Status = model.BookingCancelled
	if booking.PaymentStatus == model.BookingPaid {
		booking.PaymentStatus = model.BookingRefunded
	}
	return booking, nil
}
