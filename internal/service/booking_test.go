package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
)

type fakeSlotReader struct {
	rows []model.Slot
}

func (f *fakeSlotReader) ListByFieldDate(ctx context.Context, fieldID uint64, playDate string) ([]model.Slot, error) {
	return f.rows, nil
}

type fakeBookingReader struct {
	fakeBookingConfirmer
	cancelled [][]string
	slots     []model.BookingSlot
}

func (f *fakeBookingReader) SlotsByCode(ctx context.Context, bookingCode string) ([]model.BookingSlot, error) {
	return f.slots, nil
}

func (f *fakeBookingReader) CancelPendingTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	f.cancelled = append(f.cancelled, bookingCodes)
	return nil
}

type fakeSlotCanceller struct {
	released        []string
	cancelledBooked []string
}

func (f *fakeSlotCanceller) ReleaseByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error {
	f.released = append(f.released, bookingCode)
	return nil
}

func (f *fakeSlotCanceller) CancelBookedByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error {
	f.cancelledBooked = append(f.cancelledBooked, bookingCode)
	return nil
}

func newTestBookingService(slots *fakeSlotReader, cancels *fakeSlotCanceller, bookings *fakeBookingReader) (*BookingService, *fakeUsageRecorder) {
	fields := &fakeFieldStore{field: testField()}
	usages := &fakeUsageRecorder{}
	reaper := NewHoldReaper(&fakeSlotLedger{}, &fakeBookingWriter{}, usages, stubRunTx)
	s := NewBookingService(fields, slots, cancels, bookings, usages, reaper, stubRunTx)
	s.now = func() time.Time { return testNow }
	return s, usages
}

func TestAvailabilityShowsLapsedHoldsAsAvailable(t *testing.T) {
	past := testNow.Add(-time.Minute)
	future := testNow.Add(time.Minute)
	code := "12345678"
	slots := &fakeSlotReader{rows: []model.Slot{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00", Status: model.SlotBooked},
		{PlayDate: "2026-09-01", StartTime: "19:00", EndTime: "20:00", Status: model.SlotHeld, BookingCode: &code, HoldExpiresAt: &past},
		{PlayDate: "2026-09-01", StartTime: "20:00", EndTime: "21:00", Status: model.SlotHeld, BookingCode: &code, HoldExpiresAt: &future},
	}}
	s, _ := newTestBookingService(slots, &fakeSlotCanceller{}, &fakeBookingReader{})

	got, err := s.Availability(context.Background(), "fieldA", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.SlotBooked, got[0].Status)
	assert.Equal(t, model.SlotAvailable, got[1].Status)
	assert.Equal(t, model.SlotHeld, got[2].Status)
}

func TestAvailabilityRejectsBadDate(t *testing.T) {
	s, _ := newTestBookingService(&fakeSlotReader{}, &fakeSlotCanceller{}, &fakeBookingReader{})

	_, err := s.Availability(context.Background(), "fieldA", "not-a-date")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetEnforcesOwnership(t *testing.T) {
	owner := uint64(42)
	booking := pendingBooking()
	booking.CustomerID = &owner
	bookings := &fakeBookingReader{fakeBookingConfirmer: fakeBookingConfirmer{booking: booking}}
	s, _ := newTestBookingService(&fakeSlotReader{}, &fakeSlotCanceller{}, bookings)

	_, err := s.Get(context.Background(), "12345678", &owner)
	assert.NoError(t, err)

	other := uint64(43)
	_, err = s.Get(context.Background(), "12345678", &other)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestCancelPendingReleasesHolds(t *testing.T) {
	bookings := &fakeBookingReader{fakeBookingConfirmer: fakeBookingConfirmer{booking: pendingBooking()}}
	cancels := &fakeSlotCanceller{}
	s, usages := newTestBookingService(&fakeSlotReader{}, cancels, bookings)

	got, err := s.Cancel(context.Background(), "12345678", nil)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, [][]string{{"12345678"}}, bookings.cancelled)
	assert.Equal(t, []string{"12345678"}, cancels.released)
	assert.Empty(t, cancels.cancelledBooked)
	// An unpaid cancellation hands any promotion usage back.
	assert.Equal(t, []string{"12345678"}, usages.released)
}

func TestCancelConfirmedRefunds(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingConfirmed
	booking.PaymentStatus = model.BookingPaid
	bookings := &fakeBookingReader{fakeBookingConfirmer: fakeBookingConfirmer{booking: booking}}
	cancels := &fakeSlotCanceller{}
	s, usages := newTestBookingService(&fakeSlotReader{}, cancels, bookings)

	got, err := s.Cancel(context.Background(), "12345678", nil)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, model.BookingRefunded, got.PaymentStatus)
	assert.Equal(t, 1, bookings.statusCalls)
	assert.Equal(t, []model.BookingPayment{model.BookingRefunded}, bookings.paymentStates)
	assert.Equal(t, []string{"12345678"}, cancels.cancelledBooked)
	assert.Empty(t, cancels.released)
	// A paid booking consumed its promotion for real; the usage stays.
	assert.Empty(t, usages.released)
}

func TestCancelCompletedRejected(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingCompleted
	bookings := &fakeBookingReader{fakeBookingConfirmer: fakeBookingConfirmer{booking: booking}}
	s, _ := newTestBookingService(&fakeSlotReader{}, &fakeSlotCanceller{}, bookings)

	_, err := s.Cancel(context.Background(), "12345678", nil)
	assert.ErrorIs(t, err, ErrValidation)
}
