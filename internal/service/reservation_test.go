package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func stubRunTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type fakeFieldStore struct {
	field *model.Field
}

func (f *fakeFieldStore) GetByCode(ctx context.Context, code string) (*model.Field, error) {
	if f.field == nil || f.field.Code != code {
		return nil, repository.ErrFieldNotFound
	}
	return f.field, nil
}

func (f *fakeFieldStore) GetQuantity(ctx context.Context, fieldID, quantityID uint64) (*model.Quantity, error) {
	return &model.Quantity{ID: quantityID, FieldID: fieldID, IsActive: true}, nil
}

type fakeSlotLedger struct {
	existing  map[string][]model.Slot
	inserted  []model.Slot
	reused    []uint64
	expired   []model.Slot
	released  []uint64
	insertErr error
}

func slotKey(playDate, startTime, endTime string) string {
	return playDate + " " + startTime + "-" + endTime
}

func (f *fakeSlotLedger) LockWindowTx(ctx context.Context, tx *sql.Tx, fieldID uint64, quantityID *uint64, playDate, startTime, endTime string) ([]model.Slot, error) {
	return f.existing[slotKey(playDate, startTime, endTime)], nil
}

func (f *fakeSlotLedger) InsertHeldTx(ctx context.Context, tx *sql.Tx, s *model.Slot) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	s.ID = uint64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *s)
	return nil
}

func (f *fakeSlotLedger) HoldExistingTx(ctx context.Context, tx *sql.Tx, slotID uint64, quantityID *uint64, bookingCode string, expiresAt time.Time) error {
	f.reused = append(f.reused, slotID)
	return nil
}

func (f *fakeSlotLedger) ExpiredHoldsTx(ctx context.Context, tx *sql.Tx, fieldID *uint64) ([]model.Slot, error) {
	return f.expired, nil
}

func (f *fakeSlotLedger) ReleaseTx(ctx context.Context, tx *sql.Tx, slotIDs []uint64) error {
	f.released = append(f.released, slotIDs...)
	return nil
}

type fakeBookingWriter struct {
	booking   *model.Booking
	slots     []model.BookingSlot
	carts     []model.CartEntry
	cancelled []string
}

func (f *fakeBookingWriter) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	b.ID = 1
	f.booking = b
	return nil
}

func (f *fakeBookingWriter) CreateSlotsBulkTx(ctx context.Context, tx *sql.Tx, slots []model.BookingSlot) error {
	f.slots = append(f.slots, slots...)
	return nil
}

func (f *fakeBookingWriter) CreateCartEntryTx(ctx context.Context, tx *sql.Tx, e *model.CartEntry) error {
	f.carts = append(f.carts, *e)
	return nil
}

func (f *fakeBookingWriter) CancelPendingTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	f.cancelled = append(f.cancelled, bookingCodes...)
	return nil
}

func (f *fakeBookingWriter) DeleteCartEntriesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	return nil
}

type fakePaymentCreator struct {
	created *model.Payment
	err     error
}

func (f *fakePaymentCreator) Create(ctx context.Context, p *model.Payment) error {
	if f.err != nil {
		return f.err
	}
	p.ID = 11
	f.created = p
	return nil
}

type fakeUsageRecorder struct {
	usages   []model.PromotionUsage
	released []string
}

func (f *fakeUsageRecorder) RecordUsageTx(ctx context.Context, tx *sql.Tx, u *model.PromotionUsage) error {
	f.usages = append(f.usages, *u)
	return nil
}

func (f *fakeUsageRecorder) ReleaseUsagesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	f.released = append(f.released, bookingCodes...)
	return nil
}

func newTestReservation(fields *fakeFieldStore, slots *fakeSlotLedger, bookings *fakeBookingWriter, payments *fakePaymentCreator) (*ReservationService, *fakeUsageRecorder) {
	usages := &fakeUsageRecorder{}
	reaper := NewHoldReaper(slots, bookings, usages, stubRunTx)
	promos := NewPromotionEvaluator(&fakePromotionStore{promo: activePromo()})
	promos.now = func() time.Time { return testNow }
	s := NewReservationService(fields, slots, bookings, payments, promos, usages, reaper, stubRunTx)
	s.now = func() time.Time { return testNow }
	seq := 0
	s.newCode = func(n int) (string, error) {
		seq++
		code := "12345678"
		if n == 6 {
			code = "654321"
		}
		return code, nil
	}
	return s, usages
}

func testField() *model.Field {
	return &model.Field{ID: 3, ShopCode: "shop1", Code: "fieldA", Name: "Field A",
		DefaultPriceCents: 10000, Status: model.FieldActive}
}

func TestNormalizeSlots(t *testing.T) {
	t.Run("empty rejected", func(t *testing.T) {
		_, err := normalizeSlots(nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("inverted time rejected", func(t *testing.T) {
		_, err := normalizeSlots([]SlotRequest{{PlayDate: "2026-09-01", StartTime: "19:00", EndTime: "18:00"}})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("bad date rejected", func(t *testing.T) {
		_, err := normalizeSlots([]SlotRequest{{PlayDate: "01-09-2026", StartTime: "18:00", EndTime: "19:00"}})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("dedupes and sorts", func(t *testing.T) {
		got, err := normalizeSlots([]SlotRequest{
			{PlayDate: "2026-09-02", StartTime: "18:00", EndTime: "19:00"},
			{PlayDate: "2026-09-01", StartTime: "19:00", EndTime: "20:00"},
			{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
			{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "2026-09-01 18:00-19:00", got[0].key())
		assert.Equal(t, "2026-09-01 19:00-20:00", got[1].key())
		assert.Equal(t, "2026-09-02 18:00-19:00", got[2].key())
	})
}

func TestReserveHappyPath(t *testing.T) {
	fields := &fakeFieldStore{field: testField()}
	slots := &fakeSlotLedger{existing: map[string][]model.Slot{}}
	bookings := &fakeBookingWriter{}
	payments := &fakePaymentCreator{}
	s, _ := newTestReservation(fields, slots, bookings, payments)

	customer := uint64(42)
	res, err := s.Reserve(context.Background(), "fieldA", []SlotRequest{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
		{PlayDate: "2026-09-01", StartTime: "19:00", EndTime: "20:00"},
	}, CustomerInfo{CustomerID: &customer}, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "12345678", res.BookingCode)
	assert.Equal(t, int64(20000), res.TotalCents)
	assert.Equal(t, int64(1000), res.PlatformFeeCents)
	assert.Equal(t, int64(19000), res.NetToShopCents)
	assert.Equal(t, testNow.Add(HoldTTL), res.HoldExpiresAt)

	// Two fresh held rows, no reuse.
	assert.Len(t, slots.inserted, 2)
	assert.Empty(t, slots.reused)
	for _, ins := range slots.inserted {
		require.NotNil(t, ins.HoldExpiresAt)
		assert.Equal(t, testNow.Add(HoldTTL), *ins.HoldExpiresAt)
	}

	// Booking carries the totals; per-slot prices sum to the total.
	require.NotNil(t, bookings.booking)
	assert.Equal(t, model.BookingPending, bookings.booking.Status)
	var sum int64
	for _, bs := range bookings.slots {
		sum += bs.PriceCents
	}
	assert.Equal(t, res.TotalCents, sum)

	// Authenticated customer gets a cart entry.
	require.Len(t, bookings.carts, 1)
	assert.Equal(t, customer, bookings.carts[0].CustomerID)

	// Payment created outside the transaction with the final amount.
	require.NotNil(t, payments.created)
	assert.Equal(t, int64(20000), payments.created.AmountCents)
	assert.Contains(t, payments.created.QRPayload, "BK12345678")
}

func TestReserveConflictOnHeldSlot(t *testing.T) {
	future := testNow.Add(time.Hour)
	code := "99999999"
	fields := &fakeFieldStore{field: testField()}
	slots := &fakeSlotLedger{existing: map[string][]model.Slot{
		slotKey("2026-09-01", "18:00", "19:00"): {{
			ID: 5, FieldID: 3, PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00",
			Status: model.SlotHeld, BookingCode: &code, HoldExpiresAt: &future,
		}},
	}}
	bookings := &fakeBookingWriter{}
	s, _ := newTestReservation(fields, slots, bookings, &fakePaymentCreator{})

	_, err := s.Reserve(context.Background(), "fieldA", []SlotRequest{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
	}, CustomerInfo{GuestName: "g", GuestPhone: "1"}, "", nil)
	require.ErrorIs(t, err, ErrSlotConflict)
	assert.Contains(t, err.Error(), "2026-09-01 18:00-19:00")
	assert.Nil(t, bookings.booking)
}

func TestReserveReusesExpiredHold(t *testing.T) {
	past := testNow.Add(-time.Minute)
	code := "99999999"
	fields := &fakeFieldStore{field: testField()}
	slots := &fakeSlotLedger{existing: map[string][]model.Slot{
		slotKey("2026-09-01", "18:00", "19:00"): {{
			ID: 5, FieldID: 3, PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00",
			Status: model.SlotHeld, BookingCode: &code, HoldExpiresAt: &past,
		}},
	}}
	s, _ := newTestReservation(fields, slots, &fakeBookingWriter{}, &fakePaymentCreator{})

	_, err := s.Reserve(context.Background(), "fieldA", []SlotRequest{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
	}, CustomerInfo{GuestName: "g", GuestPhone: "1"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, slots.reused)
	assert.Empty(t, slots.inserted)
}

func TestReservePromotionApplied(t *testing.T) {
	fields := &fakeFieldStore{field: testField()}
	slots := &fakeSlotLedger{existing: map[string][]model.Slot{}}
	bookings := &fakeBookingWriter{}
	s, usages := newTestReservation(fields, slots, bookings, &fakePaymentCreator{})

	customer := uint64(42)
	res, err := s.Reserve(context.Background(), "fieldA", []SlotRequest{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
	}, CustomerInfo{CustomerID: &customer}, "SUMMER10", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), res.BaseCents)
	assert.Equal(t, int64(1000), res.DiscountCents)
	assert.Equal(t, int64(9000), res.TotalCents)
	require.Len(t, usages.usages, 1)
	assert.Equal(t, int64(1000), usages.usages[0].DiscountCents)
	require.NotNil(t, bookings.booking.PromotionID)
}

func TestReserveRequiresActor(t *testing.T) {
	s, _ := newTestReservation(&fakeFieldStore{field: testField()}, &fakeSlotLedger{existing: map[string][]model.Slot{}}, &fakeBookingWriter{}, &fakePaymentCreator{})

	_, err := s.Reserve(context.Background(), "fieldA", []SlotRequest{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
	}, CustomerInfo{}, "", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReserveInactiveField(t *testing.T) {
	field := testField()
	field.Status = model.FieldMaintenance
	s, _ := newTestReservation(&fakeFieldStore{field: field}, &fakeSlotLedger{existing: map[string][]model.Slot{}}, &fakeBookingWriter{}, &fakePaymentCreator{})

	_, err := s.Reserve(context.Background(), "fieldA", []SlotRequest{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
	}, CustomerInfo{GuestName: "g", GuestPhone: "1"}, "", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReserveConflictWhenIndexArbitratesInsert(t *testing.T) {
	// Both racers saw an empty window; the loser's insert hits the
	// unique window index and must read as a conflict, not a 500.
	fields := &fakeFieldStore{field: testField()}
	slots := &fakeSlotLedger{existing: map[string][]model.Slot{}, insertErr: repository.ErrSlotTaken}
	bookings := &fakeBookingWriter{}
	s, _ := newTestReservation(fields, slots, bookings, &fakePaymentCreator{})

	_, err := s.Reserve(context.Background(), "fieldA", []SlotRequest{
		{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"},
	}, CustomerInfo{GuestName: "g", GuestPhone: "1"}, "", nil)
	require.ErrorIs(t, err, ErrSlotConflict)
	assert.Contains(t, err.Error(), "2026-09-01 18:00-19:00")
}

// usageLedger backs the promotion store and the usage recorder with one
// in-memory table, so cap checks see recorded and released usages the
// way the database would.
type usageLedger struct {
	promo *model.Promotion
	rows  []model.PromotionUsage
}

func (l *usageLedger) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	return l.promo, nil
}

func (l *usageLedger) UsageCount(ctx context.Context, promotionID uint64) (uint32, error) {
	return uint32(len(l.rows)), nil
}

func (l *usageLedger) UsageCountByCustomer(ctx context.Context, promotionID, customerID uint64) (uint32, error) {
	var n uint32
	for _, u := range l.rows {
		if u.CustomerID != nil && *u.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (l *usageLedger) RecordUsageTx(ctx context.Context, tx *sql.Tx, u *model.PromotionUsage) error {
	l.rows = append(l.rows, *u)
	return nil
}

func (l *usageLedger) ReleaseUsagesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error {
	kept := l.rows[:0]
	for _, u := range l.rows {
		released := false
		for _, c := range bookingCodes {
			if u.BookingCode == c {
				released = true
				break
			}
		}
		if !released {
			kept = append(kept, u)
		}
	}
	l.rows = kept
	return nil
}

func TestLapsedHoldDoesNotBurnPromotionCap(t *testing.T) {
	one := uint32(1)
	promo := activePromo()
	promo.UsagePerCustomer = &one
	promo.UsageLimit = &one
	ledger := &usageLedger{promo: promo}

	fields := &fakeFieldStore{field: testField()}
	slots := &fakeSlotLedger{existing: map[string][]model.Slot{}}
	bookings := &fakeBookingWriter{}
	reaper := NewHoldReaper(slots, bookings, ledger, stubRunTx)
	promos := NewPromotionEvaluator(ledger)
	promos.now = func() time.Time { return testNow }
	s := NewReservationService(fields, slots, bookings, &fakePaymentCreator{}, promos, ledger, reaper, stubRunTx)
	s.now = func() time.Time { return testNow }
	seq := 0
	s.newCode = func(n int) (string, error) {
		seq++
		return fmt.Sprintf("%0*d", n, seq), nil
	}

	customer := uint64(42)
	request := []SlotRequest{{PlayDate: "2026-09-01", StartTime: "18:00", EndTime: "19:00"}}
	first, err := s.Reserve(context.Background(), "fieldA", request, CustomerInfo{CustomerID: &customer}, "SUMMER10", nil)
	require.NoError(t, err)

	// The customer abandons the hold and it lapses; the next attempt's
	// sweep must give the cap back along with the slot.
	slots.expired = []model.Slot{{ID: slots.inserted[0].ID, BookingCode: &first.BookingCode}}

	second, err := s.Reserve(context.Background(), "fieldA", request, CustomerInfo{CustomerID: &customer}, "SUMMER10", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.BookingCode, second.BookingCode)
	require.Len(t, ledger.rows, 1)
	assert.Equal(t, second.BookingCode, ledger.rows[0].BookingCode)
}

func TestReaperReleasesExpiredHolds(t *testing.T) {
	code := "11112222"
	slots := &fakeSlotLedger{expired: []model.Slot{
		{ID: 1, BookingCode: &code},
		{ID: 2, BookingCode: &code},
	}}
	bookings := &fakeBookingWriter{}
	usages := &fakeUsageRecorder{}
	r := NewHoldReaper(slots, bookings, usages, stubRunTx)

	r.Reap(context.Background(), nil)
	assert.Equal(t, []uint64{1, 2}, slots.released)
	assert.Equal(t, []string{code}, bookings.cancelled)
	// The cancelled booking's promotion usage is freed with it, so a
	// lapsed hold cannot burn the customer's cap.
	assert.Equal(t, []string{code}, usages.released)
}
