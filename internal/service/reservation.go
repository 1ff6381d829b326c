package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
	"github.com/fieldrent/field-rental-marketplace/internal/utils"
)

// HoldTTL is how long a reservation hold protects its slots before the
// reaper may reclaim them.
const HoldTTL = 15 * time.Minute

// FieldStore is the field lookup slice used by the reservation engine.
type FieldStore interface {
	GetByCode(ctx context.Context, code string) (*model.Field, error)
	GetQuantity(ctx context.Context, fieldID, quantityID uint64) (*model.Quantity, error)
}

// SlotLedger is the locking side of the slot repository. Conflict
// decisions are only made on rows returned by LockWindowTx, never from
// an earlier unlocked read.
type SlotLedger interface {
	LockWindowTx(ctx context.Context, tx *sql.Tx, fieldID uint64, quantityID *uint64, playDate, startTime, endTime string) ([]model.Slot, error)
	InsertHeldTx(ctx context.Context, tx *sql.Tx, s *model.Slot) error
	HoldExistingTx(ctx context.Context, tx *sql.Tx, slotID uint64, quantityID *uint64, bookingCode string, expiresAt time.Time) error
}

// BookingWriter is the booking-creation slice of the booking repository.
type BookingWriter interface {
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	CreateSlotsBulkTx(ctx context.Context, tx *sql.Tx, slots []model.BookingSlot) error
	CreateCartEntryTx(ctx context.Context, tx *sql.Tx, e *model.CartEntry) error
}

// PaymentCreator creates the pending payment after the hold commits.
type PaymentCreator interface {
	Create(ctx context.Context, p *model.Payment) error
}

// UsageRecorder records one promotion application inside the
// reservation transaction.
type UsageRecorder interface {
	RecordUsageTx(ctx context.Context, tx *sql.Tx, u *model.PromotionUsage) error
}

// SlotRequest is one requested window. Times are wall-clock strings in
// the shop's timezone: date "2006-01-02", start/end "15:04".
type SlotRequest struct {
	PlayDate  string `json:"play_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (sr SlotRequest) key() string {
	return sr.PlayDate + " " + sr.StartTime + "-" + sr.EndTime
}

// CustomerInfo identifies the booking actor: an authenticated customer
// id, or guest contact details when the id is nil.
type CustomerInfo struct {
	CustomerID *uint64
	GuestName  string
	GuestPhone string
}

// ReserveResult is returned to the client after a successful hold. The
// QR payload carries "BK" + booking code as the transfer memo so the
// inbound webhook can match the payment back.
type ReserveResult struct {
	BookingCode      string
	CheckinCode      string
	PaymentID        uint64
	QRPayload        string
	BaseCents        int64
	DiscountCents    int64
	TotalCents       int64
	PlatformFeeCents int64
	NetToShopCents   int64
	HoldExpiresAt    time.Time
}

// ReservationService places exclusive holds on slot windows. All slot
// writes of one reservation happen in a single transaction with rows
// locked in sorted (date, start) order, so concurrent attempts on
// overlapping windows serialize instead of deadlocking.
type ReservationService struct {
	fields   FieldStore
	slots    SlotLedger
	bookings BookingWriter
	payments PaymentCreator
	promos   *PromotionEvaluator
	usages   UsageRecorder
	reaper   *HoldReaper
	runTx    func(ctx context.Context, fn func(tx *sql.Tx) error) error
	now      func() time.Time
	newCode  func(n int) (string, error)
}

// NewReservationService wires the reservation engine.
func NewReservationService(fields FieldStore, slots SlotLedger, bookings BookingWriter, payments PaymentCreator,
	promos *PromotionEvaluator, usages UsageRecorder, reaper *HoldReaper,
	runTx func(ctx context.Context, fn func(tx *sql.Tx) error) error) *ReservationService {
	return &ReservationService{
		fields:   fields,
		slots:    slots,
		bookings: bookings,
		payments: payments,
		promos:   promos,
		usages:   usages,
		reaper:   reaper,
		runTx:    runTx,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  utils.RandomDigits,
	}
}

// Reserve validates the request, prices it, and atomically holds every
// requested window under one new booking. The pending payment row is
// created after the transaction commits: if that write fails the hold
// simply lapses on its own expiry.
func (s *ReservationService) Reserve(ctx context.Context, fieldCode string, requests []SlotRequest, customer CustomerInfo, promoCode string, quantityID *uint64) (*ReserveResult, error) {
	if customer.CustomerID == nil && (customer.GuestName == "" || customer.GuestPhone == "") {
		return nil, fmt.Errorf("%w: booking requires a customer or guest contact info", ErrValidation)
	}
	normalized, err := normalizeSlots(requests)
	if err != nil {
		return nil, err
	}

	field, err := s.fields.GetByCode(ctx, fieldCode)
	if err != nil {
		return nil, err
	}
	if field.Status != model.FieldActive {
		return nil, fmt.Errorf("%w: field %s is not open for booking", ErrValidation, field.Code)
	}
	if quantityID != nil {
		if _, err := s.fields.GetQuantity(ctx, field.ID, *quantityID); err != nil {
			return nil, err
		}
	}

	s.reaper.Reap(ctx, &field.ID)

	baseCents := field.DefaultPriceCents * int64(len(normalized))
	var discountCents int64
	var promotionID *uint64
	if promoCode != "" {
		quote, err := s.promos.Evaluate(ctx, field.ShopCode, promoCode, baseCents, customer.CustomerID)
		if err != nil {
			return nil, err
		}
		discountCents = quote.DiscountCents
		promotionID = &quote.Promotion.ID
	}
	totalCents := baseCents - discountCents
	feeCents, netCents := FeeSplit(totalCents)
	perSlot := SplitEven(totalCents, len(normalized))

	bookingCode, err := s.newCode(8)
	if err != nil {
		return nil, err
	}
	checkinCode, err := s.newCode(6)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(HoldTTL)

	err = s.runTx(ctx, func(tx *sql.Tx) error {
		for _, req := range normalized {
			if err := s.holdWindow(ctx, tx, field.ID, quantityID, req, bookingCode, expiresAt, now); err != nil {
				return err
			}
		}

		booking := &model.Booking{
			BookingCode:      bookingCode,
			FieldID:          field.ID,
			ShopCode:         field.ShopCode,
			CustomerID:       customer.CustomerID,
			GuestName:        customer.GuestName,
			GuestPhone:       customer.GuestPhone,
			Status:           model.BookingPending,
			PaymentStatus:    model.BookingUnpaid,
			TotalPriceCents:  totalCents,
			DiscountCents:    discountCents,
			PlatformFeeCents: feeCents,
			NetToShopCents:   netCents,
			PromotionID:      promotionID,
			CheckinCode:      checkinCode,
		}
		if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
			return err
		}

		bookingSlots := make([]model.BookingSlot, len(normalized))
		for i, req := range normalized {
			bookingSlots[i] = model.BookingSlot{
				BookingID:   booking.ID,
				BookingCode: bookingCode,
				FieldID:     field.ID,
				QuantityID:  quantityID,
				PlayDate:    req.PlayDate,
				StartTime:   req.StartTime,
				EndTime:     req.EndTime,
				PriceCents:  perSlot[i],
			}
		}
		if err := s.bookings.CreateSlotsBulkTx(ctx, tx, bookingSlots); err != nil {
			return err
		}

		if promotionID != nil {
			usage := &model.PromotionUsage{
				PromotionID:   *promotionID,
				BookingCode:   bookingCode,
				CustomerID:    customer.CustomerID,
				DiscountCents: discountCents,
			}
			if err := s.usages.RecordUsageTx(ctx, tx, usage); err != nil {
				return err
			}
		}

		if customer.CustomerID != nil {
			entry := &model.CartEntry{
				CustomerID:  *customer.CustomerID,
				BookingCode: bookingCode,
				ExpiresAt:   expiresAt,
			}
			if err := s.bookings.CreateCartEntryTx(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		BookingCode: bookingCode,
		AmountCents: totalCents,
		Method:      "bank_transfer",
		Status:      model.PaymentPending,
		QRPayload:   fmt.Sprintf("amount=%d&memo=BK%s", totalCents, bookingCode),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		log.Printf("reservation: payment create failed for booking %s: %v", bookingCode, err)
		return nil, err
	}

	return &ReserveResult{
		BookingCode:      bookingCode,
		CheckinCode:      checkinCode,
		PaymentID:        payment.ID,
		QRPayload:        payment.QRPayload,
		BaseCents:        baseCents,
		DiscountCents:    discountCents,
		TotalCents:       totalCents,
		PlatformFeeCents: feeCents,
		NetToShopCents:   netCents,
		HoldExpiresAt:    expiresAt,
	}, nil
}

// holdWindow runs the lock-then-decide dance for one window: lock every
// row that can affect it, reject if any row still blocks, otherwise
// re-claim a free row or insert a fresh held one.
func (s *ReservationService) holdWindow(ctx context.Context, tx *sql.Tx, fieldID uint64, quantityID *uint64, req SlotRequest, bookingCode string, expiresAt, now time.Time) error {
	rows, err := s.slots.LockWindowTx(ctx, tx, fieldID, quantityID, req.PlayDate, req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	var reuse *model.Slot
	for i := range rows {
		row := &rows[i]
		if row.Blocks(now) {
			return fmt.Errorf("%w: %s", ErrSlotConflict, row.Window())
		}
		if reuse == nil {
			reuse = row
		}
	}
	if reuse != nil {
		err = s.slots.HoldExistingTx(ctx, tx, reuse.ID, quantityID, bookingCode, expiresAt)
	} else {
		slot := &model.Slot{
			FieldID:       fieldID,
			QuantityID:    quantityID,
			PlayDate:      req.PlayDate,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			BookingCode:   &bookingCode,
			HoldExpiresAt: &expiresAt,
		}
		err = s.slots.InsertHeldTx(ctx, tx, slot)
	}
	if errors.Is(err, repository.ErrSlotTaken) {
		// A concurrent reservation won the window between our lock and
		// the write; the unique window index is the tiebreaker.
		return fmt.Errorf("%w: %s", ErrSlotConflict, req.key())
	}
	return err
}

// normalizeSlots validates, de-duplicates and sorts slot requests by
// (date, start). The sorted order doubles as the lock-acquisition order
// inside the reservation transaction.
func normalizeSlots(requests []SlotRequest) ([]SlotRequest, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: at least one slot is required", ErrValidation)
	}
	seen := make(map[string]struct{}, len(requests))
	out := make([]SlotRequest, 0, len(requests))
	for _, r := range requests {
		if _, err := time.Parse("2006-01-02", r.PlayDate); err != nil {
			return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, r.PlayDate)
		}
		start, err := time.Parse("15:04", r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid start time %q", ErrValidation, r.StartTime)
		}
		end, err := time.Parse("15:04", r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end time %q", ErrValidation, r.EndTime)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("%w: start time %s must be before end time %s", ErrValidation, r.StartTime, r.EndTime)
		}
		if _, dup := seen[r.key()]; dup {
			continue
		}
		seen[r.key()] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayDate != out[j].PlayDate {
			return out[i].PlayDate < out[j].PlayDate
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}
