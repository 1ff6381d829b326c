package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/queue"
)

// PaymentStore is the payment-side slice of the payment repository used
// by the reconciliation engine.
type PaymentStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Payment, error)
	MarkPaidTx(ctx context.Context, tx *sql.Tx, paymentID uint64, externalRef string) (bool, error)
	AppendLogTx(ctx context.Context, tx *sql.Tx, l *model.PaymentLog) error
}

// BookingConfirmer is the booking slice the reconciliation engine
// writes through.
type BookingConfirmer interface {
	GetByCode(ctx context.Context, code string) (*model.Booking, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingCode string, from, to model.BookingStatus) error
	UpdatePaymentStateTx(ctx context.Context, tx *sql.Tx, bookingCode string, state model.BookingPayment) error
	DeleteCartEntriesTx(ctx context.Context, tx *sql.Tx, bookingCodes []string) error
}

// SlotBooker finalizes a booking's held slots.
type SlotBooker interface {
	MarkBookedByCodeTx(ctx context.Context, tx *sql.Tx, bookingCode string) error
}

// WalletCreditor credits settlement proceeds to a shop wallet.
type WalletCreditor interface {
	CreditTx(ctx context.Context, tx *sql.Tx, shopCode string, amountCents int64, txType model.WalletTxType, status model.WalletTxStatus, reference string) (uint64, error)
}

// RentCounter bumps a field's confirmed-booking counter.
type RentCounter interface {
	IncrementRentTx(ctx context.Context, tx *sql.Tx, fieldID uint64) error
}

// Publisher sends a domain event to a named queue. Failures are the
// caller's to ignore; confirmation never depends on the broker.
type Publisher interface {
	Publish(ctx context.Context, queueName string, event any) error
}

// ConfirmResult summarizes a reconciliation run.
type ConfirmResult struct {
	PaymentID        uint64
	BookingCode      string
	AmountCents      int64
	PlatformFeeCents int64
	NetToShopCents   int64
	AlreadyPaid      bool
}

// PaymentService is the single path by which a payment becomes paid.
// Both the webhook matcher and the operator's manual verification call
// Confirm; every write of a confirmation happens in one transaction, so
// a retry after failure can never double-credit the wallet or
// double-count the field's rent counter.
type PaymentService struct {
	payments PaymentStore
	bookings BookingConfirmer
	slots    SlotBooker
	wallets  WalletCreditor
	fields   RentCounter
	events   Publisher
	runTx    func(ctx context.Context, fn func(tx *sql.Tx) error) error
	now      func() time.Time
}

// NewPaymentService wires the reconciliation engine. events may be nil
// when no broker is configured.
func NewPaymentService(payments PaymentStore, bookings BookingConfirmer, slots SlotBooker,
	wallets WalletCreditor, fields RentCounter, events Publisher,
	runTx func(ctx context.Context, fn func(tx *sql.Tx) error) error) *PaymentService {
	return &PaymentService{
		payments: payments,
		bookings: bookings,
		slots:    slots,
		wallets:  wallets,
		fields:   fields,
		events:   events,
		runTx:    runTx,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Confirm reconciles one payment: marks it paid, confirms its booking,
// books the held slots and credits the shop wallet with the net amount.
// action tags the audit log row (marked_paid for webhook confirmations,
// manual_confirm for operator ones); externalRef is the gateway
// transaction id when known. Confirming an already-paid payment is a
// no-op reported through AlreadyPaid.
func (s *PaymentService) Confirm(ctx context.Context, paymentID uint64, externalRef, action string) (*ConfirmResult, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	fee, net := FeeSplit(payment.AmountCents)
	result := &ConfirmResult{
		PaymentID:        payment.ID,
		BookingCode:      payment.BookingCode,
		AmountCents:      payment.AmountCents,
		PlatformFeeCents: fee,
		NetToShopCents:   net,
	}
	if payment.Status == model.PaymentPaid {
		result.AlreadyPaid = true
		return result, nil
	}

	booking, err := s.bookings.GetByCode(ctx, payment.BookingCode)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingConfirmed && !booking.Status.CanTransition(model.BookingConfirmed) {
		return nil, fmt.Errorf("%w: booking %s is %s and cannot be confirmed", ErrValidation, booking.BookingCode, booking.Status)
	}

	err = s.runTx(ctx, func(tx *sql.Tx) error {
		didTransition, err := s.payments.MarkPaidTx(ctx, tx, payment.ID, externalRef)
		if err != nil {
			return err
		}
		if !didTransition {
			// Lost the race to a concurrent confirmation.
			result.AlreadyPaid = true
			return nil
		}

		wasAlreadyConfirmed := booking.Status == model.BookingConfirmed
		if !wasAlreadyConfirmed {
			if err := s.bookings.UpdateStatusTx(ctx, tx, booking.BookingCode, booking.Status, model.BookingConfirmed); err != nil {
				return err
			}
		}
		if err := s.bookings.UpdatePaymentStateTx(ctx, tx, booking.BookingCode, model.BookingPaid); err != nil {
			return err
		}
		if err := s.bookings.DeleteCartEntriesTx(ctx, tx, []string{booking.BookingCode}); err != nil {
			return err
		}
		if err := s.slots.MarkBookedByCodeTx(ctx, tx, booking.BookingCode); err != nil {
			return err
		}
		if _, err := s.wallets.CreditTx(ctx, tx, booking.ShopCode, net,
			model.WalletCreditSettlement, model.WalletTxCompleted, "booking:"+booking.BookingCode); err != nil {
			return err
		}
		if !wasAlreadyConfirmed {
			if err := s.fields.IncrementRentTx(ctx, tx, booking.FieldID); err != nil {
				return err
			}
		}
		return s.payments.AppendLogTx(ctx, tx, &model.PaymentLog{
			PaymentID:  &payment.ID,
			Action:     action,
			ExternalID: externalRef,
			Detail:     fmt.Sprintf("booking %s confirmed, net %d credited to %s", booking.BookingCode, net, booking.ShopCode),
		})
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyPaid {
		return result, nil
	}

	if s.events != nil {
		ev := queue.BookingConfirmedEvent{
			BookingCode:    booking.BookingCode,
			CheckinCode:    booking.CheckinCode,
			ShopCode:       booking.ShopCode,
			FieldID:        booking.FieldID,
			CustomerID:     booking.CustomerID,
			GuestName:      booking.GuestName,
			GuestPhone:     booking.GuestPhone,
			AmountCents:    payment.AmountCents,
			NetToShopCents: net,
			ConfirmedAt:    s.now(),
		}
		if err := s.events.Publish(ctx, queue.BookingConfirmedQueue, ev); err != nil {
			log.Printf("payment: booking.confirmed publish failed for %s: %v", booking.BookingCode, err)
		}
	}
	return result, nil
}
