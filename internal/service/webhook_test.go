package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
)

type fakeWebhookPayments struct {
	byCode    map[string]*model.Payment
	byAmount  *model.Payment
	processed map[string]bool
	logs      []model.PaymentLog
}

func (f *fakeWebhookPayments) GetPendingByBookingCode(ctx context.Context, code string) (*model.Payment, error) {
	if p, ok := f.byCode[code]; ok {
		return p, nil
	}
	return nil, repository.ErrPaymentNotFound
}

func (f *fakeWebhookPayments) LatestPendingByAmount(ctx context.Context, amountCents int64) (*model.Payment, error) {
	if f.byAmount != nil && f.byAmount.AmountCents == amountCents {
		return f.byAmount, nil
	}
	return nil, repository.ErrPaymentNotFound
}

func (f *fakeWebhookPayments) AppendLog(ctx context.Context, l *model.PaymentLog) error {
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeWebhookPayments) HasLogWithExternalID(ctx context.Context, externalID string) (bool, error) {
	return f.processed[externalID], nil
}

type fakeConfirmer struct {
	calls  int
	result *ConfirmResult
	err    error
}

func (f *fakeConfirmer) Confirm(ctx context.Context, paymentID uint64, externalRef, action string) (*ConfirmResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestIsIncoming(t *testing.T) {
	for _, d := range []string{"in", "IN", "incoming", "credit", "transfer_in", "bank_transfer_in", "NAP_TIEN"} {
		assert.True(t, isIncoming(d), d)
	}
	for _, d := range []string{"out", "debit", "transfer_out", "", "unknown"} {
		assert.False(t, isIncoming(d), d)
	}
}

func TestCodeCandidates(t *testing.T) {
	t.Run("prefers BK tokens", func(t *testing.T) {
		got := codeCandidates([]string{"thanh toan BK12345678 ma 999"})
		require.NotEmpty(t, got)
		assert.Equal(t, "12345678", got[0])
	})

	t.Run("case insensitive prefix", func(t *testing.T) {
		got := codeCandidates([]string{"bk777 payment"})
		require.NotEmpty(t, got)
		assert.Equal(t, "777", got[0])
	})

	t.Run("falls back to first digit run", func(t *testing.T) {
		got := codeCandidates([]string{"transfer ref 445566 thanks"})
		require.NotEmpty(t, got)
		assert.Equal(t, "445566", got[0])
	})

	t.Run("dedupes and caps", func(t *testing.T) {
		got := codeCandidates([]string{"BK1 BK2 BK3 BK4 BK5 BK6 BK1"})
		assert.Len(t, got, maxCodeCandidates)
	})
}

func TestParseBankTransfer(t *testing.T) {
	raw := map[string]any{
		"id":            "txn-1",
		"transfer_type": "in",
		"amount":        150.50,
		"description":   "BK12345678",
	}
	got := ParseBankTransfer(raw)
	assert.Equal(t, "txn-1", got.ExternalID)
	assert.Equal(t, "in", got.Direction)
	assert.Equal(t, int64(15050), got.AmountCents)
	assert.Equal(t, []string{"BK12345678"}, got.Descriptions)

	// String amounts parse too, with currency formatting stripped.
	got = ParseBankTransfer(map[string]any{"transferAmount": "99.99"})
	assert.Equal(t, int64(9999), got.AmountCents)
	got = ParseBankTransfer(map[string]any{"transferAmount": "1,500.50 VND"})
	assert.Equal(t, int64(150050), got.AmountCents)

	// Vendor alias fields all feed the description list.
	got = ParseBankTransfer(map[string]any{
		"content": "thanh toan", "des": "BK11112222", "referenceCode": "REF9",
	})
	assert.Equal(t, []string{"thanh toan", "BK11112222", "REF9"}, got.Descriptions)
}

func TestWebhookDuplicateExternalID(t *testing.T) {
	payments := &fakeWebhookPayments{processed: map[string]bool{"txn-1": true}}
	confirm := &fakeConfirmer{}
	m := NewWebhookMatcher(payments, confirm, nil)

	res := m.Handle(context.Background(), BankTransfer{ExternalID: "txn-1", Direction: "in"})
	assert.True(t, res.Success)
	assert.True(t, res.Duplicate)
	assert.Zero(t, confirm.calls)
}

func TestWebhookNonIncomingNeverConfirms(t *testing.T) {
	payment := &model.Payment{ID: 7, BookingCode: "12345678", AmountCents: 15000}
	payments := &fakeWebhookPayments{
		byCode:    map[string]*model.Payment{"12345678": payment},
		processed: map[string]bool{},
	}
	confirm := &fakeConfirmer{}
	m := NewWebhookMatcher(payments, confirm, nil)

	res := m.Handle(context.Background(), BankTransfer{
		ExternalID:   "txn-2",
		Direction:    "out",
		Descriptions: []string{"BK12345678"},
	})
	assert.True(t, res.Success)
	assert.False(t, res.Matched)
	assert.Zero(t, confirm.calls)
	require.Len(t, payments.logs, 1)
	assert.Equal(t, model.PaymentLogWebhookIgnored, payments.logs[0].Action)
	assert.Equal(t, "txn-2", payments.logs[0].ExternalID)
}

func TestWebhookMatchesByCode(t *testing.T) {
	payment := &model.Payment{ID: 7, BookingCode: "12345678", AmountCents: 15000}
	payments := &fakeWebhookPayments{
		byCode:    map[string]*model.Payment{"12345678": payment},
		processed: map[string]bool{},
	}
	confirm := &fakeConfirmer{result: &ConfirmResult{PaymentID: 7, BookingCode: "12345678"}}
	m := NewWebhookMatcher(payments, confirm, nil)

	res := m.Handle(context.Background(), BankTransfer{
		ExternalID:   "txn-3",
		Direction:    "in",
		AmountCents:  15000,
		Descriptions: []string{"chuyen khoan BK12345678"},
	})
	assert.True(t, res.Success)
	assert.True(t, res.Matched)
	assert.Equal(t, uint64(7), res.PaymentID)
	assert.Equal(t, 1, confirm.calls)
}

func TestWebhookAmountFallback(t *testing.T) {
	payment := &model.Payment{ID: 9, BookingCode: "87654321", AmountCents: 20000}
	payments := &fakeWebhookPayments{
		byCode:    map[string]*model.Payment{},
		byAmount:  payment,
		processed: map[string]bool{},
	}
	confirm := &fakeConfirmer{result: &ConfirmResult{PaymentID: 9, BookingCode: "87654321"}}
	m := NewWebhookMatcher(payments, confirm, nil)

	res := m.Handle(context.Background(), BankTransfer{
		ExternalID:   "txn-4",
		Direction:    "incoming",
		AmountCents:  20000,
		Descriptions: []string{"no code here"},
	})
	assert.True(t, res.Matched)
	assert.Equal(t, uint64(9), res.PaymentID)
}

func TestWebhookUnmatchedStillSucceeds(t *testing.T) {
	payments := &fakeWebhookPayments{byCode: map[string]*model.Payment{}, processed: map[string]bool{}}
	confirm := &fakeConfirmer{}
	m := NewWebhookMatcher(payments, confirm, nil)

	res := m.Handle(context.Background(), BankTransfer{
		ExternalID:   "txn-5",
		Direction:    "in",
		AmountCents:  3000,
		Descriptions: []string{"BK00000000"},
	})
	assert.True(t, res.Success)
	assert.False(t, res.Matched)
	require.Len(t, payments.logs, 1)
	assert.Equal(t, model.PaymentLogWebhookIgnored, payments.logs[0].Action)
}

func TestWebhookConfirmFailureKeepsRetryable(t *testing.T) {
	payment := &model.Payment{ID: 7, BookingCode: "12345678", AmountCents: 15000}
	payments := &fakeWebhookPayments{
		byCode:    map[string]*model.Payment{"12345678": payment},
		processed: map[string]bool{},
	}
	confirm := &fakeConfirmer{err: errors.New("db down")}
	m := NewWebhookMatcher(payments, confirm, nil)

	res := m.Handle(context.Background(), BankTransfer{
		ExternalID:   "txn-6",
		Direction:    "in",
		Descriptions: []string{"BK12345678"},
	})
	assert.True(t, res.Success)
	assert.False(t, res.Matched)
	assert.NotEmpty(t, res.Error)
	// No idempotency log was written, so a redelivery retries.
	assert.Empty(t, payments.logs)
}
