package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
)

// maxCodeCandidates bounds how many distinct numeric tokens from a
// transfer description are tried against pending payments.
const maxCodeCandidates = 5

// bkCodeRe matches the canonical "BK<digits>" booking reference in a
// transfer description. digitRunRe is the fallback for senders that
// strip the prefix.
var (
	bkCodeRe   = regexp.MustCompile(`(?i)BK(\d{1,9})`)
	digitRunRe = regexp.MustCompile(`\d{1,9}`)
)

// BankTransfer is a vendor-neutral view of an inbound bank-transfer
// notification. Descriptions holds the free-text fields in match
// priority order; AmountCents is the transfer amount in minor units.
type BankTransfer struct {
	ExternalID   string
	Direction    string
	AmountCents  int64
	Descriptions []string
}

// ParseBankTransfer extracts a BankTransfer from an unstructured vendor
// payload. Gateways disagree on field names, so each attribute is read
// from a list of known aliases; amounts are parsed with decimal and
// converted to minor units.
func ParseBankTransfer(raw map[string]any) BankTransfer {
	t := BankTransfer{
		ExternalID: firstString(raw, "external_id", "id", "transaction_id", "reference_id", "tid"),
		Direction:  firstString(raw, "transfer_type", "transferType", "direction", "type"),
	}
	for _, key := range []string{"content", "code", "description", "des", "referenceCode", "memo", "note", "message"} {
		if s := firstString(raw, key); s != "" {
			t.Descriptions = append(t.Descriptions, s)
		}
	}
	for _, key := range []string{"transfer_amount", "transferAmount", "amount", "value"} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var d decimal.Decimal
		var err error
		switch n := v.(type) {
		case string:
			d, err = decimal.NewFromString(stripAmountFormatting(n))
		case float64:
			d = decimal.NewFromFloat(n)
		default:
			continue
		}
		if err != nil {
			continue
		}
		t.AmountCents = d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		break
	}
	return t
}

// stripAmountFormatting removes currency symbols and thousand
// separators so "1,500.50 VND" parses as 1500.50.
func stripAmountFormatting(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// isIncoming classifies a transfer direction with the small vocabulary
// gateways actually use. Unknown directions are treated as outgoing and
// never confirm a payment.
func isIncoming(direction string) bool {
	d := strings.ToLower(strings.TrimSpace(direction))
	switch d {
	case "in", "incoming", "credit":
		return true
	}
	return strings.Contains(d, "transfer_in") || strings.Contains(d, "nap")
}

// codeCandidates extracts up to maxCodeCandidates unique numeric
// tokens from the descriptions, preferring BK-prefixed ones.
func codeCandidates(descriptions []string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(code string) {
		if _, dup := seen[code]; dup || len(out) >= maxCodeCandidates {
			return
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	for _, desc := range descriptions {
		for _, m := range bkCodeRe.FindAllStringSubmatch(desc, -1) {
			add(m[1])
		}
	}
	for _, desc := range descriptions {
		if m := digitRunRe.FindString(desc); m != "" {
			add(m)
		}
	}
	return out
}

// WebhookPaymentStore is the payment-lookup slice the matcher uses.
type WebhookPaymentStore interface {
	GetPendingByBookingCode(ctx context.Context, bookingCode string) (*model.Payment, error)
	LatestPendingByAmount(ctx context.Context, amountCents int64) (*model.Payment, error)
	AppendLog(ctx context.Context, l *model.PaymentLog) error
	HasLogWithExternalID(ctx context.Context, externalID string) (bool, error)
}

// PaymentConfirmer is the reconciliation entry point the matcher
// invokes on a match.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, paymentID uint64, externalRef, action string) (*ConfirmResult, error)
}

// WebhookResult is the response body of the webhook endpoint. Success
// is always true for well-received notifications, whatever the match
// outcome, so the gateway never retries into a storm; Error carries any
// confirmation failure for operator eyes.
type WebhookResult struct {
	Success     bool   `json:"success"`
	Matched     bool   `json:"matched"`
	Duplicate   bool   `json:"duplicate"`
	PaymentID   uint64 `json:"payment_id,omitempty"`
	BookingCode string `json:"booking_code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// WebhookMatcher resolves inbound bank-transfer notifications to
// pending payments. The payment log is the durable idempotency record;
// redis, when configured, only short-circuits repeat deliveries before
// they hit the database.
type WebhookMatcher struct {
	payments WebhookPaymentStore
	confirm  PaymentConfirmer
	rdb      *redis.Client
}

// NewWebhookMatcher wires the matcher. rdb may be nil.
func NewWebhookMatcher(payments WebhookPaymentStore, confirm PaymentConfirmer, rdb *redis.Client) *WebhookMatcher {
	return &WebhookMatcher{payments: payments, confirm: confirm, rdb: rdb}
}

func (m *WebhookMatcher) seenRecently(ctx context.Context, externalID string) bool {
	if m.rdb == nil {
		return false
	}
	n, err := m.rdb.Exists(ctx, "webhook:extid:"+externalID).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (m *WebhookMatcher) remember(ctx context.Context, externalID string) {
	if m.rdb == nil || externalID == "" {
		return
	}
	if err := m.rdb.Set(ctx, "webhook:extid:"+externalID, 1, 24*time.Hour).Err(); err != nil {
		log.Printf("webhook: redis remember failed: %v", err)
	}
}

// Handle processes one notification. It never returns an error: the
// webhook contract answers success regardless of outcome, and failures
// are reported inside the result body.
func (m *WebhookMatcher) Handle(ctx context.Context, t BankTransfer) WebhookResult {
	res := WebhookResult{Success: true}

	if t.ExternalID != "" {
		if m.seenRecently(ctx, t.ExternalID) {
			res.Duplicate = true
			return res
		}
		processed, err := m.payments.HasLogWithExternalID(ctx, t.ExternalID)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if processed {
			res.Duplicate = true
			return res
		}
	}

	if !isIncoming(t.Direction) {
		m.logIgnored(ctx, nil, t.ExternalID, fmt.Sprintf("non-incoming transfer direction %q", t.Direction))
		m.remember(ctx, t.ExternalID)
		return res
	}

	payment, err := m.resolvePayment(ctx, t)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if payment == nil {
		m.logIgnored(ctx, nil, t.ExternalID, "no pending payment matched")
		m.remember(ctx, t.ExternalID)
		return res
	}

	confirmed, err := m.confirm.Confirm(ctx, payment.ID, t.ExternalID, model.PaymentLogMarkedPaid)
	if err != nil {
		// The payment stays pending and the external id unlogged, so a
		// redelivery can retry the confirmation.
		log.Printf("webhook: confirm failed for payment %d: %v", payment.ID, err)
		res.Error = err.Error()
		return res
	}
	res.Matched = true
	res.PaymentID = payment.ID
	res.BookingCode = confirmed.BookingCode
	res.Duplicate = confirmed.AlreadyPaid
	m.remember(ctx, t.ExternalID)
	return res
}

// resolvePayment tries every extracted booking-code candidate in order,
// then falls back to the most recent pending payment with the exact
// transfer amount.
func (m *WebhookMatcher) resolvePayment(ctx context.Context, t BankTransfer) (*model.Payment, error) {
	for _, code := range codeCandidates(t.Descriptions) {
		p, err := m.payments.GetPendingByBookingCode(ctx, code)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, err
		}
	}
	if t.AmountCents > 0 {
		p, err := m.payments.LatestPendingByAmount(ctx, t.AmountCents)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (m *WebhookMatcher) logIgnored(ctx context.Context, paymentID *uint64, externalID, detail string) {
	l := &model.PaymentLog{
		PaymentID:  paymentID,
		Action:     model.PaymentLogWebhookIgnored,
		ExternalID: externalID,
		Detail:     detail,
	}
	if err := m.payments.AppendLog(ctx, l); err != nil {
		log.Printf("webhook: append log failed: %v", err)
	}
}
