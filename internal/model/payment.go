package model

import "time"

// PaymentStatus is the state of a payment record: pending -> paid.
// Re-confirming a paid payment is a no-op.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment is the single active payment of a booking. The QR payload is
// the bank-transfer reference handed to the customer; the booking code
// embedded in it ("BK" + code) is what the webhook matcher looks for.
type Payment struct {
	ID          uint64        // payments.id
	BookingCode string        // payments.booking_code
	AmountCents int64         // payments.amount_cents
	Method      string        // payments.method (e.g. "bank_transfer")
	Status      PaymentStatus // payments.status
	ExternalRef *string       // payments.external_ref (nullable, gateway txn id)
	QRPayload   string        // payments.qr_payload
	CreatedAt   time.Time     // payments.created_at
	UpdatedAt   time.Time     // payments.updated_at
}

// Payment log actions. The log doubles as the idempotency record for
// inbound webhooks: a row tagged with an external id means that
// notification has already been processed.
const (
	PaymentLogWebhookReceived = "webhook_received"
	PaymentLogWebhookIgnored  = "webhook_ignored"
	PaymentLogMarkedPaid      = "marked_paid"
	PaymentLogManualConfirm   = "manual_confirm"
)

// PaymentLog is one append-only audit row for a payment. PaymentID is
// nil when a webhook could not be matched to any payment but still
// needs to be remembered for idempotency.
type PaymentLog struct {
	ID         uint64    // payment_logs.id
	PaymentID  *uint64   // payment_logs.payment_id (nullable)
	Action     string    // payment_logs.action
	ExternalID string    // payment_logs.external_id (gateway-assigned)
	Detail     string    // payment_logs.detail
	CreatedAt  time.Time // payment_logs.created_at
}
