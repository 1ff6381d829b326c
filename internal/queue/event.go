// Package queue defines the domain events exchanged over RabbitMQ and
// the publisher/consumer plumbing around them.
package queue

import "time"

// Queue names. Queues are declared durable by both publisher and
// consumer, so either side may start first.
const (
	BookingConfirmedQueue = "booking.confirmed"
	PayoutDecidedQueue    = "payout.decided"
)

// BookingConfirmedEvent is emitted after a payment is reconciled and
// its booking confirmed. The consumer sends the check-in notification.
type BookingConfirmedEvent struct {
	BookingCode    string    `json:"booking_code"`
	CheckinCode    string    `json:"checkin_code"`
	ShopCode       string    `json:"shop_code"`
	FieldID        uint64    `json:"field_id"`
	CustomerID     *uint64   `json:"customer_id,omitempty"`
	GuestName      string    `json:"guest_name,omitempty"`
	GuestPhone     string    `json:"guest_phone,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	NetToShopCents int64     `json:"net_to_shop_cents"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

// PayoutDecidedEvent is emitted when a payout request is created,
// approved or rejected, so the shop owner (or an operator, for new
// requests) can be notified.
type PayoutDecidedEvent struct {
	PayoutID    uint64    `json:"payout_id"`
	ShopCode    string    `json:"shop_code"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}
