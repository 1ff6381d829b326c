package model

import "time"

// BookingStatus is the lifecycle state of a booking.
// Transitions: pending -> confirmed|cancelled, confirmed ->
// completed|cancelled; completed and cancelled are terminal.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// CanTransition reports whether moving the booking from s to next is a
// legal transition. Every status update goes through this table so that
// illegal transitions are rejected uniformly, regardless of which role
// initiated the change.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	default:
		return false
	}
}

// BookingPayment tracks the payment side of a booking independently of
// its lifecycle status: pending -> paid, paid -> refunded.
type BookingPayment string

const (
	BookingUnpaid   BookingPayment = "pending"
	BookingPaid     BookingPayment = "paid"
	BookingRefunded BookingPayment = "refunded"
)

// Booking aggregates one or more slots reserved together under a single
// booking code. A booking belongs to either an authenticated customer
// or a guest identified by contact info. Amounts are minor units.
//
// Fields:
//  ID              – primary key identifier.
//  BookingCode     – public all-digit code; also the webhook match key
//                    ("BK" + BookingCode in transfer descriptions).
//  FieldID         – field being booked.
//  ShopCode        – owning shop, denormalized for settlement.
//  CustomerID      – authenticated customer, nil for guests.
//  GuestName       – guest contact name when CustomerID is nil.
//  GuestPhone      – guest contact phone when CustomerID is nil.
//  Status          – booking lifecycle status.
//  PaymentStatus   – payment side of the lifecycle.
//  TotalPriceCents – final total after discount.
//  DiscountCents   – promotion discount applied.
//  PlatformFeeCents– marketplace cut of the total.
//  NetToShopCents  – total minus platform fee.
//  PromotionID     – promotion used, if any.
//  CheckinCode     – short code presented at the field on arrival.
type Booking struct {
	ID               uint64         // bookings.id
	BookingCode      string         // bookings.booking_code
	FieldID          uint64         // bookings.field_id
	ShopCode         string         // bookings.shop_code
	CustomerID       *uint64        // bookings.customer_id (nullable)
	GuestName        string         // bookings.guest_name
	GuestPhone       string         // bookings.guest_phone
	Status           BookingStatus  // bookings.status
	PaymentStatus    BookingPayment // bookings.payment_status
	TotalPriceCents  int64          // bookings.total_price_cents
	DiscountCents    int64          // bookings.discount_cents
	PlatformFeeCents int64          // bookings.platform_fee_cents
	NetToShopCents   int64          // bookings.net_to_shop_cents
	PromotionID      *uint64        // bookings.promotion_id (nullable)
	CheckinCode      string         // bookings.checkin_code
	CreatedAt        time.Time      // bookings.created_at
	UpdatedAt        time.Time      // bookings.updated_at
}

// BookingSlot duplicates the identity of a reserved slot under its
// booking together with the share of the total allotted to it. The
// per-slot prices always sum exactly to the booking total.
type BookingSlot struct {
	ID          uint64  // booking_slots.id
	BookingID   uint64  // booking_slots.booking_id
	BookingCode string  // booking_slots.booking_code
	FieldID     uint64  // booking_slots.field_id
	QuantityID  *uint64 // booking_slots.quantity_id (nullable)
	PlayDate    string  // booking_slots.play_date
	StartTime   string  // booking_slots.start_time
	EndTime     string  // booking_slots.end_time
	PriceCents  int64   // booking_slots.price_cents
}

// CartEntry is a convenience record letting an authenticated customer
// find their in-flight checkout again. It is best-effort only; expiry
// mirrors the slot hold deadline.
type CartEntry struct {
	ID          uint64    // cart_entries.id
	CustomerID  uint64    // cart_entries.customer_id
	BookingCode string    // cart_entries.booking_code
	ExpiresAt   time.Time // cart_entries.expires_at
}
