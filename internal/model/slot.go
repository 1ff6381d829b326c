package model

import (
	"fmt"
	"time"
)

// SlotStatus is the lifecycle state of a bookable time slot. A slot row
// is only created when someone claims the window; an absent row means
// the window is available.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotHeld      SlotStatus = "held"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
)

// Slot is one (field, quantity, date, time window) record in the slot
// ledger. QuantityID is nil for whole-field bookings; such a slot must
// not coexist with any quantity-specific slot for the same window.
// Holds carry an expiry after which the slot is treated as free again.
//
// Fields:
//  ID            – primary key identifier.
//  FieldID       – field the window belongs to.
//  QuantityID    – specific court, or nil for the whole field.
//  PlayDate      – calendar date, "2006-01-02".
//  StartTime     – window start, "15:04".
//  EndTime       – window end, "15:04".
//  Status        – available, held, booked or cancelled.
//  BookingCode   – booking currently claiming the slot, if any.
//  HoldExpiresAt – when a held slot lapses back to available.
type Slot struct {
	ID            uint64     // field_slots.id
	FieldID       uint64     // field_slots.field_id
	QuantityID    *uint64    // field_slots.quantity_id (nullable)
	PlayDate      string     // field_slots.play_date
	StartTime     string     // field_slots.start_time
	EndTime       string     // field_slots.end_time
	Status        SlotStatus // field_slots.status
	BookingCode   *string    // field_slots.booking_code (nullable)
	HoldExpiresAt *time.Time // field_slots.hold_expires_at (nullable)
	CreatedAt     time.Time  // field_slots.created_at
	UpdatedAt     time.Time  // field_slots.updated_at
}

// Window renders the slot's date and time range for user-facing
// messages, e.g. "2026-09-01 18:00-19:00".
func (s *Slot) Window() string {
	return fmt.Sprintf("%s %s-%s", s.PlayDate, s.StartTime, s.EndTime)
}

// HoldExpired reports whether the slot is a held slot whose hold has
// lapsed at the given instant. Booked and available slots are never
// expired holds.
func (s *Slot) HoldExpired(now time.Time) bool {
	return s.Status == SlotHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}

// Blocks reports whether the slot prevents a new reservation at the
// given instant: booked slots always block, held slots block until
// their hold expires.
func (s *Slot) Blocks(now time.Time) bool {
	if s.Status == SlotBooked {
		return true
	}
	return s.Status == SlotHeld && !s.HoldExpired(now)
}
