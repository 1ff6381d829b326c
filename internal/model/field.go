package model

import "time"

// FieldStatus describes whether a field can currently be booked.
type FieldStatus string

const (
	FieldActive      FieldStatus = "active"
	FieldMaintenance FieldStatus = "maintenance"
	FieldInactive    FieldStatus = "inactive"
)

// Field is a rentable unit owned by a shop. Pricing is a flat default
// per slot; RentCount tracks how many bookings were confirmed against
// the field and is only ever incremented on payment confirmation.
//
// Fields:
//  ID                – primary key identifier.
//  ShopCode          – code of the owning shop.
//  Code              – public field code used in URLs and bookings.
//  Name              – display name.
//  DefaultPriceCents – default price per slot in minor units.
//  Status            – active, maintenance or inactive.
//  RentCount         – confirmed-booking popularity counter.
type Field struct {
	ID                uint64      // fields.id
	ShopCode          string      // fields.shop_code
	Code              string      // fields.code
	Name              string      // fields.name
	DefaultPriceCents int64       // fields.default_price_cents
	Status            FieldStatus // fields.status
	RentCount         uint32      // fields.rent_count
	CreatedAt         time.Time   // fields.created_at
	UpdatedAt         time.Time   // fields.updated_at
}

// Quantity is one physical court inside a field. A booking may target a
// specific quantity or, with a nil quantity, the whole field.
type Quantity struct {
	ID       uint64 // quantities.id
	FieldID  uint64 // quantities.field_id
	Label    string // quantities.label (e.g. "Court 1")
	IsActive bool   // quantities.is_active
}
