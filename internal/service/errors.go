// Package service implements the booking core: slot reservation with
// exclusive holds, promotion evaluation, payment reconciliation, the
// hold-expiry reaper and the wallet/payout ledger. Services orchestrate
// repository calls inside transactions; handlers translate the
// sentinel errors below into HTTP statuses.
package service

import "errors"

// ErrValidation is returned for malformed or business-rule-violating
// input: empty slot lists, inverted time ranges, unknown quantities,
// unresolvable booking actors.
var ErrValidation = errors.New("invalid request")

// ErrSlotConflict is returned when a requested window is already booked
// or held by another unexpired reservation. It is always wrapped with
// the offending window so clients can re-render availability.
var ErrSlotConflict = errors.New("slot not available")

// ErrPromotionNotApplicable is returned when a promotion exists but
// cannot be applied: wrong shop, disabled, outside its validity window,
// still a draft, or below the minimum order amount.
var ErrPromotionNotApplicable = errors.New("promotion not applicable")

// ErrPromotionExhausted is returned when a promotion's aggregate or
// per-customer usage cap has been reached. Distinct from
// ErrPromotionNotApplicable so a client UI can branch on it.
var ErrPromotionExhausted = errors.New("promotion usage limit reached")

// ErrUnauthorizedActor is returned when a payout actor's password does
// not match their stored credential.
var ErrUnauthorizedActor = errors.New("invalid credentials")
