// Package repository defines sentinel error values shared across
// repositories. Higher layers compare them with errors.Is to pick the
// right HTTP status: ErrForbidden maps to 403, ErrInsufficientBalance
// to a 400 the client can branch on without string matching.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else.
var ErrForbidden = errors.New("forbidden")

// ErrInsufficientBalance is returned when a wallet debit would take the
// balance below zero. The balance check and the debit are one atomic
// statement, so concurrent payout requests cannot both pass it.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrInvalidPayoutState is returned when approving or rejecting a
// payout that is not in the 'requested' state.
var ErrInvalidPayoutState = errors.New("payout is not in 'requested' state")
