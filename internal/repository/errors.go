// Package repository defines error values shared across repositories.
// These sentinels let handlers distinguish failure scenarios and map them
// to stable HTTP status codes. Seat contention in particular must be
// separable from other failures: losing the conditional claim race is an
// expected outcome, reported as 409, never retried against the same seat.
package repository

import (
	"errors"
	"fmt"
)

// ErrActivityNotFound is returned when the referenced activity does not
// exist, or when a mutation requires ownership the caller lacks (the two
// cases are deliberately merged so callers cannot probe for other
// admins' activities). Handlers translate this into HTTP 404.
var ErrActivityNotFound = errors.New("activity not found")

// ErrActivityNotOpen is returned when a seat claim targets an activity
// whose status is not published. Handlers translate this into HTTP 400.
var ErrActivityNotOpen = errors.New("activity is not open")

// ErrSeatTaken is returned when the conditional claim update matched no
// row: either the seat was won by a concurrent caller or the seat number
// does not exist. Handlers translate this into HTTP 409 and clients
// should pick a different seat.
var ErrSeatTaken = errors.New("seat already taken")

// ErrSeatNotHeld is returned when a release matched no row. The seat may
// be free, held by someone else, or nonexistent; all three are reported
// identically. Handlers translate this into HTTP 400.
var ErrSeatNotHeld = errors.New("seat not held by caller")

// ErrForbidden is returned when the caller attempts an operation on a
// seat they do not hold. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrMobileExists is returned when registration targets a mobile number
// that already has an account.
var ErrMobileExists = errors.New("mobile already registered")

// AlreadyHeldError is returned when a user tries to occupy a second seat
// in the same activity. It carries the seat number they already hold so
// the client can tell them which seat to release first.
type AlreadyHeldError struct {
	SeatNumber uint32
}

func (e *AlreadyHeldError) Error() string {
	return fmt.Sprintf("already holding seat %d in this activity", e.SeatNumber)
}
