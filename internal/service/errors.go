package service

import "errors"

var (
	// ErrCartBusy means the per-customer cart lock could not be acquired
	// inside the wait bound. The operation did not run; callers may retry.
	ErrCartBusy = errors.New("cart is busy, try again")

	ErrInvalidIndex     = errors.New("cart index out of range")
	ErrInvalidItem      = errors.New("cart item payload invalid")
	ErrStoreUnavailable = errors.New("state store unavailable")
)
