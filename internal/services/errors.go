package services

import (
	"errors"
	"fmt"
)

// Domain errors surfaced by services. Handlers translate these to HTTP
// statuses; anything unwrapped is treated as an internal error.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrBlocked            = errors.New("account blocked")
	ErrRateLimited        = errors.New("please wait before requesting another code")
	ErrDeliveryFailed     = errors.New("failed to deliver code")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrAttemptsExceeded   = errors.New("maximum verification attempts exceeded")
	ErrUnavailable        = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidMethod      = errors.New("invalid payment method for this order")
	ErrVerificationFailed = errors.New("payment verification failed")
)

// InsufficientTrustError carries everything the caller needs to act on a
// denied checkout: the current score, the bar, and what is still missing.
type InsufficientTrustError struct {
	Score    int
	Required int
	Missing  []string
}

func (e *InsufficientTrustError) Error() string {
	return fmt.Sprintf("insufficient trust score %d, required %d", e.Score, e.Required)
}
