package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/glovia/internal/services"
)

func TestHTTPErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrNotFound, fiber.StatusNotFound},
		{services.ErrInvalidRequest, fiber.StatusBadRequest},
		{services.ErrInvalidCode, fiber.StatusBadRequest},
		{services.ErrAttemptsExceeded, fiber.StatusBadRequest},
		{services.ErrRateLimited, fiber.StatusTooManyRequests},
		{services.ErrDeliveryFailed, fiber.StatusBadGateway},
		{services.ErrBlocked, fiber.StatusForbidden},
		{services.ErrInsufficientStock, fiber.StatusBadRequest},
		{services.ErrInvalidTransition, fiber.StatusBadRequest},
		{services.ErrInvalidMethod, fiber.StatusBadRequest},
		{services.ErrUnavailable, fiber.StatusBadRequest},
		{services.ErrVerificationFailed, fiber.StatusBadRequest},
		{&services.InsufficientTrustError{Score: 40, Required: 60}, fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			var fiberErr *fiber.Error
			require.True(t, errors.As(httpError(tt.err), &fiberErr))
			assert.Equal(t, tt.status, fiberErr.Code)
		})
	}
}

func TestHTTPErrorUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("product abc: %w", services.ErrInsufficientStock)

	var fiberErr *fiber.Error
	require.True(t, errors.As(httpError(wrapped), &fiberErr))
	assert.Equal(t, fiber.StatusBadRequest, fiberErr.Code)
	assert.Contains(t, fiberErr.Message, "product abc")
}

func TestHTTPErrorHidesCodeRejectionReason(t *testing.T) {
	// Expired, unknown and mismatched codes must be indistinguishable.
	var fiberErr *fiber.Error
	require.True(t, errors.As(httpError(services.ErrInvalidCode), &fiberErr))
	assert.Equal(t, "invalid or expired code", fiberErr.Message)
}

func TestHTTPErrorPassesUnknownErrorsThrough(t *testing.T) {
	sentinel := errors.New("database on fire")
	assert.Equal(t, sentinel, httpError(sentinel))
}
