package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/glovia/internal/services"
)

// httpError translates service-layer errors into fiber errors. OTP failures
// deliberately collapse into one generic message so callers cannot probe
// which check rejected the code.
func httpError(err error) error {
	var trustErr *services.InsufficientTrustError

	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCode):
		return fiber.NewError(fiber.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, services.ErrAttemptsExceeded):
		return fiber.NewError(fiber.StatusBadRequest, "maximum verification attempts exceeded")
	case errors.Is(err, services.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, "please wait before requesting another code")
	case errors.Is(err, services.ErrDeliveryFailed):
		return fiber.NewError(fiber.StatusBadGateway, "failed to send code")
	case errors.Is(err, services.ErrBlocked):
		return fiber.NewError(fiber.StatusForbidden, "account blocked, contact support")
	case errors.Is(err, services.ErrUnavailable),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidMethod):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrVerificationFailed):
		return fiber.NewError(fiber.StatusBadRequest, "payment verification failed")
	case errors.As(err, &trustErr):
		return fiber.NewError(fiber.StatusForbidden, trustErr.Error())
	default:
		return err
	}
}
