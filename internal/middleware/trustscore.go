package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/services"
)

// TrustScoreMiddleware gates order placement behind the checkout trust
// threshold. It runs after AuthMiddleware and before the order handler.
func TrustScoreMiddleware(db *gorm.DB) fiber.Handler {
	gate := services.NewCheckoutGate(db)

	return func(c *fiber.Ctx) error {
		userID, ok := GetCurrentUserID(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		err := gate.Authorize(userID)
		if err == nil {
			return c.Next()
		}

		var trustErr *services.InsufficientTrustError
		switch {
		case errors.As(err, &trustErr):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success":     false,
				"message":     "Insufficient verification to place orders",
				"trust_score": trustErr.Score,
				"required":    trustErr.Required,
				"missing":     trustErr.Missing,
				"hint":        "Complete email and phone verification to proceed",
			})
		case errors.Is(err, services.ErrBlocked):
			return fiber.NewError(fiber.StatusForbidden, "account blocked, contact support")
		case errors.Is(err, services.ErrNotFound):
			return fiber.NewError(fiber.StatusForbidden, "user not found")
		default:
			return err
		}
	}
}
