package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/models"
)

// CheckoutGate decides whether a user may place orders. It is side-effect
// free and evaluated once per order-creation request.
type CheckoutGate struct {
	db *gorm.DB
}

// NewCheckoutGate constructs a CheckoutGate.
func NewCheckoutGate(db *gorm.DB) *CheckoutGate {
	return &CheckoutGate{db: db}
}

// Authorize denies blocked users outright, then requires the trust score to
// clear CheckoutTrustThreshold, reporting which verifications are missing.
func (g *CheckoutGate) Authorize(userID uuid.UUID) error {
	var user models.User
	if err := g.db.Select("trust_score", "is_email_verified", "is_phone_verified", "is_blocked").
		First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}

	if user.IsBlocked {
		return ErrBlocked
	}

	if user.TrustScore < CheckoutTrustThreshold {
		missing := []string{}
		if !user.IsEmailVerified {
			missing = append(missing, "email verification")
		}
		if !user.IsPhoneVerified {
			missing = append(missing, "phone verification")
		}
		return &InsufficientTrustError{
			Score:    user.TrustScore,
			Required: CheckoutTrustThreshold,
			Missing:  missing,
		}
	}

	return nil
}
