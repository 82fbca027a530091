package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/glovia/internal/models"
)

// Trust reward events and their point values. The score only ever grows
// through these; nothing in business logic decrements it.
const (
	TrustEventEmailVerified    = "email_verified"
	TrustEventPhoneVerified    = "phone_verified"
	TrustEventAddressGeoPrefix = "address_geo"
	TrustEventDeliveryPrefix   = "delivery_confirmed"

	TrustPointsEmail    = 20
	TrustPointsPhone    = 30
	TrustPointsAddress  = 20
	TrustPointsDelivery = 30

	// CheckoutTrustThreshold is the minimum score required to place orders:
	// email (20) + phone (30) + address or delivery history (10+).
	CheckoutTrustThreshold = 60
)

// TrustService is the ledger of verification rewards. Every reward is keyed
// by an event token; replaying the same event is a no-op.
type TrustService struct {
	db *gorm.DB
}

// NewTrustService constructs a TrustService.
func NewTrustService(db *gorm.DB) *TrustService {
	return &TrustService{db: db}
}

// Reward credits points to the user once per event token. Returns the score
// after the call and whether this call actually applied the reward.
func (s *TrustService) Reward(userID uuid.UUID, event string, points int) (int, bool, error) {
	applied := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		record := models.TrustEvent{UserID: userID, Event: event, Points: points}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if res.Error != nil {
			return fmt.Errorf("trust event insert: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			// Already credited for this event.
			return nil
		}

		applied = true
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("trust_score", gorm.Expr("trust_score + ?", points)).Error
	})
	if err != nil {
		return 0, false, err
	}

	score, err := s.ScoreOf(userID)
	if err != nil {
		return 0, applied, err
	}
	return score, applied, nil
}

// ScoreOf returns the user's current trust score.
func (s *TrustService) ScoreOf(userID uuid.UUID) (int, error) {
	var user models.User
	if err := s.db.Select("trust_score").First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return user.TrustScore, nil
}

// MeetsThreshold reports whether the user's score clears the given bar.
func (s *TrustService) MeetsThreshold(userID uuid.UUID, threshold int) (bool, error) {
	score, err := s.ScoreOf(userID)
	if err != nil {
		return false, err
	}
	return score >= threshold, nil
}

// AddressGeoEvent builds the idempotency token for a geo-verified address.
func AddressGeoEvent(addressID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TrustEventAddressGeoPrefix, addressID)
}

// DeliveryEvent builds the idempotency token for a confirmed delivery.
func DeliveryEvent(orderID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TrustEventDeliveryPrefix, orderID)
}
