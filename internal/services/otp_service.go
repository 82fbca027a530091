package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/models"
)

const (
	otpTTL          = 5 * time.Minute
	otpResendWindow = 60 * time.Second
	otpMaxAttempts  = 5
)

// MessageSender delivers a one-time code to a destination. Delivery is
// fire-and-forget with a boolean result, not a guaranteed queue.
type MessageSender interface {
	Send(destination, message string) bool
}

// OTPService issues and validates time-boxed one-time codes scoped by
// (user, channel, purpose). Challenge rows are never deleted.
type OTPService struct {
	db    *gorm.DB
	trust *TrustService
	sms   MessageSender
	email MessageSender
}

// NewOTPService constructs an OTPService.
func NewOTPService(db *gorm.DB, trust *TrustService, sms, email MessageSender) *OTPService {
	return &OTPService{db: db, trust: trust, sms: sms, email: email}
}

// Issue generates a 6-digit code for (user, channel, purpose), persists it
// with a 5-minute expiry and hands it to the messaging collaborator. At most
// one issue per 60 seconds while a prior challenge is still active.
func (s *OTPService) Issue(userID uuid.UUID, channel, purpose string) error {
	var existing models.OtpChallenge
	err := s.db.Where(
		"user_id = ? AND channel = ? AND purpose = ? AND is_verified = ? AND expires_at > ?",
		userID, channel, purpose, false, time.Now(),
	).Order("created_at desc").First(&existing).Error
	if err == nil && time.Since(existing.CreatedAt) < otpResendWindow {
		return ErrRateLimited
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	challenge := models.OtpChallenge{
		UserID:    userID,
		Channel:   channel,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := s.db.Create(&challenge).Error; err != nil {
		return err
	}

	// A failed send leaves the row orphaned; it simply expires unused.
	if !s.senderFor(channel).Send(channel, buildOTPMessage(code, purpose)) {
		log.Printf("[OTP] delivery failed for user %s purpose %s", userID, purpose)
		return ErrDeliveryFailed
	}

	return nil
}

// Verify matches code against the most recent active challenge for
// (user, channel, purpose) and applies the purpose's side effects once.
//
// Failed-attempt accounting is intentionally asymmetric: phone verification
// penalizes the challenge row, while the auth-adjacent purposes
// (email_verification, password_reset, login) penalize the account's
// failed_attempts counter.
func (s *OTPService) Verify(userID uuid.UUID, channel, purpose, code string) error {
	var challenge models.OtpChallenge
	err := s.db.Where(
		"user_id = ? AND channel = ? AND purpose = ? AND is_verified = ? AND expires_at > ?",
		userID, channel, purpose, false, time.Now(),
	).Order("created_at desc").First(&challenge).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrInvalidCode
		}
		return err
	}

	if challenge.Attempts >= otpMaxAttempts {
		return ErrAttemptsExceeded
	}

	if challenge.Code != code {
		if purpose == models.OtpPurposePhoneVerification {
			if err := s.db.Model(&challenge).
				UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
				return err
			}
		} else {
			if err := s.db.Model(&models.User{}).Where("id = ?", userID).
				UpdateColumn("failed_attempts", gorm.Expr("failed_attempts + 1")).Error; err != nil {
				return err
			}
		}
		return ErrInvalidCode
	}

	if err := s.db.Model(&challenge).Updates(map[string]interface{}{
		"is_verified": true,
		"attempts":    gorm.Expr("attempts + 1"),
	}).Error; err != nil {
		return err
	}

	return s.applySuccess(userID, purpose)
}

func (s *OTPService) applySuccess(userID uuid.UUID, purpose string) error {
	switch purpose {
	case models.OtpPurposeEmailVerification:
		if err := s.db.Model(&models.User{}).Where("id = ?", userID).
			Update("is_email_verified", true).Error; err != nil {
			return err
		}
		_, _, err := s.trust.Reward(userID, TrustEventEmailVerified, TrustPointsEmail)
		return err
	case models.OtpPurposePhoneVerification:
		if err := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"is_phone_verified": true,
			"failed_attempts":   0,
		}).Error; err != nil {
			return err
		}
		_, _, err := s.trust.Reward(userID, TrustEventPhoneVerified, TrustPointsPhone)
		return err
	default:
		// login / password_reset grant no trust reward.
		return nil
	}
}

func (s *OTPService) senderFor(channel string) MessageSender {
	if strings.Contains(channel, "@") {
		return s.email
	}
	return s.sms
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func buildOTPMessage(code, purpose string) string {
	switch purpose {
	case models.OtpPurposeEmailVerification:
		return fmt.Sprintf("Your Glovia Nepal email verification code is: %s. Valid for 5 minutes.", code)
	case models.OtpPurposePhoneVerification:
		return fmt.Sprintf("Your Glovia Nepal verification code is: %s. Valid for 5 minutes.", code)
	case models.OtpPurposeLogin:
		return fmt.Sprintf("Your Glovia Nepal login OTP is: %s. Do not share with anyone.", code)
	case models.OtpPurposePasswordReset:
		return fmt.Sprintf("Your Glovia Nepal password reset code is: %s. Valid for 5 minutes.", code)
	default:
		return fmt.Sprintf("Your Glovia Nepal OTP is: %s", code)
	}
}
