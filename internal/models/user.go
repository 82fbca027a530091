package models

import (
	"time"

	"github.com/google/uuid"
)

// OTP purposes. Email-adjacent purposes penalize the account on a failed
// verify; phone verification penalizes the challenge itself.
const (
	OtpPurposeEmailVerification = "email_verification"
	OtpPurposePhoneVerification = "phone_verification"
	OtpPurposeLogin             = "login"
	OtpPurposePasswordReset     = "password_reset"
)

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User represents a registered customer with their verification state.
type User struct {
	BaseModel
	Email           string     `gorm:"uniqueIndex" json:"email"`
	Phone           *string    `gorm:"uniqueIndex" json:"phone"`
	PasswordHash    string     `json:"-"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Role            string     `gorm:"default:CUSTOMER" json:"role"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	IsBlocked       bool       `json:"is_blocked"`
	TrustScore      int        `json:"trust_score"`
	FailedAttempts  int        `json:"-"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	Addresses       []Address  `json:"addresses,omitempty"`
	Orders          []Order    `json:"orders,omitempty"`
}

// OtpChallenge is one issued verification code. Rows are kept as an audit
// trail; expired or exhausted challenges are simply inert.
type OtpChallenge struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Channel    string    `gorm:"index" json:"channel"`
	Code       string    `json:"-"`
	Purpose    string    `gorm:"index" json:"purpose"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsVerified bool      `json:"is_verified"`
	Attempts   int       `gorm:"default:0" json:"attempts"`
}

// TrustEvent records one applied trust reward. The unique (user_id, event)
// pair makes rewards idempotent: a retried call cannot credit twice.
type TrustEvent struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_trust_events_user_event" json:"user_id"`
	Event  string    `gorm:"uniqueIndex:idx_trust_events_user_event" json:"event"`
	Points int       `json:"points"`
}
