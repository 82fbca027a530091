package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/config"
	"github.com/example/glovia/internal/models"
	"github.com/example/glovia/internal/services"
	"github.com/example/glovia/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
	otp *services.OTPService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, otp *services.OTPService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, otp: otp}
}

type registerRequest struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates a new account and issues an email-verification code.
// No token is returned until the email is verified.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	var existing models.User
	err := h.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return fiber.NewError(fiber.StatusConflict, "email or phone already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	if req.Phone != "" {
		err = h.db.Where("phone = ?", req.Phone).First(&existing).Error
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "email or phone already exists")
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleCustomer,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	if err := h.otp.Issue(user.ID, user.Email, models.OtpPurposeEmailVerification); err != nil {
		return httpError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":           true,
		"message":           "Registration successful. Please verify your email to complete signup.",
		"user_id":           user.ID,
		"email":             user.Email,
		"is_email_verified": false,
	})
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmail confirms the registration code and returns the first token.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if err := h.otp.Verify(user.ID, req.Email, models.OtpPurposeEmailVerification, req.Code); err != nil {
		return httpError(err)
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email verified successfully",
		"token":   token,
		"user": fiber.Map{
			"id":                user.ID,
			"email":             user.Email,
			"first_name":        user.FirstName,
			"last_name":         user.LastName,
			"is_email_verified": true,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing, email-verified user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if user.IsBlocked {
		return fiber.NewError(fiber.StatusUnauthorized, "account blocked, contact support")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		if err := h.db.Model(&user).
			UpdateColumn("failed_attempts", gorm.Expr("failed_attempts + 1")).Error; err != nil {
			return err
		}
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	if !user.IsEmailVerified {
		return fiber.NewError(fiber.StatusForbidden, "please verify your email before logging in")
	}

	now := time.Now()
	if err := h.db.Model(&user).Updates(map[string]interface{}{
		"last_login_at":   &now,
		"failed_attempts": 0,
	}).Error; err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user": fiber.Map{
			"id":                user.ID,
			"email":             user.Email,
			"phone":             user.Phone,
			"first_name":        user.FirstName,
			"last_name":         user.LastName,
			"trust_score":       user.TrustScore,
			"is_email_verified": user.IsEmailVerified,
			"is_phone_verified": user.IsPhoneVerified,
		},
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a password-reset code to the account email.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user with this email not found")
		}
		return err
	}

	if err := h.otp.Issue(user.ID, user.Email, models.OtpPurposePasswordReset); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password reset code sent to your email",
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword verifies the reset code and replaces the password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if err := h.otp.Verify(user.ID, req.Email, models.OtpPurposePasswordReset, req.Code); err != nil {
		return httpError(err)
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	if err := h.db.Model(&user).Updates(map[string]interface{}{
		"password_hash":   passwordHash,
		"failed_attempts": 0,
	}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password reset successfully",
	})
}
