package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/middleware"
	"github.com/example/glovia/internal/models"
	"github.com/example/glovia/internal/services"
)

// VerificationHandler manages the trust-building endpoints: phone OTP,
// address verification and delivery confirmation.
type VerificationHandler struct {
	db    *gorm.DB
	otp   *services.OTPService
	trust *services.TrustService
}

// NewVerificationHandler constructs a VerificationHandler.
func NewVerificationHandler(db *gorm.DB, otp *services.OTPService, trust *services.TrustService) *VerificationHandler {
	return &VerificationHandler{db: db, otp: otp, trust: trust}
}

type sendOtpRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
}

// SendOtp issues a phone OTP for the authenticated user.
func (h *VerificationHandler) SendOtp(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req sendOtpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = models.OtpPurposePhoneVerification
	}

	if err := h.otp.Issue(userID, req.Phone, purpose); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "OTP sent successfully"})
}

type verifyOtpRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerifyOtp validates a phone OTP. The route is public: the user is looked
// up by phone, matching how the code was requested pre-login.
func (h *VerificationHandler) VerifyOtp(c *fiber.Ctx) error {
	var req verifyOtpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if err := h.otp.Verify(user.ID, req.Phone, models.OtpPurposePhoneVerification, req.Code); err != nil {
		return httpError(err)
	}

	score, err := h.trust.ScoreOf(user.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Phone verified successfully",
		"trust_score": score,
	})
}

// VerifyAddress marks one of the user's addresses verified and credits the
// address trust reward once per address.
func (h *VerificationHandler) VerifyAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addressID, err := uuid.Parse(c.Params("addressId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid address id")
	}

	var address models.Address
	if err := h.db.First(&address, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		return err
	}

	if err := h.db.Model(&address).Update("is_verified", true).Error; err != nil {
		return err
	}

	score, _, err := h.trust.Reward(userID, services.AddressGeoEvent(addressID), services.TrustPointsAddress)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Address verified successfully",
		"trust_score": score,
	})
}

// ConfirmDelivery records a completed delivery: all of the user's addresses
// become verified and the delivery trust reward applies once per order.
func (h *VerificationHandler) ConfirmDelivery(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if err := h.db.Model(&models.Address{}).Where("user_id = ?", userID).
		Update("is_verified", true).Error; err != nil {
		return err
	}

	score, _, err := h.trust.Reward(userID, services.DeliveryEvent(orderID), services.TrustPointsDelivery)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Delivery confirmed",
		"trust_score": score,
	})
}
