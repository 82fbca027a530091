package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/middleware"
	"github.com/example/glovia/internal/models"
	"github.com/example/glovia/internal/services"
)

// ProfileHandler manages the authenticated user's profile and addresses.
type ProfileHandler struct {
	db    *gorm.DB
	trust *services.TrustService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB, trust *services.TrustService) *ProfileHandler {
	return &ProfileHandler{db: db, trust: trust}
}

// GetProfile returns the current user.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": user})
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateProfile changes the user's name fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}

	if len(updates) > 0 {
		if err := h.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

// ListAddresses returns the user's addresses, default first.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var addresses []models.Address
	if err := h.db.Where("user_id = ?", userID).
		Order("is_default desc, created_at desc").
		Find(&addresses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type addressRequest struct {
	FullName     string   `json:"full_name"`
	Phone        string   `json:"phone"`
	Province     string   `json:"province"`
	District     string   `json:"district"`
	Municipality string   `json:"municipality"`
	WardNo       string   `json:"ward_no"`
	Area         string   `json:"area"`
	Landmark     string   `json:"landmark"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	IsDefault    bool     `json:"is_default"`
}

// CreateAddress adds a delivery address. The first address becomes default;
// coordinates auto-verify the address and credit the one-time geo reward.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var count int64
	if err := h.db.Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}

	makeDefault := req.IsDefault || count == 0
	if makeDefault {
		if err := h.db.Model(&models.Address{}).Where("user_id = ?", userID).
			Update("is_default", false).Error; err != nil {
			return err
		}
	}

	geoVerified := req.Latitude != nil && req.Longitude != nil

	address := models.Address{
		UserID:       userID,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Province:     req.Province,
		District:     req.District,
		Municipality: req.Municipality,
		WardNo:       req.WardNo,
		Area:         req.Area,
		Landmark:     req.Landmark,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		IsDefault:    makeDefault,
		IsVerified:   geoVerified,
	}

	if err := h.db.Create(&address).Error; err != nil {
		return err
	}

	if geoVerified {
		if _, _, err := h.trust.Reward(userID, services.AddressGeoEvent(address.ID), services.TrustPointsAddress); err != nil {
			return err
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

// UpdateAddress edits an address, keeping the single-default invariant:
// setting default clears the others, and if the update leaves no default the
// edited address is promoted.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var address models.Address
	if err := h.db.First(&address, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		return err
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.IsDefault {
		if err := h.db.Model(&models.Address{}).
			Where("user_id = ? AND id <> ?", userID, id).
			Update("is_default", false).Error; err != nil {
			return err
		}
	}

	updates := map[string]interface{}{
		"full_name":    req.FullName,
		"phone":        req.Phone,
		"province":     req.Province,
		"district":     req.District,
		"municipality": req.Municipality,
		"ward_no":      req.WardNo,
		"area":         req.Area,
		"landmark":     req.Landmark,
		"is_default":   req.IsDefault,
	}
	if err := h.db.Model(&address).Updates(updates).Error; err != nil {
		return err
	}

	var defaultCount int64
	if err := h.db.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Count(&defaultCount).Error; err != nil {
		return err
	}
	if defaultCount == 0 {
		if err := h.db.Model(&address).Update("is_default", true).Error; err != nil {
			return err
		}
	}

	if err := h.db.First(&address, "id = ?", id).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress removes an address owned by the user.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "address not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "Address deleted successfully"})
}
