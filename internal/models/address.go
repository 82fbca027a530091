package models

import "github.com/google/uuid"

// Address is a delivery destination. Exactly one address per user carries
// is_default once any exist; geo coordinates at creation auto-verify it.
type Address struct {
	BaseModel
	UserID       uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Province     string    `json:"province"`
	District     string    `json:"district"`
	Municipality string    `json:"municipality"`
	WardNo       string    `json:"ward_no"`
	Area         string    `json:"area"`
	Landmark     string    `json:"landmark"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	IsDefault    bool      `json:"is_default"`
	IsVerified   bool      `json:"is_verified"`
}
