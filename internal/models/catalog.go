package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFlat       = "FLAT"
)

type Category struct {
	BaseModel
	Name        string    `json:"name"`
	Slug        string    `gorm:"uniqueIndex" json:"slug"`
	Description string    `json:"description"`
	Products    []Product `json:"products,omitempty"`
}

// Product is the inventory collaborator for the order engine: price is
// captured onto order items at order time, stock only moves through orders.
type Product struct {
	BaseModel
	Name          string     `json:"name"`
	Slug          string     `gorm:"uniqueIndex" json:"slug"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	StockQuantity int        `json:"stock_quantity"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	CategoryID    *uuid.UUID `gorm:"type:uuid" json:"category_id"`
	Category      *Category  `json:"category,omitempty"`
}

type Coupon struct {
	BaseModel
	Code           string    `gorm:"uniqueIndex" json:"code"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidUntil     time.Time `json:"valid_until"`
	MinOrderAmount float64   `json:"min_order_amount"`
	UsageLimit     int       `json:"usage_limit"`
	UsageCount     int       `json:"usage_count"`
	DiscountType   string    `json:"discount_type"`
	DiscountValue  float64   `json:"discount_value"`
	MaxDiscount    float64   `json:"max_discount"`
}

type CartItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
}
