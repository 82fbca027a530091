package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusReturned   = "RETURNED"
)

const (
	PaymentMethodCashOnDelivery = "CASH_ON_DELIVERY"
	PaymentMethodEsewa          = "ESEWA"
	PaymentMethodKhalti         = "KHALTI"
	PaymentMethodIMEPay         = "IME_PAY"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// Order is immutable once placed: item rows keep the unit price captured at
// order time regardless of later catalog changes. OrderNumber is the public,
// gateway-facing correlation key and must stay stable for the order's life.
type Order struct {
	BaseModel
	OrderNumber    string      `gorm:"uniqueIndex" json:"order_number"`
	UserID         uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User           *User       `json:"user,omitempty"`
	AddressID      uuid.UUID   `gorm:"type:uuid" json:"address_id"`
	Address        *Address    `json:"address,omitempty"`
	Subtotal       float64     `json:"subtotal"`
	Discount       float64     `json:"discount"`
	DeliveryCharge float64     `json:"delivery_charge"`
	Total          float64     `json:"total"`
	Status         string      `gorm:"default:PENDING" json:"status"`
	PaymentStatus  string      `gorm:"default:PENDING" json:"payment_status"`
	PaymentMethod  string      `json:"payment_method"`
	CustomerNote   string      `json:"customer_note"`
	ConfirmedAt    *time.Time  `json:"confirmed_at"`
	ShippedAt      *time.Time  `json:"shipped_at"`
	DeliveredAt    *time.Time  `json:"delivered_at"`
	CancelledAt    *time.Time  `json:"cancelled_at"`
	Items          []OrderItem `json:"items,omitempty"`
	Payment        *Payment    `json:"payment,omitempty"`
}

// OrderItem is a line-item snapshot, never mutated after creation.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
}

// Payment records settlement state for one order. Status transitions are
// one-directional; COMPLETED is terminal and re-verification is a no-op.
type Payment struct {
	BaseModel
	OrderID         uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	Method          string     `json:"method"`
	Amount          float64    `json:"amount"`
	Status          string     `gorm:"default:PENDING" json:"status"`
	TransactionID   string     `json:"transaction_id"`
	GatewayResponse []byte     `gorm:"type:jsonb" json:"gateway_response"`
	PaidAt          *time.Time `json:"paid_at"`
}
