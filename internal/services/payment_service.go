package services

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/models"
)

// gatewayHTTPClient is shared by all gateway adapters. Verification calls
// cross a network boundary and must fail, not hang.
var gatewayHTTPClient = &http.Client{Timeout: 15 * time.Second}

// GatewayVerdict is the normalized outcome of a provider verification call.
// OrderNumber is the public reference the gateway round-trips from initiate.
type GatewayVerdict struct {
	OrderNumber   string
	TransactionID string
	Raw           []byte
}

// Gateway is the capability every payment provider adapter implements. The
// reconciliation below depends only on this interface; provider payload
// shapes never leak past the adapter boundary.
type Gateway interface {
	Method() string
	Initiate(order *models.Order) (map[string]interface{}, error)
	Verify(payload []byte) (*GatewayVerdict, error)
}

// PaymentService fans three heterogeneous gateways into one canonical
// Payment/Order state transition.
type PaymentService struct {
	db       *gorm.DB
	gateways map[string]Gateway
}

// NewPaymentService constructs a PaymentService over the given adapters.
func NewPaymentService(db *gorm.DB, gateways ...Gateway) *PaymentService {
	byMethod := make(map[string]Gateway, len(gateways))
	for _, gw := range gateways {
		byMethod[gw.Method()] = gw
	}
	return &PaymentService{db: db, gateways: byMethod}
}

// Initiate builds the provider-specific redirect payload for an order and
// makes sure a PENDING payment row exists before the gateway takes over.
func (s *PaymentService) Initiate(method string, orderID uuid.UUID) (map[string]interface{}, error) {
	gw, ok := s.gateways[method]
	if !ok {
		return nil, fmt.Errorf("gateway %s: %w", method, ErrNotFound)
	}

	var order models.Order
	if err := s.db.Preload("Payment").First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order: %w", ErrNotFound)
		}
		return nil, err
	}

	if order.PaymentMethod != gw.Method() {
		return nil, ErrInvalidMethod
	}

	if order.Payment == nil {
		payment := models.Payment{
			OrderID: order.ID,
			Method:  order.PaymentMethod,
			Amount:  order.Total,
			Status:  models.PaymentStatusPending,
		}
		if err := s.db.Create(&payment).Error; err != nil {
			return nil, err
		}
	}

	return gw.Initiate(&order)
}

// Verify runs the adapter's authoritative verification call and, on success,
// atomically marks the Payment COMPLETED and the Order CONFIRMED. A payment
// already COMPLETED is a terminal guard: the call is a no-op, nothing is
// re-applied. A callback for an order with no payment row at all fails with
// ErrVerificationFailed; any failure leaves both rows untouched.
func (s *PaymentService) Verify(method string, payload []byte) (*models.Order, error) {
	gw, ok := s.gateways[method]
	if !ok {
		return nil, fmt.Errorf("gateway %s: %w", method, ErrNotFound)
	}

	verdict, err := gw.Verify(payload)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.db.Preload("Payment").
		First(&order, "order_number = ?", verdict.OrderNumber).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order %s: %w", verdict.OrderNumber, ErrNotFound)
		}
		return nil, err
	}

	if order.Payment != nil && order.Payment.Status == models.PaymentStatusCompleted {
		log.Printf("[Payment] order %s already completed, verify is a no-op", order.OrderNumber)
		return &order, nil
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Conditional on status so a concurrent callback cannot re-stamp a
		// settlement that already won.
		res := tx.Model(&models.Payment{}).
			Where("order_id = ? AND status <> ?", order.ID, models.PaymentStatusCompleted).
			Updates(map[string]interface{}{
				"status":           models.PaymentStatusCompleted,
				"transaction_id":   verdict.TransactionID,
				"gateway_response": verdict.Raw,
				"paid_at":          &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing int64
			if err := tx.Model(&models.Payment{}).
				Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				// Lost the race to another callback; the first writer's
				// settlement stands.
				return nil
			}
			// A callback with no payment row means initiate never ran for
			// this order. Confirming it anyway would drop the transaction
			// id and raw response, so the whole verification fails.
			return fmt.Errorf("order %s has no payment record: %w", order.OrderNumber, ErrVerificationFailed)
		}

		updates := map[string]interface{}{
			"payment_status": models.PaymentStatusCompleted,
			"status":         models.OrderStatusConfirmed,
		}
		if order.ConfirmedAt == nil {
			updates["confirmed_at"] = &now
		}
		return tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	var updated models.Order
	if err := s.db.Preload("Payment").First(&updated, "id = ?", order.ID).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}
