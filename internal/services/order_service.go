package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/models"
)

// OrderService converts an item list into a priced, stock-reserving order
// and owns the order status state machine.
type OrderService struct {
	db       *gorm.DB
	delivery DeliveryConfig
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, delivery DeliveryConfig) *OrderService {
	return &OrderService{db: db, delivery: delivery}
}

// OrderItemInput is one requested line item.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries everything CreateOrder needs besides the user.
type CreateOrderInput struct {
	AddressID     uuid.UUID
	Items         []OrderItemInput
	PaymentMethod string
	CouponCode    string
	Note          string
	ClearCart     bool
}

// Forward edges of the order state machine plus the cancel side branch.
// RETURNED is reachable only from DELIVERED through administrative action.
var orderTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {models.OrderStatusReturned},
}

// CreateOrder validates address ownership, item availability and pricing,
// then commits order + items, stock decrements, coupon usage, an eventual
// cash-on-delivery payment row and the cart clear as one transaction.
//
// Stock is checked up front for a fast failure, but the authoritative check
// is the conditional decrement inside the transaction: two concurrent orders
// cannot both win the last unit.
func (s *OrderService) CreateOrder(userID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	var address models.Address
	if err := s.db.First(&address, "id = ? AND user_id = ?", in.AddressID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("address: %w", ErrNotFound)
		}
		return nil, err
	}

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("order must contain at least one item: %w", ErrInvalidRequest)
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var subtotal float64
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidRequest)
		}

		var product models.Product
		if err := s.db.First(&product, "id = ?", it.ProductID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("product %s: %w", it.ProductID, ErrNotFound)
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%s: %w", product.Name, ErrUnavailable)
		}
		if product.StockQuantity < it.Quantity {
			return nil, fmt.Errorf("%s: %w", product.Name, ErrInsufficientStock)
		}

		// Price is locked at order time, not cart-add time.
		lineTotal := product.Price * float64(it.Quantity)
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  it.Quantity,
			Price:     product.Price,
			Total:     lineTotal,
		})
		subtotal += lineTotal
	}

	deliveryCharge := DeliveryCharge(address.District, subtotal, s.delivery)

	var coupon *models.Coupon
	var discount float64
	if in.CouponCode != "" {
		var c models.Coupon
		if err := s.db.First(&c, "code = ?", in.CouponCode).Error; err == nil {
			coupon = &c
			discount = CouponDiscount(coupon, subtotal, time.Now())
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	total := OrderTotal(subtotal, deliveryCharge, discount)
	if total < 0 {
		// Flat coupons are not clamped to the order value; flagged, not fixed.
		log.Printf("[Order] coupon %s drives total negative (%.2f) for user %s", in.CouponCode, total, userID)
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCashOnDelivery
	}

	orderNumber, err := generateOrderNumber()
	if err != nil {
		return nil, fmt.Errorf("order number: %w", err)
	}

	order := models.Order{
		OrderNumber:    orderNumber,
		UserID:         userID,
		AddressID:      address.ID,
		Subtotal:       subtotal,
		Discount:       discount,
		DeliveryCharge: deliveryCharge,
		Total:          total,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		PaymentMethod:  paymentMethod,
		CustomerNote:   in.Note,
		Items:          items,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, item := range order.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("product %s: %w", item.ProductID, ErrInsufficientStock)
			}
		}

		if coupon != nil && discount > 0 {
			if err := tx.Model(coupon).
				UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
				return err
			}
		}

		if order.PaymentMethod == models.PaymentMethodCashOnDelivery {
			payment := models.Payment{
				OrderID: order.ID,
				Method:  order.PaymentMethod,
				Amount:  order.Total,
				Status:  models.PaymentStatusPending,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}

		if in.ClearCart {
			if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	var created models.Order
	if err := s.db.Preload("Items.Product").Preload("Address").Preload("Payment").
		First(&created, "id = ?", order.ID).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

// CancelOrder cancels a PENDING or CONFIRMED order owned by the user and
// restores the reserved stock, the exact inverse of creation's decrement.
func (s *OrderService) CancelOrder(userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").
		First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order: %w", ErrNotFound)
		}
		return nil, err
	}

	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusConfirmed {
		return nil, fmt.Errorf("order is %s: %w", order.Status, ErrInvalidTransition)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.cancelInTx(tx, &order)
	}); err != nil {
		return nil, err
	}

	return &order, nil
}

func (s *OrderService) cancelInTx(tx *gorm.DB, order *models.Order) error {
	now := time.Now()
	if err := tx.Model(order).Updates(map[string]interface{}{
		"status":       models.OrderStatusCancelled,
		"cancelled_at": &now,
	}).Error; err != nil {
		return err
	}

	for _, item := range order.Items {
		if err := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
			return err
		}
	}

	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	return nil
}

// UpdateStatus moves an order along the state machine, stamping each
// transition's timestamp the first time it happens. Cancellation through
// this path restores stock the same way CancelOrder does.
func (s *OrderService) UpdateStatus(orderID uuid.UUID, target string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order: %w", ErrNotFound)
		}
		return nil, err
	}

	if !transitionAllowed(order.Status, target) {
		return nil, fmt.Errorf("%s -> %s: %w", order.Status, target, ErrInvalidTransition)
	}

	if target == models.OrderStatusCancelled {
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.cancelInTx(tx, &order)
		}); err != nil {
			return nil, err
		}
		return &order, nil
	}

	now := time.Now()
	updates := map[string]interface{}{"status": target}
	switch target {
	case models.OrderStatusConfirmed:
		if order.ConfirmedAt == nil {
			updates["confirmed_at"] = &now
		}
	case models.OrderStatusShipped:
		if order.ShippedAt == nil {
			updates["shipped_at"] = &now
		}
	case models.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			updates["delivered_at"] = &now
		}
	}

	if err := s.db.Model(&order).Updates(updates).Error; err != nil {
		return nil, err
	}

	order.Status = target
	return &order, nil
}

func transitionAllowed(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// generateOrderNumber builds the public gateway-facing reference:
// issue time plus a random suffix, unique and stable for the order's life.
func generateOrderNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD%d%03d", time.Now().UnixMilli(), n.Int64()), nil
}
