package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/glovia/internal/models"
	"github.com/example/glovia/internal/services"
)

// PaymentHandler exposes initiate and verify endpoints for each gateway.
// Verify routes are public: gateways call back without a session.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

var gatewayMethods = map[string]string{
	"esewa":  models.PaymentMethodEsewa,
	"khalti": models.PaymentMethodKhalti,
	"imepay": models.PaymentMethodIMEPay,
}

// Initiate builds the provider redirect payload for an order.
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	method, ok := gatewayMethods[c.Params("gateway")]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown payment gateway")
	}

	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	payload, err := h.payments.Initiate(method, orderID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": payload})
}

// Verify reconciles a gateway callback into the canonical payment state.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	method, ok := gatewayMethods[c.Params("gateway")]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown payment gateway")
	}

	order, err := h.payments.Verify(method, c.Body())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified successfully",
		"data": fiber.Map{
			"order_number":   order.OrderNumber,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		},
	})
}
