package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/models"
)

func createGatewayOrder(t *testing.T, db *gorm.DB, method string) *models.Order {
	t.Helper()

	user := createTestUser(t, db)
	address := createTestAddress(t, db, user.ID, "Kathmandu")
	product := createTestProduct(t, db, "basket", 900, 10)

	orders := NewOrderService(db, testDelivery)
	order, err := orders.CreateOrder(user.ID, CreateOrderInput{
		AddressID:     address.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return order
}

func loadPayment(t *testing.T, db *gorm.DB, orderID interface{}) *models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", orderID).Error)
	return &payment
}

func TestEsewaInitiateAndVerify(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodEsewa)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epay/transrec", r.URL.Path)
		w.Write([]byte("<response><response_code>Success</response_code></response>"))
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &EsewaGateway{
		MerchantID: "GLOVIA",
		GatewayURL: srv.URL,
		SuccessURL: "https://shop.example/payment/success",
		FailureURL: "https://shop.example/payment/failure",
	})

	payload, err := payments.Initiate(models.PaymentMethodEsewa, order.ID)
	require.NoError(t, err)
	data := payload["payment_data"].(map[string]string)
	assert.Equal(t, order.OrderNumber, data["pid"])
	assert.Equal(t, "GLOVIA", data["scd"])

	// Initiate provisions the pending payment row.
	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, order.Total, payment.Amount)

	callback, _ := json.Marshal(map[string]string{
		"oid": order.OrderNumber, "amt": "1000.00", "refId": "ESW-1",
	})
	updated, err := payments.Verify(models.PaymentMethodEsewa, callback)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, models.PaymentStatusCompleted, updated.PaymentStatus)
	require.NotNil(t, updated.ConfirmedAt)
	require.NotNil(t, updated.Payment)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Payment.Status)
	assert.Equal(t, "ESW-1", updated.Payment.TransactionID)
	assert.NotNil(t, updated.Payment.PaidAt)
}

func TestVerifyIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodEsewa)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success"))
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &EsewaGateway{MerchantID: "GLOVIA", GatewayURL: srv.URL})
	_, err := payments.Initiate(models.PaymentMethodEsewa, order.ID)
	require.NoError(t, err)

	callback, _ := json.Marshal(map[string]string{"oid": order.OrderNumber, "refId": "ESW-1"})
	first, err := payments.Verify(models.PaymentMethodEsewa, callback)
	require.NoError(t, err)
	firstConfirmed := first.ConfirmedAt

	// A second callback with a different reference must change nothing.
	replay, _ := json.Marshal(map[string]string{"oid": order.OrderNumber, "refId": "ESW-2"})
	second, err := payments.Verify(models.PaymentMethodEsewa, replay)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, second.Status)
	assert.Equal(t, firstConfirmed.Unix(), second.ConfirmedAt.Unix())
	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, "ESW-1", payment.TransactionID)
}

func TestVerifyWithoutPaymentRowFails(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodEsewa)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success"))
	}))
	defer srv.Close()

	// Initiate never ran, so no payment row exists for this order.
	payments := NewPaymentService(db, &EsewaGateway{MerchantID: "GLOVIA", GatewayURL: srv.URL})
	callback, _ := json.Marshal(map[string]string{"oid": order.OrderNumber, "refId": "ESW-3"})
	_, err := payments.Verify(models.PaymentMethodEsewa, callback)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, reloaded.Status)
	assert.Equal(t, models.PaymentStatusPending, reloaded.PaymentStatus)

	var rows int64
	require.NoError(t, db.Model(&models.Payment{}).
		Where("order_id = ?", order.ID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestVerifySettlementUpdateIsConditionalOnStatus(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodEsewa)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success"))
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &EsewaGateway{MerchantID: "GLOVIA", GatewayURL: srv.URL})
	_, err := payments.Initiate(models.PaymentMethodEsewa, order.ID)
	require.NoError(t, err)

	// Mark the payment settled behind the service's back, as a concurrent
	// callback committing between the guard read and the write would.
	paidAt := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("order_id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusCompleted,
			"transaction_id": "ESW-FIRST",
			"paid_at":        &paidAt,
		}).Error)

	callback, _ := json.Marshal(map[string]string{"oid": order.OrderNumber, "refId": "ESW-SECOND"})
	_, err = payments.Verify(models.PaymentMethodEsewa, callback)
	require.NoError(t, err)

	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, "ESW-FIRST", payment.TransactionID)
	assert.Equal(t, paidAt.Unix(), payment.PaidAt.Unix())
}

func TestKhaltiVerify(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodKhalti)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Key secret-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"idx":   "KHL-77",
			"state": map[string]string{"name": "Completed"},
		})
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &KhaltiGateway{
		PublicKey: "public-key",
		SecretKey: "secret-key",
		VerifyURL: srv.URL,
	})
	_, err := payments.Initiate(models.PaymentMethodKhalti, order.ID)
	require.NoError(t, err)

	callback, _ := json.Marshal(map[string]interface{}{
		"token":        "tok-abc",
		"amount":       int64(order.Total * 100),
		"order_number": order.OrderNumber,
	})
	updated, err := payments.Verify(models.PaymentMethodKhalti, callback)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, "KHL-77", updated.Payment.TransactionID)
}

func TestKhaltiVerifyRejectsIncompleteState(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodKhalti)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"idx":   "KHL-78",
			"state": map[string]string{"name": "Pending"},
		})
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &KhaltiGateway{SecretKey: "secret-key", VerifyURL: srv.URL})
	_, err := payments.Initiate(models.PaymentMethodKhalti, order.ID)
	require.NoError(t, err)

	callback, _ := json.Marshal(map[string]interface{}{
		"token": "tok-abc", "amount": int64(100), "order_number": order.OrderNumber,
	})
	_, err = payments.Verify(models.PaymentMethodKhalti, callback)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// Failure leaves both rows untouched.
	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, reloaded.Status)
	assert.Equal(t, models.PaymentStatusPending, reloaded.PaymentStatus)
	assert.Equal(t, models.PaymentStatusPending, loadPayment(t, db, order.ID).Status)
}

func TestIMEPayVerify(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodIMEPay)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Validate", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"ResponseCode": "0"})
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &IMEPayGateway{MerchantCode: "GLOVIA", GatewayURL: srv.URL})
	_, err := payments.Initiate(models.PaymentMethodIMEPay, order.ID)
	require.NoError(t, err)

	callback, _ := json.Marshal(map[string]string{
		"TransactionId": "IME-5", "RefId": order.OrderNumber, "Msisdn": "9800000000",
	})
	updated, err := payments.Verify(models.PaymentMethodIMEPay, callback)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, "IME-5", updated.Payment.TransactionID)
}

func TestIMEPayVerifyRejectsNonZeroResponse(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodIMEPay)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"ResponseCode": "1"})
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &IMEPayGateway{MerchantCode: "GLOVIA", GatewayURL: srv.URL})
	callback, _ := json.Marshal(map[string]string{
		"TransactionId": "IME-6", "RefId": order.OrderNumber,
	})
	_, err := payments.Verify(models.PaymentMethodIMEPay, callback)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestInitiateRejectsMethodMismatch(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodEsewa)

	payments := NewPaymentService(db,
		&EsewaGateway{MerchantID: "GLOVIA"},
		&KhaltiGateway{SecretKey: "secret"},
	)

	_, err := payments.Initiate(models.PaymentMethodKhalti, order.ID)
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestUnknownGateway(t *testing.T) {
	db := newTestDB(t)
	order := createGatewayOrder(t, db, models.PaymentMethodEsewa)

	payments := NewPaymentService(db)
	_, err := payments.Initiate(models.PaymentMethodEsewa, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	callback, _ := json.Marshal(map[string]string{"oid": order.OrderNumber})
	_, err = payments.Verify(models.PaymentMethodEsewa, callback)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyUnknownOrderNumber(t *testing.T) {
	db := newTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success"))
	}))
	defer srv.Close()

	payments := NewPaymentService(db, &EsewaGateway{MerchantID: "GLOVIA", GatewayURL: srv.URL})
	callback, _ := json.Marshal(map[string]string{"oid": "ORD000", "refId": "ESW-9"})
	_, err := payments.Verify(models.PaymentMethodEsewa, callback)
	assert.ErrorIs(t, err, ErrNotFound)
}
