package services

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/example/glovia/internal/models"
)

// IMEPayGateway adapts the IME Pay checkout flow: a tokenized redirect on
// initiate and a Validate call for verification.
type IMEPayGateway struct {
	MerchantCode string
	GatewayURL   string
}

func (g *IMEPayGateway) Method() string {
	return models.PaymentMethodIMEPay
}

// Initiate builds the checkout redirect payload. RefId is the order number
// IME Pay rounds back on its callback.
func (g *IMEPayGateway) Initiate(order *models.Order) (map[string]interface{}, error) {
	token := make([]byte, 16)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("imepay token: %w", err)
	}

	return map[string]interface{}{
		"payment_url": g.GatewayURL + "/Checkout",
		"payment_data": map[string]string{
			"MerchantCode": g.MerchantCode,
			"Amount":       fmt.Sprintf("%.2f", order.Total),
			"RefId":        order.OrderNumber,
			"TokenId":      hex.EncodeToString(token),
		},
	}, nil
}

type imePayCallback struct {
	TransactionID string `json:"TransactionId"`
	RefID         string `json:"RefId"`
	Msisdn        string `json:"Msisdn"`
}

type imePayValidateResponse struct {
	ResponseCode string `json:"ResponseCode"`
}

// Verify validates the transaction with IME Pay; "0" means settled.
func (g *IMEPayGateway) Verify(payload []byte) (*GatewayVerdict, error) {
	var cb imePayCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("imepay callback: %w", ErrInvalidRequest)
	}

	body, _ := json.Marshal(map[string]string{
		"TransactionId": cb.TransactionID,
		"MerchantCode":  g.MerchantCode,
	})

	resp, err := gatewayHTTPClient.Post(g.GatewayURL+"/Validate", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imepay validate: %v: %w", err, ErrVerificationFailed)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result imePayValidateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("imepay validate unmarshal: %v: %w", err, ErrVerificationFailed)
	}

	if resp.StatusCode != http.StatusOK || result.ResponseCode != "0" {
		return nil, ErrVerificationFailed
	}

	return &GatewayVerdict{
		OrderNumber:   cb.RefID,
		TransactionID: cb.TransactionID,
		Raw:           payload,
	}, nil
}
