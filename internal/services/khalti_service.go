package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/example/glovia/internal/models"
)

// KhaltiGateway adapts the Khalti widget flow: the client obtains a token,
// the server verifies it against Khalti with the secret key.
type KhaltiGateway struct {
	PublicKey   string
	SecretKey   string
	VerifyURL   string
	FrontendURL string
}

func (g *KhaltiGateway) Method() string {
	return models.PaymentMethodKhalti
}

// Initiate returns the widget configuration. Khalti amounts are in paisa.
func (g *KhaltiGateway) Initiate(order *models.Order) (map[string]interface{}, error) {
	return map[string]interface{}{
		"public_key":       g.PublicKey,
		"amount":           int64(order.Total * 100),
		"product_identity": order.OrderNumber,
		"product_name":     fmt.Sprintf("Order #%s", order.OrderNumber),
		"product_url":      fmt.Sprintf("%s/orders/%s", g.FrontendURL, order.ID),
	}, nil
}

type khaltiCallback struct {
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	OrderNumber string `json:"order_number"`
}

type khaltiVerifyResponse struct {
	Idx   string `json:"idx"`
	State struct {
		Name string `json:"name"`
	} `json:"state"`
}

// Verify confirms the token with Khalti; only state "Completed" settles.
func (g *KhaltiGateway) Verify(payload []byte) (*GatewayVerdict, error) {
	var cb khaltiCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("khalti callback: %w", ErrInvalidRequest)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"token":  cb.Token,
		"amount": cb.Amount,
	})

	req, err := http.NewRequest(http.MethodPost, g.VerifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("khalti verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+g.SecretKey)

	resp, err := gatewayHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("khalti verify: %v: %w", err, ErrVerificationFailed)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result khaltiVerifyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("khalti verify unmarshal: %v: %w", err, ErrVerificationFailed)
	}

	if resp.StatusCode != http.StatusOK || result.State.Name != "Completed" {
		return nil, ErrVerificationFailed
	}

	return &GatewayVerdict{
		OrderNumber:   cb.OrderNumber,
		TransactionID: result.Idx,
		Raw:           respBody,
	}, nil
}
