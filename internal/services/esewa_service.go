package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/example/glovia/internal/models"
)

// EsewaGateway adapts the eSewa ePay flow: a form-post redirect on initiate
// and the transrec endpoint for authoritative verification.
type EsewaGateway struct {
	MerchantID string
	GatewayURL string
	SuccessURL string
	FailureURL string
}

func (g *EsewaGateway) Method() string {
	return models.PaymentMethodEsewa
}

// Initiate returns the form fields the storefront posts to eSewa. pid is the
// order number; eSewa echoes it back as oid on the callback.
func (g *EsewaGateway) Initiate(order *models.Order) (map[string]interface{}, error) {
	total := fmt.Sprintf("%.2f", order.Total)
	return map[string]interface{}{
		"payment_url": g.GatewayURL + "/epay/main",
		"payment_data": map[string]string{
			"amt":   total,
			"psc":   "0",
			"pdc":   "0",
			"txAmt": "0",
			"tAmt":  total,
			"pid":   order.OrderNumber,
			"scd":   g.MerchantID,
			"su":    g.SuccessURL,
			"fu":    g.FailureURL,
		},
	}, nil
}

type esewaCallback struct {
	Oid   string `json:"oid"`
	Amt   string `json:"amt"`
	RefID string `json:"refId"`
}

// Verify replays the callback against transrec; eSewa answers with an XML
// body containing "Success" for settled transactions.
func (g *EsewaGateway) Verify(payload []byte) (*GatewayVerdict, error) {
	var cb esewaCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("esewa callback: %w", ErrInvalidRequest)
	}

	body, _ := json.Marshal(map[string]string{
		"amt": cb.Amt,
		"rid": cb.RefID,
		"pid": cb.Oid,
		"scd": g.MerchantID,
	})

	resp, err := gatewayHTTPClient.Post(g.GatewayURL+"/epay/transrec", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("esewa transrec: %v: %w", err, ErrVerificationFailed)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(respBody), "Success") {
		return nil, ErrVerificationFailed
	}

	return &GatewayVerdict{
		OrderNumber:   cb.Oid,
		TransactionID: cb.RefID,
		Raw:           payload,
	}, nil
}
