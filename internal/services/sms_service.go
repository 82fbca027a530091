package services

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

var smsHTTPClient = &http.Client{Timeout: 10 * time.Second}

// SMSService sends text messages through the configured SMS gateway.
// Supported gateways: "sparrow" and "mock".
type SMSService struct {
	gateway string
	token   string
	from    string
}

// NewSMSService creates an SMSService.
func NewSMSService(gateway, token, from string) *SMSService {
	return &SMSService{gateway: gateway, token: token, from: from}
}

// Send delivers message to phone, reporting success as a boolean.
func (s *SMSService) Send(phone, message string) bool {
	switch s.gateway {
	case "sparrow":
		return s.sendViaSparrow(phone, message)
	default:
		log.Printf("[SMS] (mock) to=%s message=%q", phone, message)
		return true
	}
}

type sparrowResponse struct {
	ResponseCode int    `json:"response_code"`
	Response     string `json:"response"`
}

func (s *SMSService) sendViaSparrow(phone, message string) bool {
	if s.token == "" {
		log.Println("[SMS] Sparrow token not configured")
		return false
	}

	payload, _ := json.Marshal(map[string]string{
		"token": s.token,
		"from":  s.from,
		"to":    phone,
		"text":  message,
	})

	resp, err := smsHTTPClient.Post("http://api.sparrowsms.com/v2/sms/", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("[SMS] Sparrow request failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result sparrowResponse
	if err := json.Unmarshal(body, &result); err != nil {
		log.Printf("[SMS] Sparrow response unmarshal: %v, body: %s", err, string(body))
		return false
	}

	return result.ResponseCode == 200
}
