package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

var emailHTTPClient = &http.Client{Timeout: 10 * time.Second}

// EmailService sends verification mail through the configured provider.
// Supported providers: "sendgrid" and "mock".
type EmailService struct {
	provider string
	apiKey   string
	from     string
}

// NewEmailService creates an EmailService.
func NewEmailService(provider, apiKey, from string) *EmailService {
	return &EmailService{provider: provider, apiKey: apiKey, from: from}
}

// Send delivers message to email, reporting success as a boolean.
func (s *EmailService) Send(email, message string) bool {
	switch s.provider {
	case "sendgrid":
		return s.sendViaSendgrid(email, message)
	default:
		log.Printf("[Email] (mock) to=%s message=%q", email, message)
		return true
	}
}

func (s *EmailService) sendViaSendgrid(email, message string) bool {
	if s.apiKey == "" {
		log.Println("[Email] SendGrid API key not configured")
		return false
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": email}}},
		},
		"from":    map[string]string{"email": s.from, "name": "Glovia Nepal"},
		"subject": "Glovia Nepal Verification Code",
		"content": []map[string]string{
			{"type": "text/plain", "value": message},
		},
	})

	req, err := http.NewRequest(http.MethodPost, "https://api.sendgrid.com/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := emailHTTPClient.Do(req)
	if err != nil {
		log.Printf("[Email] SendGrid request failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusAccepted
}
