// Package notify sends best-effort SMS to patients when an administrator
// moderates their appointment. Delivery failures are logged, never surfaced.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/models"
)

type SMSClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	log        *zap.Logger
}

func NewSMSClient(apiKey, endpoint string, log *zap.Logger) *SMSClient {
	if endpoint == "" {
		endpoint = "https://textbelt.com/text"
	}
	return &SMSClient{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// AppointmentModerated notifies the patient of the new status. Sends in a
// goroutine so moderation never waits on the SMS gateway.
func (c *SMSClient) AppointmentModerated(apt models.Appointment, doctorName string) {
	if c.apiKey == "" || apt.PatientPhone == "" {
		return
	}
	if doctorName == "" {
		doctorName = "your doctor"
	}

	msg := fmt.Sprintf("Your appointment with %s on %s at %s was %s.",
		doctorName, apt.Date, apt.Time, apt.Status)

	go c.send(apt.PatientPhone, msg)
}

func (c *SMSClient) send(phone, message string) {
	payload, _ := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     c.apiKey,
	})

	resp, err := c.httpClient.Post(c.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		c.log.Warn("sms request failed", zap.String("phone", phone), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.log.Warn("sms response unreadable", zap.Error(err))
		return
	}
	if !result.Success {
		c.log.Warn("sms rejected", zap.String("phone", phone), zap.String("reason", result.Error))
		return
	}
	c.log.Info("sms sent", zap.String("phone", phone))
}
