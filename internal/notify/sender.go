package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/queue-service/internal/config"
)

// LocalReference is the sentinel delivery reference returned by the logging
// fallback sender.
const LocalReference = "LOCAL"

// Sender delivers a text message to a phone number and returns a delivery
// reference. Delivery is always best-effort; callers must never block a state
// transition on the outcome.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// NewFromConfig picks the webhook transport when configured, otherwise the
// logging stub, so callers never branch on transport availability.
func NewFromConfig(cfg config.NotificationConfig, logger *zap.Logger) Sender {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		logger.Info("sms transport not configured; messages will be logged")
		return NewLogSender(logger)
	}
	logger.Info("sms webhook transport enabled")
	return NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken, cfg.Timeout())
}

// WebhookSender posts messages to an SMS gateway webhook.
type WebhookSender struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhookSender builds a sender with a bounded request timeout.
func NewWebhookSender(url, token string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send delivers the message and returns the gateway's reference when present.
func (s *WebhookSender) Send(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"to":   to,
		"body": body,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sms webhook returned status %d", resp.StatusCode)
	}

	var result struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Reference == "" {
		return "delivered", nil
	}
	return result.Reference, nil
}

// LogSender writes messages to the log instead of a carrier. It always
// succeeds with the sentinel reference.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates the logging stub.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message and reports success.
func (s *LogSender) Send(_ context.Context, to, body string) (string, error) {
	if s.logger == nil {
		return "", errors.New("log sender has no logger")
	}
	s.logger.Info("mock sms",
		zap.String("to", to),
		zap.String("body", body))
	return LocalReference, nil
}
