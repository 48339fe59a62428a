package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/queue-service/internal/config"
)

func TestNewFromConfig_FallsBackToLogSender(t *testing.T) {
	sender := NewFromConfig(config.NotificationConfig{}, zap.NewNop())
	if _, ok := sender.(*LogSender); !ok {
		t.Fatalf("expected LogSender fallback, got %T", sender)
	}
}

func TestNewFromConfig_SelectsWebhook(t *testing.T) {
	cfg := config.NotificationConfig{WebhookURL: "http://gateway.local/sms", TimeoutSeconds: 3}
	sender := NewFromConfig(cfg, zap.NewNop())
	if _, ok := sender.(*WebhookSender); !ok {
		t.Fatalf("expected WebhookSender, got %T", sender)
	}
}

func TestLogSender_AlwaysSucceeds(t *testing.T) {
	sender := NewLogSender(zap.NewNop())
	ref, err := sender.Send(context.Background(), "555-0100", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != LocalReference {
		t.Fatalf("expected sentinel reference %q, got %q", LocalReference, ref)
	}
}

func TestWebhookSender_Send(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"reference": "SM123"})
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL, "secret", 2*time.Second)
	ref, err := sender.Send(context.Background(), "555-0100", "your turn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "SM123" {
		t.Fatalf("expected gateway reference, got %q", ref)
	}
	if received["to"] != "555-0100" || received["body"] != "your turn" {
		t.Fatalf("unexpected payload: %v", received)
	}
}

func TestWebhookSender_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL, "", time.Second)
	if _, err := sender.Send(context.Background(), "555-0100", "hello"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestWebhookSender_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL, "", 50*time.Millisecond)
	if _, err := sender.Send(context.Background(), "555-0100", "hello"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWebhookSender_MissingReferenceDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL, "", time.Second)
	ref, err := sender.Send(context.Background(), "555-0100", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "delivered" {
		t.Fatalf("expected default reference, got %q", ref)
	}
}
