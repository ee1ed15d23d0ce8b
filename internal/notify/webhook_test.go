package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

func TestWebhookEmitAddsEnvelopeFields(t *testing.T) {
	received := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := NewWebhook(WebhookConfig{URL: server.URL, Timeout: time.Second}, zerolog.Nop())
	result := webhook.Emit(context.Background(), domain.Event{
		Type: "brief_submitted",
		Data: map[string]any{"briefId": "b-1"},
	})
	if !result.Delivered || result.StatusCode != http.StatusOK {
		t.Fatalf("expected delivery, got %+v", result)
	}

	payload := <-received
	if payload["briefId"] != "b-1" || payload["type"] != "brief_submitted" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["source"] != DefaultSource {
		t.Fatalf("expected source field, got %v", payload["source"])
	}
	if _, ok := payload["timestamp"].(string); !ok {
		t.Fatalf("expected timestamp field, got %v", payload["timestamp"])
	}
}

func TestWebhookEmitReportsFailuresWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("workflow crashed"))
	}))
	defer server.Close()

	webhook := NewWebhook(WebhookConfig{URL: server.URL, Timeout: time.Second}, zerolog.Nop())
	result := webhook.Emit(context.Background(), domain.Event{Type: "brief_submitted"})
	if result.Delivered || result.StatusCode != http.StatusInternalServerError || result.Message != "workflow crashed" {
		t.Fatalf("unexpected result %+v", result)
	}

	unreachable := NewWebhook(WebhookConfig{URL: "http://127.0.0.1:1/hook", Timeout: time.Second}, zerolog.Nop())
	result = unreachable.Emit(context.Background(), domain.Event{Type: "brief_submitted"})
	if result.Delivered || result.Message == "" {
		t.Fatalf("expected transport failure in result, got %+v", result)
	}
}

func TestWebhookEmitSkipsWithoutURL(t *testing.T) {
	result := NewWebhook(WebhookConfig{}, zerolog.Nop()).Emit(context.Background(), domain.Event{Type: "brief_submitted"})
	if !result.Skipped || result.Delivered {
		t.Fatalf("expected skipped result, got %+v", result)
	}
}
