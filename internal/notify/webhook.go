package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

const DefaultSource = "ekipa-strategow-backend"

type WebhookConfig struct {
	URL        string
	Source     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Webhook posts events to an automation workflow endpoint. Delivery
// problems are reported in the result and never as an error.
type Webhook struct {
	url        string
	source     string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

func NewWebhook(config WebhookConfig, logger zerolog.Logger) *Webhook {
	if strings.TrimSpace(config.Source) == "" {
		config.Source = DefaultSource
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Webhook{
		url:        strings.TrimSpace(config.URL),
		source:     config.Source,
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (w *Webhook) Emit(ctx context.Context, event domain.Event) domain.NotifyResult {
	if w.url == "" {
		w.logger.Warn().Str("event", event.Type).Msg("webhook url not configured, skipping notification")
		return domain.NotifyResult{Skipped: true, Message: "webhook url not configured"}
	}

	payload := make(map[string]any, len(event.Data)+3)
	for key, value := range event.Data {
		payload[key] = value
	}
	if event.Type != "" {
		payload["type"] = event.Type
	}
	payload["timestamp"] = w.now().Format(time.RFC3339Nano)
	payload["source"] = w.source

	result := w.post(ctx, payload)
	if result.Delivered {
		w.logger.Info().Str("event", event.Type).Int("status", result.StatusCode).Msg("webhook delivered")
	} else {
		w.logger.Error().Str("event", event.Type).Int("status", result.StatusCode).Str("reason", result.Message).Msg("webhook delivery failed")
	}
	return result
}

func (w *Webhook) post(ctx context.Context, payload map[string]any) domain.NotifyResult {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return domain.NotifyResult{Message: fmt.Sprintf("marshal webhook payload: %v", err)}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, w.url, bytes.NewReader(encoded))
	if err != nil {
		return domain.NotifyResult{Message: fmt.Sprintf("create webhook request: %v", err)}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := w.httpClient.Do(request)
	if err != nil {
		return domain.NotifyResult{Message: err.Error()}
	}
	defer response.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return domain.NotifyResult{
			StatusCode: response.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return domain.NotifyResult{Delivered: true, StatusCode: response.StatusCode}
}
