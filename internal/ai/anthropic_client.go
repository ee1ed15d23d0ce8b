package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrAnthropicUnavailable = errors.New("anthropic api key not configured")

const anthropicVersion = "2023-06-01"

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

type GenerateRequest struct {
	Model     string
	System    string
	Input     string
	MaxTokens int
}

type GenerateResult struct {
	Text       string
	ModelID    string
	StopReason string
	Usage      TokenUsage
}

type TextGenerator interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
	Available() bool
}

type AnthropicClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// AnthropicClient calls the Messages API once per request. Failures are
// returned to the caller as-is.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewAnthropicClient(config AnthropicClientConfig) *AnthropicClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &AnthropicClient{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
	}
}

func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

func (c *AnthropicClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrAnthropicUnavailable
	}
	if strings.TrimSpace(request.Model) == "" {
		return GenerateResult{}, errors.New("model is required")
	}
	if strings.TrimSpace(request.Input) == "" {
		return GenerateResult{}, errors.New("input is required")
	}
	if request.MaxTokens <= 0 {
		request.MaxTokens = 4096
	}

	payload := messagesRequest{
		Model:     request.Model,
		MaxTokens: request.MaxTokens,
		System:    request.System,
		Messages: []messagesRequestMessage{
			{Role: "user", Content: request.Input},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("marshal anthropic payload: %w", err)
	}

	return c.callMessagesAPI(ctx, encoded, request.Model)
}

func (c *AnthropicClient) callMessagesAPI(
	ctx context.Context,
	payload []byte,
	requestedModel string,
) (GenerateResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return GenerateResult{}, fmt.Errorf("create anthropic request: %w", err)
	}
	httpRequest.Header.Set("x-api-key", c.apiKey)
	httpRequest.Header.Set("anthropic-version", anthropicVersion)
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return GenerateResult{}, fmt.Errorf("anthropic timeout: %w", err)
		}
		return GenerateResult{}, fmt.Errorf("anthropic transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("read anthropic body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return GenerateResult{}, &ProviderError{
			Provider:   "anthropic",
			StatusCode: httpResponse.StatusCode,
			Message:    providerErrorMessage(body),
		}
	}

	var raw messagesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return GenerateResult{}, fmt.Errorf("decode anthropic response: %w", err)
	}

	text := extractMessageText(raw)
	if strings.TrimSpace(text) == "" {
		return GenerateResult{}, errors.New("anthropic response without text content")
	}

	return GenerateResult{
		Text:       text,
		ModelID:    firstNonEmpty(raw.Model, requestedModel),
		StopReason: raw.StopReason,
		Usage: TokenUsage{
			InputTokens:  raw.Usage.InputTokens,
			OutputTokens: raw.Usage.OutputTokens,
		},
	}, nil
}

type messagesRequest struct {
	Model     string                   `json:"model"`
	MaxTokens int                      `json:"max_tokens"`
	System    string                   `json:"system,omitempty"`
	Messages  []messagesRequestMessage `json:"messages"`
}

type messagesRequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func extractMessageText(response messagesResponse) string {
	fragments := make([]string, 0, len(response.Content))
	for _, block := range response.Content {
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		fragments = append(fragments, block.Text)
	}
	return strings.TrimSpace(strings.Join(fragments, "\n"))
}

// ProviderError is a non-2xx answer from a generation provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func providerErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	message := strings.TrimSpace(string(body))
	if len(message) > 700 {
		message = message[:700]
	}
	return message
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
