package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

func TestAnthropicClientGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
			return
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload messagesRequest
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil || len(payload.Messages) != 1 || payload.MaxTokens != 1024 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"claude-3-sonnet-20240229",
			"stop_reason":"end_turn",
			"content":[{"type":"text","text":"{\"html\":\"<h1>Hi</h1>\"}"}],
			"usage":{"input_tokens":120,"output_tokens":30}
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})

	result, err := client.Generate(context.Background(), GenerateRequest{
		Model:     "claude-3-sonnet-20240229",
		Input:     "test prompt",
		MaxTokens: 1024,
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.Text != `{"html":"<h1>Hi</h1>"}` {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Usage.InputTokens != 120 || result.Usage.OutputTokens != 30 {
		t.Fatalf("unexpected usage %+v", result.Usage)
	}
}

func TestAnthropicClientDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})

	_, err := client.Generate(context.Background(), GenerateRequest{
		Model: "claude-3-sonnet-20240229",
		Input: "test prompt",
	})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if providerErr.StatusCode != http.StatusServiceUnavailable || providerErr.Message != "Overloaded" {
		t.Fatalf("unexpected provider error %+v", providerErr)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one call, got %d", got)
	}
}

func TestAnthropicClientUnavailableWithoutKey(t *testing.T) {
	client := NewAnthropicClient(AnthropicClientConfig{})
	if client.Available() {
		t.Fatalf("expected client without key to be unavailable")
	}
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if !errors.Is(err, ErrAnthropicUnavailable) {
		t.Fatalf("expected ErrAnthropicUnavailable, got %v", err)
	}
}

type fakeTextGenerator struct {
	text    string
	err     error
	request GenerateRequest
}

func (f *fakeTextGenerator) Generate(_ context.Context, request GenerateRequest) (GenerateResult, error) {
	f.request = request
	if f.err != nil {
		return GenerateResult{}, f.err
	}
	return GenerateResult{Text: f.text, ModelID: request.Model}, nil
}

func (f *fakeTextGenerator) Available() bool { return true }

func TestWebsiteGeneratorRendersBriefIntoPrompt(t *testing.T) {
	fake := &fakeTextGenerator{
		text: "```json\n{\"html\":\"<main>Acme</main>\",\"css\":\"main{color:red}\",\"js\":\"\",\"metadata\":{\"title\":\"Acme\"}}\n```",
	}
	generator := NewWebsiteGenerator(fake, WebsiteGeneratorConfig{}, zerolog.Nop())

	website, err := generator.Generate(context.Background(), domain.Brief{
		Name:        "Acme",
		Email:       "hello@acme.example",
		Industry:    "food",
		PageType:    domain.PageTypeLanding,
		Description: "We bake bread every morning.",
		Colors:      map[string]string{"primary": "#ff0000"},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if website.HTML != "<main>Acme</main>" || website.CSS != "main{color:red}" {
		t.Fatalf("unexpected website %+v", website)
	}
	if website.Metadata["title"] != "Acme" || website.Metadata["promptVersion"] != websitePromptVersion {
		t.Fatalf("unexpected metadata %v", website.Metadata)
	}
	if fake.request.Model != DefaultWebsiteModel {
		t.Fatalf("expected default model, got %q", fake.request.Model)
	}
	for _, expected := range []string{"Name: Acme", "Page Type: landing", `{"primary":"#ff0000"}`, "Products/Services: []"} {
		if !strings.Contains(fake.request.Input, expected) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", expected, fake.request.Input)
		}
	}
}

func TestWebsiteGeneratorPropagatesProviderFailure(t *testing.T) {
	fake := &fakeTextGenerator{err: &ProviderError{Provider: "anthropic", StatusCode: 500, Message: "boom"}}
	generator := NewWebsiteGenerator(fake, WebsiteGeneratorConfig{}, zerolog.Nop())

	_, err := generator.Generate(context.Background(), domain.Brief{Name: "Acme"})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestParseWebsiteFallsBackToRawMarkup(t *testing.T) {
	website, err := ParseWebsite("<h1>Plain page</h1>")
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if website.HTML != "<h1>Plain page</h1>" || website.CSS != "" || website.JS != "" {
		t.Fatalf("unexpected website %+v", website)
	}
	if website.Metadata["title"] != "Generated Website" {
		t.Fatalf("expected default metadata, got %v", website.Metadata)
	}

	website, err = ParseWebsite("<!DOCTYPE html><html><style>body{margin:0}</style></html>")
	if err != nil {
		t.Fatalf("expected html document fallback, got %v", err)
	}
	if !strings.HasPrefix(website.HTML, "<!DOCTYPE html>") {
		t.Fatalf("unexpected html %q", website.HTML)
	}

	if _, err := ParseWebsite("here you go: {broken json}"); err == nil {
		t.Fatalf("expected malformed json to fail")
	}
}
