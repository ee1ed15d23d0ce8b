package ai

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

const (
	websitePromptVersion = "website_v1"
	websiteSystemPrompt  = "You are a senior web developer. Return only valid JSON. Do not use markdown code fences."
	DefaultWebsiteModel  = "claude-3-sonnet-20240229"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

var websitePrompt = template.Must(template.ParseFS(promptFiles, "prompts/"+websitePromptVersion+".tmpl"))

type WebsiteGeneratorConfig struct {
	Model     string
	MaxTokens int
}

// WebsiteGenerator turns a brief into a site artifact using a TextGenerator.
type WebsiteGenerator struct {
	client    TextGenerator
	model     string
	maxTokens int
	logger    zerolog.Logger
}

func NewWebsiteGenerator(client TextGenerator, config WebsiteGeneratorConfig, logger zerolog.Logger) *WebsiteGenerator {
	if strings.TrimSpace(config.Model) == "" {
		config.Model = DefaultWebsiteModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	return &WebsiteGenerator{
		client:    client,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		logger:    logger,
	}
}

func (g *WebsiteGenerator) Generate(ctx context.Context, brief domain.Brief) (domain.Website, error) {
	if g.client == nil || !g.client.Available() {
		return domain.Website{}, ErrAnthropicUnavailable
	}

	prompt, err := renderWebsitePrompt(brief)
	if err != nil {
		return domain.Website{}, err
	}

	result, err := g.client.Generate(ctx, GenerateRequest{
		Model:     g.model,
		System:    websiteSystemPrompt,
		Input:     prompt,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return domain.Website{}, fmt.Errorf("generate website: %w", err)
	}

	g.logger.Debug().
		Str("model", result.ModelID).
		Str("stop_reason", result.StopReason).
		Int("input_tokens", result.Usage.InputTokens).
		Int("output_tokens", result.Usage.OutputTokens).
		Msg("website generated")

	website, err := ParseWebsite(result.Text)
	if err != nil {
		return domain.Website{}, err
	}
	if website.Metadata == nil {
		website.Metadata = map[string]any{}
	}
	website.Metadata["model"] = result.ModelID
	website.Metadata["promptVersion"] = websitePromptVersion
	return website, nil
}

type websitePromptData struct {
	Name         string
	Email        string
	Industry     string
	PageType     string
	Description  string
	ColorsJSON   string
	ProductsJSON string
}

func renderWebsitePrompt(brief domain.Brief) (string, error) {
	colors := brief.Colors
	if colors == nil {
		colors = map[string]string{}
	}
	products := brief.Products
	if products == nil {
		products = []map[string]any{}
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return "", fmt.Errorf("encode colors: %w", err)
	}
	productsJSON, err := json.Marshal(products)
	if err != nil {
		return "", fmt.Errorf("encode products: %w", err)
	}

	buffer := bytes.NewBuffer(nil)
	err = websitePrompt.Execute(buffer, websitePromptData{
		Name:         brief.Name,
		Email:        brief.Email,
		Industry:     brief.Industry,
		PageType:     string(brief.PageType),
		Description:  brief.Description,
		ColorsJSON:   string(colorsJSON),
		ProductsJSON: string(productsJSON),
	})
	if err != nil {
		return "", fmt.Errorf("execute template %s: %w", websitePromptVersion, err)
	}
	return buffer.String(), nil
}

// ParseWebsite reads the model output. A JSON object is decoded into the
// artifact; output without any object is taken as raw markup.
func ParseWebsite(text string) (domain.Website, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Website{}, errors.New("empty model output")
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = stripCodeFence(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return rawWebsite(trimmed), nil
	}

	var website domain.Website
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &website); err != nil {
		// Inline <style> blocks contain braces too.
		if looksLikeHTML(trimmed) {
			return rawWebsite(trimmed), nil
		}
		return domain.Website{}, fmt.Errorf("parse model output: %w", err)
	}
	return website, nil
}

func rawWebsite(markup string) domain.Website {
	return domain.Website{
		HTML: markup,
		Metadata: map[string]any{
			"title":       "Generated Website",
			"description": "AI-generated website",
			"keywords":    []string{},
		},
	}
}

func looksLikeHTML(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
