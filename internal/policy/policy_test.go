package policy

import (
	"errors"
	"strings"
	"testing"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

func validBriefInput() BriefInput {
	return BriefInput{
		Name:        "  Acme Bakery ",
		Email:       " Hello@Acme.Example ",
		Industry:    "food",
		PageType:    " LANDING ",
		Description: "We bake bread every morning.",
		Colors:      map[string]any{"primary": "#ff0000"},
		Products:    []any{map[string]any{"name": "Sourdough", "price": 12.5}},
	}
}

func TestPrepareBriefSanitizesFields(t *testing.T) {
	brief, err := PrepareBrief(validBriefInput())
	if err != nil {
		t.Fatalf("expected valid brief, got %v", err)
	}
	if brief.Name != "Acme Bakery" {
		t.Fatalf("expected trimmed name, got %q", brief.Name)
	}
	if brief.Email != "hello@acme.example" {
		t.Fatalf("expected lower-cased email, got %q", brief.Email)
	}
	if brief.PageType != domain.PageTypeLanding {
		t.Fatalf("expected landing page type, got %q", brief.PageType)
	}
	if brief.Colors["primary"] != "#ff0000" {
		t.Fatalf("expected colors to be kept, got %v", brief.Colors)
	}
	if len(brief.Products) != 1 || brief.Products[0]["name"] != "Sourdough" {
		t.Fatalf("expected products to be kept, got %v", brief.Products)
	}
}

func TestPrepareBriefReportsEveryViolation(t *testing.T) {
	input := BriefInput{
		Email:       "not-an-email",
		PageType:    "spaceship",
		Description: "short",
		Colors:      map[string]any{"primary": 12},
		Products:    []any{"sourdough"},
	}

	_, err := PrepareBrief(input)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	var violationErr *BriefViolationError
	if !errors.As(err, &violationErr) {
		t.Fatalf("expected BriefViolationError, got %T", err)
	}

	joined := strings.Join(violationErr.Messages(), "\n")
	for _, expected := range []string{
		"name is required",
		"industry is required",
		"email must be a valid email address",
		"pageType must be one of",
		"description must be at least 10 characters",
		"colors.primary must be a string",
		"products[0] must be an object",
	} {
		if !strings.Contains(joined, expected) {
			t.Fatalf("expected violation %q in %q", expected, joined)
		}
	}
}

func TestPrepareBriefRejectsLongDescription(t *testing.T) {
	input := validBriefInput()
	input.Description = strings.Repeat("a", 5001)
	if _, err := PrepareBrief(input); err == nil {
		t.Fatalf("expected description length violation")
	}
}

func TestPrepareInlineBriefOnlyChecksShape(t *testing.T) {
	brief, err := PrepareInlineBrief(BriefInput{Name: " Acme "})
	if err != nil {
		t.Fatalf("expected inline brief to pass, got %v", err)
	}
	if brief.Name != "Acme" {
		t.Fatalf("expected trimmed name, got %q", brief.Name)
	}

	if _, err := PrepareInlineBrief(BriefInput{Products: []any{1}}); err == nil {
		t.Fatalf("expected products shape violation")
	}
}

func TestMaskPII(t *testing.T) {
	masked := MaskPIIString("contact user@example.com or +48 600 700 800")
	if strings.Contains(masked, "user@example.com") || strings.Contains(masked, "600 700 800") {
		t.Fatalf("expected pii to be masked, got %q", masked)
	}
	if got := MaskEmail("hello@acme.example"); got != "h***@acme.example" {
		t.Fatalf("unexpected masked email %q", got)
	}
	if got := MaskEmail("broken"); got != "[email_redacted]" {
		t.Fatalf("unexpected masked email %q", got)
	}
}
