package policy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

const (
	maxShortFieldLength  = 255
	minDescriptionLength = 10
	maxDescriptionLength = 5000
)

var briefEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// BriefInput is the client supplied brief before sanitization. Colors and
// products stay loosely typed so type mistakes surface as violations.
type BriefInput struct {
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Industry    string         `json:"industry"`
	PageType    string         `json:"pageType"`
	Description string         `json:"description"`
	Colors      map[string]any `json:"colors,omitempty"`
	Products    []any          `json:"products,omitempty"`
}

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type BriefViolationError struct {
	Violations []Violation
}

func (e *BriefViolationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid brief"
	}
	return "invalid brief: " + e.Violations[0].Message
}

func (e *BriefViolationError) Unwrap() error {
	return domain.ErrInvalidRequest
}

func (e *BriefViolationError) Messages() []string {
	messages := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		messages = append(messages, violation.Message)
	}
	return messages
}

// SanitizeBrief trims every text field and lower-cases email and page type.
func SanitizeBrief(input BriefInput) BriefInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Industry = strings.TrimSpace(input.Industry)
	input.PageType = strings.ToLower(strings.TrimSpace(input.PageType))
	input.Description = strings.TrimSpace(input.Description)
	return input
}

// ValidateBrief checks a sanitized brief and reports every violation found.
func ValidateBrief(input BriefInput) error {
	violations := make([]Violation, 0)
	add := func(field, message string) {
		violations = append(violations, Violation{Field: field, Message: message})
	}

	required := []struct {
		field string
		value string
	}{
		{"name", input.Name},
		{"email", input.Email},
		{"industry", input.Industry},
		{"pageType", input.PageType},
		{"description", input.Description},
	}
	for _, item := range required {
		if item.value == "" {
			add(item.field, item.field+" is required")
		}
	}

	if utf8.RuneCountInString(input.Name) > maxShortFieldLength {
		add("name", fmt.Sprintf("name must be at most %d characters", maxShortFieldLength))
	}
	if input.Email != "" {
		if utf8.RuneCountInString(input.Email) > maxShortFieldLength {
			add("email", fmt.Sprintf("email must be at most %d characters", maxShortFieldLength))
		}
		if !briefEmailPattern.MatchString(input.Email) {
			add("email", "email must be a valid email address")
		}
	}
	if utf8.RuneCountInString(input.Industry) > maxShortFieldLength {
		add("industry", fmt.Sprintf("industry must be at most %d characters", maxShortFieldLength))
	}
	if input.PageType != "" && !domain.PageType(input.PageType).Valid() {
		names := make([]string, 0, len(domain.PageTypes))
		for _, pageType := range domain.PageTypes {
			names = append(names, string(pageType))
		}
		add("pageType", "pageType must be one of: "+strings.Join(names, ", "))
	}
	if input.Description != "" {
		length := utf8.RuneCountInString(input.Description)
		if length < minDescriptionLength {
			add("description", fmt.Sprintf("description must be at least %d characters", minDescriptionLength))
		}
		if length > maxDescriptionLength {
			add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
		}
	}

	violations = append(violations, shapeViolations(input)...)

	if len(violations) == 0 {
		return nil
	}
	return &BriefViolationError{Violations: violations}
}

func shapeViolations(input BriefInput) []Violation {
	violations := make([]Violation, 0)
	for key, value := range input.Colors {
		if _, ok := value.(string); !ok {
			violations = append(violations, Violation{Field: "colors", Message: "colors." + key + " must be a string"})
		}
	}
	for index, product := range input.Products {
		if _, ok := product.(map[string]any); !ok {
			violations = append(violations, Violation{Field: "products", Message: fmt.Sprintf("products[%d] must be an object", index)})
		}
	}
	return violations
}

// PrepareBrief sanitizes and fully validates a submitted brief.
func PrepareBrief(input BriefInput) (domain.Brief, error) {
	input = SanitizeBrief(input)
	if err := ValidateBrief(input); err != nil {
		return domain.Brief{}, err
	}
	return toBrief(input), nil
}

// PrepareInlineBrief sanitizes a brief supplied directly with a deployment
// request. Only the shape of colors and products is enforced.
func PrepareInlineBrief(input BriefInput) (domain.Brief, error) {
	input = SanitizeBrief(input)
	if violations := shapeViolations(input); len(violations) > 0 {
		return domain.Brief{}, &BriefViolationError{Violations: violations}
	}
	return toBrief(input), nil
}

func toBrief(input BriefInput) domain.Brief {
	colors := make(map[string]string, len(input.Colors))
	for key, value := range input.Colors {
		colors[key], _ = value.(string)
	}
	products := make([]map[string]any, 0, len(input.Products))
	for _, product := range input.Products {
		if object, ok := product.(map[string]any); ok {
			products = append(products, object)
		}
	}
	return domain.Brief{
		Name:        input.Name,
		Email:       input.Email,
		Industry:    input.Industry,
		PageType:    domain.PageType(input.PageType),
		Description: input.Description,
		Colors:      colors,
		Products:    products,
	}
}
