package policy

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(?:\+?\d[\d()\-\s.]{7,}\d)`)
)

// MaskPIIString redacts email addresses and phone numbers from free text
// before it reaches the logs.
func MaskPIIString(value string) string {
	masked := emailPattern.ReplaceAllString(value, "[email_redacted]")
	return phonePattern.ReplaceAllString(masked, "[phone_redacted]")
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	local, domainPart, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domainPart == "" {
		return "[email_redacted]"
	}
	return local[:1] + "***@" + domainPart
}
