package publish

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultSitePrefix = "ekipa"
	maxSlugLength     = 30
	maxSiteNameLength = 63
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SiteName derives a hosting-safe site name from the brief name and the
// request time: prefix, slug (at most 30 characters) and a millisecond stamp.
func SiteName(prefix, name string, at time.Time) string {
	prefix = Slugify(prefix)
	if prefix == "" {
		prefix = DefaultSitePrefix
	}

	slug := Slugify(name)
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "site"
	}

	stamp := strconv.FormatInt(at.UnixMilli(), 10)
	head := prefix + "-" + slug
	if limit := maxSiteNameLength - len(stamp) - 1; len(head) > limit {
		head = strings.TrimRight(head[:limit], "-")
	}
	return head + "-" + stamp
}

// Slugify lower-cases s, folds diacritics and joins the remaining
// alphanumeric runs with single dashes.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.NewReplacer("ł", "l", "Ł", "L", "ß", "ss", "ø", "o", "Ø", "O").Replace(folded)
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}
