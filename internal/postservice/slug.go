package postservice

import (
	"regexp"
	"strings"
)

var (
	slugSeparatorRX = regexp.MustCompile(`[\s_/]+`)
	slugCharsetRX   = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashRX      = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe identifier from a title. Slugs are not
// globally unique; routing resolves posts by id and treats the slug as
// decoration.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugSeparatorRX.ReplaceAllString(s, "-")
	s = slugCharsetRX.ReplaceAllString(s, "")
	s = slugDashRX.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}
