package postservice

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microblogcms/microblog/internal/common"
)

const (
	MaxTagsPerPost = 5
	MaxTagLength   = 50
)

var (
	tagWhitespaceRX = regexp.MustCompile(`\s+`)
	tagCharsetRX    = regexp.MustCompile(`[^a-z0-9-]`)
)

// NormalizeTag converts free-text tag input into its canonical form:
// lowercase, whitespace collapsed to single hyphens, everything outside
// [a-z0-9-] stripped, truncated to MaxTagLength. Deterministic and
// idempotent.
func NormalizeTag(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = tagWhitespaceRX.ReplaceAllString(s, "-")
	s = tagCharsetRX.ReplaceAllString(s, "")
	if len(s) > MaxTagLength {
		s = s[:MaxTagLength]
	}

	return s
}

// NormalizeTagSet normalizes every raw tag, discards the ones that
// normalize to nothing, and removes duplicates while preserving input
// order. The display name of a duplicate is whichever input came first,
// capped at MaxTagLength like the canonical name.
// Fails when more than MaxTagsPerPost tags are given, or when a non-empty
// input normalizes down to an empty set.
func NormalizeTagSet(raw []string) ([]Tag, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	v := common.NewValidator()
	if len(raw) > MaxTagsPerPost {
		v.AddError("tags", "maximum 5 tags allowed")
		return nil, v.ValidationError()
	}

	seen := make(map[string]bool)
	tags := make([]Tag, 0, len(raw))
	for _, r := range raw {
		name := NormalizeTag(r)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		display := strings.TrimSpace(r)
		if utf8.RuneCountInString(display) > MaxTagLength {
			display = string([]rune(display)[:MaxTagLength])
		}
		tags = append(tags, Tag{Name: name, DisplayName: display})
	}

	if len(tags) == 0 {
		v.AddError("tags", "at least one valid tag required")
		return nil, v.ValidationError()
	}

	return tags, nil
}
