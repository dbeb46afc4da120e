package postservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "simple title",
			title: "Hello World",
			want:  "hello-world",
		},
		{
			name:  "punctuation removed",
			title: "What's New in Go 1.22?",
			want:  "whats-new-in-go-122",
		},
		{
			name:  "underscores and slashes become hyphens",
			title: "setup/teardown_in_tests",
			want:  "setup-teardown-in-tests",
		},
		{
			name:  "collapses runs of separators",
			title: "a  --  b",
			want:  "a-b",
		},
		{
			name:  "trims leading and trailing hyphens",
			title: "-- draft --",
			want:  "draft",
		},
		{
			name:  "all punctuation yields empty slug",
			title: "!?!",
			want:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.title))
		})
	}
}
