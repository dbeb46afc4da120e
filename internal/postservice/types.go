package postservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/microblogcms/microblog/internal/common"
	"github.com/microblogcms/microblog/internal/userservice"
)

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	// Content is stored in Markdown format. Rendering happens elsewhere.
	Content     string           `json:"content"`
	Status      PostStatus       `json:"status"`
	User        userservice.User `json:"user"`
	UserID      int              `json:"user_id"`
	Tags        []Tag            `json:"tags"`
	LikeCount   int              `json:"like_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
	Version     int              `json:"version"`
}

// Tag pairs the canonical name used for storage and matching with the
// display name of whoever used the tag first.
type Tag struct {
	ID          int    `json:"-"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// TagCount is one entry of the public tag listing: a tag and how many
// published posts carry it.
type TagCount struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	PostCount   int    `json:"post_count"`
}

// Filters narrows the published feed. Tag is a canonical tag name; the
// date range is inclusive on published_at.
type Filters struct {
	Tag      string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}

type PostModel struct {
	db *sql.DB
}

type PostService struct {
	m       *PostModel
	c       *common.Cache
	limiter common.Limiter
	logger  *slog.Logger
}
