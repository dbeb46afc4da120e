package commentservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/microblogcms/microblog/internal/common"
)

type CommentStatus string

const (
	StatusPending  CommentStatus = "pending"
	StatusApproved CommentStatus = "approved"
	StatusRejected CommentStatus = "rejected"
	StatusFlagged  CommentStatus = "flagged"
)

type Comment struct {
	ID     int `json:"id"`
	PostID int `json:"post_id"`
	UserID int `json:"user_id"`
	// AuthorName is the display name the commenter chose for this
	// comment, independent of their account.
	AuthorName  string        `json:"author_name"`
	Content     string        `json:"content"`
	Status      CommentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	ModeratedAt *time.Time    `json:"moderated_at,omitempty"`
	ModeratedBy *int          `json:"moderated_by,omitempty"`

	// Post context carried along for the moderation queue.
	PostTitle string `json:"post_title,omitempty"`
	PostSlug  string `json:"post_slug,omitempty"`
}

type CommentModel struct {
	db *sql.DB
}

type CommentService struct {
	m       *CommentModel
	mb      common.MessageProducer
	limiter common.Limiter
	logger  *slog.Logger
}
