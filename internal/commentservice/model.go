package commentservice

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrAlreadyModerated = errors.New("comment already moderated")
)

func newCommentModel(db *sql.DB) *CommentModel {
	return &CommentModel{db: db}
}

// insert creates a pending comment. Comments only attach to published
// posts; a draft target reads as not-found.
func (m *CommentModel) insert(ctx context.Context, c *Comment) error {
	check := `
		SELECT id
		FROM posts
		WHERE id = $1 AND status = 'published'`

	var postID int
	err := m.db.QueryRowContext(ctx, check, c.PostID).Scan(&postID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	query := `
		INSERT INTO comments (post_id, user_id, author_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at`

	return m.db.QueryRowContext(ctx, query, c.PostID, c.UserID, c.AuthorName, c.Content).Scan(&c.ID, &c.Status, &c.CreatedAt)
}

// commentContext is what the moderation side effect needs: the comment
// itself plus the post title and its author's email.
type commentContext struct {
	comment     Comment
	authorEmail string
}

func (m *CommentModel) getCommentWithPost(ctx context.Context, id int) (*commentContext, error) {
	query := `
		SELECT c.id, c.post_id, c.user_id, c.author_name, c.content, c.status, c.created_at, c.moderated_at, c.moderated_by, p.title, u.email
		FROM comments c
		JOIN posts p ON c.post_id = p.id
		JOIN users u ON p.user_id = u.id
		WHERE c.id = $1`

	var cc commentContext
	err := m.db.QueryRowContext(ctx, query, id).Scan(&cc.comment.ID, &cc.comment.PostID, &cc.comment.UserID, &cc.comment.AuthorName, &cc.comment.Content, &cc.comment.Status, &cc.comment.CreatedAt, &cc.comment.ModeratedAt, &cc.comment.ModeratedBy, &cc.comment.PostTitle, &cc.authorEmail)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &cc, nil
}

// moderate applies the one-shot status decision. The pending predicate
// makes a second decision, including a concurrent one, affect zero rows.
func (m *CommentModel) moderate(ctx context.Context, c *Comment, moderatorID int, status CommentStatus) error {
	query := `
		UPDATE comments
		SET status = $1, moderated_at = now(), moderated_by = $2
		WHERE id = $3 AND status = 'pending'
		RETURNING status, moderated_at, moderated_by`

	err := m.db.QueryRowContext(ctx, query, status, moderatorID, c.ID).Scan(&c.Status, &c.ModeratedAt, &c.ModeratedBy)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrAlreadyModerated
		default:
			return err
		}
	}

	return nil
}

func (m *CommentModel) getForPost(ctx context.Context, postID int, status CommentStatus) ([]Comment, error) {
	query := `
		SELECT id, post_id, user_id, author_name, content, status, created_at, moderated_at, moderated_by
		FROM comments
		WHERE post_id = $1 AND status = $2
		ORDER BY created_at ASC`

	rows, err := m.db.QueryContext(ctx, query, postID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.AuthorName, &c.Content, &c.Status, &c.CreatedAt, &c.ModeratedAt, &c.ModeratedBy)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

// getPending pages the moderation queue, newest submissions first, with
// the post title and slug for context.
func (m *CommentModel) getPending(ctx context.Context, limit, offset int) ([]Comment, int, error) {
	query := `
		SELECT count(*) OVER(), c.id, c.post_id, c.user_id, c.author_name, c.content, c.status, c.created_at, p.title, p.slug
		FROM comments c
		JOIN posts p ON c.post_id = p.id
		WHERE c.status = 'pending'
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := m.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var total int
	var comments []Comment
	for rows.Next() {
		var c Comment
		err := rows.Scan(&total, &c.ID, &c.PostID, &c.UserID, &c.AuthorName, &c.Content, &c.Status, &c.CreatedAt, &c.PostTitle, &c.PostSlug)
		if err != nil {
			return nil, 0, err
		}
		comments = append(comments, c)
	}

	return comments, total, rows.Err()
}
