package postservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrNotPostAuthor    = errors.New("not the post author")
	ErrPostNotDraft     = errors.New("cannot modify published posts")
	ErrAlreadyPublished = errors.New("post already published")
	ErrUserForeignKey   = errors.New("user_id does not exist")
	ErrEditConflict     = errors.New("edit conflict")
)

func newPostModel(db *sql.DB) *PostModel {
	return &PostModel{db: db}
}

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

// UniqueViolationError reports whether err is a unique constraint
// violation. Under concurrent identical requests a duplicate insert is
// treated as "already exists", not as a failure.
func UniqueViolationError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

func (m *PostModel) insert(ctx context.Context, post *Post) error {
	query := `
		INSERT INTO posts (title, slug, content, user_id, status)
		VALUES ($1, $2, $3, $4, 'draft')
		RETURNING id, status, created_at, updated_at, version`

	err := m.db.QueryRowContext(ctx, query, post.Title, post.Slug, post.Content, post.UserID).Scan(&post.ID, &post.Status, &post.CreatedAt, &post.UpdatedAt, &post.Version)
	if err != nil {
		switch {
		case ForeignKeyError(err, "posts_user_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return nil
}

// attachTags links tags to an already stored post in its own
// transaction, so a tag failure cannot take the post row down with it.
func (m *PostModel) attachTags(ctx context.Context, postID int, tags []Tag) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := linkTags(tx, ctx, postID, tags); err != nil {
		return err
	}

	return tx.Commit()
}

// linkTags upserts each tag and associates it with the post. The unique
// constraint on tags.name keeps concurrent upserts from creating
// duplicate tags; the first stored display_name wins. A duplicate
// (post_id, tag_id) pair is ignored.
func linkTags(tx *sql.Tx, ctx context.Context, postID int, tags []Tag) error {
	upsert := `
		INSERT INTO tags (name, display_name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = tags.name
		RETURNING id`

	link := `
		INSERT INTO post_tags (post_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, tag_id) DO NOTHING`

	for i := range tags {
		err := tx.QueryRowContext(ctx, upsert, tags[i].Name, tags[i].DisplayName).Scan(&tags[i].ID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, link, postID, tags[i].ID); err != nil {
			return err
		}
	}

	return nil
}

func (m *PostModel) getPostById(ctx context.Context, id int) (*Post, error) {
	query := `
		SELECT p.id, p.title, p.slug, p.content, p.status, p.user_id, p.created_at, p.updated_at, p.published_at, p.version, u.username,
			(SELECT count(*) FROM likes l WHERE l.post_id = p.id) AS like_count
		FROM posts p
		JOIN users u ON p.user_id = u.id
		WHERE p.id = $1`

	var post Post
	err := m.db.QueryRowContext(ctx, query, id).Scan(&post.ID, &post.Title, &post.Slug, &post.Content, &post.Status, &post.UserID, &post.CreatedAt, &post.UpdatedAt, &post.PublishedAt, &post.Version, &post.User.Username, &post.LikeCount)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	post.User.ID = post.UserID

	tags, err := m.getTagsForPost(ctx, m.db, post.ID)
	if err != nil {
		return nil, err
	}
	post.Tags = tags

	return &post, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (m *PostModel) getTagsForPost(ctx context.Context, q querier, postID int) ([]Tag, error) {
	query := `
		SELECT t.id, t.name, t.display_name
		FROM tags t
		JOIN post_tags pt ON t.id = pt.tag_id
		WHERE pt.post_id = $1
		ORDER BY t.name`

	rows, err := q.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.DisplayName); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// getTagsWithCounts lists every tag with the number of published posts
// carrying it, most used first. Tags whose posts are all drafts count
// zero but still appear.
func (m *PostModel) getTagsWithCounts(ctx context.Context) ([]TagCount, error) {
	query := `
		SELECT t.name, t.display_name, count(p.id) FILTER (WHERE p.status = 'published') AS post_count
		FROM tags t
		LEFT JOIN post_tags pt ON pt.tag_id = t.id
		LEFT JOIN posts p ON p.id = pt.post_id
		GROUP BY t.id, t.name, t.display_name
		ORDER BY post_count DESC, t.name ASC`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.DisplayName, &tc.PostCount); err != nil {
			return nil, err
		}
		tags = append(tags, tc)
	}

	return tags, rows.Err()
}

// updatePost rewrites the draft's fields and, when replaceTags is set,
// replaces the whole tag association set (delete then insert, one
// transaction). The version column guards against concurrent edits; the
// status predicate keeps a concurrently published post from being
// modified.
func (m *PostModel) updatePost(ctx context.Context, post *Post, tags []Tag, replaceTags bool) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE posts
		SET title = $1, slug = $2, content = $3, updated_at = now(), version = version + 1
		WHERE id = $4 AND version = $5 AND user_id = $6 AND status = 'draft'
		RETURNING version, updated_at`

	err = tx.QueryRowContext(ctx, query, post.Title, post.Slug, post.Content, post.ID, post.Version, post.UserID).Scan(&post.Version, &post.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return err
		}
	}

	if replaceTags {
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, post.ID); err != nil {
			return err
		}

		if err := linkTags(tx, ctx, post.ID, tags); err != nil {
			return err
		}
		post.Tags = tags
	}

	return tx.Commit()
}

// publishPost flips a draft to published. The status predicate makes the
// transition one way: a second publish affects zero rows.
func (m *PostModel) publishPost(ctx context.Context, post *Post) error {
	query := `
		UPDATE posts
		SET status = 'published', published_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'draft'
		RETURNING status, published_at, updated_at`

	err := m.db.QueryRowContext(ctx, query, post.ID, post.UserID).Scan(&post.Status, &post.PublishedAt, &post.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrAlreadyPublished
		default:
			return err
		}
	}

	return nil
}

func (m *PostModel) deletePost(ctx context.Context, postID, userID int) error {
	query := `
		DELETE FROM posts
		WHERE id = $1 AND user_id = $2 AND status = 'draft'`

	res, err := m.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}

// getPublished pages through published posts, newest publication first,
// optionally narrowed to a canonical tag and an inclusive published_at
// range. The window function gives the unpaginated total in the same
// round trip.
func (m *PostModel) getPublished(ctx context.Context, tag string, dateFrom, dateTo *time.Time, limit, offset int) ([]Post, int, error) {
	query := `
		SELECT count(*) OVER(), p.id, p.title, p.slug, p.content, p.status, p.user_id, p.created_at, p.updated_at, p.published_at, p.version, u.username,
			(SELECT count(*) FROM likes l WHERE l.post_id = p.id) AS like_count
		FROM posts p
		JOIN users u ON p.user_id = u.id
		WHERE p.status = 'published'
		AND ($1 = '' OR EXISTS (
			SELECT 1 FROM post_tags pt
			JOIN tags t ON pt.tag_id = t.id
			WHERE pt.post_id = p.id AND t.name = $1))
		AND ($2::timestamptz IS NULL OR p.published_at >= $2)
		AND ($3::timestamptz IS NULL OR p.published_at <= $3)
		ORDER BY p.published_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := m.db.QueryContext(ctx, query, tag, dateFrom, dateTo, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return m.scanPostPage(ctx, rows)
}

// getByAuthor returns one author's posts in the requested status. Drafts
// order by last edit, published posts by publication time.
func (m *PostModel) getByAuthor(ctx context.Context, userID int, status PostStatus, limit, offset int) ([]Post, int, error) {
	orderBy := "p.published_at DESC"
	if status == StatusDraft {
		orderBy = "p.updated_at DESC"
	}

	query := fmt.Sprintf(`
		SELECT count(*) OVER(), p.id, p.title, p.slug, p.content, p.status, p.user_id, p.created_at, p.updated_at, p.published_at, p.version, u.username,
			(SELECT count(*) FROM likes l WHERE l.post_id = p.id) AS like_count
		FROM posts p
		JOIN users u ON p.user_id = u.id
		WHERE p.user_id = $1 AND p.status = $2
		ORDER BY %s
		LIMIT $3 OFFSET $4`, orderBy)

	rows, err := m.db.QueryContext(ctx, query, userID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return m.scanPostPage(ctx, rows)
}

func (m *PostModel) scanPostPage(ctx context.Context, rows *sql.Rows) ([]Post, int, error) {
	var total int
	var posts []Post

	for rows.Next() {
		var post Post
		err := rows.Scan(&total, &post.ID, &post.Title, &post.Slug, &post.Content, &post.Status, &post.UserID, &post.CreatedAt, &post.UpdatedAt, &post.PublishedAt, &post.Version, &post.User.Username, &post.LikeCount)
		if err != nil {
			return nil, 0, err
		}
		post.User.ID = post.UserID
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range posts {
		tags, err := m.getTagsForPost(ctx, m.db, posts[i].ID)
		if err != nil {
			return nil, 0, err
		}
		posts[i].Tags = tags
	}

	return posts, total, nil
}
