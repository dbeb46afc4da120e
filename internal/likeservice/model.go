package likeservice

import (
	"context"
	"database/sql"
	"errors"
)

var ErrRecordNotFound = errors.New("record not found")

func newLikeModel(db *sql.DB) *LikeModel {
	return &LikeModel{db: db}
}

// checkPublishedPost verifies the post exists and is published. Likes on
// drafts are indistinguishable from likes on missing posts.
func (m *LikeModel) checkPublishedPost(ctx context.Context, postID int) error {
	query := `
		SELECT id
		FROM posts
		WHERE id = $1 AND status = 'published'`

	var id int
	err := m.db.QueryRowContext(ctx, query, postID).Scan(&id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

// insertLike attempts to create the like. The unique constraint on
// (post_id, user_id) resolves the check-then-act race: a concurrent
// duplicate insert affects zero rows instead of failing.
func (m *LikeModel) insertLike(ctx context.Context, postID, userID int) (bool, error) {
	query := `
		INSERT INTO likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING`

	res, err := m.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (m *LikeModel) deleteLike(ctx context.Context, postID, userID int) error {
	query := `
		DELETE FROM likes
		WHERE post_id = $1 AND user_id = $2`

	_, err := m.db.ExecContext(ctx, query, postID, userID)
	return err
}

func (m *LikeModel) countLikes(ctx context.Context, postID int) (int, error) {
	query := `
		SELECT count(*)
		FROM likes
		WHERE post_id = $1`

	var count int
	err := m.db.QueryRowContext(ctx, query, postID).Scan(&count)
	return count, err
}
