package likeservice

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/microblogcms/microblog/internal/common"
	"github.com/stretchr/testify/assert"
)

func setupTestEnvironment(t *testing.T) (*LikeService, *common.Cache, *sql.DB, int, int) {
	db := common.TestDB("file://../../migrations", t)
	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	var userID int
	err := db.QueryRow(`
		INSERT INTO users (username, email, password, activated)
		VALUES ('liker', 'liker@example.com', $1, true)
		RETURNING id`, []byte("x")).Scan(&userID)
	assert.NoError(t, err)

	var postID int
	err = db.QueryRow(`
		INSERT INTO posts (title, slug, content, user_id, status, published_at)
		VALUES ('Published Post', 'published-post', 'Body text', $1, 'published', now())
		RETURNING id`, userID).Scan(&postID)
	assert.NoError(t, err)

	return NewLikeService(db, cache, common.UnlimitedLimiter{}), cache, db, userID, postID
}

func TestToggle(t *testing.T) {
	s, _, db, userID, postID := setupTestEnvironment(t)
	ctx := context.Background()

	t.Run("first toggle likes", func(t *testing.T) {
		res, err := s.Toggle(ctx, postID, userID)
		assert.NoError(t, err)
		assert.True(t, res.Liked)
		assert.Equal(t, 1, res.LikeCount)
	})

	t.Run("second toggle unlikes", func(t *testing.T) {
		res, err := s.Toggle(ctx, postID, userID)
		assert.NoError(t, err)
		assert.False(t, res.Liked)
		assert.Equal(t, 0, res.LikeCount)

		var rows int
		err = db.QueryRow("SELECT count(*) FROM likes WHERE post_id = $1 AND user_id = $2", postID, userID).Scan(&rows)
		assert.NoError(t, err)
		assert.Zero(t, rows)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := s.Toggle(ctx, 9999, userID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("draft post", func(t *testing.T) {
		var draftID int
		err := db.QueryRow(`
			INSERT INTO posts (title, slug, content, user_id, status)
			VALUES ('Draft Post', 'draft-post', 'Body text', $1, 'draft')
			RETURNING id`, userID).Scan(&draftID)
		assert.NoError(t, err)

		_, err = s.Toggle(ctx, draftID, userID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

// A toggle changes the post's like count, so any cached copy of the
// post must be dropped.
func TestToggleInvalidatesCachedPost(t *testing.T) {
	s, cache, _, userID, postID := setupTestEnvironment(t)
	ctx := context.Background()

	cache.Set(common.CacheKeyPost(postID), "cached post")

	_, err := s.Toggle(ctx, postID, userID)
	assert.NoError(t, err)

	_, found := cache.Get(common.CacheKeyPost(postID))
	assert.False(t, found)
}

// Two concurrent toggles from the same user must leave exactly zero or
// one like row, and the reported count must match the rows.
func TestToggleConcurrent(t *testing.T) {
	s, _, db, userID, postID := setupTestEnvironment(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Toggle(ctx, postID, userID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int
	err := db.QueryRow("SELECT count(*) FROM likes WHERE post_id = $1 AND user_id = $2", postID, userID).Scan(&rows)
	assert.NoError(t, err)
	assert.LessOrEqual(t, rows, 1)

	res, err := s.Toggle(ctx, postID, userID)
	assert.NoError(t, err)

	var after int
	err = db.QueryRow("SELECT count(*) FROM likes WHERE post_id = $1", postID).Scan(&after)
	assert.NoError(t, err)
	assert.Equal(t, after, res.LikeCount)
}
