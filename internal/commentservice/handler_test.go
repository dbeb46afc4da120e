package commentservice

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/microblogcms/microblog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMessageProducer struct {
	mock.Mock
}

func (m *MockMessageProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	args := m.Called(ctx, msg, key, exchange)
	return args.Error(0)
}

func setupTestEnvironment(t *testing.T) (*CommentService, *MockMessageProducer, *sql.DB, int, int, int) {
	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mb := &MockMessageProducer{}

	var authorID int
	err := db.QueryRow(`
		INSERT INTO users (username, email, password, activated)
		VALUES ('author', 'author@example.com', $1, true)
		RETURNING id`, []byte("x")).Scan(&authorID)
	assert.NoError(t, err)

	var commenterID int
	err = db.QueryRow(`
		INSERT INTO users (username, email, password, activated)
		VALUES ('commenter', 'commenter@example.com', $1, true)
		RETURNING id`, []byte("x")).Scan(&commenterID)
	assert.NoError(t, err)

	var postID int
	err = db.QueryRow(`
		INSERT INTO posts (title, slug, content, user_id, status, published_at)
		VALUES ('Published Post', 'published-post', 'Body text', $1, 'published', now())
		RETURNING id`, authorID).Scan(&postID)
	assert.NoError(t, err)

	return NewCommentService(db, mb, common.UnlimitedLimiter{}, logger), mb, db, authorID, commenterID, postID
}

func TestSubmit(t *testing.T) {
	s, _, db, authorID, commenterID, postID := setupTestEnvironment(t)
	ctx := context.Background()

	var draftID int
	err := db.QueryRow(`
		INSERT INTO posts (title, slug, content, user_id, status)
		VALUES ('Draft Post', 'draft-post', 'Body text', $1, 'draft')
		RETURNING id`, authorID).Scan(&draftID)
	assert.NoError(t, err)

	testCases := []struct {
		name      string
		req       *SubmitCommentRequest
		wantErr   error
		wantField string
	}{
		{
			name: "valid comment starts pending",
			req: &SubmitCommentRequest{
				PostID:     postID,
				UserID:     commenterID,
				AuthorName: "Alice",
				Content:    "Nice post!",
			},
		},
		{
			name: "missing post",
			req: &SubmitCommentRequest{
				PostID:     9999,
				UserID:     commenterID,
				AuthorName: "Alice",
				Content:    "Nice post!",
			},
			wantErr: ErrRecordNotFound,
		},
		{
			name: "draft post reads as missing",
			req: &SubmitCommentRequest{
				PostID:     draftID,
				UserID:     commenterID,
				AuthorName: "Alice",
				Content:    "Nice post!",
			},
			wantErr: ErrRecordNotFound,
		},
		{
			name: "author name too long",
			req: &SubmitCommentRequest{
				PostID:     postID,
				UserID:     commenterID,
				AuthorName: strings.Repeat("a", 101),
				Content:    "Nice post!",
			},
			wantField: "author_name",
		},
		{
			name: "empty content",
			req: &SubmitCommentRequest{
				PostID:     postID,
				UserID:     commenterID,
				AuthorName: "Alice",
			},
			wantField: "content",
		},
		{
			name: "content too long",
			req: &SubmitCommentRequest{
				PostID:     postID,
				UserID:     commenterID,
				AuthorName: "Alice",
				Content:    strings.Repeat("a", 2001),
			},
			wantField: "content",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := s.Submit(ctx, tc.req)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.wantField != "":
				var validationErr common.ValidationError
				assert.ErrorAs(t, err, &validationErr)
				assert.Contains(t, validationErr.Errors, tc.wantField)
			default:
				assert.NoError(t, err)
				assert.Equal(t, StatusPending, c.Status)
				assert.Nil(t, c.ModeratedAt)
			}
		})
	}
}

func TestModerate(t *testing.T) {
	s, mb, _, _, commenterID, postID := setupTestEnvironment(t)
	ctx := context.Background()

	submit := func() *Comment {
		t.Helper()
		c, err := s.Submit(ctx, &SubmitCommentRequest{
			PostID:     postID,
			UserID:     commenterID,
			AuthorName: "Alice",
			Content:    "Nice post!",
		})
		assert.NoError(t, err)
		return c
	}

	t.Run("invalid status", func(t *testing.T) {
		c := submit()
		_, err := s.Moderate(ctx, c.ID, commenterID, "pending")
		var validationErr common.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("missing comment", func(t *testing.T) {
		_, err := s.Moderate(ctx, 9999, commenterID, StatusApproved)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("approve notifies the post author once", func(t *testing.T) {
		c := submit()
		mb.On("Publish", mock.Anything, mock.Anything, common.CommentApprovedKey, common.CommentExchange).Return(nil).Once()

		moderated, err := s.Moderate(ctx, c.ID, commenterID, StatusApproved)
		assert.NoError(t, err)
		assert.Equal(t, StatusApproved, moderated.Status)
		assert.NotNil(t, moderated.ModeratedAt)
		assert.NotNil(t, moderated.ModeratedBy)

		// re-moderation is rejected and must not notify again
		_, err = s.Moderate(ctx, c.ID, commenterID, StatusRejected)
		assert.ErrorIs(t, err, ErrAlreadyModerated)

		mb.AssertExpectations(t)
	})

	t.Run("reject does not notify", func(t *testing.T) {
		c := submit()
		moderated, err := s.Moderate(ctx, c.ID, commenterID, StatusRejected)
		assert.NoError(t, err)
		assert.Equal(t, StatusRejected, moderated.Status)
		mb.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("broker failure does not fail the decision", func(t *testing.T) {
		c := submit()
		mb.On("Publish", mock.Anything, mock.Anything, common.CommentApprovedKey, common.CommentExchange).Return(assert.AnError).Once()

		moderated, err := s.Moderate(ctx, c.ID, commenterID, StatusApproved)
		assert.NoError(t, err)
		assert.Equal(t, StatusApproved, moderated.Status)
	})
}

func TestListForPost(t *testing.T) {
	s, mb, _, _, commenterID, postID := setupTestEnvironment(t)
	ctx := context.Background()

	first, err := s.Submit(ctx, &SubmitCommentRequest{PostID: postID, UserID: commenterID, AuthorName: "Alice", Content: "First!"})
	assert.NoError(t, err)
	second, err := s.Submit(ctx, &SubmitCommentRequest{PostID: postID, UserID: commenterID, AuthorName: "Bob", Content: "Second!"})
	assert.NoError(t, err)

	mb.On("Publish", mock.Anything, mock.Anything, common.CommentApprovedKey, common.CommentExchange).Return(nil)
	_, err = s.Moderate(ctx, first.ID, commenterID, StatusApproved)
	assert.NoError(t, err)

	t.Run("anonymous viewers get approved only", func(t *testing.T) {
		comments, err := s.ListForPost(ctx, postID, 0, StatusPending)
		assert.NoError(t, err)
		assert.Len(t, comments, 1)
		assert.Equal(t, first.ID, comments[0].ID)
	})

	t.Run("authenticated viewers may filter", func(t *testing.T) {
		comments, err := s.ListForPost(ctx, postID, commenterID, StatusPending)
		assert.NoError(t, err)
		assert.Len(t, comments, 1)
		assert.Equal(t, second.ID, comments[0].ID)
	})

	t.Run("default is approved", func(t *testing.T) {
		comments, err := s.ListForPost(ctx, postID, commenterID, "")
		assert.NoError(t, err)
		assert.Len(t, comments, 1)
		assert.Equal(t, first.ID, comments[0].ID)
	})
}

func TestListPending(t *testing.T) {
	s, _, _, _, commenterID, postID := setupTestEnvironment(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		_, err := s.Submit(ctx, &SubmitCommentRequest{PostID: postID, UserID: commenterID, AuthorName: "Alice", Content: content})
		assert.NoError(t, err)
	}

	comments, meta, err := s.ListPending(ctx, 1, 2)
	assert.NoError(t, err)
	assert.Len(t, comments, 2)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)

	// newest first, carrying post context
	assert.Equal(t, "three", comments[0].Content)
	assert.Equal(t, "Published Post", comments[0].PostTitle)
	assert.Equal(t, "published-post", comments[0].PostSlug)
}
