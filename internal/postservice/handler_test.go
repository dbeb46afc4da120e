package postservice

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/microblogcms/microblog/internal/common"
	"github.com/stretchr/testify/assert"
)

func setupTestUser(db *sql.DB, username, email string) (int, error) {
	query := `
		INSERT INTO users (username, email, password, activated)
		VALUES ($1, $2, $3, true)
		RETURNING id`

	var id int
	err := db.QueryRow(query, username, email, []byte("x")).Scan(&id)
	return id, err
}

func setupTestEnvironment(t *testing.T) (*PostService, *sql.DB, int) {
	db := common.TestDB("file://../../migrations", t)
	cache := common.NewCache(5*time.Minute, 10*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	userID, err := setupTestUser(db, "testauthor", "author@example.com")
	assert.NoError(t, err)

	return NewPostService(db, cache, common.UnlimitedLimiter{}, logger), db, userID
}

func TestCreateDraft(t *testing.T) {
	s, _, userID := setupTestEnvironment(t)
	ctx := context.Background()

	testCases := []struct {
		name        string
		req         *CreateDraftRequest
		wantErr     error
		wantField   string
		check       func(t *testing.T, post *Post)
	}{
		{
			name: "valid draft with tags",
			req: &CreateDraftRequest{
				Title:   "Hello World",
				Content: "Body text",
				Tags:    []string{"Web Dev", "api"},
				UserID:  userID,
			},
			check: func(t *testing.T, post *Post) {
				assert.Equal(t, StatusDraft, post.Status)
				assert.Equal(t, "hello-world", post.Slug)
				assert.Nil(t, post.PublishedAt)
				names := []string{}
				for _, tag := range post.Tags {
					names = append(names, tag.Name)
				}
				assert.Equal(t, []string{"web-dev", "api"}, names)
			},
		},
		{
			name: "empty title",
			req: &CreateDraftRequest{
				Content: "Body text",
				UserID:  userID,
			},
			wantField: "title",
		},
		{
			name: "title too long",
			req: &CreateDraftRequest{
				Title:   strings.Repeat("a", 201),
				Content: "Body text",
				UserID:  userID,
			},
			wantField: "title",
		},
		{
			name: "empty content",
			req: &CreateDraftRequest{
				Title:  "Hello World",
				UserID: userID,
			},
			wantField: "content",
		},
		{
			name: "content too long",
			req: &CreateDraftRequest{
				Title:   "Hello World",
				Content: strings.Repeat("a", 50001),
				UserID:  userID,
			},
			wantField: "content",
		},
		{
			name: "too many tags",
			req: &CreateDraftRequest{
				Title:   "Hello World",
				Content: "Body text",
				Tags:    []string{"a", "b", "c", "d", "e", "f"},
				UserID:  userID,
			},
			wantField: "tags",
		},
		{
			name: "unusable tags are swallowed",
			req: &CreateDraftRequest{
				Title:   "Tagless",
				Content: "Body text",
				Tags:    []string{"!!!", "???"},
				UserID:  userID,
			},
			check: func(t *testing.T, post *Post) {
				assert.Equal(t, StatusDraft, post.Status)
				assert.Empty(t, post.Tags)
			},
		},
		{
			name: "overlong tag capped at column width",
			req: &CreateDraftRequest{
				Title:   "Long Tag",
				Content: "Body text",
				Tags:    []string{strings.Repeat("x", 55)},
				UserID:  userID,
			},
			check: func(t *testing.T, post *Post) {
				assert.Len(t, post.Tags, 1)
				assert.Len(t, post.Tags[0].Name, MaxTagLength)
				assert.Len(t, post.Tags[0].DisplayName, MaxTagLength)
			},
		},
		{
			name: "unknown author",
			req: &CreateDraftRequest{
				Title:   "Hello World",
				Content: "Body text",
				UserID:  9999,
			},
			wantErr: ErrUserForeignKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			post, err := s.CreateDraft(ctx, tc.req)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.wantField != "":
				var validationErr common.ValidationError
				assert.ErrorAs(t, err, &validationErr)
				assert.Contains(t, validationErr.Errors, tc.wantField)
			default:
				assert.NoError(t, err)
				tc.check(t, post)
			}
		})
	}
}

// A tag storage failure after the post row is written must not take the
// post down with it. The post simply comes back without tags.
func TestCreateDraftSurvivesTagStorageFailure(t *testing.T) {
	s, db, userID := setupTestEnvironment(t)
	ctx := context.Background()

	// Shrink the column so the tag insert fails after the post insert
	// has succeeded.
	_, err := db.Exec("ALTER TABLE tags ALTER COLUMN display_name TYPE varchar(5)")
	assert.NoError(t, err)

	post, err := s.CreateDraft(ctx, &CreateDraftRequest{
		Title:   "Resilient",
		Content: "Body text",
		Tags:    []string{"Distributed Systems"},
		UserID:  userID,
	})
	assert.NoError(t, err)
	assert.Empty(t, post.Tags)

	var posts int
	err = db.QueryRow("SELECT count(*) FROM posts WHERE id = $1", post.ID).Scan(&posts)
	assert.NoError(t, err)
	assert.Equal(t, 1, posts)

	var links int
	err = db.QueryRow("SELECT count(*) FROM post_tags WHERE post_id = $1", post.ID).Scan(&links)
	assert.NoError(t, err)
	assert.Zero(t, links)
}

func TestListTags(t *testing.T) {
	s, _, userID := setupTestEnvironment(t)
	ctx := context.Background()

	first, err := s.CreateDraft(ctx, &CreateDraftRequest{Title: "First", Content: "Body text", Tags: []string{"Go", "databases"}, UserID: userID})
	assert.NoError(t, err)
	second, err := s.CreateDraft(ctx, &CreateDraftRequest{Title: "Second", Content: "Body text", Tags: []string{"go"}, UserID: userID})
	assert.NoError(t, err)
	_, err = s.CreateDraft(ctx, &CreateDraftRequest{Title: "Third", Content: "Body text", Tags: []string{"drafts-only"}, UserID: userID})
	assert.NoError(t, err)

	_, err = s.Publish(ctx, first.ID, userID)
	assert.NoError(t, err)
	_, err = s.Publish(ctx, second.ID, userID)
	assert.NoError(t, err)

	tags, err := s.ListTags(ctx)
	assert.NoError(t, err)
	assert.Len(t, tags, 3)

	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, "Go", tags[0].DisplayName)
	assert.Equal(t, 2, tags[0].PostCount)

	assert.Equal(t, "databases", tags[1].Name)
	assert.Equal(t, 1, tags[1].PostCount)

	assert.Equal(t, "drafts-only", tags[2].Name)
	assert.Zero(t, tags[2].PostCount)
}

func TestUpdateDraft(t *testing.T) {
	s, _, userID := setupTestEnvironment(t)
	ctx := context.Background()

	otherID, err := setupTestUser(s.m.db, "otheruser", "other@example.com")
	assert.NoError(t, err)

	draft, err := s.CreateDraft(ctx, &CreateDraftRequest{
		Title:   "Original Title",
		Content: "Original content",
		Tags:    []string{"golang"},
		UserID:  userID,
	})
	assert.NoError(t, err)

	t.Run("non-author cannot edit", func(t *testing.T) {
		_, err := s.UpdateDraft(ctx, draft.ID, otherID, &UpdateDraftRequest{})
		assert.ErrorIs(t, err, ErrNotPostAuthor)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := s.UpdateDraft(ctx, 9999, userID, &UpdateDraftRequest{})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("title change regenerates slug", func(t *testing.T) {
		title := "A Brand New Title"
		updated, err := s.UpdateDraft(ctx, draft.ID, userID, &UpdateDraftRequest{Title: &title})
		assert.NoError(t, err)
		assert.Equal(t, "a-brand-new-title", updated.Slug)
		assert.Equal(t, "Original content", updated.Content)
	})

	t.Run("tags replaced wholesale", func(t *testing.T) {
		tags := []string{"Rust", "systems"}
		updated, err := s.UpdateDraft(ctx, draft.ID, userID, &UpdateDraftRequest{Tags: &tags})
		assert.NoError(t, err)

		names := []string{}
		for _, tag := range updated.Tags {
			names = append(names, tag.Name)
		}
		assert.ElementsMatch(t, []string{"rust", "systems"}, names)

		got, err := s.GetPostForViewer(ctx, draft.ID, userID)
		assert.NoError(t, err)
		assert.Len(t, got.Tags, 2)
	})

	t.Run("invalid tag set rejected", func(t *testing.T) {
		tags := []string{"a", "b", "c", "d", "e", "f"}
		_, err := s.UpdateDraft(ctx, draft.ID, userID, &UpdateDraftRequest{Tags: &tags})
		var validationErr common.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "tags")
	})

	t.Run("published post cannot be edited", func(t *testing.T) {
		_, err := s.Publish(ctx, draft.ID, userID)
		assert.NoError(t, err)

		title := "Too Late"
		_, err = s.UpdateDraft(ctx, draft.ID, userID, &UpdateDraftRequest{Title: &title})
		assert.ErrorIs(t, err, ErrPostNotDraft)
	})
}

func TestPublish(t *testing.T) {
	s, _, userID := setupTestEnvironment(t)
	ctx := context.Background()

	otherID, err := setupTestUser(s.m.db, "otheruser", "other@example.com")
	assert.NoError(t, err)

	draft, err := s.CreateDraft(ctx, &CreateDraftRequest{
		Title:   "Hello World",
		Content: "Body text",
		UserID:  userID,
	})
	assert.NoError(t, err)

	t.Run("non-author cannot publish", func(t *testing.T) {
		_, err := s.Publish(ctx, draft.ID, otherID)
		assert.ErrorIs(t, err, ErrNotPostAuthor)
	})

	t.Run("publish sets published_at", func(t *testing.T) {
		published, err := s.Publish(ctx, draft.ID, userID)
		assert.NoError(t, err)
		assert.Equal(t, StatusPublished, published.Status)
		assert.NotNil(t, published.PublishedAt)
	})

	t.Run("publish is one way", func(t *testing.T) {
		_, err := s.Publish(ctx, draft.ID, userID)
		assert.ErrorIs(t, err, ErrAlreadyPublished)
	})

	t.Run("published post cannot be deleted", func(t *testing.T) {
		err := s.DeleteDraft(ctx, draft.ID, userID)
		assert.ErrorIs(t, err, ErrPostNotDraft)
	})
}

func TestDeleteDraft(t *testing.T) {
	s, db, userID := setupTestEnvironment(t)
	ctx := context.Background()

	draft, err := s.CreateDraft(ctx, &CreateDraftRequest{
		Title:   "Disposable",
		Content: "Body text",
		Tags:    []string{"temp"},
		UserID:  userID,
	})
	assert.NoError(t, err)

	err = s.DeleteDraft(ctx, draft.ID, userID)
	assert.NoError(t, err)

	_, err = s.GetPostForViewer(ctx, draft.ID, userID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	// tag associations went with the post; the tag itself stays
	var associations int
	err = db.QueryRow("SELECT count(*) FROM post_tags WHERE post_id = $1", draft.ID).Scan(&associations)
	assert.NoError(t, err)
	assert.Zero(t, associations)

	var tagCount int
	err = db.QueryRow("SELECT count(*) FROM tags WHERE name = 'temp'").Scan(&tagCount)
	assert.NoError(t, err)
	assert.Equal(t, 1, tagCount)
}

func TestGetPostForViewer(t *testing.T) {
	s, _, userID := setupTestEnvironment(t)
	ctx := context.Background()

	otherID, err := setupTestUser(s.m.db, "otheruser", "other@example.com")
	assert.NoError(t, err)

	draft, err := s.CreateDraft(ctx, &CreateDraftRequest{
		Title:   "Secret Draft",
		Content: "Body text",
		UserID:  userID,
	})
	assert.NoError(t, err)

	t.Run("author sees own draft", func(t *testing.T) {
		post, err := s.GetPostForViewer(ctx, draft.ID, userID)
		assert.NoError(t, err)
		assert.Equal(t, StatusDraft, post.Status)
	})

	t.Run("draft is hidden from other users", func(t *testing.T) {
		_, err := s.GetPostForViewer(ctx, draft.ID, otherID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("draft is hidden from anonymous viewers", func(t *testing.T) {
		_, err := s.GetPostForViewer(ctx, draft.ID, 0)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("published post is visible to everyone", func(t *testing.T) {
		_, err := s.Publish(ctx, draft.ID, userID)
		assert.NoError(t, err)

		post, err := s.GetPostForViewer(ctx, draft.ID, 0)
		assert.NoError(t, err)
		assert.Equal(t, StatusPublished, post.Status)
	})
}

func TestListPublished(t *testing.T) {
	s, _, userID := setupTestEnvironment(t)
	ctx := context.Background()

	publish := func(title string, tags []string) *Post {
		t.Helper()
		draft, err := s.CreateDraft(ctx, &CreateDraftRequest{Title: title, Content: "Body text", Tags: tags, UserID: userID})
		assert.NoError(t, err)
		post, err := s.Publish(ctx, draft.ID, userID)
		assert.NoError(t, err)
		return post
	}

	first := publish("First Post", []string{"golang"})
	second := publish("Second Post", []string{"golang", "testing"})
	third := publish("Third Post", nil)

	// one draft that must never appear in the feed
	_, err := s.CreateDraft(ctx, &CreateDraftRequest{Title: "Hidden Draft", Content: "Body text", UserID: userID})
	assert.NoError(t, err)

	t.Run("newest publication first", func(t *testing.T) {
		posts, meta, err := s.ListPublished(ctx, Filters{})
		assert.NoError(t, err)
		assert.Len(t, posts, 3)
		assert.Equal(t, third.ID, posts[0].ID)
		assert.Equal(t, first.ID, posts[2].ID)
		assert.Equal(t, 3, meta.Total)
		assert.Equal(t, 1, meta.TotalPages)
	})

	t.Run("tag filter", func(t *testing.T) {
		posts, meta, err := s.ListPublished(ctx, Filters{Tag: "testing"})
		assert.NoError(t, err)
		assert.Len(t, posts, 1)
		assert.Equal(t, second.ID, posts[0].ID)
		assert.Equal(t, 1, meta.Total)
	})

	t.Run("pagination", func(t *testing.T) {
		posts, meta, err := s.ListPublished(ctx, Filters{Page: 2, PerPage: 2})
		assert.NoError(t, err)
		assert.Len(t, posts, 1)
		assert.Equal(t, 3, meta.Total)
		assert.Equal(t, 2, meta.TotalPages)
	})

	t.Run("date range excludes everything in the past", func(t *testing.T) {
		from := time.Now().Add(time.Hour)
		posts, meta, err := s.ListPublished(ctx, Filters{DateFrom: &from})
		assert.NoError(t, err)
		assert.Empty(t, posts)
		assert.Zero(t, meta.Total)
	})
}

func TestListByAuthor(t *testing.T) {
	s, _, userID := setupTestEnvironment(t)
	ctx := context.Background()

	draft, err := s.CreateDraft(ctx, &CreateDraftRequest{Title: "My Draft", Content: "Body text", UserID: userID})
	assert.NoError(t, err)

	published, err := s.CreateDraft(ctx, &CreateDraftRequest{Title: "My Published", Content: "Body text", UserID: userID})
	assert.NoError(t, err)
	_, err = s.Publish(ctx, published.ID, userID)
	assert.NoError(t, err)

	t.Run("drafts only", func(t *testing.T) {
		posts, meta, err := s.ListByAuthor(ctx, userID, StatusDraft, 1, 10)
		assert.NoError(t, err)
		assert.Len(t, posts, 1)
		assert.Equal(t, draft.ID, posts[0].ID)
		assert.Equal(t, 1, meta.Total)
	})

	t.Run("published only", func(t *testing.T) {
		posts, _, err := s.ListByAuthor(ctx, userID, StatusPublished, 1, 10)
		assert.NoError(t, err)
		assert.Len(t, posts, 1)
		assert.Equal(t, published.ID, posts[0].ID)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, _, err := s.ListByAuthor(ctx, userID, "archived", 1, 10)
		var validationErr common.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}
