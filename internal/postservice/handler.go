package postservice

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"

	"github.com/microblogcms/microblog/internal/common"
)

func NewPostService(db *sql.DB, c *common.Cache, limiter common.Limiter, logger *slog.Logger) *PostService {
	return &PostService{
		m:       newPostModel(db),
		c:       c,
		limiter: limiter,
		logger:  logger,
	}
}

type CreateDraftRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	UserID  int      `json:"user_id"`
}

// CreateDraft creates a new draft post for its author. Tag trouble does
// not fail the request: a tag set that fails normalization, or a tag
// storage error after the post row is in, leaves the post created
// without tags and logs the failure.
func (s *PostService) CreateDraft(ctx context.Context, req *CreateDraftRequest) (*Post, error) {
	if allowed, retryAfter := s.limiter.Check(limiterKey(req.UserID)); !allowed {
		return nil, common.RateLimitError{RetryAfter: retryAfter}
	}

	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateContent(v, req.Content)
	validateTagCount(v, req.Tags)
	validateInt(v, req.UserID, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	tags, err := NormalizeTagSet(req.Tags)
	if err != nil {
		s.logger.Warn("discarding unusable tag set, creating post without tags", slog.Int("user_id", req.UserID), slog.String("error", err.Error()))
		tags = nil
	}

	post := &Post{
		Title:   req.Title,
		Slug:    Slugify(req.Title),
		Content: req.Content,
		UserID:  req.UserID,
	}
	post.User.ID = req.UserID

	if err := s.m.insert(ctx, post); err != nil {
		return nil, err
	}

	// The post row is durable at this point. A tag storage failure does
	// not undo it: the post simply ends up without tags.
	if len(tags) > 0 {
		if err := s.m.attachTags(ctx, post.ID, tags); err != nil {
			s.logger.Warn("could not store tags, post created without tags", slog.Int("post_id", post.ID), slog.String("error", err.Error()))
		} else {
			post.Tags = tags
		}
	}

	return post, nil
}

type UpdateDraftRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// UpdateDraft applies a partial update to a draft. Only the author may
// edit, and only while the post is a draft. A changed title regenerates
// the slug; a provided tag set replaces the existing associations
// wholesale.
func (s *PostService) UpdateDraft(ctx context.Context, postID, actorID int, req *UpdateDraftRequest) (*Post, error) {
	post, err := s.authorDraft(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}

	v := common.NewValidator()
	if req.Title != nil {
		validateTitle(v, *req.Title)
	}
	if req.Content != nil {
		validateContent(v, *req.Content)
	}
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if req.Title != nil {
		post.Title = *req.Title
		post.Slug = Slugify(*req.Title)
	}
	if req.Content != nil {
		post.Content = *req.Content
	}

	var tags []Tag
	replaceTags := req.Tags != nil
	if replaceTags {
		tags, err = NormalizeTagSet(*req.Tags)
		if err != nil {
			return nil, err
		}
	}

	if err := s.m.updatePost(ctx, post, tags, replaceTags); err != nil {
		return nil, err
	}

	s.c.Delete(common.CacheKeyPost(post.ID))

	return post, nil
}

// Publish transitions a draft to published, setting published_at. The
// transition is one way; there is no unpublish.
func (s *PostService) Publish(ctx context.Context, postID, actorID int) (*Post, error) {
	post, err := s.m.getPostById(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.UserID != actorID {
		return nil, ErrNotPostAuthor
	}

	if post.Status == StatusPublished {
		return nil, ErrAlreadyPublished
	}

	if err := s.m.publishPost(ctx, post); err != nil {
		return nil, err
	}

	s.c.Delete(common.CacheKeyPost(post.ID))

	return post, nil
}

// DeleteDraft removes a draft and its tag associations. Published posts
// cannot be deleted.
func (s *PostService) DeleteDraft(ctx context.Context, postID, actorID int) error {
	if _, err := s.authorDraft(ctx, postID, actorID); err != nil {
		return err
	}

	if err := s.m.deletePost(ctx, postID, actorID); err != nil {
		return err
	}

	s.c.Delete(common.CacheKeyPost(postID))

	return nil
}

// GetPostForViewer returns a post if the viewer may see it. Drafts are
// visible only to their author; everyone else gets not-found so that the
// existence of the draft does not leak. viewerID zero means anonymous.
func (s *PostService) GetPostForViewer(ctx context.Context, postID, viewerID int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, postID, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if cached, ok := s.c.Get(common.CacheKeyPost(postID)); ok {
		post := cached.(*Post)
		if post.Status == StatusPublished {
			return post, nil
		}
	}

	post, err := s.m.getPostById(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.Status != StatusPublished {
		if viewerID == 0 || viewerID != post.UserID {
			return nil, ErrRecordNotFound
		}
		return post, nil
	}

	s.c.Set(common.CacheKeyPost(postID), post)

	return post, nil
}

// ListPublished returns the public feed: published posts ordered by
// published_at descending, optionally filtered by canonical tag and an
// inclusive publication date range.
func (s *PostService) ListPublished(ctx context.Context, f Filters) ([]Post, common.Metadata, error) {
	page, perPage := normalizePage(f.Page, f.PerPage)

	posts, total, err := s.m.getPublished(ctx, f.Tag, f.DateFrom, f.DateTo, perPage, (page-1)*perPage)
	if err != nil {
		return nil, common.Metadata{}, err
	}

	return posts, common.NewMetadata(total, page, perPage), nil
}

// ListTags returns every stored tag with its published-post count,
// most used first. Tags used only on drafts show a count of zero.
func (s *PostService) ListTags(ctx context.Context) ([]TagCount, error) {
	return s.m.getTagsWithCounts(ctx)
}

// ListByAuthor returns the author's own posts in one status: drafts by
// last edit descending, published posts by publication time descending.
func (s *PostService) ListByAuthor(ctx context.Context, userID int, status PostStatus, page, perPage int) ([]Post, common.Metadata, error) {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	validateStatus(v, status)
	if !v.Valid() {
		return nil, common.Metadata{}, v.ValidationError()
	}

	page, perPage = normalizePage(page, perPage)

	posts, total, err := s.m.getByAuthor(ctx, userID, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, common.Metadata{}, err
	}

	return posts, common.NewMetadata(total, page, perPage), nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 50 {
		perPage = 50
	}
	return page, perPage
}

func limiterKey(userID int) string {
	return "posts:" + strconv.Itoa(userID)
}

// authorDraft loads a post and checks that the actor owns it and that it
// is still editable.
func (s *PostService) authorDraft(ctx context.Context, postID, actorID int) (*Post, error) {
	post, err := s.m.getPostById(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.UserID != actorID {
		return nil, ErrNotPostAuthor
	}

	if post.Status != StatusDraft {
		return nil, ErrPostNotDraft
	}

	return post, nil
}
