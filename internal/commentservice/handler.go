package commentservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/microblogcms/microblog/internal/common"
)

func NewCommentService(db *sql.DB, mb common.MessageProducer, limiter common.Limiter, logger *slog.Logger) *CommentService {
	return &CommentService{
		m:       newCommentModel(db),
		mb:      mb,
		limiter: limiter,
		logger:  logger,
	}
}

type SubmitCommentRequest struct {
	PostID     int    `json:"post_id"`
	UserID     int    `json:"user_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
}

// Submit creates a pending comment on a published post. Drafts and
// missing posts both read as not-found.
func (s *CommentService) Submit(ctx context.Context, req *SubmitCommentRequest) (*Comment, error) {
	if allowed, retryAfter := s.limiter.Check(limiterKey(req.UserID)); !allowed {
		return nil, common.RateLimitError{RetryAfter: retryAfter}
	}

	v := common.NewValidator()
	validateInt(v, req.PostID, "post_id")
	validateInt(v, req.UserID, "user_id")
	validateAuthorName(v, req.AuthorName)
	validateContent(v, req.Content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	c := &Comment{
		PostID:     req.PostID,
		UserID:     req.UserID,
		AuthorName: req.AuthorName,
		Content:    req.Content,
	}

	if err := s.m.insert(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// commentApprovedMessage is the payload handed to the notification
// consumer when a comment is approved.
type commentApprovedMessage struct {
	Email      string
	PostTitle  string
	PostID     int
	AuthorName string
	Content    string
}

// Moderate applies a one-shot decision to a pending comment. A comment
// that has already been decided is not decided again. Approval triggers
// a best-effort notification to the post author; a notification failure
// never rolls back the decision.
func (s *CommentService) Moderate(ctx context.Context, commentID, moderatorID int, status CommentStatus) (*Comment, error) {
	v := common.NewValidator()
	validateInt(v, commentID, "id")
	validateInt(v, moderatorID, "moderator_id")
	validateDecision(v, status)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	cc, err := s.m.getCommentWithPost(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if cc.comment.Status != StatusPending {
		return nil, ErrAlreadyModerated
	}

	if err := s.m.moderate(ctx, &cc.comment, moderatorID, status); err != nil {
		return nil, err
	}

	if status == StatusApproved {
		s.notifyPostAuthor(ctx, cc)
	}

	return &cc.comment, nil
}

// notifyPostAuthor publishes the comment.approved event. The moderation
// decision is already durable at this point, so a broker failure is
// logged and dropped.
func (s *CommentService) notifyPostAuthor(ctx context.Context, cc *commentContext) {
	msg, err := json.Marshal(commentApprovedMessage{
		Email:      cc.authorEmail,
		PostTitle:  cc.comment.PostTitle,
		PostID:     cc.comment.PostID,
		AuthorName: cc.comment.AuthorName,
		Content:    cc.comment.Content,
	})
	if err != nil {
		s.logger.Error("could not marshal comment approved message", slog.String("error", err.Error()))
		return
	}

	err = s.mb.Publish(ctx, msg, common.CommentApprovedKey, common.CommentExchange)
	if err != nil {
		s.logger.Error("could not publish comment approved message", slog.Int("comment_id", cc.comment.ID), slog.String("error", err.Error()))
	}
}

// ListForPost returns one status of a post's comments, oldest first.
// Anonymous viewers always get approved comments no matter what they ask
// for; authenticated viewers may pick a status and default to approved.
func (s *CommentService) ListForPost(ctx context.Context, postID, viewerID int, status CommentStatus) ([]Comment, error) {
	v := common.NewValidator()
	validateInt(v, postID, "post_id")

	if viewerID == 0 || status == "" {
		status = StatusApproved
	}
	validateListStatus(v, status)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.getForPost(ctx, postID, status)
}

// ListPending pages the moderation queue, newest first.
func (s *CommentService) ListPending(ctx context.Context, page, perPage int) ([]Comment, common.Metadata, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 50 {
		perPage = 50
	}

	comments, total, err := s.m.getPending(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, common.Metadata{}, err
	}

	return comments, common.NewMetadata(total, page, perPage), nil
}

func limiterKey(userID int) string {
	return "comments:" + strconv.Itoa(userID)
}
