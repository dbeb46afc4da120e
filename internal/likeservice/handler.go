package likeservice

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/microblogcms/microblog/internal/common"
)

func NewLikeService(db *sql.DB, c *common.Cache, limiter common.Limiter) *LikeService {
	return &LikeService{
		m:       newLikeModel(db),
		c:       c,
		limiter: limiter,
	}
}

// Toggle flips the user's like on a published post and returns the
// resulting state with the post's total like count. Liking an already
// liked post unlikes it. Toggle is self-inverse: two calls restore the
// original state.
func (s *LikeService) Toggle(ctx context.Context, postID, userID int) (*LikeResult, error) {
	if allowed, retryAfter := s.limiter.Check(limiterKey(userID)); !allowed {
		return nil, common.RateLimitError{RetryAfter: retryAfter}
	}

	v := common.NewValidator()
	v.Check(postID > 0, "post_id", "must be greater than zero")
	v.Check(userID > 0, "user_id", "must be greater than zero")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.m.checkPublishedPost(ctx, postID); err != nil {
		return nil, err
	}

	// Insert first: under a race the unique constraint decides who wins,
	// so a toggle either creates the row or finds it already there.
	inserted, err := s.m.insertLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !inserted {
		if err := s.m.deleteLike(ctx, postID, userID); err != nil {
			return nil, err
		}
	}

	count, err := s.m.countLikes(ctx, postID)
	if err != nil {
		return nil, err
	}

	// The cached post carries a like_count snapshot, now stale.
	s.c.Delete(common.CacheKeyPost(postID))

	return &LikeResult{Liked: inserted, LikeCount: count}, nil
}

func limiterKey(userID int) string {
	return "likes:" + strconv.Itoa(userID)
}
