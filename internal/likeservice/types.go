package likeservice

import (
	"database/sql"

	"github.com/microblogcms/microblog/internal/common"
)

type LikeModel struct {
	db *sql.DB
}

type LikeService struct {
	m       *LikeModel
	c       *common.Cache
	limiter common.Limiter
}

// LikeResult is the post's like state for the toggling user after the
// toggle has been applied.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}
