package commentservice

import (
	"github.com/microblogcms/microblog/internal/common"
)

const (
	maxAuthorNameLength = 100
	maxContentLength    = 2000
)

func validateAuthorName(v *common.Validator, name string) {
	v.Check(name != "", "author_name", "must be provided")
	v.Check(v.CheckRuneLength(name, 1, maxAuthorNameLength), "author_name", "must be 100 characters or less")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
	v.Check(v.CheckStringLength(content, 1, maxContentLength), "content", "must be 2000 characters or less")
}

func validateDecision(v *common.Validator, status CommentStatus) {
	ok := status == StatusApproved || status == StatusRejected || status == StatusFlagged
	v.Check(ok, "status", "must be approved, rejected, or flagged")
}

func validateListStatus(v *common.Validator, status CommentStatus) {
	ok := status == StatusPending || status == StatusApproved || status == StatusRejected || status == StatusFlagged
	v.Check(ok, "status", "must be pending, approved, rejected, or flagged")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
