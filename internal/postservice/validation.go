package postservice

import (
	"github.com/microblogcms/microblog/internal/common"
)

const (
	maxTitleLength   = 200
	maxContentLength = 50000
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckRuneLength(title, 1, maxTitleLength), "title", "must be 200 characters or less")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
	v.Check(v.CheckStringLength(content, 1, maxContentLength), "content", "must be 50,000 characters or less")
}

func validateTagCount(v *common.Validator, tags []string) {
	v.Check(len(tags) <= MaxTagsPerPost, "tags", "maximum 5 tags allowed")
}

func validateStatus(v *common.Validator, status PostStatus) {
	v.Check(status == StatusDraft || status == StatusPublished, "status", "must be either draft or published")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
