package common

import "fmt"

// RateLimitError is returned when the quota collaborator denies an
// operation. RetryAfter is the number of seconds the caller should wait.
type RateLimitError struct {
	RetryAfter int
}

func (e RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d seconds", e.RetryAfter)
}
