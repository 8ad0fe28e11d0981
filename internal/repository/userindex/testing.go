package userindex

import "github.com/redis/rueidis"

// NewIndexForTest creates an Index with the provided rueidis client (test-only).
func NewIndexForTest(c rueidis.Client) *Index {
	return &Index{client: c}
}
