package score

import (
	"strings"

	"github.com/kailas-cloud/userdex/internal/domain/user"
)

// Per-field score contributions. Name and email are weighted equally, so
// the maximum score is 2*ExactMatch.
const (
	ExactMatch = 100
	Substring  = 50
)

// User computes the relevance of a record against a non-empty keyword by
// summing the name and email field scores. The score only orders results;
// it never filters them. Callers skip scoring entirely for empty keywords.
func User(u user.User, keyword string) float64 {
	kw := strings.ToLower(keyword)
	return float64(fieldScore(u.Name, kw) + fieldScore(u.Email, kw))
}

func fieldScore(value, lowerKeyword string) int {
	v := strings.ToLower(value)
	switch {
	case v == lowerKeyword:
		return ExactMatch
	case strings.Contains(v, lowerKeyword):
		return Substring
	default:
		return 0
	}
}
