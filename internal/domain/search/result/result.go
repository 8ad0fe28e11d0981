package result

import (
	"time"

	"github.com/kailas-cloud/userdex/internal/domain/search/page"
	"github.com/kailas-cloud/userdex/internal/domain/search/predicate"
	"github.com/kailas-cloud/userdex/internal/domain/user"
)

// ScoredRecord is a user record plus a transient relevance score. Scored is
// false when the query carried no keyword; the score is then meaningless
// and must not be surfaced.
type ScoredRecord struct {
	User   user.User
	Score  float64
	Scored bool
}

// Filters echoes the filter values a query actually resolved to. Nil fields
// were absent from the query.
type Filters struct {
	Keyword     *string
	Role        *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Result is a fully assembled search response: the page of records, the
// pagination metadata, and the echoed filters. It is built fresh per request
// and not mutated afterwards.
type Result struct {
	Users      []ScoredRecord
	Pagination page.Info
	Filters    Filters
}

// Assemble merges a backend's output with pagination metadata and the echoed
// filters. It performs no filtering or sorting of its own.
func Assemble(records []ScoredRecord, info page.Info, pred predicate.Predicate) Result {
	if records == nil {
		records = []ScoredRecord{}
	}
	return Result{
		Users:      records,
		Pagination: info,
		Filters:    echo(pred),
	}
}

func echo(pred predicate.Predicate) Filters {
	var f Filters
	if pred.HasKeyword() {
		kw := pred.Keyword()
		f.Keyword = &kw
	}
	if pred.HasRole() {
		role := pred.Role()
		f.Role = &role
	}
	if from := pred.CreatedFrom(); !from.IsZero() {
		f.CreatedFrom = &from
	}
	if to := pred.CreatedTo(); !to.IsZero() {
		f.CreatedTo = &to
	}
	return f
}
