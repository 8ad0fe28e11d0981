package predicate

import (
	"time"

	"github.com/kailas-cloud/userdex/internal/domain/search/query"
)

// Predicate is a backend-neutral description of the filters a search query
// resolved to: an optional case-insensitive substring match over name and
// email, an optional role equality, and an optional closed creation-date
// range. The zero value matches all records.
//
// The keyword is carried verbatim. Backends must match it as a literal
// substring: characters with special meaning in a backend's pattern language
// have to be escaped when the backend builds its native query.
type Predicate struct {
	keyword     string
	role        string
	createdFrom time.Time
	createdTo   time.Time
}

// Build resolves a normalized query into a predicate.
func Build(q query.Query) Predicate {
	return Predicate{
		keyword:     q.Keyword(),
		role:        q.Role(),
		createdFrom: q.CreatedFrom(),
		createdTo:   q.CreatedTo(),
	}
}

// Keyword returns the literal keyword; empty means no keyword filter.
func (p Predicate) Keyword() string { return p.keyword }

// Role returns the exact role to match; empty means no role filter.
func (p Predicate) Role() string { return p.role }

// CreatedFrom returns the closed lower creation bound; zero when absent.
func (p Predicate) CreatedFrom() time.Time { return p.createdFrom }

// CreatedTo returns the closed upper creation bound; zero when absent.
func (p Predicate) CreatedTo() time.Time { return p.createdTo }

// HasKeyword reports whether a keyword filter is present.
func (p Predicate) HasKeyword() bool { return p.keyword != "" }

// HasRole reports whether a role filter is present.
func (p Predicate) HasRole() bool { return p.role != "" }

// HasDateRange reports whether at least one creation-date bound is present.
func (p Predicate) HasDateRange() bool {
	return !p.createdFrom.IsZero() || !p.createdTo.IsZero()
}

// IsEmpty reports whether the predicate matches all records.
func (p Predicate) IsEmpty() bool {
	return !p.HasKeyword() && !p.HasRole() && !p.HasDateRange()
}
