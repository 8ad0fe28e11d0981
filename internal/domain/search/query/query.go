package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Paging defaults and caps applied during parsing.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Field is an allowed sort field.
type Field string

const (
	FieldName      Field = "name"
	FieldEmail     Field = "email"
	FieldCreatedAt Field = "createdAt"
	FieldRole      Field = "role"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort pairs a sort field with a direction.
type Sort struct {
	By    Field
	Order Order
}

// Query is a fully-defaulted search query. Every field carries a safe
// default, so a Query built by Parse is never malformed.
type Query struct {
	keyword      string
	role         string
	createdFrom  time.Time // zero = absent, midnight UTC otherwise
	createdTo    time.Time // zero = absent, 23:59:59.999 UTC otherwise
	page         int
	limit        int
	sortBy       Field
	sortOrder    Order
	useSecondary bool
}

// Parse builds a Query from raw request parameters. It is total: malformed
// page/limit values coerce to defaults, unknown sort fields fall back to
// createdAt, unparseable dates are treated as absent, and unrecognized
// parameters are ignored.
func Parse(params url.Values) Query {
	return ParseWithLimits(params, DefaultLimit, MaxLimit)
}

// ParseWithLimits is Parse with a configurable default and maximum page size.
func ParseWithLimits(params url.Values, defaultLimit, maxLimit int) Query {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	q := Query{
		keyword:   strings.TrimSpace(params.Get("keyword")),
		role:      strings.TrimSpace(params.Get("role")),
		page:      parsePositiveInt(params.Get("page"), DefaultPage),
		limit:     parsePositiveInt(params.Get("limit"), defaultLimit),
		sortBy:    parseSortField(params.Get("sortBy")),
		sortOrder: parseSortOrder(params.Get("sortOrder")),
	}
	if q.limit > maxLimit {
		q.limit = maxLimit
	}

	if day, ok := parseDay(params.Get("createdFrom")); ok {
		q.createdFrom = day
	}
	if day, ok := parseDay(params.Get("createdTo")); ok {
		// Expand to the end of the calendar day so the whole day is included.
		q.createdTo = day.Add(24*time.Hour - time.Millisecond)
	}

	q.useSecondary = parseBool(params.Get("useSecondaryIndex"))

	return q
}

// Keyword returns the trimmed free-text keyword; empty means match all.
func (q Query) Keyword() string { return q.keyword }

// Role returns the trimmed role filter; empty means no role filter.
func (q Query) Role() string { return q.role }

// CreatedFrom returns the inclusive lower creation-date bound; zero when absent.
func (q Query) CreatedFrom() time.Time { return q.createdFrom }

// CreatedTo returns the inclusive upper creation-date bound, already expanded
// to the end of its calendar day; zero when absent.
func (q Query) CreatedTo() time.Time { return q.createdTo }

// Page returns the 1-based page number.
func (q Query) Page() int { return q.page }

// Limit returns the page size.
func (q Query) Limit() int { return q.limit }

// SortBy returns the resolved sort field.
func (q Query) SortBy() Field { return q.sortBy }

// SortOrder returns the resolved sort direction.
func (q Query) SortOrder() Order { return q.sortOrder }

// Sort returns the resolved sort field and direction as a pair.
func (q Query) Sort() Sort { return Sort{By: q.sortBy, Order: q.sortOrder} }

// UseSecondaryIndex reports whether the caller asked for the secondary
// full-text index. The coordinator still requires the index to be enabled.
func (q Query) UseSecondaryIndex() bool { return q.useSecondary }

func parsePositiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func parseSortField(raw string) Field {
	switch Field(strings.TrimSpace(raw)) {
	case FieldName:
		return FieldName
	case FieldEmail:
		return FieldEmail
	case FieldRole:
		return FieldRole
	default:
		return FieldCreatedAt
	}
}

func parseSortOrder(raw string) Order {
	if strings.TrimSpace(raw) == string(Asc) {
		return Asc
	}
	return Desc
}

// parseDay parses a calendar date. RFC 3339 timestamps are accepted and
// truncated to their day. The returned time is midnight UTC.
func parseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func parseBool(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}
