package predicate

import (
	"net/url"
	"testing"

	"github.com/kailas-cloud/userdex/internal/domain/search/query"
)

func TestBuild_CarriesAllFilters(t *testing.T) {
	params := url.Values{}
	params.Set("keyword", "ann")
	params.Set("role", "Admin")
	params.Set("createdFrom", "2024-01-01")
	params.Set("createdTo", "2024-02-01")

	q := query.Parse(params)
	p := Build(q)

	if p.Keyword() != "ann" {
		t.Errorf("keyword = %q", p.Keyword())
	}
	if p.Role() != "Admin" {
		t.Errorf("role = %q", p.Role())
	}
	if !p.CreatedFrom().Equal(q.CreatedFrom()) {
		t.Errorf("createdFrom = %v, want %v", p.CreatedFrom(), q.CreatedFrom())
	}
	if !p.CreatedTo().Equal(q.CreatedTo()) {
		t.Errorf("createdTo = %v, want %v", p.CreatedTo(), q.CreatedTo())
	}
	if !p.HasKeyword() || !p.HasRole() || !p.HasDateRange() {
		t.Error("all presence flags should be set")
	}
	if p.IsEmpty() {
		t.Error("predicate with filters must not be empty")
	}
}

func TestBuild_KeywordKeptVerbatim(t *testing.T) {
	params := url.Values{}
	params.Set("keyword", `50%_off\deal`)

	p := Build(query.Parse(params))
	if p.Keyword() != `50%_off\deal` {
		t.Errorf("keyword = %q, want the literal text", p.Keyword())
	}
}

func TestZeroPredicate_MatchesAll(t *testing.T) {
	var p Predicate
	if !p.IsEmpty() {
		t.Error("zero predicate should be empty")
	}
	if p.HasKeyword() || p.HasRole() || p.HasDateRange() {
		t.Error("zero predicate should report no filters")
	}
}

func TestHasDateRange_SingleBound(t *testing.T) {
	params := url.Values{}
	params.Set("createdFrom", "2024-01-01")

	p := Build(query.Parse(params))
	if !p.HasDateRange() {
		t.Error("lower bound alone should count as a date range")
	}
	if p.IsEmpty() {
		t.Error("predicate with a date bound must not be empty")
	}
}
