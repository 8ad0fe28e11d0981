package query

import (
	"net/url"
	"testing"
	"time"
)

func params(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func TestParse_Defaults(t *testing.T) {
	q := Parse(url.Values{})

	if q.Page() != DefaultPage {
		t.Errorf("expected page %d, got %d", DefaultPage, q.Page())
	}
	if q.Limit() != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, q.Limit())
	}
	if q.Keyword() != "" {
		t.Errorf("expected empty keyword, got %q", q.Keyword())
	}
	if q.Role() != "" {
		t.Errorf("expected empty role, got %q", q.Role())
	}
	if q.SortBy() != FieldCreatedAt {
		t.Errorf("expected sortBy createdAt, got %q", q.SortBy())
	}
	if q.SortOrder() != Desc {
		t.Errorf("expected sortOrder desc, got %q", q.SortOrder())
	}
	if q.UseSecondaryIndex() {
		t.Error("expected useSecondaryIndex false")
	}
	if !q.CreatedFrom().IsZero() || !q.CreatedTo().IsZero() {
		t.Error("expected absent date bounds")
	}
}

func TestParse_PageAndLimitCoercion(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
	}{
		{"valid", "3", "25", 3, 25},
		{"zero", "0", "0", DefaultPage, DefaultLimit},
		{"negative", "-2", "-5", DefaultPage, DefaultLimit},
		{"garbage", "abc", "x1", DefaultPage, DefaultLimit},
		{"empty", "", "", DefaultPage, DefaultLimit},
		{"over cap", "1", "5000", 1, MaxLimit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Parse(params("page", tc.page, "limit", tc.limit))
			if q.Page() != tc.wantPage {
				t.Errorf("page = %d, want %d", q.Page(), tc.wantPage)
			}
			if q.Limit() != tc.wantLimit {
				t.Errorf("limit = %d, want %d", q.Limit(), tc.wantLimit)
			}
		})
	}
}

func TestParse_SortAllowList(t *testing.T) {
	tests := []struct {
		raw  string
		want Field
	}{
		{"name", FieldName},
		{"email", FieldEmail},
		{"createdAt", FieldCreatedAt},
		{"role", FieldRole},
		{"password", FieldCreatedAt},
		{"id; DROP TABLE users", FieldCreatedAt},
		{"", FieldCreatedAt},
	}
	for _, tc := range tests {
		q := Parse(params("sortBy", tc.raw))
		if q.SortBy() != tc.want {
			t.Errorf("sortBy %q resolved to %q, want %q", tc.raw, q.SortBy(), tc.want)
		}
	}
}

func TestParse_SortOrder(t *testing.T) {
	if got := Parse(params("sortOrder", "asc")).SortOrder(); got != Asc {
		t.Errorf("asc resolved to %q", got)
	}
	for _, raw := range []string{"desc", "ASC", "ascending", "", "random"} {
		if got := Parse(params("sortOrder", raw)).SortOrder(); got != Desc {
			t.Errorf("sortOrder %q resolved to %q, want desc", raw, got)
		}
	}
}

func TestParse_TrimsKeywordAndRole(t *testing.T) {
	q := Parse(params("keyword", "  ann  ", "role", " Admin "))
	if q.Keyword() != "ann" {
		t.Errorf("keyword = %q", q.Keyword())
	}
	if q.Role() != "Admin" {
		t.Errorf("role = %q", q.Role())
	}

	q = Parse(params("keyword", "   "))
	if q.Keyword() != "" {
		t.Errorf("whitespace keyword should be empty, got %q", q.Keyword())
	}
}

func TestParse_Dates(t *testing.T) {
	q := Parse(params("createdFrom", "2024-01-10", "createdTo", "2024-01-15"))

	wantFrom := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if !q.CreatedFrom().Equal(wantFrom) {
		t.Errorf("createdFrom = %v, want %v", q.CreatedFrom(), wantFrom)
	}

	// createdTo is expanded to the end of the calendar day.
	wantTo := time.Date(2024, 1, 15, 23, 59, 59, 999000000, time.UTC)
	if !q.CreatedTo().Equal(wantTo) {
		t.Errorf("createdTo = %v, want %v", q.CreatedTo(), wantTo)
	}
}

func TestParse_DateIncludesWholeFinalDay(t *testing.T) {
	q := Parse(params("createdTo", "2024-01-15"))
	record := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
	if record.After(q.CreatedTo()) {
		t.Errorf("record at %v should fall inside createdTo bound %v", record, q.CreatedTo())
	}
}

func TestParse_RFC3339DateTruncatedToDay(t *testing.T) {
	q := Parse(params("createdFrom", "2024-03-05T14:30:00Z"))
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !q.CreatedFrom().Equal(want) {
		t.Errorf("createdFrom = %v, want %v", q.CreatedFrom(), want)
	}
}

func TestParse_InvalidDatesIgnored(t *testing.T) {
	q := Parse(params("createdFrom", "not-a-date", "createdTo", "15/01/2024"))
	if !q.CreatedFrom().IsZero() || !q.CreatedTo().IsZero() {
		t.Error("invalid dates should be treated as absent")
	}
}

func TestParse_UseSecondaryIndex(t *testing.T) {
	for raw, want := range map[string]bool{
		"true": true, "1": true, "TRUE": true,
		"false": false, "0": false, "yes": false, "": false,
	} {
		q := Parse(params("useSecondaryIndex", raw))
		if q.UseSecondaryIndex() != want {
			t.Errorf("useSecondaryIndex %q = %v, want %v", raw, q.UseSecondaryIndex(), want)
		}
	}
}

func TestParse_IgnoresUnknownParams(t *testing.T) {
	q := Parse(params("keyword", "ann", "unknown", "whatever", "x", "y"))
	if q.Keyword() != "ann" {
		t.Errorf("keyword = %q", q.Keyword())
	}
}

func TestParseWithLimits_CustomPolicy(t *testing.T) {
	q := ParseWithLimits(params(), 20, 50)
	if q.Limit() != 20 {
		t.Errorf("default limit = %d, want 20", q.Limit())
	}

	q = ParseWithLimits(params("limit", "200"), 20, 50)
	if q.Limit() != 50 {
		t.Errorf("capped limit = %d, want 50", q.Limit())
	}
}
