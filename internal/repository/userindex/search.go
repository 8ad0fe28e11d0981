package userindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/userdex/internal/domain/search/predicate"
	"github.com/kailas-cloud/userdex/internal/domain/search/query"
	"github.com/kailas-cloud/userdex/internal/domain/search/result"
	"github.com/kailas-cloud/userdex/internal/domain/user"
)

// Search runs one page of an FT.SEARCH against the user index and maps the
// hits, carrying the index's own relevance scores, into scored records.
//
// With a keyword the index ranks by its native text score (WITHSCORES);
// without one it sorts by the requested field, so ordering semantics match
// the primary path's keywordless behavior.
func (ix *Index) Search(
	ctx context.Context, pred predicate.Predicate, sort query.Sort, offset, limit int,
) ([]result.ScoredRecord, int, error) {
	scored := pred.HasKeyword()

	args := []string{indexName, buildQuery(pred)}
	if scored {
		args = append(args, "WITHSCORES")
	} else {
		args = append(args, "SORTBY", sortColumn(sort.By), sortDirection(sort.Order))
	}
	args = append(args,
		"LIMIT", strconv.Itoa(offset), strconv.Itoa(limit),
		"DIALECT", "2",
	)

	cmd := ix.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := ix.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}

	return parseSearchResult(raw, scored)
}

// buildQuery translates the predicate into an FT.SEARCH query string. The
// keyword is escaped so query-syntax metacharacters are matched literally.
func buildQuery(pred predicate.Predicate) string {
	var parts []string

	if pred.HasKeyword() {
		parts = append(parts, fmt.Sprintf("@name|email:(%s)", escapeQuery(pred.Keyword())))
	}
	if pred.HasRole() {
		parts = append(parts, buildTagFilter("role", pred.Role()))
	}
	if pred.HasDateRange() {
		parts = append(parts, buildCreatedRange(pred.CreatedFrom(), pred.CreatedTo()))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

func buildCreatedRange(from, to time.Time) string {
	minBound := "-inf"
	maxBound := "+inf"
	if !from.IsZero() {
		minBound = strconv.FormatInt(from.UnixMilli(), 10)
	}
	if !to.IsZero() {
		maxBound = strconv.FormatInt(to.UnixMilli(), 10)
	}
	return fmt.Sprintf("@created_at:[%s %s]", minBound, maxBound)
}

func sortColumn(f query.Field) string {
	switch f {
	case query.FieldName:
		return "name"
	case query.FieldEmail:
		return "email"
	case query.FieldRole:
		return "role"
	default:
		return "created_at"
	}
}

func sortDirection(o query.Order) string {
	if o == query.Asc {
		return "ASC"
	}
	return "DESC"
}

// parseSearchResult decodes an FT.SEARCH reply. With scores the reply is a
// 3-stride array [total, key1, score1, fields1, ...]; without, a 2-stride
// [total, key1, fields1, ...].
func parseSearchResult(raw []rueidis.RedisMessage, scored bool) ([]result.ScoredRecord, int, error) {
	if len(raw) == 0 {
		return nil, 0, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, 0, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	stride := 2
	if scored {
		stride = 3
	}

	var records []result.ScoredRecord
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		var score float64
		if scored {
			scoreStr, err := raw[i+1].ToString()
			if err != nil {
				continue
			}
			if score, err = strconv.ParseFloat(scoreStr, 64); err != nil {
				continue
			}
		}

		fields, err := raw[i+stride-1].ToArray()
		if err != nil {
			continue
		}

		records = append(records, result.ScoredRecord{
			User:   userFromFields(strings.TrimPrefix(key, keyPrefix), parseFieldPairs(fields)),
			Score:  score,
			Scored: scored,
		})
	}

	return records, int(total), nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func userFromFields(id string, fields map[string]string) user.User {
	u := user.User{
		ID:    id,
		Name:  fields["name"],
		Email: fields["email"],
		Role:  user.Role(fields["role"]),
	}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		u.CreatedAt = time.UnixMilli(ms).UTC()
	}
	if ms, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		u.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return u
}

// --- Query escaping ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`?`, `\?`,
)
