package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/userdex/internal/domain/search/page"
	"github.com/kailas-cloud/userdex/internal/domain/search/predicate"
	"github.com/kailas-cloud/userdex/internal/domain/search/query"
	"github.com/kailas-cloud/userdex/internal/domain/search/result"
	"github.com/kailas-cloud/userdex/internal/domain/search/score"
	"github.com/kailas-cloud/userdex/internal/metrics"
)

// Service coordinates user search across the secondary full-text index and
// the primary store. The secondary path runs only when the caller asked for
// it and the index handshake succeeded at startup; its failures silently
// degrade to the primary path.
type Service struct {
	primary          Primary
	secondary        Secondary
	indexEnabled     bool
	secondaryTimeout time.Duration
	logger           *zap.Logger
}

// New creates a search service with only the primary path wired.
func New(primary Primary, logger *zap.Logger) *Service {
	return &Service{primary: primary, logger: logger}
}

// WithSecondary enables the secondary index path. The enabled flag is fixed
// for the lifetime of the service; readiness is not re-probed per request.
func (s *Service) WithSecondary(secondary Secondary) *Service {
	s.secondary = secondary
	s.indexEnabled = secondary != nil
	return s
}

// WithSecondaryTimeout bounds each secondary index call. Zero keeps only the
// caller's own deadline.
func (s *Service) WithSecondaryTimeout(d time.Duration) *Service {
	s.secondaryTimeout = d
	return s
}

// Search executes a normalized query and returns the assembled result.
func (s *Service) Search(ctx context.Context, q query.Query) (result.Result, error) {
	pred := predicate.Build(q)

	if q.UseSecondaryIndex() && s.indexEnabled {
		res, err := s.searchSecondary(ctx, q, pred)
		if err == nil {
			metrics.SearchBackendTotal.WithLabelValues("secondary").Inc()
			return res, nil
		}
		metrics.SearchFallbackTotal.Inc()
		s.logger.Warn("secondary index search failed, falling back to primary store",
			zap.Error(err))
	}

	res, err := s.searchPrimary(ctx, q, pred)
	if err != nil {
		return result.Result{}, err
	}
	metrics.SearchBackendTotal.WithLabelValues("primary").Inc()
	return res, nil
}

func (s *Service) searchSecondary(
	ctx context.Context, q query.Query, pred predicate.Predicate,
) (result.Result, error) {
	if s.secondaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.secondaryTimeout)
		defer cancel()
	}

	offset := page.Offset(q.Page(), q.Limit())
	records, total, err := s.secondary.Search(ctx, pred, q.Sort(), offset, q.Limit())
	if err != nil {
		return result.Result{}, fmt.Errorf("secondary search: %w", err)
	}

	info := page.Calc(total, q.Page(), q.Limit())
	return result.Assemble(records, info, pred), nil
}

func (s *Service) searchPrimary(
	ctx context.Context, q query.Query, pred predicate.Predicate,
) (result.Result, error) {
	total, err := s.primary.Count(ctx, pred)
	if err != nil {
		return result.Result{}, fmt.Errorf("count users: %w", err)
	}

	var records []result.ScoredRecord
	if pred.HasKeyword() {
		records, err = s.findScored(ctx, q, pred)
	} else {
		records, err = s.findPlain(ctx, q, pred)
	}
	if err != nil {
		return result.Result{}, err
	}

	info := page.Calc(total, q.Page(), q.Limit())
	return result.Assemble(records, info, pred), nil
}

// findScored fetches the full match set, scores it against the keyword, and
// ranks by (score desc, sortBy sortOrder) before slicing the requested page.
// The store returns records already ordered by the secondary sort key, so
// the stable sort only has to reorder by score.
func (s *Service) findScored(
	ctx context.Context, q query.Query, pred predicate.Predicate,
) ([]result.ScoredRecord, error) {
	users, err := s.primary.Find(ctx, pred, q.Sort(), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	records := make([]result.ScoredRecord, len(users))
	for i, u := range users {
		records[i] = result.ScoredRecord{
			User:   u,
			Score:  score.User(u, pred.Keyword()),
			Scored: true,
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})

	return slicePage(records, page.Offset(q.Page(), q.Limit()), q.Limit()), nil
}

func (s *Service) findPlain(
	ctx context.Context, q query.Query, pred predicate.Predicate,
) ([]result.ScoredRecord, error) {
	offset := page.Offset(q.Page(), q.Limit())
	users, err := s.primary.Find(ctx, pred, q.Sort(), offset, q.Limit())
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	records := make([]result.ScoredRecord, len(users))
	for i, u := range users {
		records[i] = result.ScoredRecord{User: u}
	}
	return records, nil
}

func slicePage(records []result.ScoredRecord, offset, limit int) []result.ScoredRecord {
	if offset >= len(records) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}
