package search

import (
	"context"

	"github.com/kailas-cloud/userdex/internal/domain/search/predicate"
	"github.com/kailas-cloud/userdex/internal/domain/search/query"
	"github.com/kailas-cloud/userdex/internal/domain/search/result"
	"github.com/kailas-cloud/userdex/internal/domain/user"
)

// Primary reads from the system of record. Its failures are fatal to the
// request.
type Primary interface {
	// Find returns records matching the predicate in the given sort order,
	// skipping offset records. limit <= 0 means no limit.
	Find(ctx context.Context, pred predicate.Predicate, sort query.Sort, offset, limit int) ([]user.User, error)
	// Count returns the unpaginated number of records matching the predicate.
	Count(ctx context.Context, pred predicate.Predicate) (int, error)
}

// Secondary is the optional external full-text index. Any failure is
// recovered by the coordinator and degrades to the primary path.
type Secondary interface {
	// Search returns one page of hits carrying the index's own relevance
	// scores, plus the unpaginated total.
	Search(ctx context.Context, pred predicate.Predicate, sort query.Sort, offset, limit int) ([]result.ScoredRecord, int, error)
}
