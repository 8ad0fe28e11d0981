package user

import (
	"context"

	"github.com/kailas-cloud/userdex/internal/domain/search/predicate"
	"github.com/kailas-cloud/userdex/internal/domain/search/query"
	domuser "github.com/kailas-cloud/userdex/internal/domain/user"
)

// Store is the consumer interface over the primary user store.
type Store interface {
	Find(ctx context.Context, pred predicate.Predicate, sort query.Sort, offset, limit int) ([]domuser.User, error)
	Count(ctx context.Context, pred predicate.Predicate) (int, error)
	Insert(ctx context.Context, u domuser.User) error
	Delete(ctx context.Context, id string) error
}

// Syncer mirrors user mutations into the secondary search index.
type Syncer interface {
	Index(ctx context.Context, u domuser.User) error
	Remove(ctx context.Context, id string) error
}
