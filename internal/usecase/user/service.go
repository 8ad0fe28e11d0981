package user

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/userdex/internal/domain"
	"github.com/kailas-cloud/userdex/internal/domain/search/page"
	"github.com/kailas-cloud/userdex/internal/domain/search/predicate"
	"github.com/kailas-cloud/userdex/internal/domain/search/query"
	domuser "github.com/kailas-cloud/userdex/internal/domain/user"
	"github.com/kailas-cloud/userdex/internal/metrics"
)

const defaultSyncTimeout = 5 * time.Second

// Service handles user listing and mutation. Mutations are mirrored into
// the secondary index asynchronously and best-effort: a sync failure never
// fails the mutation, and the index is only eventually consistent with the
// store.
type Service struct {
	store       Store
	syncer      Syncer // nil when the index is disabled
	syncTimeout time.Duration
	logger      *zap.Logger

	// wg tracks in-flight sync goroutines so tests can wait for them.
	wg sync.WaitGroup
}

// New creates a user service.
func New(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, syncTimeout: defaultSyncTimeout, logger: logger}
}

// WithSyncer enables best-effort mirroring into the secondary index.
func (s *Service) WithSyncer(syncer Syncer) *Service {
	s.syncer = syncer
	return s
}

// WithSyncTimeout bounds each fire-and-forget sync call.
func (s *Service) WithSyncTimeout(d time.Duration) *Service {
	if d > 0 {
		s.syncTimeout = d
	}
	return s
}

// Create stores a new user and mirrors it into the index. Role defaults to
// User when empty.
func (s *Service) Create(ctx context.Context, name, email, role string) (domuser.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if len(name) < domuser.MinNameLen || len(name) > domuser.MaxNameLen {
		return domuser.User{}, fmt.Errorf(
			"%w: name must be %d-%d characters",
			domain.ErrInvalidArgument, domuser.MinNameLen, domuser.MaxNameLen,
		)
	}
	if email == "" || !strings.Contains(email, "@") {
		return domuser.User{}, fmt.Errorf("%w: invalid email", domain.ErrInvalidArgument)
	}

	r := domuser.Role(strings.TrimSpace(role))
	if r == "" {
		r = domuser.RoleUser
	}
	if !r.Valid() {
		return domuser.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, role)
	}

	now := time.Now().UTC()
	u := domuser.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     strings.ToLower(email),
		Role:      r,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, u); err != nil {
		return domuser.User{}, fmt.Errorf("create user: %w", err)
	}

	s.mirror("index", func(syncCtx context.Context) error {
		return s.syncer.Index(syncCtx, u)
	})

	return u, nil
}

// Delete removes a user from the store and mirrors the removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.mirror("remove", func(syncCtx context.Context) error {
		return s.syncer.Remove(syncCtx, id)
	})

	return nil
}

// List returns one page of users, newest first. Out-of-range page and limit
// values coerce to defaults rather than erroring.
func (s *Service) List(ctx context.Context, pageNum, limit int) ([]domuser.User, page.Info, error) {
	if pageNum < 1 {
		pageNum = query.DefaultPage
	}
	if limit < 1 {
		limit = query.DefaultLimit
	}
	if limit > query.MaxLimit {
		limit = query.MaxLimit
	}

	pred := predicate.Predicate{}
	sort := query.Sort{By: query.FieldCreatedAt, Order: query.Desc}

	total, err := s.store.Count(ctx, pred)
	if err != nil {
		return nil, page.Info{}, fmt.Errorf("count users: %w", err)
	}

	users, err := s.store.Find(ctx, pred, sort, page.Offset(pageNum, limit), limit)
	if err != nil {
		return nil, page.Info{}, fmt.Errorf("find users: %w", err)
	}

	return users, page.Calc(total, pageNum, limit), nil
}

// mirror runs one sync call in the background. Failures are counted and
// logged, never surfaced to the caller.
func (s *Service) mirror(op string, fn func(ctx context.Context) error) {
	if s.syncer == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.IndexSyncTotal.WithLabelValues(op, "error").Inc()
			s.logger.Warn("index sync failed",
				zap.String("op", op),
				zap.Error(err))
			return
		}
		metrics.IndexSyncTotal.WithLabelValues(op, "ok").Inc()
	}()
}

// WaitForSync blocks until all in-flight sync goroutines finish. Intended
// for shutdown and tests.
func (s *Service) WaitForSync() {
	s.wg.Wait()
}
