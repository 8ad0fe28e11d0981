package userindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/userdex/internal/domain/user"
)

const (
	keyPrefix = "userdex:user:"
	indexName = "userdex:users:idx"
)

// Index is the optional secondary full-text index, backed by the Redis
// query engine. User records are mirrored into hashes under keyPrefix and
// covered by an FT index created during the startup handshake. The index is
// a soft dependency: every caller must tolerate its absence.
type Index struct {
	client rueidis.Client
}

// Config holds connection parameters for the index.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// New creates an index client. It does not touch the network; call
// Handshake before relying on the index.
func New(cfg Config) (*Index, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Index{client: client}, nil
}

// Handshake verifies connectivity and ensures the FT index exists. A nil
// return marks the index usable for the rest of the process lifetime.
func (ix *Index) Handshake(ctx context.Context) error {
	if err := ix.ping(ctx); err != nil {
		return err
	}
	return ix.ensureIndex(ctx)
}

// Close shuts down the client.
func (ix *Index) Close() {
	ix.client.Close()
}

// Index mirrors a user record into the search index. Best-effort: callers
// log and swallow failures.
func (ix *Index) Index(ctx context.Context, u user.User) error {
	cmd := ix.b().Hset().Key(keyPrefix + u.ID).FieldValue().
		FieldValue("name", u.Name).
		FieldValue("email", u.Email).
		FieldValue("role", string(u.Role)).
		FieldValue("created_at", strconv.FormatInt(u.CreatedAt.UnixMilli(), 10)).
		FieldValue("updated_at", strconv.FormatInt(u.UpdatedAt.UnixMilli(), 10)).
		Build()
	if err := ix.do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("index user %s: %w", u.ID, err)
	}
	return nil
}

// Remove deletes a user record from the search index.
func (ix *Index) Remove(ctx context.Context, id string) error {
	cmd := ix.b().Del().Key(keyPrefix + id).Build()
	if err := ix.do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("remove user %s: %w", id, err)
	}
	return nil
}

func (ix *Index) ping(ctx context.Context) error {
	cmd := ix.b().Ping().Build()
	if err := ix.do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ensureIndex creates the FT index over user hashes, tolerating the case
// where a previous process already created it.
func (ix *Index) ensureIndex(ctx context.Context) error {
	cmd := ix.b().Arbitrary("FT.CREATE").Args(
		indexName, "ON", "HASH", "PREFIX", "1", keyPrefix, "SCHEMA",
		"name", "TEXT", "WEIGHT", "1", "SORTABLE",
		"email", "TEXT", "WEIGHT", "1", "SORTABLE",
		"role", "TAG", "SORTABLE",
		"created_at", "NUMERIC", "SORTABLE",
		"updated_at", "NUMERIC",
	).Build()
	if err := ix.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (ix *Index) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return ix.client.Do(ctx, cmd)
}

func (ix *Index) b() rueidis.Builder {
	return ix.client.B()
}

// isRedisErr checks if err is a Redis server error containing substr
// (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func containsIgnoreCase(s, substr string) bool {
	ls := len(s)
	lsub := len(substr)
	if lsub > ls {
		return false
	}
	for i := 0; i <= ls-lsub; i++ {
		match := true
		for j := 0; j < lsub; j++ {
			sc := s[i+j]
			tc := substr[j]
			if sc >= 'A' && sc <= 'Z' {
				sc += 'a' - 'A'
			}
			if tc >= 'A' && tc <= 'Z' {
				tc += 'a' - 'A'
			}
			if sc != tc {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
