package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/userdex/internal/domain"
	"github.com/kailas-cloud/userdex/internal/domain/search/predicate"
	"github.com/kailas-cloud/userdex/internal/domain/search/query"
	"github.com/kailas-cloud/userdex/internal/domain/user"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE COLLATE NOCASE,
	role       TEXT NOT NULL DEFAULT 'User' CHECK (role IN ('User', 'Admin')),
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`

// Store is the primary user store, the system of record, backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the user store at path. Use ":memory:" for an
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Every pooled connection to :memory: gets its own database, so the
	// in-memory store must stay on a single connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL keeps concurrent readers off the writer's lock.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Find returns records matching the predicate, ordered by the sort field
// with id as a tie-break so identical queries return identical orderings.
// limit <= 0 returns the whole match set.
func (s *Store) Find(
	ctx context.Context, pred predicate.Predicate, sort query.Sort, offset, limit int,
) ([]user.User, error) {
	where, args := buildWhere(pred)

	q := "SELECT id, name, email, role, created_at, updated_at FROM users" +
		where + " ORDER BY " + orderBy(sort)
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}

// Count returns the unpaginated number of records matching the predicate.
func (s *Store) Count(ctx context.Context, pred predicate.Predicate) (int, error) {
	where, args := buildWhere(pred)

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Get returns a user by id.
func (s *Store) Get(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, created_at, updated_at FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, domain.ErrUserNotFound
	}
	return u, err
}

// GetByEmail returns a user by email, matched case-insensitively.
func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, created_at, updated_at FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, domain.ErrUserNotFound
	}
	return u, err
}

// Insert stores a new user record. A duplicate email maps to
// domain.ErrEmailTaken.
func (s *Store) Insert(ctx context.Context, u user.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt.UnixMilli(), u.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Delete removes a user record by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// buildWhere translates a predicate into a WHERE clause. The keyword is
// matched as a literal substring: LIKE metacharacters are escaped so user
// input cannot inject pattern syntax.
func buildWhere(pred predicate.Predicate) (string, []any) {
	var clauses []string
	var args []any

	if pred.HasKeyword() {
		pat := "%" + escapeLike(strings.ToLower(pred.Keyword())) + "%"
		clauses = append(clauses,
			`(lower(name) LIKE ? ESCAPE '\' OR lower(email) LIKE ? ESCAPE '\')`)
		args = append(args, pat, pat)
	}
	if pred.HasRole() {
		clauses = append(clauses, "role = ?")
		args = append(args, pred.Role())
	}
	if from := pred.CreatedFrom(); !from.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, from.UnixMilli())
	}
	if to := pred.CreatedTo(); !to.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, to.UnixMilli())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// orderBy maps the sort allow-list to column names. The sort field is a
// closed enum resolved by the query normalizer, never raw caller input.
func orderBy(sort query.Sort) string {
	col := "created_at"
	switch sort.By {
	case query.FieldName:
		col = "name"
	case query.FieldEmail:
		col = "email"
	case query.FieldRole:
		col = "role"
	}
	dir := "DESC"
	if sort.Order == query.Asc {
		dir = "ASC"
	}
	return col + " " + dir + ", id ASC"
}

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	var role string
	var createdAt, updatedAt int64

	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}

	u.Role = user.Role(role)
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	u.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return u, nil
}
