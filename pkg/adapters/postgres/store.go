// Package postgres implements ports.SessionStore on PostgreSQL via pgx.
package postgres

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

// Schema creates the sessions table. Tokens are stored only as their sha256.
const Schema = `
CREATE SCHEMA IF NOT EXISTS posalpro;
CREATE TABLE IF NOT EXISTS posalpro.sessions (
  token_sha256 bytea PRIMARY KEY,
  caller_id    text NOT NULL,
  email        text NOT NULL DEFAULT '',
  roles        text[] NOT NULL DEFAULT '{}',
  expires_at   timestamptz,
  created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON posalpro.sessions (expires_at);
`

type queryExecer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SessionStore implements ports.SessionStore on a pgx pool.
type SessionStore struct {
	q   queryExecer
	now func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// New creates a session store on pool.
func New(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{q: pool, now: time.Now}
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func (s *SessionStore) Migrate(ctx context.Context) error {
	_, err := s.q.Exec(ctx, Schema)
	return err
}

func tokenHash(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// Save upserts the session row.
func (s *SessionStore) Save(ctx context.Context, token string, caller domain.Caller, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl)
		expiresAt = &t
	}
	roles := caller.Roles
	if roles == nil {
		roles = []string{}
	}

	_, err := s.q.Exec(ctx, `
INSERT INTO posalpro.sessions (token_sha256, caller_id, email, roles, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (token_sha256) DO UPDATE SET
  caller_id = EXCLUDED.caller_id,
  email = EXCLUDED.email,
  roles = EXCLUDED.roles,
  expires_at = EXCLUDED.expires_at;
`, tokenHash(token), caller.ID, caller.Email, roles, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres: save session: %w", err)
	}
	return nil
}

// Load returns the caller for token. Expired rows are treated as absent.
func (s *SessionStore) Load(ctx context.Context, token string) (domain.Caller, error) {
	var (
		c         domain.Caller
		expiresAt *time.Time
	)
	err := s.q.QueryRow(ctx, `
SELECT caller_id, email, roles, expires_at
FROM posalpro.sessions
WHERE token_sha256 = $1;
`, tokenHash(token)).Scan(&c.ID, &c.Email, &c.Roles, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Caller{}, ports.ErrSessionNotFound
		}
		return domain.Caller{}, fmt.Errorf("postgres: load session: %w", err)
	}
	if expiresAt != nil && !s.now().Before(*expiresAt) {
		return domain.Caller{}, ports.ErrSessionNotFound
	}
	return c, nil
}

// Delete revokes token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.q.Exec(ctx, `DELETE FROM posalpro.sessions WHERE token_sha256 = $1;`, tokenHash(token))
	if err != nil {
		return fmt.Errorf("postgres: delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM posalpro.sessions WHERE expires_at IS NOT NULL AND expires_at <= $1;`, s.now())
	if err != nil {
		return 0, fmt.Errorf("postgres: purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
