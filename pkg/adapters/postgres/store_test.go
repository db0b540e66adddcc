package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

type scanRow struct {
	scan func(dest ...any) error
}

func (r scanRow) Scan(dest ...any) error { return r.scan(dest...) }

type stubQ struct {
	row      pgx.Row
	rowErr   error
	execErr  error
	execTag  pgconn.CommandTag
	lastSQL  string
	lastArgs []any
}

func (s *stubQ) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	s.lastSQL, s.lastArgs = sql, args
	if s.rowErr != nil {
		return scanRow{scan: func(...any) error { return s.rowErr }}
	}
	return s.row
}

func (s *stubQ) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.lastSQL, s.lastArgs = sql, args
	if s.execErr != nil {
		return pgconn.CommandTag{}, s.execErr
	}
	return s.execTag, nil
}

func callerRow(c domain.Caller, expires *time.Time) scanRow {
	return scanRow{scan: func(dest ...any) error {
		*(dest[0].(*string)) = c.ID
		*(dest[1].(*string)) = c.Email
		*(dest[2].(*[]string)) = c.Roles
		*(dest[3].(**time.Time)) = expires
		return nil
	}}
}

func TestSessionStore_SaveHashesToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := &stubQ{}
	s := &SessionStore{q: q, now: func() time.Time { return now }}

	err := s.Save(context.Background(), "secret-token", domain.Caller{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, tokenHash("secret-token"), q.lastArgs[0])
	assert.NotContains(t, q.lastArgs, "secret-token", "raw token must never reach the database")
	assert.Equal(t, []string{}, q.lastArgs[3])
	require.NotNil(t, q.lastArgs[4])
	assert.Equal(t, now.Add(time.Hour), *(q.lastArgs[4].(*time.Time)))

	q.execErr = os.ErrInvalid
	assert.Error(t, s.Save(context.Background(), "t", domain.Caller{ID: "u1"}, 0))
}

func TestSessionStore_Load(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := &stubQ{}
	s := &SessionStore{q: q, now: func() time.Time { return now }}
	ctx := context.Background()
	caller := domain.Caller{ID: "u1", Email: "u1@example.com", Roles: []string{"admin"}}

	q.rowErr = pgx.ErrNoRows
	_, err := s.Load(ctx, "t")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	q.rowErr = context.DeadlineExceeded
	_, err = s.Load(ctx, "t")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	q.rowErr = nil
	q.row = callerRow(caller, nil)
	got, err := s.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, caller, got)

	future := now.Add(time.Minute)
	q.row = callerRow(caller, &future)
	_, err = s.Load(ctx, "t")
	assert.NoError(t, err)

	past := now.Add(-time.Minute)
	q.row = callerRow(caller, &past)
	_, err = s.Load(ctx, "t")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_DeleteAndPurge(t *testing.T) {
	q := &stubQ{execTag: pgconn.NewCommandTag("DELETE 3")}
	s := &SessionStore{q: q, now: time.Now}
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, ""))
	assert.Empty(t, q.lastSQL, "empty token is a no-op")

	require.NoError(t, s.Delete(ctx, "t"))
	assert.Contains(t, q.lastSQL, "DELETE FROM posalpro.sessions")

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	q.execErr = os.ErrInvalid
	_, err = s.PurgeExpired(ctx)
	assert.Error(t, err)
	assert.Error(t, s.Migrate(ctx))
}

func TestSessionStore_Contract(t *testing.T) {
	dsn := os.Getenv("POSALPRO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("POSALPRO_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	s := New(pool)
	require.NoError(t, s.Migrate(ctx))
	ports.RunSessionStoreContract(t, s)
}
