package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morabah/posalpro-app-sub013/pkg/adapters/redis"
	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestSessionStore_TTLExpiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Now()
	store := redis.NewFromClient(client, redis.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	caller := domain.Caller{ID: "u1", Email: "u1@example.com", Roles: []string{"sales"}}

	require.NoError(t, store.Save(ctx, "short", caller, time.Second))
	require.NoError(t, store.Save(ctx, "forever", caller, 0))

	tokens, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"short", "forever"}, tokens)

	// Redis expires the value; our clock drives index pruning.
	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, "short")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	tokens, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"forever"}, tokens)
}

func TestSessionStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("tenant-a:"))

	require.NoError(t, store.Save(context.Background(), "tok", domain.Caller{ID: "u1"}, 0))
	assert.True(t, mr.Exists("tenant-a:tok"))
	assert.True(t, mr.Exists("tenant-a:index"))
}

func TestSessionStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set("posalpro:session:bad", "{not json"))
	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrSessionNotFound)
}
