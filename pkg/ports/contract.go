package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCacheContract runs a suite of tests to verify that a Cache implementation
// adheres to the defined interface contract.
func RunCacheContract(t *testing.T, cache Cache) {
	ctx := context.Background()
	key := "contract-test-key-" + time.Now().Format("20060102150405.000000000")

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, key+":missing")
		assert.True(t, errors.Is(err, ErrCacheMiss), "expected ErrCacheMiss, got %v", err)
	})

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte(`{"status":201}`), time.Minute))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"status":201}`, string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("second"), time.Minute))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, key))
		_, err := cache.Get(ctx, key)
		assert.True(t, errors.Is(err, ErrCacheMiss), "expected ErrCacheMiss after delete, got %v", err)

		assert.NoError(t, cache.Delete(ctx, key), "deleting a missing key is not an error")
	})
}

// RunSessionStoreContract verifies that a SessionStore implementation adheres to
// the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	token := "contract-token-" + time.Now().Format("20060102150405.000000000")
	caller := domain.Caller{ID: "user-1", Email: "user-1@example.com", Roles: []string{"viewer", "sales"}}

	t.Run("Load Unknown", func(t *testing.T) {
		_, err := store.Load(ctx, token+":unknown")
		assert.True(t, errors.Is(err, ErrSessionNotFound), "expected ErrSessionNotFound, got %v", err)
	})

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, token, caller, time.Hour))

		loaded, err := store.Load(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, caller, loaded)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, token))

		_, err := store.Load(ctx, token)
		assert.True(t, errors.Is(err, ErrSessionNotFound), "expected ErrSessionNotFound after delete, got %v", err)
	})
}
