package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/morabah/posalpro-app-sub013/internal/logging"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

// ErrJanitorRunning is returned by Start when the janitor is already running.
var ErrJanitorRunning = errors.New("cache janitor already running")

const defaultSweepInterval = time.Minute

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Cache implements ports.Cache in memory.
// Expired entries are never returned; the janitor started by Start reclaims
// their memory in the background. Safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry

	now      func() time.Time
	interval time.Duration
	logger   *slog.Logger

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ ports.Cache = (*Cache)(nil)

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithSweepInterval sets how often the janitor removes expired entries.
func WithSweepInterval(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithLogger configures a logger for janitor events.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates an empty cache. Call Start to run the janitor.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		items:    make(map[string]entry),
		now:      time.Now,
		interval: defaultSweepInterval,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the stored value.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return nil, ports.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = e
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Start runs the janitor until ctx is cancelled or Stop is called.
func (c *Cache) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.cancel != nil {
		return ErrJanitorRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.janitor(ctx, c.done)
	return nil
}

// Stop halts the janitor and waits for it to exit. Stopping a cache that
// was never started is a no-op.
func (c *Cache) Stop() {
	c.lifecycle.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Cache) janitor(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("cache.sweep", "removed", n)
			}
		}
	}
}
