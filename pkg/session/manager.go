package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/morabah/posalpro-app-sub013/internal/logging"
	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

const (
	// DefaultCookieName is the cookie read by Resolve.
	DefaultCookieName = "sid"
	// DefaultTTL is used by Issue when no ttl is given.
	DefaultTTL = 12 * time.Hour

	tokenBytes = 32
	lockTTL    = 30 * time.Second
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager issues, resolves and revokes session tokens.
// It uses reference counting to garbage collect unused per-token locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker ports.DistributedLocker // Optional distributed locker
	logger *slog.Logger
	ttl    time.Duration
	cookie string
	random io.Reader
}

var _ ports.SessionResolver = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTTL sets the default session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithCookieName changes the cookie Resolve reads.
func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookie = name
		}
	}
}

// WithRandom replaces the token entropy source, for tests.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) {
		m.random = r
	}
}

// NewManager creates a new session Manager over store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
		ttl:    DefaultTTL,
		cookie: DefaultCookieName,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(token) after unlocking.
func (m *Manager) acquire(token string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[token]
	if !exists {
		entry = &lockEntry{}
		m.locks[token] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[token]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, token)
	}
}

// Issue mints a new token bound to caller. A zero ttl uses the default.
func (m *Manager) Issue(ctx context.Context, caller domain.Caller, ttl time.Duration) (string, error) {
	if caller.IsAnonymous() {
		return "", errors.New("session: cannot issue a token for an anonymous caller")
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	raw := make([]byte, tokenBytes)
	if _, err := io.ReadFull(m.random, raw); err != nil {
		return "", fmt.Errorf("session: read entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	err := m.WithLock(ctx, token, func(ctx context.Context) error {
		return m.store.Save(ctx, token, caller, ttl)
	})
	if err != nil {
		return "", fmt.Errorf("session: save: %w", err)
	}
	m.logger.Debug("session.issued", "caller_id", caller.ID, "ttl", ttl)
	return token, nil
}

// Lookup returns the caller bound to token.
func (m *Manager) Lookup(ctx context.Context, token string) (domain.Caller, error) {
	return m.store.Load(ctx, token)
}

// Resolve implements ports.SessionResolver. Missing, unknown and expired
// tokens resolve to a nil caller without error.
func (m *Manager) Resolve(r *http.Request) (*domain.Caller, error) {
	token := m.Token(r)
	if token == "" {
		return nil, nil
	}
	caller, err := m.store.Load(r.Context(), token)
	if errors.Is(err, ports.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: resolve: %w", err)
	}
	return &caller, nil
}

// Token extracts the session token from the Authorization header, falling
// back to the session cookie.
func (m *Manager) Token(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(m.cookie); err == nil {
		return c.Value
	}
	return ""
}

// Refresh extends a live session to ttl from now.
func (m *Manager) Refresh(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	return m.WithLock(ctx, token, func(ctx context.Context) error {
		caller, err := m.store.Load(ctx, token)
		if err != nil {
			return err
		}
		return m.store.Save(ctx, token, caller, ttl)
	})
}

// Revoke deletes the session. Revoking an unknown token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	return m.WithLock(ctx, token, func(ctx context.Context) error {
		return m.store.Delete(ctx, token)
	})
}

// CookieName is the cookie Resolve falls back to.
func (m *Manager) CookieName() string {
	return m.cookie
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// lockKey names the distributed lock for token. Lock keys are visible to
// anyone who can list the backend's keys, so the token is hashed.
func lockKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session:lock:" + hex.EncodeToString(sum[:])
}

// WithLock executes fn while holding the lock for token.
func (m *Manager) WithLock(ctx context.Context, token string, fn func(context.Context) error) error {
	entry := m.acquire(token)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(token)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, lockKey(token), lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)", "err", err)
			}
		}()
	}

	return fn(ctx)
}
