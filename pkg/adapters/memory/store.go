package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

type session struct {
	caller  domain.Caller
	expires time.Time
}

// SessionStore implements ports.SessionStore in memory.
// Safe for concurrent use.
type SessionStore struct {
	data map[string]session
	mu   sync.RWMutex
	now  func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]session),
		now:  time.Now,
	}
}

// Save binds caller to token.
func (s *SessionStore) Save(ctx context.Context, token string, caller domain.Caller, ttl time.Duration) error {
	// Copy the roles so the caller cannot mutate stored state.
	caller.Roles = append([]string(nil), caller.Roles...)
	sess := session{caller: caller}
	if ttl > 0 {
		sess.expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[token] = sess
	return nil
}

// Load returns the caller bound to token.
func (s *SessionStore) Load(ctx context.Context, token string) (domain.Caller, error) {
	s.mu.RLock()
	sess, ok := s.data[token]
	s.mu.RUnlock()

	if !ok || (!sess.expires.IsZero() && !s.now().Before(sess.expires)) {
		return domain.Caller{}, ports.ErrSessionNotFound
	}
	c := sess.caller
	c.Roles = append([]string(nil), c.Roles...)
	return c, nil
}

// Delete revokes token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, token)
	return nil
}

// List returns the tokens of live sessions in sorted order.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]string, 0, len(s.data))
	for token, sess := range s.data {
		if sess.expires.IsZero() || now.Before(sess.expires) {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}
