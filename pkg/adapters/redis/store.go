package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

// noExpiryScore ranks sessions without a TTL in the index (2100-01-01).
const noExpiryScore = 4102444800

// SessionStore implements ports.SessionStore using Redis.
// Each session is a JSON value with its own TTL; a sorted set scored by
// expiry indexes live tokens for List.
type SessionStore struct {
	client backend.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) {
		s.prefix = prefix
	}
}

// WithClock replaces time.Now when scoring the index.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		s.now = now
	}
}

// New dials Redis and returns a session store on top of it.
func New(address, password string, db int, opts ...Option) *SessionStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a session store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *SessionStore {
	store := &SessionStore{
		client: client,
		prefix: "posalpro:session:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *SessionStore) key(token string) string {
	return s.prefix + token
}

func (s *SessionStore) indexKey() string {
	return s.prefix + "index"
}

// Save persists the caller with ttl and indexes the token.
func (s *SessionStore) Save(ctx context.Context, token string, caller domain.Caller, ttl time.Duration) error {
	data, err := json.Marshal(caller)
	if err != nil {
		return fmt.Errorf("failed to marshal caller: %w", err)
	}

	score := float64(s.now().Add(ttl).Unix())
	if ttl <= 0 {
		score = noExpiryScore
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(token), data, ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: token})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load returns the caller bound to token.
func (s *SessionStore) Load(ctx context.Context, token string) (domain.Caller, error) {
	val, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Caller{}, ports.ErrSessionNotFound
		}
		return domain.Caller{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var caller domain.Caller
	if err := json.Unmarshal(val, &caller); err != nil {
		return domain.Caller{}, fmt.Errorf("failed to unmarshal caller: %w", err)
	}
	return caller, nil
}

// Delete revokes token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(token))
	pipe.ZRem(ctx, s.indexKey(), token)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns live tokens, pruning expired ones from the index first.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	tokens, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return tokens, nil
}

// Close closes the redis client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}
