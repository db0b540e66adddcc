package ports

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

// ErrSessionNotFound is returned when a token is unknown, revoked or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists the caller bound to an opaque session token.
type SessionStore interface {
	// Save binds caller to token until ttl elapses. A zero ttl means no expiry.
	Save(ctx context.Context, token string, caller domain.Caller, ttl time.Duration) error

	// Load returns the caller bound to token.
	// Returns ErrSessionNotFound if the token does not resolve.
	Load(ctx context.Context, token string) (domain.Caller, error)

	// Delete revokes token.
	Delete(ctx context.Context, token string) error
}

// SessionResolver resolves the calling identity for a request.
// A nil caller with a nil error means the request carries no valid session.
type SessionResolver interface {
	Resolve(r *http.Request) (*domain.Caller, error)
}

// SessionResolverFunc adapts a function to SessionResolver.
type SessionResolverFunc func(r *http.Request) (*domain.Caller, error)

func (f SessionResolverFunc) Resolve(r *http.Request) (*domain.Caller, error) { return f(r) }
