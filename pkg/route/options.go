package route

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morabah/posalpro-app-sub013/internal/logging"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

const defaultLockTTL = 30 * time.Second

// RoleExpander adds roles implied by the ones a caller holds.
type RoleExpander interface {
	Expand(roles []string) []string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSessionResolver sets how callers are identified. Without one every
// route that requires auth answers 401.
func WithSessionResolver(r ports.SessionResolver) Option {
	return func(p *Pipeline) { p.sessions = r }
}

// WithCache enables idempotent replay backed by c.
func WithCache(c ports.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver receives per-request metrics events.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithRoleExpander expands caller roles before the role gate.
func WithRoleExpander(e RoleExpander) Option {
	return func(p *Pipeline) { p.expander = e }
}

// WithLocker serialises requests that share a full idempotency key.
// The cache is checked again once the lock is held, so only the first
// request runs the handler. ttl bounds how long a crashed holder blocks
// others; zero uses 30s.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.locker = l
		if ttl > 0 {
			p.lockTTL = ttl
		}
	}
}

// WithMaxBodyBytes caps the request body size. Non-positive values keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// WithClock replaces time.Now for duration measurement.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRequestIDFunc replaces the generator used when a request carries no
// usable X-Request-Id.
func WithRequestIDFunc(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// Pipeline holds the collaborators shared by every route it wraps.
type Pipeline struct {
	sessions ports.SessionResolver
	cache    ports.Cache
	logger   *slog.Logger
	observer Observer
	expander RoleExpander
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	maxBody  int64
	now      func() time.Time
	newID    func() string
}

// NewPipeline builds a Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:   logging.NewNop(),
		observer: nopObserver{},
		lockTTL:  defaultLockTTL,
		maxBody:  DefaultMaxBodyBytes,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
