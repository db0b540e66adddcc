package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/morabah/posalpro-app-sub013/internal/config"
	"github.com/morabah/posalpro-app-sub013/internal/logging"
	"github.com/morabah/posalpro-app-sub013/pkg/adapters/cachemw"
	"github.com/morabah/posalpro-app-sub013/pkg/adapters/memory"
	"github.com/morabah/posalpro-app-sub013/pkg/adapters/postgres"
	redisadapter "github.com/morabah/posalpro-app-sub013/pkg/adapters/redis"
	"github.com/morabah/posalpro-app-sub013/pkg/authz"
	"github.com/morabah/posalpro-app-sub013/pkg/observability"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
	"github.com/morabah/posalpro-app-sub013/pkg/route"
	"github.com/morabah/posalpro-app-sub013/pkg/session"
)

// DefaultRolePolicy is used when no policy file is configured.
const DefaultRolePolicy = `
g, admin, manager
g, manager, sales
`

// App is a fully wired server.
type App struct {
	Handler  http.Handler
	Sessions *session.Manager
	Registry *prometheus.Registry

	logger  *slog.Logger
	janitor *memory.Cache
	closers []func() error
}

// Build wires every component selected by cfg.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, version string) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := &App{logger: logger, Registry: prometheus.NewRegistry()}
	if err := app.wire(ctx, cfg, version); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, cfg config.Config, version string) error {
	logger := a.logger

	var rdb goredis.UniversalClient
	if cfg.UsesRedis() {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
	}

	cache, err := a.buildCache(cfg, rdb)
	if err != nil {
		return err
	}
	store, err := a.buildSessionStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}

	var locker ports.DistributedLocker
	if rdb != nil {
		locker = redisadapter.NewLocker(rdb, cfg.Cache.Prefix)
	} else {
		locker = memory.NewLocker()
	}

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithTTL(cfg.Session.TTL),
		session.WithCookieName(cfg.Session.CookieName),
	}
	if rdb != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	a.Sessions = session.NewManager(store, sessionOpts...)

	roles, err := loadRoles(cfg.Authz.PolicyFile)
	if err != nil {
		return err
	}

	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(a.Registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := []route.Option{
		route.WithSessionResolver(a.Sessions),
		route.WithCache(cache),
		route.WithLogger(logger),
		route.WithObserver(metrics),
		route.WithRoleExpander(roles),
		route.WithMaxBodyBytes(cfg.MaxBodyBytes),
	}
	if cfg.Cache.Lock {
		opts = append(opts, route.WithLocker(locker, cfg.Cache.LockTTL))
	}

	var overrides map[string]route.Config
	if cfg.RoutesFile != "" {
		overrides, err = route.LoadConfigs(cfg.RoutesFile)
		if err != nil {
			return err
		}
	}

	handler, err := NewHandler(Deps{
		Pipeline: route.NewPipeline(opts...),
		Sessions: a.Sessions,
		Routes:   overrides,
		Metrics:  promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		Ready:    readiness(rdb),
		Logger:   logger,
		Version:  version,
	})
	if err != nil {
		return err
	}
	a.Handler = handler
	return nil
}

func (a *App) buildCache(cfg config.Config, rdb goredis.UniversalClient) (ports.Cache, error) {
	var base ports.Cache
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		base = redisadapter.NewCache(rdb, "")
	default:
		a.janitor = memory.NewCache(
			memory.WithSweepInterval(cfg.Cache.SweepInterval),
			memory.WithLogger(a.logger),
		)
		base = a.janitor
	}

	mws := []cachemw.Middleware{cachemw.NewPrefix(cfg.Cache.Prefix)}
	if cfg.Cache.Key != "" {
		enc, err := encryptionFromConfig(cfg.Cache)
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return cachemw.Chain(base, mws...), nil
}

func encryptionFromConfig(c config.CacheConfig) (cachemw.Middleware, error) {
	active, err := cachemw.ParseKey(c.Key)
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}
	ec := cachemw.EncryptionConfig{ActiveKey: active}
	for i, k := range c.FallbackKeys {
		fk, err := cachemw.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("cache fallback key %d: %w", i, err)
		}
		ec.FallbackKeys = append(ec.FallbackKeys, fk)
	}
	return cachemw.NewEncryption(ec)
}

func (a *App) buildSessionStore(ctx context.Context, cfg config.Config, rdb goredis.UniversalClient) (ports.SessionStore, error) {
	switch cfg.Session.Store {
	case config.BackendRedis:
		return redisadapter.NewFromClient(rdb), nil
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return memory.NewSessionStore(), nil
	}
}

func loadRoles(path string) (*authz.RoleHierarchy, error) {
	if path != "" {
		return authz.LoadRoleHierarchy(path)
	}
	return authz.ParseRoleHierarchy(DefaultRolePolicy)
}

func readiness(rdb goredis.UniversalClient) func(context.Context) error {
	if rdb == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

// Start launches background work. It returns once the work is running.
func (a *App) Start(ctx context.Context) error {
	if a.janitor == nil {
		return nil
	}
	return a.janitor.Start(ctx)
}

// Close stops background work and releases connections.
func (a *App) Close() error {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
