// Package config loads the server configuration from a YAML file with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/morabah/posalpro-app-sub013/internal/logging"
)

// Backend names accepted for caches and session stores.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the complete server configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	RoutesFile      string        `yaml:"routesFile,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`

	Log      LogConfig      `yaml:"log"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	Authz    AuthzConfig    `yaml:"authz"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL string `yaml:"url,omitempty"`
}

// CacheConfig selects the idempotency cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	Prefix        string        `yaml:"prefix"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	// Key enables AES-256-GCM encryption of cached responses. Hex or base64.
	Key          string   `yaml:"key,omitempty"`
	FallbackKeys []string `yaml:"fallbackKeys,omitempty"`
	// Lock serialises concurrent requests sharing an idempotency key.
	Lock    bool          `yaml:"lock"`
	LockTTL time.Duration `yaml:"lockTTL"`
}

type SessionConfig struct {
	Store      string        `yaml:"store"`
	TTL        time.Duration `yaml:"ttl"`
	CookieName string        `yaml:"cookieName"`
}

// AuthzConfig points at a casbin policy of "g, role, parent" lines.
type AuthzConfig struct {
	PolicyFile string `yaml:"policyFile,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
		Log:             LogConfig{Level: "info", Format: "text"},
		Redis:           RedisConfig{Addr: "localhost:6379"},
		Cache: CacheConfig{
			Backend:       BackendMemory,
			Prefix:        "posalpro:",
			SweepInterval: time.Minute,
			LockTTL:       30 * time.Second,
		},
		Session: SessionConfig{
			Store:      BackendMemory,
			TTL:        12 * time.Hour,
			CookieName: "sid",
		},
	}
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads path (optional) and applies POSALPRO_* environment overrides.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment.
func LoadWithEnv(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("POSALPRO_ADDR", &c.Addr)
	str("POSALPRO_ROUTES_FILE", &c.RoutesFile)
	str("POSALPRO_LOG_LEVEL", &c.Log.Level)
	str("POSALPRO_LOG_FORMAT", &c.Log.Format)
	str("POSALPRO_REDIS_ADDR", &c.Redis.Addr)
	str("POSALPRO_REDIS_PASSWORD", &c.Redis.Password)
	str("POSALPRO_DATABASE_URL", &c.Database.URL)
	str("POSALPRO_CACHE_BACKEND", &c.Cache.Backend)
	str("POSALPRO_CACHE_KEY", &c.Cache.Key)
	str("POSALPRO_SESSION_STORE", &c.Session.Store)
	str("POSALPRO_AUTHZ_POLICY", &c.Authz.PolicyFile)

	if v, ok := lookup("POSALPRO_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSALPRO_REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v, ok := lookup("POSALPRO_CACHE_LOCK"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("POSALPRO_CACHE_LOCK: %w", err)
		}
		c.Cache.Lock = b
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must be set"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q: want text or json", c.Log.Format))
	}
	switch c.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("cache backend %q: want memory or redis", c.Cache.Backend))
	}
	switch c.Session.Store {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("session store postgres needs database.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("session store %q: want memory, redis or postgres", c.Session.Store))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("maxBodyBytes must not be negative"))
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a redis client.
func (c Config) UsesRedis() bool {
	return c.Cache.Backend == BackendRedis || c.Session.Store == BackendRedis
}
