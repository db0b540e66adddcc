package route

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/morabah/posalpro-app-sub013/pkg/schema"
)

// DefaultAPIVersion is reported when a route does not declare one.
const DefaultAPIVersion = "1"

// DefaultIdempotencyTTL is how long a replayable response is kept.
const DefaultIdempotencyTTL = 24 * time.Hour

// Scope partitions idempotency records.
type Scope string

const (
	// ScopeUser keys records by caller id.
	ScopeUser Scope = "user"
	// ScopeGlobal shares records between all callers.
	ScopeGlobal Scope = "global"
)

// globalSubject replaces the caller id in global-scope keys.
const globalSubject = "global"

// Config is the immutable declaration of one route.
type Config struct {
	// Name labels the route in logs and metrics.
	Name string
	// Method and Path are informational; the router decides what reaches the handler.
	Method string
	Path   string

	// Roles, when non-empty, must intersect the caller's roles.
	Roles []string
	// Query and Body validate the decoded query string and JSON body.
	// A nil validator skips parsing entirely.
	Query schema.Validator
	Body  schema.Validator

	// RequireAuth defaults to true. When false the route runs with the
	// anonymous caller and Roles are not checked.
	RequireAuth *bool

	Deprecation *Deprecation
	// APIVersion defaults to "1".
	APIVersion  string
	Idempotency IdempotencyPolicy
}

// Deprecation marks a route as deprecated on every response.
type Deprecation struct {
	// Sunset is written verbatim, normally an HTTP date.
	Sunset  string `yaml:"sunset,omitempty"`
	Link    string `yaml:"link,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// IdempotencyPolicy controls replay for mutating verbs.
type IdempotencyPolicy struct {
	// Enabled defaults to true.
	Enabled    *bool `yaml:"enabled,omitempty"`
	TTLSeconds int   `yaml:"ttlSeconds,omitempty"`
	Scope      Scope `yaml:"scope,omitempty"`
}

// Bool returns a pointer to b, for the optional Config flags.
func Bool(b bool) *bool { return &b }

// AuthRequired reports whether the route needs a resolved caller.
func (c Config) AuthRequired() bool {
	return c.RequireAuth == nil || *c.RequireAuth
}

// TTL returns the idempotency record lifetime.
func (p IdempotencyPolicy) TTL() time.Duration {
	if p.TTLSeconds <= 0 {
		return DefaultIdempotencyTTL
	}
	return time.Duration(p.TTLSeconds) * time.Second
}

// IsEnabled reports whether replay is on for the route.
func (p IdempotencyPolicy) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

func (c Config) normalize() Config {
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.Idempotency.Scope == "" {
		c.Idempotency.Scope = ScopeUser
	}
	if c.Idempotency.TTLSeconds <= 0 {
		c.Idempotency.TTLSeconds = int(DefaultIdempotencyTTL / time.Second)
	}
	c.Method = strings.ToUpper(c.Method)
	c.Roles = append([]string(nil), c.Roles...)
	return c
}

// Validate reports configuration mistakes that would otherwise surface per request.
func (c Config) Validate() error {
	switch c.Idempotency.Scope {
	case "", ScopeUser, ScopeGlobal:
	default:
		return fmt.Errorf("route %s: unknown idempotency scope %q", c.Name, c.Idempotency.Scope)
	}
	if c.Idempotency.TTLSeconds < 0 {
		return fmt.Errorf("route %s: idempotency ttlSeconds must not be negative", c.Name)
	}
	switch strings.ToUpper(c.Method) {
	case "", http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
	default:
		return fmt.Errorf("route %s: unsupported method %q", c.Name, c.Method)
	}
	return nil
}

// --- Routes file ---

type routesFile struct {
	Version int                  `yaml:"version"`
	Routes  map[string]fileRoute `yaml:"routes"`
}

type fileRoute struct {
	Method      string            `yaml:"method"`
	Path        string            `yaml:"path"`
	Roles       []string          `yaml:"roles,omitempty"`
	Query       schema.Schema     `yaml:"query,omitempty"`
	Body        schema.Schema     `yaml:"body,omitempty"`
	BodyOpenAPI map[string]any    `yaml:"bodyOpenAPI,omitempty"`
	RequireAuth *bool             `yaml:"requireAuth,omitempty"`
	Deprecation *Deprecation      `yaml:"deprecation,omitempty"`
	APIVersion  string            `yaml:"apiVersion,omitempty"`
	Idempotency IdempotencyPolicy `yaml:"idempotency,omitempty"`
}

// LoadConfigs reads a routes file from disk.
func LoadConfigs(path string) (map[string]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	return ParseConfigs(data)
}

// ParseConfigs parses a routes file of the form
//
//	version: 1
//	routes:
//	  proposals.list:
//	    method: GET
//	    path: /api/proposals
//	    query: {limit: positive_int?}
//
// Each entry's key becomes Config.Name.
func ParseConfigs(data []byte) (map[string]Config, error) {
	var f routesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse routes file: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("parse routes file: unsupported version %d", f.Version)
	}

	out := make(map[string]Config, len(f.Routes))
	for _, name := range sortedNames(f.Routes) {
		fr := f.Routes[name]
		cfg := Config{
			Name:        name,
			Method:      fr.Method,
			Path:        fr.Path,
			Roles:       fr.Roles,
			RequireAuth: fr.RequireAuth,
			Deprecation: fr.Deprecation,
			APIVersion:  fr.APIVersion,
			Idempotency: fr.Idempotency,
		}
		if fr.Query != nil {
			cfg.Query = fr.Query
		}
		switch {
		case fr.Body != nil && fr.BodyOpenAPI != nil:
			return nil, fmt.Errorf("route %s: body and bodyOpenAPI are mutually exclusive", name)
		case fr.Body != nil:
			cfg.Body = fr.Body
		case fr.BodyOpenAPI != nil:
			raw, err := yaml.Marshal(fr.BodyOpenAPI)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", name, err)
			}
			v, err := schema.ParseOpenAPI(raw)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", name, err)
			}
			cfg.Body = v
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		out[name] = cfg
	}
	return out, nil
}

func sortedNames(m map[string]fileRoute) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
