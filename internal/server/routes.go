package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/morabah/posalpro-app-sub013/pkg/route"
	"github.com/morabah/posalpro-app-sub013/pkg/schema"
)

// Route names, also the keys accepted in a routes file.
const (
	RouteMe              = "me"
	RouteProposalsList   = "proposals.list"
	RouteProposalsCreate = "proposals.create"
	RouteProposalsDelete = "proposals.delete"
	RouteProposalsLegacy = "proposals.legacy"
	RouteSessionRevoke   = "session.revoke"
)

// LegacySunset is when the v0 listing goes away.
const LegacySunset = "Thu, 31 Dec 2026 23:59:59 GMT"

// DefaultRoutes returns the built-in route declarations.
func DefaultRoutes() map[string]route.Config {
	return map[string]route.Config{
		RouteMe: {
			Method: http.MethodGet,
			Path:   "/api/me",
		},
		RouteProposalsList: {
			Method: http.MethodGet,
			Path:   "/api/proposals",
			Query:  schema.Schema{"limit": schema.Optional(schema.PositiveInt())},
		},
		RouteProposalsCreate: {
			Method: http.MethodPost,
			Path:   "/api/proposals",
			Body:   schema.NewStruct[createBody](),
		},
		RouteProposalsDelete: {
			Method: http.MethodDelete,
			Path:   "/api/proposals/{id}",
			Roles:  []string{"admin"},
		},
		RouteProposalsLegacy: {
			Method:     http.MethodGet,
			Path:       "/api/v0/proposals",
			APIVersion: "0",
			Deprecation: &route.Deprecation{
				Sunset:  LegacySunset,
				Link:    "/api/proposals",
				Message: "Use GET /api/proposals",
			},
		},
		RouteSessionRevoke: {
			Method:      http.MethodDelete,
			Path:        "/api/session",
			Idempotency: route.IdempotencyPolicy{Enabled: route.Bool(false)},
		},
	}
}

// MergeRoutes overlays declarations from a routes file on the defaults.
// Method and path always come from the defaults since the router owns them.
func MergeRoutes(overrides map[string]route.Config) (map[string]route.Config, error) {
	out := DefaultRoutes()
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base, ok := out[name]
		if !ok {
			return nil, fmt.Errorf("routes file: unknown route %q", name)
		}
		cfg := overrides[name]
		cfg.Name = name
		cfg.Method, cfg.Path = base.Method, base.Path
		out[name] = cfg
	}
	for name, cfg := range out {
		cfg.Name = name
		out[name] = cfg
	}
	return out, nil
}
