// Package server mounts the route pipeline on a chi router together with
// the operational endpoints.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/morabah/posalpro-app-sub013/internal/logging"
	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/route"
	"github.com/morabah/posalpro-app-sub013/pkg/session"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Deps are the collaborators the handler is built from.
type Deps struct {
	Pipeline *route.Pipeline
	// Sessions backs the session revoke endpoint. Optional.
	Sessions *session.Manager
	// Routes override the built-in declarations by name.
	Routes map[string]route.Config
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// Ready is probed by /readyz.
	Ready   func(context.Context) error
	Logger  *slog.Logger
	Version string
}

type server struct {
	deps       Deps
	proposals  *proposalHandlers
	apiVersion string
}

// NewHandler creates the HTTP handler.
func NewHandler(d Deps) (http.Handler, error) {
	if d.Pipeline == nil {
		return nil, errors.New("server: pipeline is required")
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	routes, err := MergeRoutes(d.Routes)
	if err != nil {
		return nil, err
	}

	doc, err := openapi3.NewLoader().LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("server: load openapi spec: %w", err)
	}

	s := &server{
		deps:       d,
		proposals:  &proposalHandlers{store: newProposalStore()},
		apiVersion: doc.Info.Version,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.health)
	r.Get("/readyz", s.ready)
	r.Get("/info", s.info)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(openapiSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	handlers := map[string]route.HandlerFunc{
		RouteMe:              me,
		RouteProposalsList:   route.Typed(s.proposals.list),
		RouteProposalsCreate: route.Typed(s.proposals.create),
		RouteProposalsDelete: s.proposals.remove,
		RouteProposalsLegacy: s.proposals.legacyList,
		RouteSessionRevoke:   s.revokeSession,
	}
	for name, h := range handlers {
		cfg := routes[name]
		r.Method(cfg.Method, cfg.Path, d.Pipeline.Route(cfg, h))
	}
	return r, nil
}

// enableCORS allows browser clients to send the pipeline's request headers
// and read the ones it sets.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Request-Id")
		w.Header().Set("Access-Control-Expose-Headers",
			"X-Request-Id, X-Api-Version, X-Idempotent-Replay, Deprecation, Sunset, Link, X-Api-Deprecation-Message")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>PosalPro API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.deps.Logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) info(w http.ResponseWriter, r *http.Request) {
	version := s.deps.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "posalpro",
		"version":     version,
		"api_version": s.apiVersion,
	})
}

func me(_ context.Context, req *route.Request) (*route.Response, error) {
	return route.JSON(http.StatusOK, req.Caller)
}

// revokeSession deletes the caller's session and clears the cookie.
func (s *server) revokeSession(ctx context.Context, req *route.Request) (*route.Response, error) {
	sm := s.deps.Sessions
	if sm == nil {
		return nil, domain.NotFound("Sessions are not managed by this server")
	}
	if err := sm.Revoke(ctx, sm.Token(req.HTTP)); err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "Session revoke failed", err)
	}
	resp := route.NoContent()
	resp.Header.Set("Set-Cookie", (&http.Cookie{
		Name:     sm.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}).String())
	return resp, nil
}
