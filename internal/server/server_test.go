package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morabah/posalpro-app-sub013/internal/config"
	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/route"
)

type testServer struct {
	t   *testing.T
	app *App
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	app, err := Build(context.Background(), cfg, nil, "test")
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return &testServer{t: t, app: app}
}

func (s *testServer) login(id string, roles ...string) string {
	s.t.Helper()
	token, err := s.app.Sessions.Issue(context.Background(), domain.Caller{ID: id, Email: id + "@example.com", Roles: roles}, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, target, token, body string, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.app.Handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) count(token string) int {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/proposals", token, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var list proposalList
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &list))
	return list.Count
}

func TestServer_ForbiddenHasNoSideEffects(t *testing.T) {
	routes := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(routes, []byte(`
version: 1
routes:
  proposals.create:
    roles: [admin]
    body:
      name: non_empty_string
`), 0o600))

	s := newTestServer(t, func(c *config.Config) { c.RoutesFile = routes })
	viewer := s.login("u-viewer", "viewer")

	rec := s.do(http.MethodPost, "/api/proposals", viewer, `{"name":"x"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
	assert.Zero(t, s.count(viewer))
}

func TestServer_IdempotentCreate(t *testing.T) {
	s := newTestServer(t, nil)
	sales := s.login("u-sales", "sales")

	first := s.do(http.MethodPost, "/api/proposals", sales, `{"name":"x"}`, domain.HeaderIdempotencyKey, "abc123")
	second := s.do(http.MethodPost, "/api/proposals", sales, `{"name":"x"}`, domain.HeaderIdempotencyKey, "abc123")

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(domain.HeaderIdempotentReplay))
	assert.Equal(t, "no-store", second.Header().Get("Cache-Control"))
	assert.Empty(t, second.Header().Get("Location"))
	assert.Equal(t, 1, s.count(sales))
}

func TestServer_QueryLimitValidation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login("u-sales", "sales")

	rec := s.do(http.MethodGet, "/api/proposals?limit=-5", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit")

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/proposals", token, `{"name":"p"}`).Code)
	}
	rec = s.do(http.MethodGet, "/api/proposals?limit=2", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list proposalList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)
}

func TestServer_DeleteUsesRoleHierarchy(t *testing.T) {
	s := newTestServer(t, nil)
	sales := s.login("u-sales", "sales")
	admin := s.login("u-admin", "admin")

	rec := s.do(http.MethodPost, "/api/proposals", sales, `{"name":"p","budget":1200.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotNil(t, p.Budget)
	assert.Equal(t, 1200.5, *p.Budget)
	assert.Equal(t, "u-sales", p.Owner)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/proposals/"+p.ID, sales, "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/proposals/"+p.ID, admin, "").Code)

	rec = s.do(http.MethodDelete, "/api/proposals/"+p.ID, admin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Proposal not found", rec.Body.String())
}

func TestServer_CreateValidatesBodyTags(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login("u-sales", "sales")

	tests := []struct {
		body string
		want string
	}{
		{`{}`, "Invalid request body: name: required"},
		{`{"name":"   "}`, "Invalid request body: name: must not be empty"},
		{`{"budget":-1}`, "Invalid request body: budget: must be greater than or equal to 0; name: required"},
	}
	for _, tt := range tests {
		rec := s.do(http.MethodPost, "/api/proposals", token, tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Equal(t, tt.want, rec.Body.String(), tt.body)
	}

	rec := s.do(http.MethodPost, "/api/proposals", token, `{"name":"p","budget":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "budget")

	rec = s.do(http.MethodPost, "/api/proposals", token, `{"name":"p","budget":1e3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotNil(t, p.Budget)
	assert.Equal(t, 1000.0, *p.Budget)
}

func TestServer_LegacyRouteIsDeprecated(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login("u-sales", "sales")

	rec := s.do(http.MethodGet, "/api/v0/proposals", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get(domain.HeaderAPIVersion))
	assert.Equal(t, "true", rec.Header().Get(domain.HeaderDeprecation))
	assert.Equal(t, LegacySunset, rec.Header().Get(domain.HeaderSunset))
	assert.Equal(t, `</api/proposals>; rel="deprecation"`, rec.Header().Get(domain.HeaderLink))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_MeAndLogout(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login("u-ann", "Admin")

	rec := s.do(http.MethodGet, "/api/me", token, "", domain.HeaderRequestID, "trace-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trace-1", rec.Header().Get(domain.HeaderRequestID))
	var caller domain.Caller
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &caller))
	assert.Equal(t, "u-ann", caller.ID)

	rec = s.do(http.MethodDelete, "/api/session", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "sid=")

	rec = s.do(http.MethodGet, "/api/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized access", rec.Body.String())
}

func TestServer_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login("u-sales", "sales")
	s.do(http.MethodGet, "/api/me", token, "")

	rec := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", "").Code)

	rec = s.do(http.MethodGet, "/info", "", "")
	assert.JSONEq(t, `{"app":"posalpro","version":"test","api_version":"1"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/openapi.yaml", "", "")
	assert.Contains(t, rec.Body.String(), "PosalPro API")

	rec = s.do(http.MethodGet, "/metrics", "", "")
	assert.Contains(t, rec.Body.String(), `posalpro_http_requests_total{method="GET",route="me",status="200"} 1`)

	rec = s.do(http.MethodOptions, "/api/proposals", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestServer_RedisBackedWithEncryptionAndLock(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newTestServer(t, func(c *config.Config) {
		c.Redis.Addr = mr.Addr()
		c.Cache.Backend = config.BackendRedis
		c.Cache.Key = strings.Repeat("ab", 32)
		c.Cache.Lock = true
		c.Session.Store = config.BackendRedis
	})
	token := s.login("u-sales", "sales")

	first := s.do(http.MethodPost, "/api/proposals", token, `{"name":"x"}`, domain.HeaderIdempotencyKey, "k")
	second := s.do(http.MethodPost, "/api/proposals", token, `{"name":"x"}`, domain.HeaderIdempotencyKey, "k")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, "true", second.Header().Get(domain.HeaderIdempotentReplay))
	assert.Equal(t, first.Body.String(), second.Body.String())

	var found bool
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "posalpro:idem:u-sales:POST:/api/proposals:k:") {
			found = true
			raw, err := mr.Get(k)
			require.NoError(t, err)
			assert.NotContains(t, raw, `"name"`, "cached records are encrypted")
		}
	}
	assert.True(t, found, "keys: %v", mr.Keys())
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", "").Code)

	mr.SetError("ERR redis is down")
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/readyz", "", "").Code)
	mr.SetError("")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad cache key", func(c *config.Config) { c.Cache.Key = "short" }},
		{"missing policy file", func(c *config.Config) { c.Authz.PolicyFile = filepath.Join(t.TempDir(), "none.csv") }},
		{"missing routes file", func(c *config.Config) { c.RoutesFile = filepath.Join(t.TempDir(), "none.yaml") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			_, err := Build(context.Background(), cfg, nil, "")
			assert.Error(t, err)
		})
	}
}

func TestMergeRoutes(t *testing.T) {
	merged, err := MergeRoutes(map[string]route.Config{
		RouteProposalsList: {Method: http.MethodPost, Path: "/elsewhere", Roles: []string{"manager"}},
	})
	require.NoError(t, err)
	list := merged[RouteProposalsList]
	assert.Equal(t, http.MethodGet, list.Method)
	assert.Equal(t, "/api/proposals", list.Path)
	assert.Equal(t, []string{"manager"}, list.Roles)
	assert.Equal(t, RouteMe, merged[RouteMe].Name)

	_, err = MergeRoutes(map[string]route.Config{"proposals.archive": {}})
	assert.ErrorContains(t, err, "unknown route")
}

func TestApp_StartStopJanitor(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.app.Start(ctx))
	assert.Error(t, s.app.Start(ctx))
	require.NoError(t, s.app.Close())
}
