package route_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
	"github.com/morabah/posalpro-app-sub013/pkg/route"
)

const userHeader = "X-Test-User"

var callers = map[string]*domain.Caller{
	"alice": {ID: "u-alice", Email: "alice@example.com", Roles: []string{"sales"}},
	"bob":   {ID: "u-bob", Email: "bob@example.com", Roles: []string{"sales"}},
	"vic":   {ID: "u-vic", Email: "vic@example.com", Roles: []string{"viewer"}},
	"ann":   {ID: "u-ann", Email: "ann@example.com", Roles: []string{"Admin"}},
}

// headerSessions resolves the caller named in X-Test-User.
var headerSessions = ports.SessionResolverFunc(func(r *http.Request) (*domain.Caller, error) {
	return callers[r.Header.Get(userHeader)], nil
})

type recordingObserver struct {
	mu          sync.Mutex
	events      []route.RequestEvent
	cacheErrors []string
}

func (o *recordingObserver) ObserveRequest(ev route.RequestEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) ObserveCacheError(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cacheErrors = append(o.cacheErrors, op)
}

// countingHandler records how often it ran.
type countingHandler struct {
	calls atomic.Int32
	fn    route.HandlerFunc
}

func (c *countingHandler) Handle(ctx context.Context, req *route.Request) (*route.Response, error) {
	c.calls.Add(1)
	if c.fn != nil {
		return c.fn(ctx, req)
	}
	return route.JSON(http.StatusOK, map[string]string{"ok": "true"})
}

func (c *countingHandler) Calls() int { return int(c.calls.Load()) }

type request struct {
	method  string
	target  string
	user    string
	body    string
	ctype   string
	headers map[string]string
}

func do(t *testing.T, h http.Handler, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.target, body)
	if r.user != "" {
		req.Header.Set(userHeader, r.user)
	}
	if r.body != "" {
		ctype := r.ctype
		if ctype == "" {
			ctype = "application/json"
		}
		req.Header.Set("Content-Type", ctype)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
