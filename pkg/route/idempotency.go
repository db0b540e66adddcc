package route

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

const maxIdempotencyKeyLen = 255

// record is the cached form of a replayable response.
type record struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// idempotencyKey returns the cache key for r, or "" when replay does not apply.
func (p *Pipeline) idempotencyKey(r *http.Request, cfg Config, caller *domain.Caller, in *input) (string, error) {
	if p.cache == nil || !isMutating(r.Method) || !cfg.Idempotency.IsEnabled() {
		return "", nil
	}
	clientKey := strings.TrimSpace(r.Header.Get(domain.HeaderIdempotencyKey))
	if clientKey == "" {
		return "", nil
	}
	if len(clientKey) > maxIdempotencyKeyLen {
		return "", domain.BadRequest(fmt.Sprintf("Idempotency-Key must be at most %d characters", maxIdempotencyKeyLen))
	}

	subject := caller.ID
	if cfg.Idempotency.Scope == ScopeGlobal {
		subject = globalSubject
	}
	return strings.Join([]string{
		"idem", subject, r.Method, r.URL.Path, clientKey, payloadHash(r, in),
	}, ":"), nil
}

// payloadHash is a stable digest of the body and query parameters.
// Parsed bodies are re-encoded so key order and whitespace do not matter.
// Numbers stay json.Number, so every digit of the payload reaches the digest.
func payloadHash(r *http.Request, in *input) string {
	h := sha256.New()

	query, _ := json.Marshal(r.URL.Query())
	h.Write(query)
	h.Write([]byte{0})

	if in.body != nil {
		if canonical, err := json.Marshal(in.body); err == nil {
			h.Write(canonical)
			return hex.EncodeToString(h.Sum(nil))
		}
	}
	h.Write(in.raw)
	return hex.EncodeToString(h.Sum(nil))
}

// lookup returns the cached response for key. Cache failures count as a miss.
func (p *Pipeline) lookup(ctx context.Context, cfg Config, key string) (*record, bool) {
	data, err := p.cache.Get(ctx, key)
	if errors.Is(err, ports.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		p.logger.Warn("idempotency.lookup_failed", "route", cfg.Name, "key", key, "error", err)
		p.observer.ObserveCacheError(CacheOpGet)
		return nil, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		p.logger.Warn("idempotency.lookup_failed", "route", cfg.Name, "key", key, "error", err)
		p.observer.ObserveCacheError(CacheOpDecode)
		return nil, false
	}
	return &rec, true
}

// store persists resp under key. Failures are logged and never surface.
func (p *Pipeline) store(ctx context.Context, cfg Config, key string, resp *Response) {
	rec := record{Status: resp.Status, Body: resp.Body, Headers: map[string]string{}}
	if rec.Status == 0 {
		rec.Status = http.StatusOK
	}
	for _, name := range domain.SafelistedHeaders {
		if v := resp.Header.Get(name); v != "" {
			rec.Headers[name] = v
		}
	}

	data, err := json.Marshal(rec)
	if err == nil {
		err = p.cache.Set(ctx, key, data, cfg.Idempotency.TTL())
	}
	if err != nil {
		p.logger.Error("idempotency.store_failed", "route", cfg.Name, "key", key, "error", err)
		p.observer.ObserveCacheError(CacheOpSet)
	}
}

func (rec *record) response() *Response {
	h := make(http.Header, len(rec.Headers)+1)
	for k, v := range rec.Headers {
		h.Set(k, v)
	}
	h.Set(domain.HeaderIdempotentReplay, "true")
	return &Response{Status: rec.Status, Header: h, Body: rec.Body}
}

// acquire takes the optional per-key lock. A lock failure is logged and the
// request proceeds unserialised.
func (p *Pipeline) acquire(ctx context.Context, cfg Config, key string) func() {
	if p.locker == nil {
		return func() {}
	}
	unlock, err := p.locker.Lock(ctx, "lock:"+key, p.lockTTL)
	if err != nil {
		p.logger.Warn("idempotency.lock_failed", "route", cfg.Name, "key", key, "error", err)
		p.observer.ObserveCacheError(CacheOpLock)
		return func() {}
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			p.logger.Warn("idempotency.unlock_failed", "route", cfg.Name, "key", key, "error", err)
		}
	}
}
