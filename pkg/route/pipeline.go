package route

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

// Route wraps h in the pipeline configured by cfg.
func (p *Pipeline) Route(cfg Config, h HandlerFunc) http.Handler {
	cfg = cfg.normalize()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, cfg, h)
	})
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, cfg Config, h HandlerFunc) {
	start := p.now()
	requestID := p.requestID(r)

	resp, replayed, err := p.run(r, cfg, h, requestID)
	if err != nil {
		p.fail(w, r, cfg, requestID, start, err)
		return
	}

	// Replayed responses get a fresh request id; everything else comes from the record.
	decorate(resp.Header, cfg, requestID)
	resp.write(w)

	elapsed := p.now().Sub(start)
	p.observer.ObserveRequest(RequestEvent{
		Route:    routeLabel(cfg),
		Method:   r.Method,
		Status:   statusOf(resp),
		Duration: elapsed,
		Replayed: replayed,
	})
	p.logger.Debug("route.completed",
		"route", routeLabel(cfg),
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusOf(resp),
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID,
		"replayed", replayed,
	)
}

// run executes every stage up to and including the idempotency store.
func (p *Pipeline) run(r *http.Request, cfg Config, h HandlerFunc, requestID string) (*Response, bool, error) {
	ctx := r.Context()

	caller, err := p.authenticate(r, cfg)
	if err != nil {
		return nil, false, err
	}

	in, err := p.parseInput(r, cfg)
	if err != nil {
		return nil, false, err
	}

	key, err := p.idempotencyKey(r, cfg, caller, in)
	if err != nil {
		return nil, false, err
	}
	if key != "" {
		if rec, ok := p.lookup(ctx, cfg, key); ok {
			p.logger.Info("idempotency.replay", "route", routeLabel(cfg), "key", key, "request_id", requestID)
			return rec.response(), true, nil
		}
		if p.locker != nil {
			release := p.acquire(ctx, cfg, key)
			defer release()
			if rec, ok := p.lookup(ctx, cfg, key); ok {
				p.logger.Info("idempotency.replay", "route", routeLabel(cfg), "key", key, "request_id", requestID)
				return rec.response(), true, nil
			}
		}
	}

	req := &Request{
		Caller:    caller,
		Query:     in.query,
		Body:      in.body,
		RawBody:   in.raw,
		RequestID: requestID,
		HTTP:      r,
	}
	resp, err := invoke(ctx, h, req)
	if err != nil {
		return nil, false, err
	}

	if key != "" {
		decorate(resp.Header, cfg, requestID)
		p.store(ctx, cfg, key, resp)
	}
	return resp, false, nil
}

// invoke calls the handler, turning panics into internal errors.
func invoke(ctx context.Context, h HandlerFunc, req *Request) (resp *Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = domain.Internal("", fmt.Errorf("handler panic: %v\n%s", rec, debug.Stack()))
		}
	}()

	resp, err = h(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = NoContent()
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	return resp, nil
}

// fail is the error normalizer: map, log once, decorate, write the bare message.
func (p *Pipeline) fail(w http.ResponseWriter, r *http.Request, cfg Config, requestID string, start time.Time, err error) {
	e, ok := domain.AsError(err)
	if !ok {
		e = domain.Internal("", err)
	}
	status := e.Status()
	elapsed := p.now().Sub(start)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		"route", routeLabel(cfg),
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID,
		"code", string(e.Code),
		"message", e.Message,
	}
	if len(e.Fields) > 0 {
		attrs = append(attrs, "fields", e.Fields)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
	}
	p.logger.Log(r.Context(), level, "route.error", attrs...)

	resp := Text(status, e.Message)
	decorate(resp.Header, cfg, requestID)
	resp.Header.Set("X-Content-Type-Options", "nosniff")
	resp.write(w)

	p.observer.ObserveRequest(RequestEvent{
		Route:    routeLabel(cfg),
		Method:   r.Method,
		Status:   status,
		Duration: elapsed,
	})
}

func routeLabel(cfg Config) string {
	switch {
	case cfg.Name != "":
		return cfg.Name
	case cfg.Path != "":
		return cfg.Path
	default:
		return "unnamed"
	}
}

func statusOf(resp *Response) int {
	if resp.Status == 0 {
		return http.StatusOK
	}
	return resp.Status
}
