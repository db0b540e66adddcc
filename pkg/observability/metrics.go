package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morabah/posalpro-app-sub013/pkg/route"
)

// Metrics records pipeline events on Prometheus collectors.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	replays     *prometheus.CounterVec
	cacheErrors *prometheus.CounterVec
}

var _ route.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posalpro_http_requests_total",
				Help: "Requests handled by the route pipeline.",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "posalpro_http_request_duration_seconds",
				Help:    "Time spent in the route pipeline.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		replays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posalpro_idempotent_replays_total",
				Help: "Responses served from the idempotency cache.",
			},
			[]string{"route"},
		),
		cacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posalpro_idempotency_cache_errors_total",
				Help: "Idempotency cache failures swallowed by the pipeline.",
			},
			[]string{"op"},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.replays, m.cacheErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest implements route.Observer.
func (m *Metrics) ObserveRequest(ev route.RequestEvent) {
	m.requests.WithLabelValues(ev.Route, ev.Method, strconv.Itoa(ev.Status)).Inc()
	m.duration.WithLabelValues(ev.Route, ev.Method).Observe(ev.Duration.Seconds())
	if ev.Replayed {
		m.replays.WithLabelValues(ev.Route).Inc()
	}
}

// ObserveCacheError implements route.Observer.
func (m *Metrics) ObserveCacheError(op string) {
	m.cacheErrors.WithLabelValues(op).Inc()
}
