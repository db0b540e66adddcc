package route

import "time"

// RequestEvent summarises one finished request.
type RequestEvent struct {
	Route    string
	Method   string
	Status   int
	Duration time.Duration
	Replayed bool
}

// Cache operations reported to Observer.ObserveCacheError.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDecode = "decode"
	CacheOpLock   = "lock"
)

// Observer receives pipeline events, typically to export metrics.
type Observer interface {
	ObserveRequest(RequestEvent)
	ObserveCacheError(op string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(RequestEvent) {}
func (nopObserver) ObserveCacheError(string)   {}
