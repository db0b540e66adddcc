// Package cachemw wraps a ports.Cache with cross-cutting behaviour such as
// at-rest encryption and key namespacing.
package cachemw

import (
	"context"
	"time"

	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

// Middleware allows wrapping a Cache to add behavior.
type Middleware func(ports.Cache) ports.Cache

// Chain applies mws so that the first one is the outermost.
func Chain(c ports.Cache, mws ...Middleware) ports.Cache {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

type prefix struct {
	next      ports.Cache
	namespace string
}

// NewPrefix namespaces every key with ns, so several deployments can share
// one cache.
func NewPrefix(ns string) Middleware {
	return func(next ports.Cache) ports.Cache {
		return &prefix{next: next, namespace: ns}
	}
}

func (p *prefix) Get(ctx context.Context, key string) ([]byte, error) {
	return p.next.Get(ctx, p.namespace+key)
}

func (p *prefix) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.next.Set(ctx, p.namespace+key, value, ttl)
}

func (p *prefix) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, p.namespace+key)
}
