package memory

import (
	"context"
	"sync"
	"time"

	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

// lockEntry holds the per-key slot and the reference count.
type lockEntry struct {
	slot chan struct{}
	refs int
}

// Locker implements ports.DistributedLocker inside one process.
// Entries are reference counted and dropped once nobody holds or waits
// for the key. The ttl argument is ignored: an in-process holder cannot
// vanish without releasing.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

var _ ports.DistributedLocker = (*Locker)(nil)

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	e := l.acquire(key)

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-e.slot
			l.release(key)
		})
		return nil
	}, nil
}

// Len returns the number of keys currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{slot: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(l.locks, key)
	}
}
