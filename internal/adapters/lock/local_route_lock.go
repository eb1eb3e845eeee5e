package lock

import (
	"context"
	"fmt"
	"sync"

	"dispatch-routing-service/internal/domain"
)

// LocalRouteLock is an in-process implementation of the route lock for
// STORE=memory runs and tests. It provides the same TryAcquire semantics as
// the Redis lock within a single service instance.
type LocalRouteLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalRouteLock() *LocalRouteLock {
	return &LocalRouteLock{held: make(map[string]struct{})}
}

func (l *LocalRouteLock) TryAcquire(ctx context.Context, routeID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[routeID]; ok {
		return nil, fmt.Errorf("route lock %s: %w", routeID, domain.ErrRouteBusy)
	}
	l.held[routeID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, routeID)
		})
	}

	return release, nil
}

func (l *LocalRouteLock) Held(ctx context.Context, routeID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[routeID]
	return ok, nil
}
