package ports

import "context"

// Port: advisory per-route lock held by the optimization coordinator for the
// duration of a round-trip. TryAcquire returns a release func on success and
// ErrRouteBusy when another holder is active; Held reports whether the route
// is currently locked without acquiring it. Implementations bound the hold
// with a TTL so a crashed holder cannot wedge the route.
//
// Structural mutations only consult Held: append-vs-append serialization is
// the repository's job, and the reconcile transaction's stop-set
// re-validation backstops a mutation that slips past the check.
type RouteLock interface {
	TryAcquire(ctx context.Context, routeID string) (release func(), err error)
	Held(ctx context.Context, routeID string) (bool, error)
}
