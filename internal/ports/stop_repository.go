package ports

import (
	"context"
	"time"

	"dispatch-routing-service/internal/domain"
)

// Port: persistence for stops, each owned by exactly one route.
type StopRepository interface {
	GetStop(ctx context.Context, stopID string) (*domain.Stop, error)

	// Stops of a route ordered by stop order.
	ListStops(ctx context.Context, routeID string) ([]domain.Stop, error)

	// Job ids referenced by any stop of the shop, as a set.
	AssignedJobIDs(ctx context.Context, shopID string) (map[string]struct{}, error)

	// Append a stop at order max+1 and increment the route's stop count, as
	// one atomic unit. Fails with ErrJobAlreadyAssigned when the job is
	// already referenced by any stop (storage-level uniqueness), and with
	// ErrNotFound for an unknown route.
	AppendStop(ctx context.Context, routeID, jobID string) (*domain.Stop, error)

	// Delete a stop, renumber the remaining stops of its route back to a
	// contiguous 1..N, decrement the stop count, and null the route's
	// aggregate metrics if they were populated.
	RemoveStop(ctx context.Context, stopID string) error

	// Plain update path used by field check-in; does not touch ordering or
	// metrics. actualArrival may be nil to leave it unchanged.
	UpdateStopProgress(ctx context.Context, stopID string, status domain.StopStatus, actualArrival *time.Time) error
}
