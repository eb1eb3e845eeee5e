package ports

import (
	"context"

	"dispatch-routing-service/internal/domain"
)

// A destination submitted to the optimization provider.
type Waypoint struct {
	ID    string
	Point domain.Coordinates
}

// Travel metrics for one leg between consecutive points.
type Leg struct {
	DistanceMiles   float64
	DurationMinutes float64
}

// Result of one optimization round-trip.
//
// VisitOrder is the provider's visiting order over the submitted waypoint ids.
// Legs parallel the visit order: Legs[0] is the origin -> VisitOrder[0] drive
// and Legs[i] arrives at VisitOrder[i]; a trailing return leg may follow when
// returnToOrigin was requested. Aggregates cover the whole loop including
// origin and return legs.
type OptimizationResult struct {
	VisitOrder               []string
	Legs                     []Leg
	AggregateDistanceMiles   float64
	AggregateDurationMinutes float64
}

// Contract for the external directions/optimization provider.
type OptimizationClient interface {
	// Compute a visiting order and leg metrics for the destinations starting
	// from origin. The provider owns tie-breaking; results are accepted as-is.
	Optimize(ctx context.Context, origin domain.Coordinates, destinations []Waypoint, returnToOrigin bool) (*OptimizationResult, error)
}
