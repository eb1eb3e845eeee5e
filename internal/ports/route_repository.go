package ports

import (
	"context"
	"time"

	"dispatch-routing-service/internal/domain"
)

// Per-stop write applied during optimization reconciliation.
type StopReorder struct {
	StopID                       string
	StopOrder                    int
	DriveTimeFromPreviousMinutes *float64
	DistanceFromPreviousMiles    *float64
	EstimatedArrival             *time.Time
}

// The complete reconciliation write for one optimization round-trip.
// ExpectedStopIDs is the stop set that was sent to the provider; the
// repository must abort with ErrRouteChanged if the route's live stop set
// no longer matches it.
type OptimizationWrite struct {
	ExpectedStopIDs      []string
	Stops                []StopReorder
	TotalDistanceMiles   float64
	TotalDurationMinutes float64
}

// Port: persistence for routes, scoped to a shop and a calendar date.
type RouteRepository interface {
	GetRoute(ctx context.Context, routeID string) (*domain.Route, error)

	// Routes for one shop on one date, earliest created first.
	RoutesForDate(ctx context.Context, shopID string, date time.Time) ([]domain.Route, error)

	// Routes for one shop in an inclusive date range.
	RoutesForDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Route, error)

	CreateRoute(ctx context.Context, route *domain.Route) error

	// Delete a route; fails with ErrRouteNotEmpty while it has stops.
	DeleteRoute(ctx context.Context, routeID string) error

	// Persist an already-validated status change.
	SetRouteStatus(ctx context.Context, routeID string, status domain.RouteStatus) error

	// Apply stop order, per-leg metrics and route aggregates as one atomic
	// unit. Either every stop's new order/metrics and the aggregates commit
	// together, or nothing does.
	ApplyOptimization(ctx context.Context, routeID string, write OptimizationWrite) error
}
