package services

import (
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

// Planner exposes the assignment lifecycle of the routing engine: the
// unassigned pool, route find-or-create and status transitions, and stop
// append/remove. It is stateless; "currently selected route" is a caller-side
// concern threaded through as explicit parameters.
type Planner struct {
	Jobs   ports.JobStore
	Routes ports.RouteRepository
	Stops  ports.StopRepository
	Lock   ports.RouteLock

	// Default route origin when a route carries no start override.
	HomeLocation *domain.Coordinates
}
