package domain

import (
	"fmt"
	"time"
)

type RouteStatus string

const (
	RoutePlanned    RouteStatus = "planned"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
)

// A crew member assigned to drive/work a route. Crew assignment is a typed
// list of these records, validated at the repository boundary.
type CrewMember struct {
	ID          string
	DisplayName string
}

// Represents an ordered, date- and crew-scoped sequence of stops for one shop.
//
// TotalStops is a cached count kept equal to the live stop count by the stop
// repository. TotalDistanceMiles and TotalDurationMinutes are both nil until
// the first optimization and are nulled together whenever a structural change
// makes the cached sums untrustworthy.
type Route struct {
	ID                   string
	ShopID               string
	RouteDate            time.Time
	Name                 string
	Status               RouteStatus
	AssignedCrew         []CrewMember
	TotalStops           int
	TotalDistanceMiles   *float64
	TotalDurationMinutes *float64
	StartLocation        *Coordinates
	EndLocation          *Coordinates
}

// CanTransitionTo reports whether a status change is allowed.
// Transitions are one-directional: planned -> in_progress -> completed, with
// planned -> completed permitted for routes entered retroactively.
func (r Route) CanTransitionTo(next RouteStatus) error {
	if r.Status == RouteCompleted {
		return fmt.Errorf("route %s: %w", r.ID, ErrRouteAlreadyCompleted)
	}

	switch {
	case r.Status == RoutePlanned && next == RouteInProgress:
		return nil
	case r.Status == RoutePlanned && next == RouteCompleted:
		return nil
	case r.Status == RouteInProgress && next == RouteCompleted:
		return nil
	}

	return fmt.Errorf("route %s: invalid status transition %q -> %q", r.ID, r.Status, next)
}
