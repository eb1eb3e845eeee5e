package domain

import "time"

type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopArrived   StopStatus = "arrived"
	StopCompleted StopStatus = "completed"
	StopSkipped   StopStatus = "skipped"
)

// Represents a single visit to one job's location within a route.
//
// StopOrder is 1-based and contiguous within a route: the set of orders is
// always exactly {1..N}. A job is referenced by at most one stop system-wide.
// DriveTimeFromPreviousMinutes and DistanceFromPreviousMiles describe the leg
// arriving at this stop from the previous stop; the first stop of a route
// keeps them nil (its inbound leg starts at the route origin and is folded
// into the route aggregates only).
type Stop struct {
	ID                           string
	RouteID                      string
	JobID                        string
	StopOrder                    int
	Status                       StopStatus
	EstimatedArrival             *time.Time
	ActualArrival                *time.Time
	DriveTimeFromPreviousMinutes *float64
	DistanceFromPreviousMiles    *float64
}
