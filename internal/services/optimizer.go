package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

const defaultProviderTimeout = 30 * time.Second

// Optimizer is the route optimization coordinator. One invocation runs
// Idle -> Requesting -> Reconciling -> Idle, or fails with zero writes:
// a provider failure, a timeout, or a stop set changing mid-flight leaves
// every stop order and route aggregate exactly as it was.
type Optimizer struct {
	Jobs   ports.JobStore
	Routes ports.RouteRepository
	Stops  ports.StopRepository
	Client ports.OptimizationClient
	Lock   ports.RouteLock

	// Optional best-effort address resolution for jobs without a coordinate.
	Geocoder ports.Geocoder

	// Default origin when the route has no start override.
	HomeLocation *domain.Coordinates

	// Bound on the outbound provider call. Zero means defaultProviderTimeout.
	ProviderTimeout time.Duration

	// Clock for estimated arrivals; nil means time.Now.
	Now func() time.Time
}

// Optimize re-sequences a route using the external provider and reconciles
// the returned order and metrics into the route's stops, atomically.
//
// The per-route lock is held across the whole round-trip, so concurrent
// structural mutation and double optimization surface as ErrRouteBusy. As a
// backstop for lock expiry, the reconciliation transaction re-validates the
// stop set's identity and aborts with ErrRouteChanged on mismatch.
//
// Retrying after a ProviderError re-runs the full precondition check; the
// operation is idempotent given a deterministic provider.
func (o *Optimizer) Optimize(ctx context.Context, routeID string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)
	defer func(start time.Time) {
		metrics.ObserveOptimization(outcomeLabel(err), time.Since(start))
	}(time.Now())

	release, err := o.Lock.TryAcquire(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("optimize route %s: %w", routeID, err)
	}
	defer release()

	route, err := o.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("optimize route %s: %w", routeID, err)
	}

	stops, err := o.Stops.ListStops(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("optimize route %s: list stops: %w", routeID, err)
	}

	geocoded, tail, err := o.resolveWaypoints(ctx, stops)
	if err != nil {
		return nil, fmt.Errorf("optimize route %s: %w", routeID, err)
	}

	// No external call is made below this threshold.
	if len(geocoded) < 2 {
		return nil, fmt.Errorf("optimize route %s: %d geocoded stops: %w",
			routeID, len(geocoded), domain.ErrInsufficientStops)
	}

	origin, err := o.selectOrigin(route, geocoded)
	if err != nil {
		return nil, fmt.Errorf("optimize route %s: %w", routeID, err)
	}

	// Requesting: exactly one provider call per invocation, bounded.
	timeout := o.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := o.Client.Optimize(callCtx, origin, geocoded, true)
	if err != nil {
		return nil, fmt.Errorf("optimize route %s: %w", routeID, &domain.ProviderError{Err: err})
	}
	if err := validateResult(result, geocoded); err != nil {
		return nil, fmt.Errorf("optimize route %s: %w", routeID, &domain.ProviderError{Err: err})
	}

	// Reconciling: one transaction covers every stop's order/metrics and the
	// route aggregates.
	write := o.buildWrite(stops, geocoded, tail, result)
	if err := o.Routes.ApplyOptimization(ctx, routeID, write); err != nil {
		return nil, fmt.Errorf("optimize route %s: reconcile: %w", routeID, err)
	}

	updated, err := o.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("optimize route %s: reload: %w", routeID, err)
	}

	return updated, nil
}

// resolveWaypoints splits stops into geocoded waypoints (in current order)
// and a non-geocoded tail (also in current order). Jobs without a coordinate
// go through the geocoder first when one is configured; resolution failures
// are logged and the stop stays on the tail.
func (o *Optimizer) resolveWaypoints(ctx context.Context, stops []domain.Stop) ([]ports.Waypoint, []domain.Stop, error) {
	if len(stops) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, 0, len(stops))
	for _, s := range stops {
		ids = append(ids, s.JobID)
	}

	jobs, err := o.Jobs.GetJobs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("get jobs: %w", err)
	}

	geocoded := make([]ports.Waypoint, 0, len(stops))
	tail := make([]domain.Stop, 0)

	for _, s := range stops {
		job, ok := jobs[s.JobID]
		if !ok {
			tail = append(tail, s)
			continue
		}

		coord := job.Coordinate
		if coord == nil && o.Geocoder != nil && job.Address != "" {
			resolved, gerr := o.Geocoder.Geocode(ctx, job.Address)
			if gerr != nil {
				log.Printf("op=optimizer.geocode stop=%s err=%v", s.ID, gerr)
			} else {
				coord = &resolved
			}
		}

		if coord == nil {
			tail = append(tail, s)
			continue
		}

		geocoded = append(geocoded, ports.Waypoint{ID: s.ID, Point: *coord})
	}

	return geocoded, tail, nil
}

// selectOrigin picks the request origin: the route's start override, then the
// shop home location, then the first geocoded stop.
func (o *Optimizer) selectOrigin(route *domain.Route, geocoded []ports.Waypoint) (domain.Coordinates, error) {
	if route.StartLocation != nil {
		return *route.StartLocation, nil
	}
	if o.HomeLocation != nil {
		return *o.HomeLocation, nil
	}
	if len(geocoded) > 0 {
		return geocoded[0].Point, nil
	}
	return domain.Coordinates{}, fmt.Errorf("no origin resolvable")
}

// validateResult rejects malformed provider responses: the visit order must
// be a permutation of the submitted waypoints and every visit needs an
// inbound leg. Ties in the returned order are the provider's to break; the
// order is accepted as-is.
func validateResult(result *ports.OptimizationResult, sent []ports.Waypoint) error {
	if result == nil || len(result.VisitOrder) == 0 {
		return fmt.Errorf("empty result")
	}
	if len(result.VisitOrder) != len(sent) {
		return fmt.Errorf("visit order covers %d of %d waypoints", len(result.VisitOrder), len(sent))
	}

	want := make(map[string]struct{}, len(sent))
	for _, w := range sent {
		want[w.ID] = struct{}{}
	}
	for _, id := range result.VisitOrder {
		if _, ok := want[id]; !ok {
			return fmt.Errorf("visit order references unknown waypoint %q", id)
		}
		delete(want, id)
	}
	if len(want) != 0 {
		return fmt.Errorf("visit order is not a permutation of the submitted waypoints")
	}

	if len(result.Legs) < len(result.VisitOrder) {
		return fmt.Errorf("%d legs for %d visits", len(result.Legs), len(result.VisitOrder))
	}

	return nil
}

// buildWrite maps the provider result onto stop writes.
//
// Leg attribution: Legs[i] is the drive arriving at VisitOrder[i], with
// Legs[0] being the origin leg. "From previous" metrics are written for
// visits 2..N only; the first visit keeps nil metrics because its inbound
// leg starts at the origin, not at a stop. Origin and return legs are folded
// into the aggregates alone, which come straight from the provider.
//
// Non-geocoded tail stops follow at N+1.. preserving their prior relative
// order, with nil metrics and ETAs.
func (o *Optimizer) buildWrite(stops []domain.Stop, geocoded []ports.Waypoint, tail []domain.Stop, result *ports.OptimizationResult) ports.OptimizationWrite {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}

	reorders := make([]ports.StopReorder, 0, len(stops))

	eta := now()
	for i, stopID := range result.VisitOrder {
		leg := result.Legs[i]
		eta = eta.Add(time.Duration(leg.DurationMinutes * float64(time.Minute)))
		arrival := eta

		reorder := ports.StopReorder{
			StopID:           stopID,
			StopOrder:        i + 1,
			EstimatedArrival: &arrival,
		}
		if i > 0 {
			distance := leg.DistanceMiles
			driveTime := leg.DurationMinutes
			reorder.DistanceFromPreviousMiles = &distance
			reorder.DriveTimeFromPreviousMinutes = &driveTime
		}
		reorders = append(reorders, reorder)
	}

	for i, s := range tail {
		reorders = append(reorders, ports.StopReorder{
			StopID:    s.ID,
			StopOrder: len(result.VisitOrder) + i + 1,
		})
	}

	expected := make([]string, 0, len(stops))
	for _, s := range stops {
		expected = append(expected, s.ID)
	}

	return ports.OptimizationWrite{
		ExpectedStopIDs:      expected,
		Stops:                reorders,
		TotalDistanceMiles:   result.AggregateDistanceMiles,
		TotalDurationMinutes: result.AggregateDurationMinutes,
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrRouteBusy):
		return "route_busy"
	case errors.Is(err, domain.ErrInsufficientStops):
		return "insufficient_stops"
	case errors.Is(err, domain.ErrRouteChanged):
		return "route_changed"
	}

	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return "provider_error"
	}
	return "error"
}
