package services

import (
	"context"
	"fmt"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/obs"
)

// AppendStop assigns a job to the tail of a route.
//
// Preconditions: the job exists, is assignable, belongs to the route's shop,
// and is not referenced by any stop. The single-assignment invariant itself
// is enforced by the storage layer's uniqueness constraint, so two concurrent
// appends for the same job have exactly one winner; the loser observes
// ErrJobAlreadyAssigned, never a lock failure. Order assignment is serialized
// per route inside the repository transaction; the advisory lock is only
// consulted to reject mutation during an in-flight optimization.
func (p *Planner) AppendStop(ctx context.Context, routeID, jobID string) (_ *domain.Stop, err error) {
	defer obs.Time(ctx, "planner.AppendStop")(&err)

	route, err := p.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("append stop: route %s: %w", routeID, err)
	}

	jobs, err := p.Jobs.GetJobs(ctx, []string{jobID})
	if err != nil {
		return nil, fmt.Errorf("append stop: get job %s: %w", jobID, err)
	}
	job, ok := jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("append stop: job %s: %w", jobID, domain.ErrNotFound)
	}
	if !job.Assignable() {
		return nil, fmt.Errorf("append stop: job %s has status %q: %w", jobID, job.Status, domain.ErrJobNotAssignable)
	}
	if job.ShopID != route.ShopID {
		return nil, fmt.Errorf("append stop: job %s belongs to shop %s, route %s to shop %s: %w",
			jobID, job.ShopID, routeID, route.ShopID, domain.ErrJobNotAssignable)
	}

	if err := p.rejectWhileOptimizing(ctx, routeID); err != nil {
		return nil, fmt.Errorf("append stop: %w", err)
	}

	stop, err := p.Stops.AppendStop(ctx, routeID, jobID)
	if err != nil {
		return nil, fmt.Errorf("append stop: route %s job %s: %w", routeID, jobID, err)
	}

	return stop, nil
}

// RemoveStop deletes a stop and restores the contiguous 1..N ordering of the
// remaining stops. The route's cached aggregates are nulled when populated;
// an incorrect cached sum must never survive a structural change.
func (p *Planner) RemoveStop(ctx context.Context, stopID string) (err error) {
	defer obs.Time(ctx, "planner.RemoveStop")(&err)

	stop, err := p.Stops.GetStop(ctx, stopID)
	if err != nil {
		return fmt.Errorf("remove stop %s: %w", stopID, err)
	}

	if err := p.rejectWhileOptimizing(ctx, stop.RouteID); err != nil {
		return fmt.Errorf("remove stop: %w", err)
	}

	if err := p.Stops.RemoveStop(ctx, stopID); err != nil {
		return fmt.Errorf("remove stop %s: %w", stopID, err)
	}

	return nil
}

// rejectWhileOptimizing fails a structural mutation with ErrRouteBusy while
// an optimization round-trip holds the route. Best-effort only: a mutation
// that slips past the check is caught by the coordinator's stop-set
// re-validation, and append-vs-append needs no lock at all since the
// repository serializes per-route writes.
func (p *Planner) rejectWhileOptimizing(ctx context.Context, routeID string) error {
	held, err := p.Lock.Held(ctx, routeID)
	if err != nil {
		return fmt.Errorf("route %s: check lock: %w", routeID, err)
	}
	if held {
		return fmt.Errorf("route %s: %w", routeID, domain.ErrRouteBusy)
	}
	return nil
}

// GetStop returns one stop.
func (p *Planner) GetStop(ctx context.Context, stopID string) (*domain.Stop, error) {
	stop, err := p.Stops.GetStop(ctx, stopID)
	if err != nil {
		return nil, fmt.Errorf("get stop %s: %w", stopID, err)
	}
	return stop, nil
}

// ListStops returns a route's stops in stop order.
func (p *Planner) ListStops(ctx context.Context, routeID string) ([]domain.Stop, error) {
	stops, err := p.Stops.ListStops(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops %s: %w", routeID, err)
	}
	return stops, nil
}

// UpdateStopProgress is the plain update path used by field check-in. It
// writes stop status and actual arrival only and never touches ordering,
// leg metrics, or the route aggregates.
func (p *Planner) UpdateStopProgress(ctx context.Context, stopID string, status domain.StopStatus, actualArrival *time.Time) error {
	if err := p.Stops.UpdateStopProgress(ctx, stopID, status, actualArrival); err != nil {
		return fmt.Errorf("update stop progress %s: %w", stopID, err)
	}
	return nil
}
