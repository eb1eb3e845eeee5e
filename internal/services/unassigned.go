package services

import (
	"context"
	"fmt"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/obs"
)

// UnassignedJobs computes the unassigned pool for a shop and an inclusive
// date window: assignable jobs whose scheduled date falls in range and that
// are not referenced by any stop of the shop.
//
// The pool is a pure projection, never materialized. Calling it twice without
// an intervening mutation yields the same set. A job that stopped being
// assignable while still referenced by a stop shows up in neither set; its
// stale stop is left for the caller to clean up explicitly.
func (p *Planner) UnassignedJobs(ctx context.Context, shopID string, from, to time.Time) (_ []domain.Job, err error) {
	defer obs.Time(ctx, "planner.UnassignedJobs")(&err)

	jobs, err := p.Jobs.GetAssignableJobs(ctx, shopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("unassigned jobs: get assignable jobs: %w", err)
	}

	assigned, err := p.Stops.AssignedJobIDs(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("unassigned jobs: get assigned job ids: %w", err)
	}

	pool := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := assigned[j.ID]; ok {
			continue
		}
		pool = append(pool, j)
	}

	return pool, nil
}
