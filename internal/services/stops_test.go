package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch-routing-service/internal/domain"
)

func TestAppendStopAssignsContiguousOrders(t *testing.T) {
	planner, store := newTestPlanner(t)

	seedJob(store, "job-a", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	seedJob(store, "job-b", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	seedJob(store, "job-c", "shop-1", "2026-09-01", domain.JobPending, nil)

	route, stops := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01", "job-a", "job-b", "job-c")

	if len(stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(stops))
	}
	for i, s := range stops {
		if s.StopOrder != i+1 {
			t.Fatalf("expected stop %d to have order %d, got %d", i, i+1, s.StopOrder)
		}
	}

	updated, err := planner.GetRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if updated.TotalStops != 3 {
		t.Fatalf("expected total_stops 3, got %d", updated.TotalStops)
	}
}

func TestAppendStopRejectsUnknownAndClosedJobs(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-done", "shop-1", "2026-09-01", domain.JobCompleted, nil)
	route, _ := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01")

	_, err := planner.AppendStop(ctx, route.ID, "job-missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown job, got %v", err)
	}

	_, err = planner.AppendStop(ctx, route.ID, "job-done")
	if !errors.Is(err, domain.ErrJobNotAssignable) {
		t.Fatalf("expected ErrJobNotAssignable for completed job, got %v", err)
	}
}

func TestAppendStopRejectsJobAssignedOnAnotherRoute(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-a", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01", "job-a")

	other, err := planner.FindOrCreateRoute(ctx, "shop-1", mustDate(t, "2026-09-02"))
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}

	_, err = planner.AppendStop(ctx, other.ID, "job-a")
	if !errors.Is(err, domain.ErrJobAlreadyAssigned) {
		t.Fatalf("expected ErrJobAlreadyAssigned, got %v", err)
	}
}

func TestAppendStopRejectsJobFromAnotherShop(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-foreign", "shop-2", "2026-09-01", domain.JobScheduled, nil)
	route, _ := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01")

	_, err := planner.AppendStop(ctx, route.ID, "job-foreign")
	if !errors.Is(err, domain.ErrJobNotAssignable) {
		t.Fatalf("expected ErrJobNotAssignable for cross-shop append, got %v", err)
	}

	// The rejected job stays available in its own shop's pool.
	pool, err := planner.UnassignedJobs(ctx, "shop-2", mustDate(t, "2026-09-01"), mustDate(t, "2026-09-01"))
	if err != nil {
		t.Fatalf("unassigned jobs: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != "job-foreign" {
		t.Fatalf("expected job-foreign in shop-2 pool, got %+v", pool)
	}
}

func TestConcurrentAppendsSameJobLoserSeesAlreadyAssigned(t *testing.T) {
	planner, store := newTestPlanner(t)

	seedJob(store, "job-c", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	route, _ := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01")

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = planner.AppendStop(context.Background(), route.ID, "job-c")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrJobAlreadyAssigned):
		default:
			t.Fatalf("loser must observe ErrJobAlreadyAssigned, got %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestConcurrentAppendsDifferentJobsAreSerialized(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	jobIDs := []string{"job-1", "job-2", "job-3", "job-4"}
	for _, id := range jobIDs {
		seedJob(store, id, "shop-1", "2026-09-01", domain.JobScheduled, nil)
	}
	route, _ := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01")

	var wg sync.WaitGroup
	errs := make([]error, len(jobIDs))
	for i, id := range jobIDs {
		wg.Add(1)
		go func(i int, jobID string) {
			defer wg.Done()
			_, errs[i] = planner.AppendStop(ctx, route.ID, jobID)
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("append %s: %v", jobIDs[i], err)
		}
	}

	stops, err := planner.ListStops(ctx, route.ID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if len(stops) != len(jobIDs) {
		t.Fatalf("expected %d stops, got %d", len(jobIDs), len(stops))
	}
	for i, s := range stops {
		if s.StopOrder != i+1 {
			t.Fatalf("expected contiguous order %d, got %d", i+1, s.StopOrder)
		}
	}
}

func TestAppendStopWhileRouteLockedIsBusy(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-a", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	route, _ := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01")

	release, err := planner.Lock.TryAcquire(ctx, route.ID)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer release()

	_, err = planner.AppendStop(ctx, route.ID, "job-a")
	if !errors.Is(err, domain.ErrRouteBusy) {
		t.Fatalf("expected ErrRouteBusy, got %v", err)
	}
}

func TestRemoveStopRenumbersAndClearsAggregates(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-a", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	seedJob(store, "job-b", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	seedJob(store, "job-c", "shop-1", "2026-09-01", domain.JobScheduled, nil)

	route, stops := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01", "job-a", "job-b", "job-c")

	// Populate aggregates so the structural change has something to clear.
	distance, duration := 12.5, 47.0
	err := store.ApplyOptimization(ctx, route.ID, applyAllStopsWrite(stops, distance, duration))
	if err != nil {
		t.Fatalf("apply optimization: %v", err)
	}

	if err := planner.RemoveStop(ctx, stops[1].ID); err != nil {
		t.Fatalf("remove stop: %v", err)
	}

	remaining, err := planner.ListStops(ctx, route.ID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(remaining))
	}
	if remaining[0].JobID != "job-a" || remaining[0].StopOrder != 1 {
		t.Fatalf("expected job-a at order 1, got %s at %d", remaining[0].JobID, remaining[0].StopOrder)
	}
	if remaining[1].JobID != "job-c" || remaining[1].StopOrder != 2 {
		t.Fatalf("expected job-c at order 2, got %s at %d", remaining[1].JobID, remaining[1].StopOrder)
	}

	updated, err := planner.GetRoute(ctx, route.ID)
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if updated.TotalStops != 2 {
		t.Fatalf("expected total_stops 2, got %d", updated.TotalStops)
	}
	if updated.TotalDistanceMiles != nil || updated.TotalDurationMinutes != nil {
		t.Fatalf("expected aggregates cleared, got %v / %v", updated.TotalDistanceMiles, updated.TotalDurationMinutes)
	}
}

func TestUpdateStopProgressLeavesOrderingAlone(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-a", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	seedJob(store, "job-b", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	route, stops := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01", "job-a", "job-b")

	arrival := mustDate(t, "2026-09-01").Add(9 * time.Hour)
	if err := planner.UpdateStopProgress(ctx, stops[0].ID, domain.StopArrived, &arrival); err != nil {
		t.Fatalf("update stop progress: %v", err)
	}

	after, err := planner.ListStops(ctx, route.ID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if after[0].Status != domain.StopArrived {
		t.Fatalf("expected stop arrived, got %q", after[0].Status)
	}
	if after[0].ActualArrival == nil || !after[0].ActualArrival.Equal(arrival) {
		t.Fatalf("expected actual arrival %v, got %v", arrival, after[0].ActualArrival)
	}
	if after[0].StopOrder != 1 || after[1].StopOrder != 2 {
		t.Fatalf("expected ordering untouched, got %d and %d", after[0].StopOrder, after[1].StopOrder)
	}
}
