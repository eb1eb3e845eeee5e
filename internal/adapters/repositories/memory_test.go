package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

func seedRoute(t *testing.T, store *MemoryStore, id, shopID string) *domain.Route {
	t.Helper()
	route := &domain.Route{
		ID:        id,
		ShopID:    shopID,
		RouteDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:    domain.RoutePlanned,
	}
	if err := store.CreateRoute(context.Background(), route); err != nil {
		t.Fatalf("create route: %v", err)
	}
	return route
}

func TestConcurrentAppendsSameJobHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := seedRoute(t, store, "route-a", "shop-1")
	b := seedRoute(t, store, "route-b", "shop-1")

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		routeID := a.ID
		if i%2 == 1 {
			routeID = b.ID
		}
		wg.Add(1)
		go func(i int, routeID string) {
			defer wg.Done()
			_, results[i] = store.AppendStop(ctx, routeID, "job-contested")
		}(i, routeID)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrJobAlreadyAssigned):
		default:
			t.Fatalf("unexpected append error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	stopsA, _ := store.ListStops(ctx, a.ID)
	stopsB, _ := store.ListStops(ctx, b.ID)
	if len(stopsA)+len(stopsB) != 1 {
		t.Fatalf("expected one stop total, got %d", len(stopsA)+len(stopsB))
	}
}

func TestAppendStopUnknownRoute(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.AppendStop(context.Background(), "missing", "job-a")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveStopKeepsOrdersContiguous(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	route := seedRoute(t, store, "route-a", "shop-1")

	jobIDs := []string{"job-1", "job-2", "job-3", "job-4", "job-5"}
	stopIDs := make([]string, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		stop, err := store.AppendStop(ctx, route.ID, jobID)
		if err != nil {
			t.Fatalf("append %s: %v", jobID, err)
		}
		stopIDs = append(stopIDs, stop.ID)
	}

	// Remove from the middle, the head and the tail.
	for _, victim := range []string{stopIDs[2], stopIDs[0], stopIDs[4]} {
		if err := store.RemoveStop(ctx, victim); err != nil {
			t.Fatalf("remove stop: %v", err)
		}
	}

	stops, err := store.ListStops(ctx, route.ID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if len(stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(stops))
	}
	for i, s := range stops {
		if s.StopOrder != i+1 {
			t.Fatalf("expected order %d at position %d, got %d", i+1, i, s.StopOrder)
		}
	}

	got, err := store.GetRoute(ctx, route.ID)
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if got.TotalStops != 2 {
		t.Fatalf("expected total_stops 2, got %d", got.TotalStops)
	}
}

func TestApplyOptimizationValidatesStopSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	route := seedRoute(t, store, "route-a", "shop-1")

	s1, _ := store.AppendStop(ctx, route.ID, "job-1")
	s2, _ := store.AppendStop(ctx, route.ID, "job-2")

	write := func(expected []string) error {
		return store.ApplyOptimization(ctx, route.ID, buildReorderWrite(expected, s1.ID, s2.ID))
	}

	if err := write([]string{s1.ID, s2.ID}); err != nil {
		t.Fatalf("apply with matching set: %v", err)
	}

	// A stop added after the snapshot invalidates the write.
	s3, _ := store.AppendStop(ctx, route.ID, "job-3")
	err := write([]string{s1.ID, s2.ID})
	if !errors.Is(err, domain.ErrRouteChanged) {
		t.Fatalf("expected ErrRouteChanged after append, got %v", err)
	}

	// A stop removed after the snapshot invalidates it too.
	if err := store.RemoveStop(ctx, s3.ID); err != nil {
		t.Fatalf("remove stop: %v", err)
	}
	if err := store.RemoveStop(ctx, s2.ID); err != nil {
		t.Fatalf("remove stop: %v", err)
	}
	err = write([]string{s1.ID, s2.ID})
	if !errors.Is(err, domain.ErrRouteChanged) {
		t.Fatalf("expected ErrRouteChanged after remove, got %v", err)
	}
}

func buildReorderWrite(expected []string, orderedStopIDs ...string) (write ports.OptimizationWrite) {
	write.ExpectedStopIDs = expected
	write.TotalDistanceMiles = 10
	write.TotalDurationMinutes = 20
	for i, id := range orderedStopIDs {
		write.Stops = append(write.Stops, ports.StopReorder{StopID: id, StopOrder: i + 1})
	}
	return write
}
