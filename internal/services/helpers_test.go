package services

import (
	"context"
	"testing"
	"time"

	"dispatch-routing-service/internal/adapters/lock"
	"dispatch-routing-service/internal/adapters/repositories"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func newTestPlanner(t *testing.T) (*Planner, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemoryStore()
	planner := &Planner{
		Jobs:   store,
		Routes: store,
		Stops:  store,
		Lock:   lock.NewLocalRouteLock(),
	}
	return planner, store
}

func seedJob(store *repositories.MemoryStore, id, shopID, date string, status domain.JobStatus, coord *domain.Coordinates) {
	d, _ := time.Parse("2006-01-02", date)
	store.PutJob(domain.Job{
		ID:            id,
		ShopID:        shopID,
		Address:       id + " Test Ave",
		Coordinate:    coord,
		ScheduledDate: d,
		Status:        status,
	})
}

func seedRouteWithStops(t *testing.T, planner *Planner, store *repositories.MemoryStore, shopID, date string, jobIDs ...string) (*domain.Route, []domain.Stop) {
	t.Helper()
	ctx := context.Background()

	route, err := planner.FindOrCreateRoute(ctx, shopID, mustDate(t, date))
	if err != nil {
		t.Fatalf("find or create route: %v", err)
	}

	for _, jobID := range jobIDs {
		if _, err := planner.AppendStop(ctx, route.ID, jobID); err != nil {
			t.Fatalf("append stop for job %s: %v", jobID, err)
		}
	}

	stops, err := store.ListStops(ctx, route.ID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	return route, stops
}

func coord(lat, lng float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lng: lng}
}

// applyAllStopsWrite builds a reconciliation write that keeps the current
// order of every stop and sets the route aggregates, for tests that need
// populated aggregates.
func applyAllStopsWrite(stops []domain.Stop, distance, duration float64) ports.OptimizationWrite {
	write := ports.OptimizationWrite{
		TotalDistanceMiles:   distance,
		TotalDurationMinutes: duration,
	}
	for _, s := range stops {
		write.ExpectedStopIDs = append(write.ExpectedStopIDs, s.ID)
		write.Stops = append(write.Stops, ports.StopReorder{StopID: s.ID, StopOrder: s.StopOrder})
	}
	return write
}
