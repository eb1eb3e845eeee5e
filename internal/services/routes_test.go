package services

import (
	"context"
	"errors"
	"testing"

	"dispatch-routing-service/internal/domain"
)

func TestFindOrCreateRouteConverges(t *testing.T) {
	planner, _ := newTestPlanner(t)
	ctx := context.Background()
	date := mustDate(t, "2026-09-01")

	first, err := planner.FindOrCreateRoute(ctx, "shop-1", date)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if first.Status != domain.RoutePlanned {
		t.Fatalf("expected new route planned, got %q", first.Status)
	}
	if first.TotalStops != 0 {
		t.Fatalf("expected new route empty, got %d stops", first.TotalStops)
	}

	second, err := planner.FindOrCreateRoute(ctx, "shop-1", date)
	if err != nil {
		t.Fatalf("find or create again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same route, got %s then %s", first.ID, second.ID)
	}
}

func TestFindOrCreateRouteScopedByShopAndDate(t *testing.T) {
	planner, _ := newTestPlanner(t)
	ctx := context.Background()

	a, _ := planner.FindOrCreateRoute(ctx, "shop-1", mustDate(t, "2026-09-01"))
	b, err := planner.FindOrCreateRoute(ctx, "shop-1", mustDate(t, "2026-09-02"))
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	c, err := planner.FindOrCreateRoute(ctx, "shop-2", mustDate(t, "2026-09-01"))
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}

	if a.ID == b.ID || a.ID == c.ID {
		t.Fatalf("expected distinct routes per (shop, date): %s %s %s", a.ID, b.ID, c.ID)
	}
}

func TestSetRouteStatusRejectsCompletedRoute(t *testing.T) {
	planner, _ := newTestPlanner(t)
	ctx := context.Background()

	route, _ := planner.FindOrCreateRoute(ctx, "shop-1", mustDate(t, "2026-09-01"))

	if _, err := planner.SetRouteStatus(ctx, route.ID, domain.RouteCompleted); err != nil {
		t.Fatalf("complete route: %v", err)
	}

	_, err := planner.SetRouteStatus(ctx, route.ID, domain.RouteInProgress)
	if !errors.Is(err, domain.ErrRouteAlreadyCompleted) {
		t.Fatalf("expected ErrRouteAlreadyCompleted, got %v", err)
	}
}

func TestSetRouteStatusDoesNotCascadeToStops(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-a", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	route, stops := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01", "job-a")

	if _, err := planner.SetRouteStatus(ctx, route.ID, domain.RouteCompleted); err != nil {
		t.Fatalf("complete route: %v", err)
	}

	stop, err := planner.GetStop(ctx, stops[0].ID)
	if err != nil {
		t.Fatalf("get stop: %v", err)
	}
	if stop.Status != domain.StopPending {
		t.Fatalf("expected stop status untouched, got %q", stop.Status)
	}
}

func TestDeleteRouteRequiresEmptyRoute(t *testing.T) {
	planner, store := newTestPlanner(t)
	ctx := context.Background()

	seedJob(store, "job-a", "shop-1", "2026-09-01", domain.JobScheduled, nil)
	route, stops := seedRouteWithStops(t, planner, store, "shop-1", "2026-09-01", "job-a")

	err := planner.DeleteRoute(ctx, route.ID)
	if !errors.Is(err, domain.ErrRouteNotEmpty) {
		t.Fatalf("expected ErrRouteNotEmpty, got %v", err)
	}

	if err := planner.RemoveStop(ctx, stops[0].ID); err != nil {
		t.Fatalf("remove stop: %v", err)
	}
	if err := planner.DeleteRoute(ctx, route.ID); err != nil {
		t.Fatalf("delete empty route: %v", err)
	}

	_, err = planner.GetRoute(ctx, route.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
