package services

import (
	"context"
	"fmt"
	"time"

	"dispatch-routing-service/internal/domain"

	"github.com/google/uuid"
)

// FindOrCreateRoute returns an existing route for (shop, date) or creates one.
//
// This path is used only when the caller has no route selected; when several
// routes exist for the date (multiple crews), the earliest-created one is
// returned and any other selection stays a caller-side concern.
func (p *Planner) FindOrCreateRoute(ctx context.Context, shopID string, date time.Time) (*domain.Route, error) {
	existing, err := p.Routes.RoutesForDate(ctx, shopID, date)
	if err != nil {
		return nil, fmt.Errorf("find or create route: list routes for date: %w", err)
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	route := &domain.Route{
		ID:            uuid.NewString(),
		ShopID:        shopID,
		RouteDate:     date,
		Status:        domain.RoutePlanned,
		AssignedCrew:  []domain.CrewMember{},
		TotalStops:    0,
		StartLocation: p.HomeLocation,
	}

	if err := p.Routes.CreateRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("find or create route: create route: %w", err)
	}

	return route, nil
}

// ListRoutesForDateRange returns a shop's routes in an inclusive date range.
func (p *Planner) ListRoutesForDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Route, error) {
	routes, err := p.Routes.RoutesForDateRange(ctx, shopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// GetRoute returns one route with its stops resolved by the caller as needed.
func (p *Planner) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	route, err := p.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("get route %s: %w", routeID, err)
	}
	return route, nil
}

// SetRouteStatus applies a one-directional status transition. Completed
// routes reject every further change with ErrRouteAlreadyCompleted. Stop and
// job statuses are never cascaded; field operations update those
// independently.
func (p *Planner) SetRouteStatus(ctx context.Context, routeID string, status domain.RouteStatus) (*domain.Route, error) {
	route, err := p.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("set route status: get route %s: %w", routeID, err)
	}

	if err := route.CanTransitionTo(status); err != nil {
		return nil, fmt.Errorf("set route status: %w", err)
	}

	if err := p.Routes.SetRouteStatus(ctx, routeID, status); err != nil {
		return nil, fmt.Errorf("set route status: persist route %s: %w", routeID, err)
	}

	route.Status = status
	return route, nil
}

// DeleteRoute removes an empty route. Routes with stops fail with
// ErrRouteNotEmpty; the caller must remove stops first.
func (p *Planner) DeleteRoute(ctx context.Context, routeID string) error {
	if err := p.Routes.DeleteRoute(ctx, routeID); err != nil {
		return fmt.Errorf("delete route %s: %w", routeID, err)
	}
	return nil
}
