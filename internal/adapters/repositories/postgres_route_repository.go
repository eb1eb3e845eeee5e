package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

// Postgres-backed implementation of the RouteRepository port.
type PostgresRouteRepository struct{ DB *sql.DB }

func NewPostgresRouteRepository(db *sql.DB) *PostgresRouteRepository {
	return &PostgresRouteRepository{DB: db}
}

const routeColumns = `
	route_id, shop_id, route_date, name, status, assigned_crew, total_stops,
	total_distance_miles, total_duration_minutes,
	start_lat, start_lng, end_lat, end_lng`

func (r *PostgresRouteRepository) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	query := `SELECT` + routeColumns + ` FROM routes WHERE route_id = $1;`

	row := r.DB.QueryRowContext(ctx, query, routeID)
	route, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %s: %w", routeID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %s: %w", routeID, err)
	}
	return route, nil
}

func (r *PostgresRouteRepository) RoutesForDate(ctx context.Context, shopID string, date time.Time) ([]domain.Route, error) {
	query := `SELECT` + routeColumns + `
	FROM routes
	WHERE shop_id = $1 AND route_date = $2
	ORDER BY created_at, route_id;`

	return r.queryRoutes(ctx, query, shopID, date)
}

func (r *PostgresRouteRepository) RoutesForDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Route, error) {
	query := `SELECT` + routeColumns + `
	FROM routes
	WHERE shop_id = $1 AND route_date BETWEEN $2 AND $3
	ORDER BY route_date, created_at, route_id;`

	return r.queryRoutes(ctx, query, shopID, from, to)
}

func (r *PostgresRouteRepository) queryRoutes(ctx context.Context, query string, args ...any) ([]domain.Route, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query routes table: %w", err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0, 8)
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route row: %w", err)
		}
		routes = append(routes, *route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route row iteration: %w", err)
	}

	return routes, nil
}

// CreateRoute validates crew assignment at the repository boundary: crew is a
// typed list, never an open map, and every member needs an id.
func (r *PostgresRouteRepository) CreateRoute(ctx context.Context, route *domain.Route) error {
	if route == nil {
		return errors.New("create route: route is nil")
	}
	for i, m := range route.AssignedCrew {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("create route: crew member at index %d has empty id", i)
		}
	}

	crew, err := marshalCrew(route.AssignedCrew)
	if err != nil {
		return fmt.Errorf("create route: %w", err)
	}

	var startLat, startLng, endLat, endLng any
	if route.StartLocation != nil {
		startLat, startLng = route.StartLocation.Lat, route.StartLocation.Lng
	}
	if route.EndLocation != nil {
		endLat, endLng = route.EndLocation.Lat, route.EndLocation.Lng
	}

	query := `
	INSERT INTO routes (
		route_id, shop_id, route_date, name, status, assigned_crew, total_stops,
		total_distance_miles, total_duration_minutes,
		start_lat, start_lng, end_lat, end_lng
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err = r.DB.ExecContext(ctx, query,
		route.ID, route.ShopID, route.RouteDate, nullIfEmpty(route.Name), route.Status, crew,
		route.TotalStops, route.TotalDistanceMiles, route.TotalDurationMinutes,
		startLat, startLng, endLat, endLng,
	)
	if err != nil {
		return fmt.Errorf("create route %s: insert: %w", route.ID, err)
	}

	return nil
}

// DeleteRoute removes a route only while it has zero stops. The stop count is
// read under a row lock so a concurrent append cannot slip in between the
// check and the delete.
func (r *PostgresRouteRepository) DeleteRoute(ctx context.Context, routeID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete route %s: begin tx: %w", routeID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var totalStops int
	err = tx.QueryRowContext(ctx,
		`SELECT total_stops FROM routes WHERE route_id = $1 FOR UPDATE;`, routeID,
	).Scan(&totalStops)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete route %s: %w", routeID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete route %s: lock route: %w", routeID, err)
	}

	if totalStops > 0 {
		return fmt.Errorf("delete route %s: %d stops: %w", routeID, totalStops, domain.ErrRouteNotEmpty)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM routes WHERE route_id = $1;`, routeID); err != nil {
		return fmt.Errorf("delete route %s: delete: %w", routeID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete route %s: commit tx: %w", routeID, err)
	}

	return nil
}

func (r *PostgresRouteRepository) SetRouteStatus(ctx context.Context, routeID string, status domain.RouteStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE routes SET status = $2 WHERE route_id = $1;`, routeID, status,
	)
	if err != nil {
		return fmt.Errorf("set route status %s: %w", routeID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set route status %s: rows affected: %w", routeID, err)
	}
	if affected == 0 {
		return fmt.Errorf("set route status %s: %w", routeID, domain.ErrNotFound)
	}

	return nil
}

// ApplyOptimization commits new stop orders, per-leg metrics and the route
// aggregates as one transaction. The route's live stop set is re-validated
// against what was sent to the provider under a row lock; any mismatch aborts
// with ErrRouteChanged so a stale reconciliation can never land. Intermediate
// duplicate orders inside the transaction are tolerated by the deferred
// stops_order_unique constraint.
func (r *PostgresRouteRepository) ApplyOptimization(ctx context.Context, routeID string, write ports.OptimizationWrite) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply optimization %s: begin tx: %w", routeID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT route_id FROM routes WHERE route_id = $1 FOR UPDATE;`, routeID,
	).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("apply optimization %s: %w", routeID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("apply optimization %s: lock route: %w", routeID, err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT stop_id FROM stops WHERE route_id = $1;`, routeID)
	if err != nil {
		return fmt.Errorf("apply optimization %s: query stops: %w", routeID, err)
	}
	live := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("apply optimization %s: scan stop id: %w", routeID, err)
		}
		live[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("apply optimization %s: row iteration: %w", routeID, err)
	}
	rows.Close()

	if len(live) != len(write.ExpectedStopIDs) {
		return fmt.Errorf("apply optimization %s: %w", routeID, domain.ErrRouteChanged)
	}
	for _, id := range write.ExpectedStopIDs {
		if _, ok := live[id]; !ok {
			return fmt.Errorf("apply optimization %s: %w", routeID, domain.ErrRouteChanged)
		}
	}

	updateStop := `
	UPDATE stops
	SET stop_order = $3,
		drive_time_from_previous_minutes = $4,
		distance_from_previous_miles = $5,
		estimated_arrival = $6
	WHERE stop_id = $1 AND route_id = $2;
	`
	for _, s := range write.Stops {
		res, err := tx.ExecContext(ctx, updateStop,
			s.StopID, routeID, s.StopOrder,
			s.DriveTimeFromPreviousMinutes, s.DistanceFromPreviousMiles, s.EstimatedArrival,
		)
		if err != nil {
			return fmt.Errorf("apply optimization %s: update stop %s: %w", routeID, s.StopID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply optimization %s: rows affected: %w", routeID, err)
		}
		if affected == 0 {
			return fmt.Errorf("apply optimization %s: stop %s: %w", routeID, s.StopID, domain.ErrRouteChanged)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE routes SET total_distance_miles = $2, total_duration_minutes = $3 WHERE route_id = $1;`,
		routeID, write.TotalDistanceMiles, write.TotalDurationMinutes,
	)
	if err != nil {
		return fmt.Errorf("apply optimization %s: update aggregates: %w", routeID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply optimization %s: commit tx: %w", routeID, err)
	}

	return nil
}

func scanRoute(row interface{ Scan(...any) error }) (*domain.Route, error) {
	var (
		route                              domain.Route
		name                               sql.NullString
		crew                               []byte
		totalDistance, totalDuration       sql.NullFloat64
		startLat, startLng, endLat, endLng sql.NullFloat64
	)
	err := row.Scan(
		&route.ID, &route.ShopID, &route.RouteDate, &name, &route.Status, &crew, &route.TotalStops,
		&totalDistance, &totalDuration,
		&startLat, &startLng, &endLat, &endLng,
	)
	if err != nil {
		return nil, err
	}

	route.Name = name.String
	if err := json.Unmarshal(crew, &route.AssignedCrew); err != nil {
		return nil, fmt.Errorf("decode assigned crew: %w", err)
	}
	if totalDistance.Valid {
		route.TotalDistanceMiles = &totalDistance.Float64
	}
	if totalDuration.Valid {
		route.TotalDurationMinutes = &totalDuration.Float64
	}
	if startLat.Valid && startLng.Valid {
		route.StartLocation = &domain.Coordinates{Lat: startLat.Float64, Lng: startLng.Float64}
	}
	if endLat.Valid && endLng.Valid {
		route.EndLocation = &domain.Coordinates{Lat: endLat.Float64, Lng: endLng.Float64}
	}

	return &route, nil
}

func marshalCrew(crew []domain.CrewMember) ([]byte, error) {
	if crew == nil {
		crew = []domain.CrewMember{}
	}
	b, err := json.Marshal(crew)
	if err != nil {
		return nil, fmt.Errorf("encode assigned crew: %w", err)
	}
	return b, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
