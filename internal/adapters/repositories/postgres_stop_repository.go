package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dispatch-routing-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres-backed implementation of the StopRepository port.
//
// Per-route order assignment is serialized by taking the route row lock
// inside every structural transaction, and single assignment is enforced by
// the stops_job_unique constraint: the application path here only translates
// the conflict, it never has to win a race by itself.
type PostgresStopRepository struct{ DB *sql.DB }

func NewPostgresStopRepository(db *sql.DB) *PostgresStopRepository {
	return &PostgresStopRepository{DB: db}
}

const stopColumns = `
	stop_id, route_id, job_id, stop_order, status, estimated_arrival,
	actual_arrival, drive_time_from_previous_minutes, distance_from_previous_miles`

func (r *PostgresStopRepository) GetStop(ctx context.Context, stopID string) (*domain.Stop, error) {
	query := `SELECT` + stopColumns + ` FROM stops WHERE stop_id = $1;`

	row := r.DB.QueryRowContext(ctx, query, stopID)
	stop, err := scanStop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get stop %s: %w", stopID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get stop %s: %w", stopID, err)
	}
	return stop, nil
}

func (r *PostgresStopRepository) ListStops(ctx context.Context, routeID string) ([]domain.Stop, error) {
	query := `SELECT` + stopColumns + ` FROM stops WHERE route_id = $1 ORDER BY stop_order;`

	rows, err := r.DB.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops %s: query stops table: %w", routeID, err)
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0, 16)
	for rows.Next() {
		stop, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("list stops %s: %w", routeID, err)
		}
		stops = append(stops, *stop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops %s: row iteration: %w", routeID, err)
	}

	return stops, nil
}

func (r *PostgresStopRepository) AssignedJobIDs(ctx context.Context, shopID string) (map[string]struct{}, error) {
	query := `
	SELECT s.job_id
	FROM stops s
	JOIN routes r ON r.route_id = s.route_id
	WHERE r.shop_id = $1;
	`
	rows, err := r.DB.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("assigned job ids: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{}, 64)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("assigned job ids: scan row: %w", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assigned job ids: row iteration: %w", err)
	}

	return out, nil
}

func (r *PostgresStopRepository) AppendStop(ctx context.Context, routeID, jobID string) (*domain.Stop, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append stop: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Route row lock: two appends on the same route compute max order
	// strictly one after the other.
	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT route_id FROM routes WHERE route_id = $1 FOR UPDATE;`, routeID,
	).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("append stop: route %s: %w", routeID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("append stop: lock route %s: %w", routeID, err)
	}

	var maxOrder int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(stop_order), 0) FROM stops WHERE route_id = $1;`, routeID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("append stop: max order: %w", err)
	}

	stop := &domain.Stop{
		ID:        uuid.NewString(),
		RouteID:   routeID,
		JobID:     jobID,
		StopOrder: maxOrder + 1,
		Status:    domain.StopPending,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stops (stop_id, route_id, job_id, stop_order, status) VALUES ($1, $2, $3, $4, $5);`,
		stop.ID, stop.RouteID, stop.JobID, stop.StopOrder, stop.Status,
	)
	if isUniqueViolation(err, "stops_job_unique") {
		return nil, fmt.Errorf("append stop: job %s: %w", jobID, domain.ErrJobAlreadyAssigned)
	}
	if err != nil {
		return nil, fmt.Errorf("append stop: insert: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE routes SET total_stops = total_stops + 1 WHERE route_id = $1;`, routeID,
	)
	if err != nil {
		return nil, fmt.Errorf("append stop: update route count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, "stops_job_unique") {
			return nil, fmt.Errorf("append stop: job %s: %w", jobID, domain.ErrJobAlreadyAssigned)
		}
		return nil, fmt.Errorf("append stop: commit tx: %w", err)
	}

	return stop, nil
}

func (r *PostgresStopRepository) RemoveStop(ctx context.Context, stopID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove stop %s: begin tx: %w", stopID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		routeID string
		order   int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT route_id, stop_order FROM stops WHERE stop_id = $1;`, stopID,
	).Scan(&routeID, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("remove stop %s: %w", stopID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("remove stop %s: %w", stopID, err)
	}

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT route_id FROM routes WHERE route_id = $1 FOR UPDATE;`, routeID,
	).Scan(&locked)
	if err != nil {
		return fmt.Errorf("remove stop %s: lock route %s: %w", stopID, routeID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stops WHERE stop_id = $1;`, stopID); err != nil {
		return fmt.Errorf("remove stop %s: delete: %w", stopID, err)
	}

	// Restore the contiguous 1..N invariant. The deferred order constraint
	// allows the shift to land in one statement.
	_, err = tx.ExecContext(ctx,
		`UPDATE stops SET stop_order = stop_order - 1 WHERE route_id = $1 AND stop_order > $2;`,
		routeID, order,
	)
	if err != nil {
		return fmt.Errorf("remove stop %s: renumber: %w", stopID, err)
	}

	// Cached totals can no longer be trusted after a structural change;
	// null them rather than leave an incorrect sum.
	_, err = tx.ExecContext(ctx, `
	UPDATE routes
	SET total_stops = total_stops - 1,
		total_distance_miles = NULL,
		total_duration_minutes = NULL
	WHERE route_id = $1;`, routeID)
	if err != nil {
		return fmt.Errorf("remove stop %s: update route: %w", stopID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("remove stop %s: commit tx: %w", stopID, err)
	}

	return nil
}

func (r *PostgresStopRepository) UpdateStopProgress(ctx context.Context, stopID string, status domain.StopStatus, actualArrival *time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE stops SET status = $2, actual_arrival = COALESCE($3, actual_arrival) WHERE stop_id = $1;`,
		stopID, status, actualArrival,
	)
	if err != nil {
		return fmt.Errorf("update stop progress %s: %w", stopID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stop progress %s: rows affected: %w", stopID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update stop progress %s: %w", stopID, domain.ErrNotFound)
	}

	return nil
}

func scanStop(row interface{ Scan(...any) error }) (*domain.Stop, error) {
	var (
		stop                domain.Stop
		estimated, actual   sql.NullTime
		driveTime, distance sql.NullFloat64
	)
	err := row.Scan(
		&stop.ID, &stop.RouteID, &stop.JobID, &stop.StopOrder, &stop.Status,
		&estimated, &actual, &driveTime, &distance,
	)
	if err != nil {
		return nil, err
	}

	if estimated.Valid {
		stop.EstimatedArrival = &estimated.Time
	}
	if actual.Valid {
		stop.ActualArrival = &actual.Time
	}
	if driveTime.Valid {
		stop.DriveTimeFromPreviousMinutes = &driveTime.Float64
	}
	if distance.Valid {
		stop.DistanceFromPreviousMiles = &distance.Float64
	}

	return &stop, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
}
