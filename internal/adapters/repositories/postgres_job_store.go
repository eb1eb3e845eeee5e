package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dispatch-routing-service/internal/domain"
)

// Postgres-backed implementation of the JobStore port. The engine only ever
// reads jobs; lifecycle writes belong to the surrounding dispatch platform.
type PostgresJobStore struct{ DB *sql.DB }

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{DB: db}
}

func (s *PostgresJobStore) GetAssignableJobs(ctx context.Context, shopID string, from, to time.Time) ([]domain.Job, error) {
	if s.DB == nil {
		return nil, errors.New("postgres job store: DB is nil")
	}

	query := `
	SELECT job_id, shop_id, address, lat, lng, scheduled_date, status
	FROM jobs
	WHERE shop_id = $1
	  AND scheduled_date BETWEEN $2 AND $3
	  AND status IN ('pending', 'scheduled', 'in_progress')
	ORDER BY scheduled_date, job_id;
	`
	rows, err := s.DB.QueryContext(ctx, query, shopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get assignable jobs: query jobs table: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0, 64)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("get assignable jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get assignable jobs: row iteration: %w", err)
	}

	return jobs, nil
}

func (s *PostgresJobStore) GetJobs(ctx context.Context, ids []string) (map[string]domain.Job, error) {
	if s.DB == nil {
		return nil, errors.New("postgres job store: DB is nil")
	}

	if len(ids) == 0 {
		return map[string]domain.Job{}, nil
	}

	query := `
	SELECT job_id, shop_id, address, lat, lng, scheduled_date, status
	FROM jobs
	WHERE job_id = ANY($1::uuid[]);
	`
	rows, err := s.DB.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get jobs: query jobs table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Job, len(ids))
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("get jobs: %w", err)
		}
		out[job.ID] = job
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get jobs: row iteration: %w", err)
	}

	return out, nil
}

func scanJob(rows *sql.Rows) (domain.Job, error) {
	var (
		job      domain.Job
		lat, lng sql.NullFloat64
	)
	if err := rows.Scan(&job.ID, &job.ShopID, &job.Address, &lat, &lng, &job.ScheduledDate, &job.Status); err != nil {
		return domain.Job{}, fmt.Errorf("scan job row: %w", err)
	}
	if lat.Valid && lng.Valid {
		job.Coordinate = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return job, nil
}
