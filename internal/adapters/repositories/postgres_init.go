package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Initialize the Postgres schema.
//
// Two constraints carry the engine's core invariants at the storage layer:
// stops_job_unique makes a job referenced by at most one stop system-wide,
// and stops_order_unique keeps stop orders unique per route while staying
// deferrable so renumbering and reorder writes can commit atomically.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createJobsQuery := `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id UUID PRIMARY KEY,
		shop_id TEXT NOT NULL,
		address TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		scheduled_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		route_id UUID PRIMARY KEY,
		shop_id TEXT NOT NULL,
		route_date DATE NOT NULL,
		name TEXT,
		status TEXT NOT NULL DEFAULT 'planned',
		assigned_crew JSONB NOT NULL DEFAULT '[]',
		total_stops INTEGER NOT NULL DEFAULT 0,
		total_distance_miles DOUBLE PRECISION,
		total_duration_minutes DOUBLE PRECISION,
		start_lat DOUBLE PRECISION,
		start_lng DOUBLE PRECISION,
		end_lat DOUBLE PRECISION,
		end_lng DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		stop_id UUID PRIMARY KEY,
		route_id UUID NOT NULL REFERENCES routes(route_id),
		job_id UUID NOT NULL,
		stop_order INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		estimated_arrival TIMESTAMPTZ,
		actual_arrival TIMESTAMPTZ,
		drive_time_from_previous_minutes DOUBLE PRECISION,
		distance_from_previous_miles DOUBLE PRECISION,
		CONSTRAINT stops_job_unique UNIQUE (job_id),
		CONSTRAINT stops_order_unique UNIQUE (route_id, stop_order) DEFERRABLE INITIALLY DEFERRED
	);
	`

	createJobsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_jobs_shop_date
	ON jobs(shop_id, scheduled_date);
	`

	createRoutesIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_routes_shop_date
	ON routes(shop_id, route_date);
	`

	statements := []string{
		createJobsQuery,
		createRoutesQuery,
		createStopsQuery,
		createJobsIndexQuery,
		createRoutesIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type JobSeed struct {
	JobID         string   `json:"job_id"`
	ShopID        string   `json:"shop_id"`
	Address       string   `json:"address"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	ScheduledDate string   `json:"scheduled_date"`
	Status        string   `json:"status"`
}

// Populate the jobs table from a JSON file for local runs.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed jobs: read %q: %w", jsonPath, err)
	}

	var data []JobSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed jobs: parse json: %w", err)
	}

	for i, item := range data {
		if strings.TrimSpace(item.JobID) == "" {
			return fmt.Errorf("seed jobs: item at index %d: job_id cannot be empty", i+1)
		}
		if strings.TrimSpace(item.Address) == "" {
			return fmt.Errorf("seed jobs: job_id=%s: address cannot be empty", item.JobID)
		}
		if _, err := time.Parse("2006-01-02", item.ScheduledDate); err != nil {
			return fmt.Errorf("seed jobs: job_id=%s: invalid scheduled_date %q: %w", item.JobID, item.ScheduledDate, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed jobs: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO jobs (job_id, shop_id, address, lat, lng, scheduled_date, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (job_id) DO UPDATE
	SET shop_id = EXCLUDED.shop_id,
		address = EXCLUDED.address,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		scheduled_date = EXCLUDED.scheduled_date,
		status = EXCLUDED.status;
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed jobs: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, j := range data {
		status := j.Status
		if status == "" {
			status = "pending"
		}
		if _, err := stmt.Exec(j.JobID, j.ShopID, strings.TrimSpace(j.Address), j.Lat, j.Lng, j.ScheduledDate, status); err != nil {
			return fmt.Errorf("seed jobs: insert job_id=%s: %w", j.JobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed jobs: commit tx: %w", err)
	}

	return nil
}
