package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// Represents a single service job referenced by the routing engine.
// Jobs are owned by the job store; the engine reads them by value and never
// drives their lifecycle. Coordinate is nil until the address has been geocoded.
type Job struct {
	ID            string
	ShopID        string
	Address       string
	Coordinate    *Coordinates
	ScheduledDate time.Time
	Status        JobStatus
}

// A job may be placed on a route only while work on it is still open.
// Completed and cancelled jobs are excluded from both the unassigned pool
// and new-assignment eligibility.
func (j Job) Assignable() bool {
	switch j.Status {
	case JobPending, JobScheduled, JobInProgress:
		return true
	}
	return false
}
