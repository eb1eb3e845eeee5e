package ports

import (
	"context"
	"time"

	"dispatch-routing-service/internal/domain"
)

// Port: read access to service jobs. The job store owns job lifecycle; the
// engine only reads assignment-visible fields.
type JobStore interface {
	// Return assignable jobs for a shop whose scheduled date falls in the
	// inclusive [from, to] window.
	GetAssignableJobs(ctx context.Context, shopID string, from, to time.Time) ([]domain.Job, error)

	// Return jobs by id, keyed by id. Unknown ids are simply absent.
	GetJobs(ctx context.Context, ids []string) (map[string]domain.Job, error)
}
