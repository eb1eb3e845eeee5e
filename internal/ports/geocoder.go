package ports

import (
	"context"

	"dispatch-routing-service/internal/domain"
)

// Port: best-effort address resolution used before optimization for stops
// whose job has no coordinate yet.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
