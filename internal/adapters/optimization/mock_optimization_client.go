package optimization

import (
	"context"
	"sync"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

// MockOptimizationClient returns a canned result or error and records every
// call for assertions. Test double for the coordinator.
type MockOptimizationClient struct {
	mu     sync.Mutex
	Result *ports.OptimizationResult
	Err    error

	// OnCall runs inside Optimize before returning, useful for simulating
	// concurrent mutation mid-flight.
	OnCall func()

	Calls []MockOptimizeCall
}

type MockOptimizeCall struct {
	Origin         domain.Coordinates
	Destinations   []ports.Waypoint
	ReturnToOrigin bool
}

func (m *MockOptimizationClient) Optimize(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []ports.Waypoint,
	returnToOrigin bool,
) (*ports.OptimizationResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockOptimizeCall{
		Origin:         origin,
		Destinations:   append([]ports.Waypoint(nil), destinations...),
		ReturnToOrigin: returnToOrigin,
	})
	onCall := m.OnCall
	result := m.Result
	err := m.Err
	m.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if err != nil {
		return nil, err
	}

	out := *result
	out.VisitOrder = append([]string(nil), result.VisitOrder...)
	out.Legs = append([]ports.Leg(nil), result.Legs...)
	return &out, nil
}

// CallCount reports how many times Optimize ran.
func (m *MockOptimizationClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
