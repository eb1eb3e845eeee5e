package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded implementation of the JobStore,
// RouteRepository and StopRepository ports. It backs tests and STORE=memory
// dev runs with the same invariant behavior as the Postgres adapters: one
// winner per job under concurrent appends, contiguous renumbering, atomic
// reconciliation with stop-set re-validation.
type MemoryStore struct {
	mu       sync.Mutex
	jobs     map[string]domain.Job
	routes   map[string]*domain.Route
	stops    map[string]*domain.Stop
	routeSeq map[string]int
	nextSeq  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]domain.Job),
		routes:   make(map[string]*domain.Route),
		stops:    make(map[string]*domain.Stop),
		routeSeq: make(map[string]int),
	}
}

// PutJob inserts or replaces a job. Test/seed helper; the engine itself never
// writes jobs.
func (m *MemoryStore) PutJob(job domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}

func (m *MemoryStore) GetAssignableJobs(ctx context.Context, shopID string, from, to time.Time) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.ShopID != shopID || !j.Assignable() {
			continue
		}
		if dateBefore(j.ScheduledDate, from) || dateBefore(to, j.ScheduledDate) {
			continue
		}
		out = append(out, j)
	}

	sort.Slice(out, func(i, k int) bool {
		if !out[i].ScheduledDate.Equal(out[k].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[k].ScheduledDate)
		}
		return out[i].ID < out[k].ID
	})

	return out, nil
}

func (m *MemoryStore) GetJobs(ctx context.Context, ids []string) (map[string]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]domain.Job, len(ids))
	for _, id := range ids {
		if j, ok := m.jobs[id]; ok {
			out[id] = j
		}
	}
	return out, nil
}

func (m *MemoryStore) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	route, ok := m.routes[routeID]
	if !ok {
		return nil, fmt.Errorf("get route %s: %w", routeID, domain.ErrNotFound)
	}
	return copyRoute(route), nil
}

func (m *MemoryStore) RoutesForDate(ctx context.Context, shopID string, date time.Time) ([]domain.Route, error) {
	return m.routesWhere(shopID, func(r *domain.Route) bool {
		return sameDate(r.RouteDate, date)
	})
}

func (m *MemoryStore) RoutesForDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Route, error) {
	return m.routesWhere(shopID, func(r *domain.Route) bool {
		return !dateBefore(r.RouteDate, from) && !dateBefore(to, r.RouteDate)
	})
}

func (m *MemoryStore) routesWhere(shopID string, keep func(*domain.Route) bool) ([]domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*domain.Route, 0, len(m.routes))
	for _, r := range m.routes {
		if r.ShopID == shopID && keep(r) {
			matched = append(matched, r)
		}
	}

	sort.Slice(matched, func(i, k int) bool {
		if !sameDate(matched[i].RouteDate, matched[k].RouteDate) {
			return matched[i].RouteDate.Before(matched[k].RouteDate)
		}
		return m.routeSeq[matched[i].ID] < m.routeSeq[matched[k].ID]
	})

	out := make([]domain.Route, 0, len(matched))
	for _, r := range matched {
		out = append(out, *copyRoute(r))
	}
	return out, nil
}

func (m *MemoryStore) CreateRoute(ctx context.Context, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	if _, ok := m.routes[route.ID]; ok {
		return fmt.Errorf("create route %s: already exists", route.ID)
	}
	for i, member := range route.AssignedCrew {
		if member.ID == "" {
			return fmt.Errorf("create route: crew member at index %d has empty id", i)
		}
	}

	m.routes[route.ID] = copyRoute(route)
	m.routeSeq[route.ID] = m.nextSeq
	m.nextSeq++
	return nil
}

func (m *MemoryStore) DeleteRoute(ctx context.Context, routeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	route, ok := m.routes[routeID]
	if !ok {
		return fmt.Errorf("delete route %s: %w", routeID, domain.ErrNotFound)
	}
	if route.TotalStops > 0 {
		return fmt.Errorf("delete route %s: %d stops: %w", routeID, route.TotalStops, domain.ErrRouteNotEmpty)
	}

	delete(m.routes, routeID)
	delete(m.routeSeq, routeID)
	return nil
}

func (m *MemoryStore) SetRouteStatus(ctx context.Context, routeID string, status domain.RouteStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	route, ok := m.routes[routeID]
	if !ok {
		return fmt.Errorf("set route status %s: %w", routeID, domain.ErrNotFound)
	}
	route.Status = status
	return nil
}

func (m *MemoryStore) ApplyOptimization(ctx context.Context, routeID string, write ports.OptimizationWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	route, ok := m.routes[routeID]
	if !ok {
		return fmt.Errorf("apply optimization %s: %w", routeID, domain.ErrNotFound)
	}

	live := make(map[string]struct{})
	for _, s := range m.stops {
		if s.RouteID == routeID {
			live[s.ID] = struct{}{}
		}
	}
	if len(live) != len(write.ExpectedStopIDs) {
		return fmt.Errorf("apply optimization %s: %w", routeID, domain.ErrRouteChanged)
	}
	for _, id := range write.ExpectedStopIDs {
		if _, ok := live[id]; !ok {
			return fmt.Errorf("apply optimization %s: %w", routeID, domain.ErrRouteChanged)
		}
	}

	for _, w := range write.Stops {
		stop, ok := m.stops[w.StopID]
		if !ok || stop.RouteID != routeID {
			return fmt.Errorf("apply optimization %s: stop %s: %w", routeID, w.StopID, domain.ErrRouteChanged)
		}
		stop.StopOrder = w.StopOrder
		stop.DriveTimeFromPreviousMinutes = copyFloat(w.DriveTimeFromPreviousMinutes)
		stop.DistanceFromPreviousMiles = copyFloat(w.DistanceFromPreviousMiles)
		stop.EstimatedArrival = copyTime(w.EstimatedArrival)
	}

	distance := write.TotalDistanceMiles
	duration := write.TotalDurationMinutes
	route.TotalDistanceMiles = &distance
	route.TotalDurationMinutes = &duration

	return nil
}

func (m *MemoryStore) GetStop(ctx context.Context, stopID string) (*domain.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stop, ok := m.stops[stopID]
	if !ok {
		return nil, fmt.Errorf("get stop %s: %w", stopID, domain.ErrNotFound)
	}
	out := *stop
	return &out, nil
}

func (m *MemoryStore) ListStops(ctx context.Context, routeID string) ([]domain.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Stop, 0, 16)
	for _, s := range m.stops {
		if s.RouteID == routeID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StopOrder < out[k].StopOrder })
	return out, nil
}

func (m *MemoryStore) AssignedJobIDs(ctx context.Context, shopID string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct{}, len(m.stops))
	for _, s := range m.stops {
		route, ok := m.routes[s.RouteID]
		if ok && route.ShopID == shopID {
			out[s.JobID] = struct{}{}
		}
	}
	return out, nil
}

func (m *MemoryStore) AppendStop(ctx context.Context, routeID, jobID string) (*domain.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	route, ok := m.routes[routeID]
	if !ok {
		return nil, fmt.Errorf("append stop: route %s: %w", routeID, domain.ErrNotFound)
	}

	// Single-assignment check stands in for the storage unique constraint.
	for _, s := range m.stops {
		if s.JobID == jobID {
			return nil, fmt.Errorf("append stop: job %s: %w", jobID, domain.ErrJobAlreadyAssigned)
		}
	}

	maxOrder := 0
	for _, s := range m.stops {
		if s.RouteID == routeID && s.StopOrder > maxOrder {
			maxOrder = s.StopOrder
		}
	}

	stop := &domain.Stop{
		ID:        uuid.NewString(),
		RouteID:   routeID,
		JobID:     jobID,
		StopOrder: maxOrder + 1,
		Status:    domain.StopPending,
	}
	m.stops[stop.ID] = stop
	route.TotalStops++

	out := *stop
	return &out, nil
}

func (m *MemoryStore) RemoveStop(ctx context.Context, stopID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stop, ok := m.stops[stopID]
	if !ok {
		return fmt.Errorf("remove stop %s: %w", stopID, domain.ErrNotFound)
	}

	route := m.routes[stop.RouteID]
	delete(m.stops, stopID)

	for _, s := range m.stops {
		if s.RouteID == stop.RouteID && s.StopOrder > stop.StopOrder {
			s.StopOrder--
		}
	}

	if route != nil {
		route.TotalStops--
		route.TotalDistanceMiles = nil
		route.TotalDurationMinutes = nil
	}

	return nil
}

func (m *MemoryStore) UpdateStopProgress(ctx context.Context, stopID string, status domain.StopStatus, actualArrival *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stop, ok := m.stops[stopID]
	if !ok {
		return fmt.Errorf("update stop progress %s: %w", stopID, domain.ErrNotFound)
	}

	stop.Status = status
	if actualArrival != nil {
		stop.ActualArrival = copyTime(actualArrival)
	}
	return nil
}

func copyRoute(r *domain.Route) *domain.Route {
	out := *r
	out.AssignedCrew = append([]domain.CrewMember(nil), r.AssignedCrew...)
	out.TotalDistanceMiles = copyFloat(r.TotalDistanceMiles)
	out.TotalDurationMinutes = copyFloat(r.TotalDurationMinutes)
	if r.StartLocation != nil {
		loc := *r.StartLocation
		out.StartLocation = &loc
	}
	if r.EndLocation != nil {
		loc := *r.EndLocation
		out.EndLocation = &loc
	}
	return &out
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
