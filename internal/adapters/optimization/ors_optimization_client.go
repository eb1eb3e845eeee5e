package optimization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

const (
	metersPerMile    = 1609.344
	secondsPerMinute = 60.0
)

// ORSOptimizationClient implements OptimizationClient against the
// OpenRouteService optimization endpoint (VROOM).
//
// Waypoint ids are mapped to the numeric job ids VROOM requires and back; the
// provider's cumulative step metrics are converted into per-leg deltas. The
// client is safe for concurrent use.
type ORSOptimizationClient struct {
	http    *orsHTTP
	profile string
}

func NewORSOptimizationClient(apiKey string) (*ORSOptimizationClient, error) {
	h, err := newORSHTTP(apiKey)
	if err != nil {
		return nil, err
	}
	return &ORSOptimizationClient{http: h, profile: "driving-car"}, nil
}

type vroomJob struct {
	ID       int       `json:"id"`
	Location []float64 `json:"location"`
}

type vroomVehicle struct {
	ID      int       `json:"id"`
	Profile string    `json:"profile"`
	Start   []float64 `json:"start"`
	End     []float64 `json:"end,omitempty"`
}

type vroomRequest struct {
	Jobs     []vroomJob     `json:"jobs"`
	Vehicles []vroomVehicle `json:"vehicles"`
}

type vroomStep struct {
	Type     string  `json:"type"`
	ID       int     `json:"id,omitempty"`
	Distance float64 `json:"distance"` // cumulative meters
	Duration float64 `json:"duration"` // cumulative seconds
}

type vroomResponse struct {
	Code   int `json:"code"`
	Routes []struct {
		Distance float64     `json:"distance"`
		Duration float64     `json:"duration"`
		Steps    []vroomStep `json:"steps"`
	} `json:"routes"`
	Unassigned []struct {
		ID int `json:"id"`
	} `json:"unassigned"`
}

func (c *ORSOptimizationClient) Optimize(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []ports.Waypoint,
	returnToOrigin bool,
) (_ *ports.OptimizationResult, err error) {
	defer obs.Time(ctx, "ors.Optimize")(&err)

	if len(destinations) == 0 {
		return nil, errors.New("optimize: destinations must be non-empty")
	}

	jobs := make([]vroomJob, 0, len(destinations))
	idByJob := make(map[int]string, len(destinations))
	for i, d := range destinations {
		jobs = append(jobs, vroomJob{ID: i + 1, Location: d.Point.CoordsToList()})
		idByJob[i+1] = d.ID
	}

	vehicle := vroomVehicle{ID: 1, Profile: c.profile, Start: origin.CoordsToList()}
	if returnToOrigin {
		vehicle.End = origin.CoordsToList()
	}

	payload, err := json.Marshal(vroomRequest{Jobs: jobs, Vehicles: []vroomVehicle{vehicle}})
	if err != nil {
		return nil, fmt.Errorf("optimize: marshal request: %w", err)
	}

	endpoint := c.http.baseURL + "/optimization"
	resp, err := c.http.doWithRetry(ctx, func() (*http.Request, error) {
		return c.http.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("optimize: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded vroomResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("optimize: decode response: %w", err)
	}

	if decoded.Code != 0 {
		return nil, fmt.Errorf("optimize: provider returned code %d", decoded.Code)
	}
	if len(decoded.Routes) == 0 {
		return nil, errors.New("optimize: provider returned no routes")
	}
	if len(decoded.Unassigned) > 0 {
		return nil, fmt.Errorf("optimize: provider left %d destinations unassigned", len(decoded.Unassigned))
	}

	route := decoded.Routes[0]

	result := &ports.OptimizationResult{
		VisitOrder:               make([]string, 0, len(destinations)),
		Legs:                     make([]ports.Leg, 0, len(destinations)+1),
		AggregateDistanceMiles:   route.Distance / metersPerMile,
		AggregateDurationMinutes: route.Duration / secondsPerMinute,
	}

	// Step metrics are cumulative along the tour; legs are the deltas
	// between consecutive steps (start -> first job, job -> job, and the
	// final job -> end leg when the vehicle returns).
	prevDistance, prevDuration := 0.0, 0.0
	for _, step := range route.Steps {
		switch step.Type {
		case "start":
			prevDistance, prevDuration = step.Distance, step.Duration
		case "job":
			stopID, ok := idByJob[step.ID]
			if !ok {
				return nil, fmt.Errorf("optimize: provider returned unknown job id %d", step.ID)
			}
			result.VisitOrder = append(result.VisitOrder, stopID)
			result.Legs = append(result.Legs, ports.Leg{
				DistanceMiles:   (step.Distance - prevDistance) / metersPerMile,
				DurationMinutes: (step.Duration - prevDuration) / secondsPerMinute,
			})
			prevDistance, prevDuration = step.Distance, step.Duration
		case "end":
			result.Legs = append(result.Legs, ports.Leg{
				DistanceMiles:   (step.Distance - prevDistance) / metersPerMile,
				DurationMinutes: (step.Duration - prevDuration) / secondsPerMinute,
			})
		}
	}

	if len(result.VisitOrder) != len(destinations) {
		return nil, fmt.Errorf("optimize: provider visited %d of %d destinations",
			len(result.VisitOrder), len(destinations))
	}

	return result, nil
}
