package dto

import "time"

type StopResponse struct {
	StopID                       string     `json:"stop_id"`
	RouteID                      string     `json:"route_id"`
	JobID                        string     `json:"job_id"`
	StopOrder                    int        `json:"stop_order"`
	Status                       string     `json:"status"`
	EstimatedArrival             *time.Time `json:"estimated_arrival"`
	ActualArrival                *time.Time `json:"actual_arrival"`
	DriveTimeFromPreviousMinutes *float64   `json:"drive_time_from_previous_minutes"`
	DistanceFromPreviousMiles    *float64   `json:"distance_from_previous_miles"`
}

type AppendStopRequest struct {
	JobID string `json:"job_id"`
}

type UpdateStopProgressRequest struct {
	Status        string     `json:"status"`
	ActualArrival *time.Time `json:"actual_arrival,omitempty"`
}
