package dto

type PointResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type JobResponse struct {
	JobID         string         `json:"job_id"`
	Address       string         `json:"address"`
	Coordinate    *PointResponse `json:"coordinate,omitempty"`
	ScheduledDate string         `json:"scheduled_date"`
	Status        string         `json:"status"`
}

type ListUnassignedJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}
