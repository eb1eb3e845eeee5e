package dto

type CrewMemberResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type RouteResponse struct {
	RouteID              string               `json:"route_id"`
	ShopID               string               `json:"shop_id"`
	RouteDate            string               `json:"route_date"`
	Name                 string               `json:"name,omitempty"`
	Status               string               `json:"status"`
	AssignedCrew         []CrewMemberResponse `json:"assigned_crew"`
	TotalStops           int                  `json:"total_stops"`
	TotalDistanceMiles   *float64             `json:"total_distance_miles"`
	TotalDurationMinutes *float64             `json:"total_duration_minutes"`
	StartLocation        *PointResponse       `json:"start_location,omitempty"`
	EndLocation          *PointResponse       `json:"end_location,omitempty"`
	Stops                []StopResponse       `json:"stops,omitempty"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

type FindOrCreateRouteRequest struct {
	ShopID string `json:"shop_id"`
	Date   string `json:"date"`
}

type SetRouteStatusRequest struct {
	Status string `json:"status"`
}
