package handlers

import (
	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/domain"
)

const dateLayout = "2006-01-02"

func toPoint(c *domain.Coordinates) *dto.PointResponse {
	if c == nil {
		return nil
	}
	return &dto.PointResponse{Lat: c.Lat, Lng: c.Lng}
}

func toJobResponse(j domain.Job) dto.JobResponse {
	return dto.JobResponse{
		JobID:         j.ID,
		Address:       j.Address,
		Coordinate:    toPoint(j.Coordinate),
		ScheduledDate: j.ScheduledDate.Format(dateLayout),
		Status:        string(j.Status),
	}
}

func toRouteResponse(route *domain.Route, stops []domain.Stop) dto.RouteResponse {
	crew := make([]dto.CrewMemberResponse, 0, len(route.AssignedCrew))
	for _, m := range route.AssignedCrew {
		crew = append(crew, dto.CrewMemberResponse{ID: m.ID, DisplayName: m.DisplayName})
	}

	res := dto.RouteResponse{
		RouteID:              route.ID,
		ShopID:               route.ShopID,
		RouteDate:            route.RouteDate.Format(dateLayout),
		Name:                 route.Name,
		Status:               string(route.Status),
		AssignedCrew:         crew,
		TotalStops:           route.TotalStops,
		TotalDistanceMiles:   route.TotalDistanceMiles,
		TotalDurationMinutes: route.TotalDurationMinutes,
		StartLocation:        toPoint(route.StartLocation),
		EndLocation:          toPoint(route.EndLocation),
	}

	for _, s := range stops {
		res.Stops = append(res.Stops, toStopResponse(s))
	}

	return res
}

func toStopResponse(s domain.Stop) dto.StopResponse {
	return dto.StopResponse{
		StopID:                       s.ID,
		RouteID:                      s.RouteID,
		JobID:                        s.JobID,
		StopOrder:                    s.StopOrder,
		Status:                       string(s.Status),
		EstimatedArrival:             s.EstimatedArrival,
		ActualArrival:                s.ActualArrival,
		DriveTimeFromPreviousMinutes: s.DriveTimeFromPreviousMinutes,
		DistanceFromPreviousMiles:    s.DistanceFromPreviousMiles,
	}
}
