package handlers

import (
	"net/http"
	"strings"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/services"

	"github.com/go-chi/chi/v5"
)

type StopsHandler struct {
	Planner *services.Planner
}

// Append assigns a job to the tail of a route. A job already on any route
// returns 409; a completed or cancelled job returns 422.
func (h *StopsHandler) Append(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	var req dto.AppendStopRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		writeError(w, r, http.StatusBadRequest, "job_id is required")
		return
	}

	stop, err := h.Planner.AppendStop(r.Context(), routeID, req.JobID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toStopResponse(*stop))
}

// Remove deletes a stop; the remaining stops are renumbered contiguously and
// the route's cached aggregates are cleared.
func (h *StopsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopID")

	if err := h.Planner.RemoveStop(r.Context(), stopID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateProgress records field check-in state on a stop: status and an
// optional actual arrival. Ordering and metrics are never touched here.
func (h *StopsHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopID")

	var req dto.UpdateStopProgressRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	status := domain.StopStatus(req.Status)
	switch status {
	case domain.StopPending, domain.StopArrived, domain.StopCompleted, domain.StopSkipped:
	default:
		writeError(w, r, http.StatusBadRequest, "status must be pending, arrived, completed or skipped")
		return
	}

	if err := h.Planner.UpdateStopProgress(r.Context(), stopID, status, req.ActualArrival); err != nil {
		writeDomainError(w, r, err)
		return
	}

	stop, err := h.Planner.GetStop(r.Context(), stopID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toStopResponse(*stop))
}
