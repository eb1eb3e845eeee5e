package handlers

import (
	"net/http"

	"dispatch-routing-service/internal/services"

	"github.com/go-chi/chi/v5"
)

type OptimizeHandler struct {
	Planner   *services.Planner
	Optimizer *services.Optimizer
}

// Optimize runs one optimization round-trip for a route and returns the
// reconciled route with its re-sequenced stops. The route is either fully
// updated or untouched.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	route, err := h.Optimizer.Optimize(r.Context(), routeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	stops, err := h.Planner.ListStops(r.Context(), routeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(route, stops))
}
