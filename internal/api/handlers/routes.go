package handlers

import (
	"net/http"
	"strings"
	"time"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/services"

	"github.com/go-chi/chi/v5"
)

type RoutesHandler struct {
	Planner *services.Planner
}

// FindOrCreate returns the route for (shop, date), creating an empty planned
// route when none exists. Repeated calls converge on the same route.
func (h *RoutesHandler) FindOrCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.FindOrCreateRouteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	shopID := strings.TrimSpace(req.ShopID)
	if shopID == "" {
		writeError(w, r, http.StatusBadRequest, "shop_id is required")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	route, err := h.Planner.FindOrCreateRoute(r.Context(), shopID, date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	stops, err := h.Planner.ListStops(r.Context(), route.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(route, stops))
}

// List serves a shop's routes for an inclusive date range:
// ?shop_id=...&from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *RoutesHandler) List(w http.ResponseWriter, r *http.Request) {
	shopID := strings.TrimSpace(r.URL.Query().Get("shop_id"))
	if shopID == "" {
		writeError(w, r, http.StatusBadRequest, "shop_id is required")
		return
	}
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, r, http.StatusBadRequest, "to must not precede from")
		return
	}

	routes, err := h.Planner.ListRoutesForDateRange(r.Context(), shopID, from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for i := range routes {
		res.Routes = append(res.Routes, toRouteResponse(&routes[i], nil))
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Get serves one route with its stops in stop order.
func (h *RoutesHandler) Get(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	route, err := h.Planner.GetRoute(r.Context(), routeID)
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

// SetStatus applies a one-directional route status transition.
func (h *RoutesHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	var req dto.SetRouteStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	status := domain.RouteStatus(req.Status)
	switch status {
	case domain.RoutePlanned, domain.RouteInProgress, domain.RouteCompleted:
	default:
		writeError(w, r, http.StatusBadRequest, "status must be planned, in_progress or completed")
		return
	}

	route, err := h.Planner.SetRouteStatus(r.Context(), routeID, status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(route, nil))
}

// Delete removes an empty route. Routes with stops return 409.
func (h *RoutesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	if err := h.Planner.DeleteRoute(r.Context(), routeID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
