package api

import (
	"net/http"

	"dispatch-routing-service/internal/api/handlers"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every HTTP endpoint of the service.
func NewRouter(planner *services.Planner, optimizer *services.Optimizer) http.Handler {
	jobs := &handlers.JobsHandler{Planner: planner}
	routes := &handlers.RoutesHandler{Planner: planner}
	stops := &handlers.StopsHandler{Planner: planner}
	optimize := &handlers.OptimizeHandler{Planner: planner, Optimizer: optimizer}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Get("/jobs/unassigned", jobs.Unassigned)

	r.Route("/routes", func(r chi.Router) {
		r.Post("/find-or-create", routes.FindOrCreate)
		r.Get("/", routes.List)

		r.Route("/{routeID}", func(r chi.Router) {
			r.Get("/", routes.Get)
			r.Delete("/", routes.Delete)
			r.Patch("/status", routes.SetStatus)
			r.Post("/stops", stops.Append)
			r.Post("/optimize", optimize.Optimize)
		})
	})

	r.Route("/stops/{stopID}", func(r chi.Router) {
		r.Delete("/", stops.Remove)
		r.Patch("/", stops.UpdateProgress)
	})

	return r
}
