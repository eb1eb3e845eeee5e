package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the dedicated Prometheus registry for the service.
var Registry = prometheus.NewRegistry()

var (
	// HTTPRequests counts requests by method, path and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// OptimizationRuns counts optimization round-trips by outcome.
	OptimizationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimization runs by outcome."},
		[]string{"outcome"},
	)
	// OptimizationDuration records the full coordinator round-trip in seconds.
	OptimizationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_optimization_duration_seconds", Help: "Route optimization duration in seconds.", Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizationRuns)
		Registry.MustRegister(OptimizationDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveOptimization records one coordinator run.
func ObserveOptimization(outcome string, dur time.Duration) {
	OptimizationRuns.WithLabelValues(outcome).Inc()
	OptimizationDuration.WithLabelValues(outcome).Observe(dur.Seconds())
}
