// Package metrics provides the Prometheus registry and HTTP handler of the
// gallery. All metrics are defined in their respective packages (unsplash,
// pagination, ratelimit, render, session) via promauto and registered on
// the default registry.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry the gallery metrics live on.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Image API Metrics (pkg/unsplash):
//   - gallery_api_requests_total{status} (Counter): Requests by HTTP status or network_error
//   - gallery_api_request_duration_seconds (Histogram): Request duration
//   - gallery_api_errors_total{class} (Counter): Errors by class (config_missing, request_failed, decode_failed, network)
//
// Pipeline Metrics (pkg/pagination):
//   - gallery_pipeline_runs_total{outcome} (Counter): Runs by outcome (success, failure)
//   - gallery_pipeline_run_duration_seconds (Histogram): Run duration including rendering
//   - gallery_pipeline_photos_total (Counter): Photo elements rendered
//   - gallery_controller_triggers_total{reason, outcome} (Counter): Load decisions (ready/scroll x started/in_flight/not_near_bottom/guard_error/closed)
//
// Scroll Metrics (pkg/ratelimit):
//   - gallery_debounce_calls_total (Counter): Scroll notifications received
//   - gallery_debounce_executions_total (Counter): Debounced evaluations executed
//   - gallery_guard_rejections_total{guard} (Counter): Runs rejected because one was in flight
//   - gallery_guard_errors_total{operation} (Counter): Guard backend errors
//
// Surface Metrics (pkg/render):
//   - gallery_surface_elements_total{kind} (Counter): Elements appended by kind
//   - gallery_surface_errors_total{operation} (Counter): Surface operation errors
//
// Session Metrics (internal/session):
//   - gallery_sessions_active (Gauge): Live page-view sessions
//   - gallery_sessions_closed_total{reason} (Counter): Sessions closed (deleted, idle, released, expired, shutdown)
//   - gallery_sessions_adopted_total (Counter): Sessions picked up from the registry by this replica
//
// Example Prometheus Queries:
//
//   # Failed load ratio
//   sum(rate(gallery_pipeline_runs_total{outcome="failure"}[5m])) /
//   sum(rate(gallery_pipeline_runs_total[5m]))
//
//   # Debounce effectiveness
//   rate(gallery_debounce_executions_total[5m]) / rate(gallery_debounce_calls_total[5m])
//
//   # P95 image API latency
//   histogram_quantile(0.95, rate(gallery_api_request_duration_seconds_bucket[5m]))
//
//   # Sessions served by a replica other than their creator
//   rate(gallery_sessions_adopted_total[5m])
//
//   # Scroll loads dropped while in flight
//   rate(gallery_controller_triggers_total{reason="scroll", outcome="in_flight"}[5m])
