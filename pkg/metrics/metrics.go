// Package metrics exposes Prometheus counters for the keyvault server.
//
// Metrics are registered by Init. Until then every Record function is a
// no-op, which keeps unit tests and the CLI free of global registrations.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	authzDecisionsTotal   *prometheus.CounterVec
	credentialOpsTotal    *prometheus.CounterVec
	credentialOpsDuration *prometheus.HistogramVec
	activityRecordsTotal  *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec

	metricsOnce       sync.Once
	metricsRegistered bool
)

// Init registers all metrics with the default registry. It is safe to call
// more than once.
func Init() {
	metricsOnce.Do(func() {
		authzDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyvault_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"action", "decision"},
		)

		credentialOpsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyvault_credential_store_operations_total",
				Help: "Total number of credential store calls",
			},
			[]string{"backend", "operation", "result"},
		)

		credentialOpsDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyvault_credential_store_operation_duration_seconds",
				Help:    "Duration of credential store calls in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"backend", "operation"},
		)

		activityRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyvault_activity_records_total",
				Help: "Total number of activity log entries recorded",
			},
			[]string{"action", "resource_type"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyvault_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyvault_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		)

		metricsRegistered = true
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthzDecision counts one authorization decision.
func RecordAuthzDecision(action, decision string) {
	if !metricsRegistered {
		return
	}
	authzDecisionsTotal.WithLabelValues(action, decision).Inc()
}

// RecordCredentialOp counts one credential store call and its latency.
func RecordCredentialOp(backend, operation string, err error, elapsed time.Duration) {
	if !metricsRegistered {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	credentialOpsTotal.WithLabelValues(backend, operation, result).Inc()
	credentialOpsDuration.WithLabelValues(backend, operation).Observe(elapsed.Seconds())
}

// RecordActivity counts one recorded activity entry.
func RecordActivity(action, resourceType string) {
	if !metricsRegistered {
		return
	}
	activityRecordsTotal.WithLabelValues(action, resourceType).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests by their mux route template so ids in paths do
// not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !metricsRegistered {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
