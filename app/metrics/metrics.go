package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "endpoint"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "endpoint"},
	)

	// Business logic metrics
	authSignUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_signups_total",
			Help: "Total number of account creations",
		},
	)

	authSignInsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_signins_total",
			Help: "Total number of successful sign-ins",
		},
	)

	authSignOutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_signouts_total",
			Help: "Total number of sign-outs",
		},
	)

	authTokenValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_validations_total",
			Help: "Total number of token validations by result",
		},
		[]string{"result"},
	)

	authSessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_sessions_swept_total",
			Help: "Total number of expired sessions removed by the sweep",
		},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	status := strconv.Itoa(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	httpRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	httpResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordSignUp increments the account creation counter
func RecordSignUp() {
	authSignUpsTotal.Inc()
}

// RecordSignIn increments the successful sign-in counter
func RecordSignIn() {
	authSignInsTotal.Inc()
}

// RecordSignOut increments the sign-out counter
func RecordSignOut() {
	authSignOutsTotal.Inc()
}

// RecordTokenValidation increments the validation counter with its outcome
func RecordTokenValidation(ok bool) {
	result := "rejected"
	if ok {
		result = "accepted"
	}
	authTokenValidationsTotal.WithLabelValues(result).Inc()
}

// RecordSessionsSwept adds the number of sessions removed by a sweep run
func RecordSessionsSwept(n int) {
	authSessionsSweptTotal.Add(float64(n))
}

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
