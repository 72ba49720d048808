package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbound HTTP metrics for backend calls.
var (
	httpClientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ris",
			Name:      "http_client_request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	httpClientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ris",
			Name:      "http_client_requests_total",
			Help:      "Total number of backend requests",
		},
		[]string{"method", "path", "status"},
	)
)

// RegisterHTTPClientMetrics registers outbound HTTP metrics on reg.
// Registering twice on the same registry is a no-op.
func RegisterHTTPClientMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{httpClientRequestDuration, httpClientRequestsTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register http client metric: %w", err)
		}
	}
	return nil
}

// RoundTripper records duration and count of every outbound request.
// Network failures are recorded with status "error".
func RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		path := normalizePath(req.URL.Path)

		httpClientRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())
		httpClientRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
		return resp, err //nolint:wrapcheck // RoundTripper must return errors unchanged
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// normalizePath normalizes paths to prevent high cardinality in metrics labels.
func normalizePath(path string) string {
	if path == "" {
		return "unknown"
	}
	return path
}
