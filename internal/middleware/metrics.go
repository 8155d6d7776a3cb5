package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"media-derive/internal/derivative"
	"media-derive/internal/metrics"
)

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
	// StoragePrefix is the URL prefix served from the storage root.
	StoragePrefix string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths:     []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
		StoragePrefix: "/storage",
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			path := normalizePath(r.URL.Path, config.StoragePrefix)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath collapses file paths into a few labels so that every stored
// file does not become its own time series.
func normalizePath(p, storagePrefix string) string {
	prefix := strings.TrimSuffix(storagePrefix, "/")
	if prefix != "" && (p == prefix || strings.HasPrefix(p, prefix+"/")) {
		switch {
		case strings.Contains(p, derivative.ThumbnailSuffix):
			return prefix + "/{thumbnail}"
		case derivative.IsArtifact(p):
			return prefix + "/{derivative}"
		default:
			return prefix + "/{file}"
		}
	}

	if strings.HasPrefix(p, "/api/") {
		parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 3)
		if len(parts) == 3 {
			return "/" + parts[0] + "/" + parts[1] + "/{path}"
		}
	}

	return p
}
