package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_derive_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_derive_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Derivative metrics
var (
	DerivativeGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_derivative_generations_total",
			Help: "Total number of derivative generations",
		},
		[]string{"format", "status"}, // status: "success", "error_decode", "error_unsupported", "error_write", "error"
	)

	DerivativeGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_derive_derivative_generation_duration_seconds",
			Help:    "Time to load, transform, encode and persist a derivative",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"format"},
	)

	DerivativeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_derive_derivative_cache_hits_total",
			Help: "Derivative requests served from an existing file",
		},
	)

	DerivativeCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_derive_derivative_cache_misses_total",
			Help: "Derivative requests that required generation",
		},
	)

	DerivativeBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_derivative_bytes_written_total",
			Help: "Bytes of derivative output persisted",
		},
		[]string{"format"},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"kind", "status"}, // kind: image/gif/video/pdf/file; status: "success", "fallback", "error"
	)

	ThumbnailFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_thumbnail_fallbacks_total",
			Help: "Thumbnails written as a verbatim copy of the source",
		},
		[]string{"kind"},
	)

	ThumbnailFFmpegDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_derive_thumbnail_ffmpeg_duration_seconds",
			Help:    "Time spent extracting a video frame with ffmpeg",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Delete-cascade metrics
var (
	PurgedFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_purged_files_total",
			Help: "Derivatives and thumbnails removed after their source was deleted",
		},
		[]string{"artifact", "trigger"},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_derive_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_derive_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Storage inventory metrics
var (
	StoredArtifacts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_derive_stored_artifacts",
			Help: "Number of files under the storage root by artifact",
		},
		[]string{"artifact"}, // "source", "derivative", "thumbnail"
	)

	StoredArtifactBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_derive_stored_artifact_bytes",
			Help: "Bytes under the storage root by artifact",
		},
		[]string{"artifact"},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_filesystem_retry_attempts_total",
			Help: "Retries after an NFS stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derive_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_derive_filesystem_retry_duration_seconds",
			Help:    "Total duration of retried filesystem operations",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_derive_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_derive_memory_paused",
			Help: "Whether background generation is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_derive_memory_gc_pauses_total",
			Help: "Number of times background generation was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_derive_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
