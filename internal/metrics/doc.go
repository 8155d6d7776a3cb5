// Package metrics provides Prometheus instrumentation for media-derive.
//
// All metrics are prefixed with "media_derive_" and registered with promauto
// on the default registry, which the server binary serves with promhttp on the
// metrics port.
//
// # Metric Categories
//
// HTTP:
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// Derivatives:
//   - DerivativeGenerationsTotal by output format and status
//   - DerivativeGenerationDuration by output format
//   - DerivativeCacheHits, DerivativeCacheMisses
//   - DerivativeBytesWritten by output format
//
// Thumbnails:
//   - ThumbnailGenerationsTotal by source kind and status
//   - ThumbnailFallbacksTotal by source kind
//   - ThumbnailFFmpegDuration
//
// Delete-cascade:
//   - PurgedFilesTotal by artifact (derivative, thumbnail) and trigger (api, watcher, cli)
//   - WatcherEventsTotal, WatcherErrors, WatchedDirectories
//
// Storage inventory (refreshed by Collector):
//   - StoredArtifacts and StoredArtifactBytes by artifact
//
// Filesystem:
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures,
//     FilesystemStaleErrors, FilesystemRetryDuration by operation and volume
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape, and pass NewFilesystemObserver to
// filesystem.SetObserver.
package metrics
