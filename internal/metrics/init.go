package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	formats := []string{"jpeg", "png", "webp", "avif"}
	for _, f := range formats {
		for _, status := range []string{"success", "error_decode", "error_unsupported", "error_write", "error"} {
			DerivativeGenerationsTotal.WithLabelValues(f, status)
		}
		DerivativeGenerationDuration.WithLabelValues(f)
		DerivativeBytesWritten.WithLabelValues(f)
	}

	for _, kind := range []string{"image", "gif", "video", "pdf", "file"} {
		for _, status := range []string{"success", "fallback", "error"} {
			ThumbnailGenerationsTotal.WithLabelValues(kind, status)
		}
		ThumbnailFallbacksTotal.WithLabelValues(kind)
	}

	for _, artifact := range []string{"derivative", "thumbnail"} {
		for _, trigger := range []string{"api", "watcher", "cli"} {
			PurgedFilesTotal.WithLabelValues(artifact, trigger)
		}
	}

	for _, artifact := range []string{"source", "derivative", "thumbnail"} {
		StoredArtifacts.WithLabelValues(artifact)
		StoredArtifactBytes.WithLabelValues(artifact)
	}

	for _, op := range []string{"stat", "open", "read"} {
		for _, vol := range []string{"storage", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
