// Package memory keeps the Go heap inside a container memory limit.
//
// libvips and ffmpeg allocate outside the Go heap, so only part of the
// container limit is handed to the runtime as GOMEMLIMIT:
//
//	MEMORY_LIMIT=1073741824  # bytes, usually from the Kubernetes Downward API
//	MEMORY_RATIO=0.75        # share given to the Go heap (default 0.85)
//
// An explicit GOMEMLIMIT always wins.
//
// [Monitor] samples heap usage and gives bulk work such as derivative
// warm-up a backpressure signal: workers call [Monitor.WaitIfPaused] before
// each item and block while usage is above the critical mark.
package memory
