// Package startup handles configuration loading and lifecycle logging for
// the derivative server.
//
// # Configuration
//
// [ReadConfig] loads an optional .env file and parses the environment into
// [Config] through struct tags. [LoadConfig] additionally prints the banner
// and prepares the storage root, which must be writable:
//
//   - STORAGE_DIR: storage root (default: /storage)
//   - STORAGE_PREFIX: URL prefix mapped onto the root (default: /storage)
//   - PORT, METRICS_PORT, METRICS_ENABLED: listeners (8080, 9090, true)
//   - THUMBNAIL_WIDTH, THUMBNAIL_HEIGHT: thumbnail box (300x180)
//   - THUMBNAIL_DIR: thumbnails subtree under the root (default: beside sources)
//   - FFMPEG_PATH: ffmpeg binary for video thumbnails (default: from PATH)
//   - DEFAULT_QUALITY: quality when a key has no q modifier (default: 70)
//   - ALLOW_ENLARGE: permit output larger than the source (default: false)
//   - CODEC: auto, vips or imaging (default: auto)
//   - WATCH_SOURCES: purge artifacts of sources deleted on disk (default: true)
//   - INVENTORY_INTERVAL: seconds between artifact inventory scans (default: 300)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: logging
//
// MEMORY_LIMIT and MEMORY_RATIO are read by package memory.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
package startup
