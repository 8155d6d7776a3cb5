// Package main provides the entry point for the media-derive server.
//
// media-derive serves a directory of images and other files over HTTP and
// creates resized or re-encoded derivatives on demand. A request for
// /storage/photos/cat_mod_w300_q70.webp that does not exist on disk is
// answered by locating photos/cat.jpg (or another source format), producing
// the variant, storing it beside the source and returning it. The next
// request for the same URL is served straight from disk.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from GOMEMLIMIT or the cgroup limit
//  2. Configuration Loading: reads .env and the environment, prepares storage
//  3. Engine Initialization: codec (libvips or pure Go), derivative cache,
//     thumbnail generator with optional ffmpeg frame extraction
//  4. Background Services: memory monitor, source watcher, inventory collector
//  5. HTTP Server Setup: routes, metrics, logging and compression middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stop all components within 30 seconds
//
// # Endpoints
//
//	GET|HEAD /storage/{path}          literal file or generated derivative
//	GET      /api/info/{path}         file metadata, thumbnail and preview URLs
//	GET|HEAD /api/thumbnail/{path}    thumbnail, generated on first request
//	DELETE   /api/file/{path}         delete a file and its derivatives
//	GET      /healthz /livez /readyz  probes
//	GET      /version                 build information
//
// Prometheus metrics are served on a separate port at /metrics.
//
// # Derivative Names
//
// A derivative name is the source base name followed by "_mod" and any of
// the modifiers w<width>, h<height> and q<quality>, each introduced by an
// underscore, then the output extension:
//
//	cat_mod_w300.jpg         300 pixels wide, height keeps the aspect ratio
//	cat_mod_w300_h200.webp   fit within 300x200, converted to WebP
//	cat_mod_q50.avif         original size at quality 50, AVIF
//	cat_mod.png              format conversion only
//
// Derivatives never grow larger than their source unless ALLOW_ENLARGE is
// set. Deleting a source through the API, or from disk while WATCH_SOURCES
// is on, removes every derivative and thumbnail built from it.
//
// # Configuration
//
// See internal/startup for the full list of environment variables.
package main
