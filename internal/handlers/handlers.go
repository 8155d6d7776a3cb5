package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-derive/internal/derivative"
	"media-derive/internal/memory"
	"media-derive/internal/storage"
	"media-derive/internal/thumbnail"
)

// DefaultPreviewSpec is the transform advertised as an asset's preview URL.
var DefaultPreviewSpec = derivative.TransformSpec{Width: 1280}

// Config configures Handlers.
type Config struct {
	// StoragePrefix is the URL prefix mapped onto the storage root.
	StoragePrefix string
	// ThumbnailDir is the thumbnails subtree, empty when thumbnails live
	// beside their sources.
	ThumbnailDir string
	PreviewSpec  derivative.TransformSpec
	// Monitor, when set, reports memory pressure in health checks.
	Monitor *memory.Monitor
	// CodecName and FFmpegAvailable are reported by the health check.
	CodecName       string
	FFmpegAvailable bool
}

type Handlers struct {
	root    *storage.Root
	cache   *derivative.Cache
	thumbs  *thumbnail.Generator
	cfg     Config
	started time.Time
}

func New(cache *derivative.Cache, thumbs *thumbnail.Generator, cfg Config) *Handlers {
	cfg.StoragePrefix = "/" + strings.Trim(cfg.StoragePrefix, "/")
	if cfg.PreviewSpec.IsEmpty() {
		cfg.PreviewSpec = DefaultPreviewSpec
	}
	return &Handlers{
		root:    cache.Root(),
		cache:   cache,
		thumbs:  thumbs,
		cfg:     cfg,
		started: time.Now(),
	}
}

// Register adds all routes to r.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead).Name("health")
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("liveness")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet, http.MethodHead).Name("readiness")
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/info/{path:.*}", h.GetInfo).Methods(http.MethodGet).Name("info")
	api.HandleFunc("/thumbnail/{path:.*}", h.GetThumbnail).Methods(http.MethodGet, http.MethodHead).Name("thumbnail")
	api.HandleFunc("/file/{path:.*}", h.DeleteFile).Methods(http.MethodDelete).Name("delete")

	r.PathPrefix(h.cfg.StoragePrefix + "/").
		Handler(http.StripPrefix(h.cfg.StoragePrefix, http.HandlerFunc(h.ServeStorage))).
		Methods(http.MethodGet, http.MethodHead).
		Name("storage")

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
}

// NotFound is the router fallback.
func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, "not found", http.StatusNotFound)
}
