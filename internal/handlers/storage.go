package handlers

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"time"

	"media-derive/internal/codec"
	"media-derive/internal/derivative"
	"media-derive/internal/logging"
	"media-derive/internal/mediatypes"
	"media-derive/internal/middleware"
	"media-derive/internal/storage"
)

const (
	derivativeCacheControl = "public, max-age=86400"
	cacheLiteral           = "literal"
	cacheHit               = "hit"
	cacheMiss              = "miss"
)

// ServeStorage serves r.URL.Path (relative to the storage prefix) from the
// storage root. A request that matches no file is handed to the derivative
// cache; anything the cache cannot serve falls through to 404.
func (h *Handlers) ServeStorage(w http.ResponseWriter, r *http.Request) {
	clean, err := storage.Clean(r.URL.Path)
	if err != nil {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	info, err := h.root.Stat(clean)
	switch {
	case err == nil && info.IsDir():
		h.NotFound(w, r)
		return
	case err == nil:
		h.serveLiteral(w, r, clean, info.ModTime())
		return
	case !errors.Is(err, fs.ErrNotExist):
		logging.Error("Storage stat %s failed: %v", clean, err)
		writeJSONError(w, "failed to access file", http.StatusInternalServerError)
		return
	}

	h.intercept(w, r, clean)
}

func (h *Handlers) serveLiteral(w http.ResponseWriter, r *http.Request, clean string, modTime time.Time) {
	f, err := h.root.Open(clean)
	if err != nil {
		h.writeError(w, r, clean, err)
		return
	}
	defer f.Close()

	status := cacheLiteral
	if derivative.IsArtifact(clean) {
		status = cacheHit
		w.Header().Set("Cache-Control", derivativeCacheControl)
	}
	w.Header().Set(middleware.CacheStatusHeader, status)
	if ct := contentType(clean); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, path.Base(clean), modTime, f)
}

// intercept is the not-found path for storage requests.
func (h *Handlers) intercept(w http.ResponseWriter, r *http.Request, clean string) {
	data, ct, err := h.cache.GetOrCreate(r.Context(), clean)
	if err != nil {
		h.writeError(w, r, clean, err)
		return
	}

	w.Header().Set(middleware.CacheStatusHeader, cacheMiss)
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", derivativeCacheControl)
	http.ServeContent(w, r, path.Base(clean), time.Now(), bytes.NewReader(data))
}

func contentType(p string) string {
	ext := path.Ext(p)
	if _, ok := codec.FormatFromExt(ext); ok {
		return codec.ContentTypeForExt(ext)
	}
	if mt := mediatypes.GetMimeType(ext); mt != "application/octet-stream" {
		return mt
	}
	return ""
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, derivative.ErrNotADerivative),
		errors.Is(err, derivative.ErrSourceNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrOutsideRoot), errors.Is(err, storage.ErrIsDir):
		return http.StatusBadRequest
	case errors.Is(err, codec.ErrUnsupportedFormat), errors.Is(err, codec.ErrUnsupportedOutputFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, p string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		logging.Debug("%s %s: not found (%v)", r.Method, p, err)
		h.NotFound(w, r)
		return
	case http.StatusInternalServerError:
		logging.Error("%s %s failed: %v", r.Method, p, err)
		writeJSONError(w, "internal error", status)
		return
	}
	logging.Debug("%s %s: %v", r.Method, p, err)
	writeJSONError(w, http.StatusText(status), status)
}
