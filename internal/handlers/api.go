package handlers

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"media-derive/internal/codec"
	"media-derive/internal/derivative"
	"media-derive/internal/logging"
	"media-derive/internal/storage"
)

// InfoResponse is the body of GET /api/info/{path}.
type InfoResponse struct {
	Asset storage.Asset `json:"asset"`
	// Thumbnail is the storage path the thumbnail is (or will be) stored at.
	Thumbnail string `json:"thumbnail,omitempty"`
	// ThumbnailURL ensures and serves the thumbnail.
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	// Preview is a derivative URL for image sources.
	Preview string `json:"preview,omitempty"`
}

// DeleteResponse is the body of DELETE /api/file/{path}.
type DeleteResponse struct {
	Deleted string   `json:"deleted"`
	Purged  []string `json:"purged"`
}

// GetInfo describes a file or directory.
func (h *Handlers) GetInfo(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]

	asset, err := h.root.Info(p)
	if err != nil {
		h.writeError(w, r, p, err)
		return
	}

	resp := InfoResponse{Asset: asset}
	if file, ok := asset.(*storage.FileAsset); ok && !derivative.IsArtifact(file.Path) {
		resp.Thumbnail = h.thumbs.Path(file)
		resp.ThumbnailURL = (&url.URL{Path: "/api/thumbnail" + file.Path}).EscapedPath()
		if f, ok := codec.FormatFromExt(file.Ext); ok && f.IsDerivative() {
			resp.Preview = derivative.URL(h.cfg.StoragePrefix, file.Path, h.cfg.PreviewSpec)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// GetThumbnail ensures and serves the thumbnail of a source file.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	if p == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}
	// Derivatives and thumbnails have no thumbnails of their own.
	if derivative.IsArtifact(p) {
		h.NotFound(w, r)
		return
	}

	thumb, err := h.thumbs.Ensure(r.Context(), p)
	if err != nil {
		h.writeError(w, r, p, err)
		return
	}

	info, err := h.root.Stat(thumb)
	if err != nil {
		h.writeError(w, r, thumb, err)
		return
	}

	w.Header().Set("Cache-Control", derivativeCacheControl)
	h.serveLiteral(w, r, thumb, info.ModTime())
}

// DeleteFile removes a file or directory and everything derived from it.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]

	clean, err := storage.Clean(p)
	if err != nil || clean == "/" {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	info, err := h.root.Stat(clean)
	if err != nil {
		h.writeError(w, r, clean, err)
		return
	}

	if err := h.root.Remove(clean); err != nil {
		h.writeError(w, r, clean, err)
		return
	}

	resp := DeleteResponse{Deleted: clean, Purged: []string{}}
	switch {
	case info.IsDir():
		if err := derivative.PurgeDir(h.root, clean, h.cfg.ThumbnailDir, "api"); err != nil {
			logging.Warn("Purge of thumbnails under %s failed: %v", clean, err)
		}
	case !derivative.IsArtifact(clean):
		purged, err := derivative.Purge(h.root, clean, h.cfg.ThumbnailDir, "api")
		if err != nil {
			logging.Warn("Purge for %s incomplete: %v", clean, err)
		}
		if purged != nil {
			resp.Purged = purged
		}
	}

	logging.Info("Deleted %s (%d derived files purged)", clean, len(resp.Purged))
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}
