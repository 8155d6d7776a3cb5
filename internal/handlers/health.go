package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-derive/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusDown     = "down"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Codec           string `json:"codec,omitempty"`
	FFmpegAvailable bool   `json:"ffmpegAvailable"`

	MemoryUsage  float64 `json:"memoryUsage,omitempty"`
	MemoryPaused bool    `json:"memoryPaused,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// storageReady reports whether the storage root can be read.
func (h *Handlers) storageReady() bool {
	info, err := h.root.Stat("/")
	return err == nil && info.IsDir()
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.storageReady()

	response := HealthResponse{
		Status:          statusHealthy,
		Ready:           ready,
		Version:         startup.Version,
		Uptime:          time.Since(h.started).Round(time.Second).String(),
		Codec:           h.cfg.CodecName,
		FFmpegAvailable: h.cfg.FFmpegAvailable,
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
	}

	if m := h.cfg.Monitor; m != nil {
		_, _, response.MemoryUsage = m.GetStats()
		response.MemoryPaused = m.IsPaused()
		if response.MemoryPaused {
			response.Status = statusDegraded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if !ready {
		response.Status = statusDown
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck returns 200 whenever the server is running
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the storage root is reachable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status, code := "ready", http.StatusOK
	if !h.storageReady() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": status})
	}
}
