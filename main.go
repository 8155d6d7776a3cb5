package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-derive/internal/engine"
	"media-derive/internal/filesystem"
	"media-derive/internal/handlers"
	"media-derive/internal/logging"
	"media-derive/internal/memory"
	"media-derive/internal/metrics"
	"media-derive/internal/middleware"
	"media-derive/internal/startup"
	"media-derive/internal/watcher"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Size the Go heap to the container before anything allocates much
	startup.LogMemoryConfig(memory.ConfigureFromEnv())

	config, err := startup.LoadConfig(startup.DefaultEnvFile)
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	build := startup.GetBuildInfo()
	metrics.SetAppInfo(build.Version, build.Commit, build.GoVersion)

	eng, err := engine.New(config)
	if err != nil {
		startup.LogFatal("Failed to initialize engine: %v", err)
	}
	defer eng.Close()
	startup.LogCodecInit(eng.Codec.Name(), eng.CodecInit)
	startup.LogThumbnailInit(config)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var w *watcher.Watcher
	if config.WatchSources {
		w, err = watcher.New(eng.Root, config.ThumbnailDir)
		if err == nil {
			go w.Run(ctx)
		}
		startup.LogWatcherInit(true, err)
	} else {
		startup.LogWatcherInit(false, nil)
	}

	var collector *metrics.Collector
	if config.InventoryInterval > 0 {
		collector = metrics.NewCollector(eng.Inventory(), time.Duration(config.InventoryInterval)*time.Second)
		collector.Start()
	}

	h := handlers.New(eng.Cache, eng.Thumbs, handlers.Config{
		StoragePrefix:   config.StoragePrefix,
		ThumbnailDir:    config.ThumbnailDir,
		Monitor:         monitor,
		CodecName:       eng.Codec.Name(),
		FFmpegAvailable: eng.FFmpeg.Available(),
	})

	router := newRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	handler := wrapMiddleware(router, config)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go handleShutdown(sigChan, shutdownDone, srv, metricsSrv, cancel, w, collector, monitor)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StoragePrefix:   config.StoragePrefix,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	// ListenAndServe returns as soon as Shutdown starts; in-flight requests
	// still need the engine.
	<-shutdownDone
}

func newRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

// wrapMiddleware applies metrics, logging and compression, outermost last.
func wrapMiddleware(router http.Handler, config *startup.Config) http.Handler {
	metricsConfig := middleware.DefaultMetricsConfig()
	metricsConfig.StoragePrefix = config.StoragePrefix
	handler := middleware.Metrics(metricsConfig)(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig, "media-derive/"+startup.Version)(handler)

	return middleware.Compression(middleware.DefaultCompressionConfig())(handler)
}

func metricsRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", handlers.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	return r
}

// handleShutdown waits for a signal, drains the servers and closes done once
// every request has finished.
func handleShutdown(sigChan <-chan os.Signal, done chan<- struct{}, srv, metricsSrv *http.Server, cancel context.CancelFunc, w *watcher.Watcher, collector *metrics.Collector, monitor *memory.Monitor) {
	defer close(done)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if w != nil {
		startup.LogShutdownStep("Stopping source watcher")
		cancel()
		if err := w.Close(); err != nil {
			logging.Warn("Watcher close error: %v", err)
		}
		startup.LogShutdownStepComplete("Source watcher stopped")
	}

	if collector != nil {
		startup.LogShutdownStep("Stopping inventory collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Inventory collector stopped")
	}

	monitor.Stop()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownComplete()
}
