package metrics

import (
	"time"

	"media-derive/internal/logging"
)

// StatsProvider reports what is currently on disk.
type StatsProvider interface {
	GetStats() (Stats, error)
}

// Stats counts files under the storage root by artifact.
type Stats struct {
	Sources         int
	SourceBytes     int64
	Derivatives     int
	DerivativeBytes int64
	Thumbnails      int
	ThumbnailBytes  int64
}

// Collector periodically refreshes the storage inventory gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.GetStats()
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	StoredArtifacts.WithLabelValues("source").Set(float64(stats.Sources))
	StoredArtifacts.WithLabelValues("derivative").Set(float64(stats.Derivatives))
	StoredArtifacts.WithLabelValues("thumbnail").Set(float64(stats.Thumbnails))
	StoredArtifactBytes.WithLabelValues("source").Set(float64(stats.SourceBytes))
	StoredArtifactBytes.WithLabelValues("derivative").Set(float64(stats.DerivativeBytes))
	StoredArtifactBytes.WithLabelValues("thumbnail").Set(float64(stats.ThumbnailBytes))

	logging.Debug("Metrics collected: sources=%d, derivatives=%d, thumbnails=%d",
		stats.Sources, stats.Derivatives, stats.Thumbnails)
}
