package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"DerivativeGenerationsTotal", DerivativeGenerationsTotal},
		{"DerivativeGenerationDuration", DerivativeGenerationDuration},
		{"DerivativeCacheHits", DerivativeCacheHits},
		{"DerivativeCacheMisses", DerivativeCacheMisses},
		{"ThumbnailGenerationsTotal", ThumbnailGenerationsTotal},
		{"ThumbnailFallbacksTotal", ThumbnailFallbacksTotal},
		{"PurgedFilesTotal", PurgedFilesTotal},
		{"StoredArtifacts", StoredArtifacts},
		{"FilesystemRetryAttempts", FilesystemRetryAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(DerivativeGenerationsTotal); n < 4*5 {
		t.Errorf("DerivativeGenerationsTotal series = %d, want at least 20", n)
	}
	if n := testutil.CollectAndCount(PurgedFilesTotal); n < 6 {
		t.Errorf("PurgedFilesTotal series = %d, want at least 6", n)
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	before := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "observer-test"))
	obs.ObserveStaleError("stat", "observer-test")
	obs.ObserveRetryAttempt("stat", "observer-test")
	obs.ObserveRetrySuccess("stat", "observer-test")
	obs.ObserveRetryDuration("stat", "observer-test", 0.1)

	if got := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "observer-test")); got != before+1 {
		t.Errorf("stale errors = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(FilesystemRetrySuccess.WithLabelValues("stat", "observer-test")); got < 1 {
		t.Errorf("retry success = %v, want >= 1", got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}

type mockStatsProvider struct {
	stats Stats
	err   error
}

func (m *mockStatsProvider) GetStats() (Stats, error) {
	return m.stats, m.err
}

func TestCollect(t *testing.T) {
	c := NewCollector(&mockStatsProvider{stats: Stats{
		Sources:         3,
		SourceBytes:     300,
		Derivatives:     5,
		DerivativeBytes: 50,
		Thumbnails:      2,
		ThumbnailBytes:  20,
	}}, 0)
	c.collect()

	if got := testutil.ToFloat64(StoredArtifacts.WithLabelValues("derivative")); got != 5 {
		t.Errorf("derivatives = %v, want 5", got)
	}
	if got := testutil.ToFloat64(StoredArtifactBytes.WithLabelValues("source")); got != 300 {
		t.Errorf("source bytes = %v, want 300", got)
	}
}

func TestCollectKeepsGaugesOnError(t *testing.T) {
	StoredArtifacts.WithLabelValues("thumbnail").Set(7)

	c := NewCollector(&mockStatsProvider{err: errors.New("walk failed")}, 0)
	c.collect()

	if got := testutil.ToFloat64(StoredArtifacts.WithLabelValues("thumbnail")); got != 7 {
		t.Errorf("thumbnails = %v, want 7", got)
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect() panicked with nil provider: %v", r)
		}
	}()
	NewCollector(nil, 0).collect()
}
