package startup

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version != Version || info.Commit != Commit || info.BuildTime != BuildTime {
		t.Errorf("build info does not match ldflags variables: %+v", info)
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("OS/Arch = %s/%s", info.OS, info.Arch)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_DIR", "STORAGE_PREFIX", "PORT", "METRICS_PORT", "METRICS_ENABLED",
		"THUMBNAIL_WIDTH", "THUMBNAIL_HEIGHT", "THUMBNAIL_DIR", "FFMPEG_PATH",
		"DEFAULT_QUALITY", "ALLOW_ENLARGE", "CODEC", "WATCH_SOURCES",
		"INVENTORY_INTERVAL", "LOG_LEVEL", "LOG_STATIC_FILES", "LOG_HEALTH_CHECKS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestReadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	config, err := ReadConfig("")
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}

	if config.StorageDir != "/storage" || config.StoragePrefix != "/storage" {
		t.Errorf("storage = %s %s", config.StorageDir, config.StoragePrefix)
	}
	if config.Port != "8080" || config.MetricsPort != "9090" || !config.MetricsEnabled {
		t.Errorf("listeners = %s %s %v", config.Port, config.MetricsPort, config.MetricsEnabled)
	}
	if config.ThumbnailWidth != 300 || config.ThumbnailHeight != 180 || config.ThumbnailDir != "" {
		t.Errorf("thumbnails = %dx%d %q", config.ThumbnailWidth, config.ThumbnailHeight, config.ThumbnailDir)
	}
	if config.DefaultQuality != 70 || config.AllowEnlarge || config.Codec != "auto" {
		t.Errorf("derivatives = q%d enlarge=%v codec=%s", config.DefaultQuality, config.AllowEnlarge, config.Codec)
	}
	if !config.WatchSources || config.LogStaticFiles || !config.LogHealthChecks {
		t.Errorf("flags = watch=%v static=%v health=%v", config.WatchSources, config.LogStaticFiles, config.LogHealthChecks)
	}
}

func TestReadConfigFromEnvFile(t *testing.T) {
	clearConfigEnv(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "STORAGE_DIR=" + dir + "\nSTORAGE_PREFIX=files/\nTHUMBNAIL_DIR=/__thumbnails/\nDEFAULT_QUALITY=85\nALLOW_ENLARGE=true\nCODEC=Imaging\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, k := range []string{"STORAGE_DIR", "STORAGE_PREFIX", "THUMBNAIL_DIR", "DEFAULT_QUALITY", "ALLOW_ENLARGE", "CODEC"} {
			os.Unsetenv(k)
		}
	})

	config, err := ReadConfig(envFile)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}

	if config.StorageDir != dir {
		t.Errorf("StorageDir = %s, want %s", config.StorageDir, dir)
	}
	if config.StoragePrefix != "/files" {
		t.Errorf("StoragePrefix = %s, want /files", config.StoragePrefix)
	}
	if config.ThumbnailDir != "__thumbnails" {
		t.Errorf("ThumbnailDir = %s, want __thumbnails", config.ThumbnailDir)
	}
	if config.DefaultQuality != 85 || !config.AllowEnlarge || config.Codec != "imaging" {
		t.Errorf("unexpected derivative settings: %+v", config)
	}
}

func TestReadConfigMissingEnvFileIsIgnored(t *testing.T) {
	clearConfigEnv(t)

	if _, err := ReadConfig(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}

func TestReadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"quality too high", "DEFAULT_QUALITY", "101"},
		{"quality zero", "DEFAULT_QUALITY", "0"},
		{"thumbnail width", "THUMBNAIL_WIDTH", "-1"},
		{"unknown codec", "CODEC", "magick"},
		{"root prefix", "STORAGE_PREFIX", "/"},
		{"thumbnail dir escapes", "THUMBNAIL_DIR", "../thumbs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := ReadConfig(""); err == nil {
				t.Errorf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}

func TestLoadConfigPreparesStorage(t *testing.T) {
	clearConfigEnv(t)
	dir := filepath.Join(t.TempDir(), "storage")
	t.Setenv("STORAGE_DIR", dir)
	t.Setenv("THUMBNAIL_DIR", "__thumbnails")

	if _, err := LoadConfig(""); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if info, err := os.Stat(filepath.Join(dir, "__thumbnails")); err != nil || !info.IsDir() {
		t.Errorf("thumbnail subtree not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file left behind")
	}
}

func TestEnsureDirectoryRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(file, "storage"); err == nil {
		t.Error("ensureDirectory accepted a regular file")
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", nil).Methods("GET", "HEAD")
	r.HandleFunc("/api/info/{path:.*}", nil).Methods("GET")
	r.HandleFunc("/api/file/{path:.*}", nil).Methods("DELETE")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}
	if len(routes) != 4 {
		t.Fatalf("got %d routes, want 4: %+v", len(routes), routes)
	}
	if routes[2].Path != "/api/info/{path:.*}" || routes[2].Method != "GET" {
		t.Errorf("unexpected route %+v", routes[2])
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/api/info/{path:.*}": "api/info",
		"/api/file/{path:.*}": "api/file",
		"/storage/{path:.*}":  "storage",
		"/healthz":            "healthz",
		"/":                   "",
	}
	for in, want := range tests {
		if got := getRouteGroup(in); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", in, got, want)
		}
	}
}
