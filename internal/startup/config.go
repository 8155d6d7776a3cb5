package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"media-derive/internal/codec"
	"media-derive/internal/logging"
)

// DefaultEnvFile is loaded before the environment is read, if present.
const DefaultEnvFile = ".env"

// Config holds all application configuration
type Config struct {
	StorageDir    string `env:"STORAGE_DIR,default=/storage"`
	StoragePrefix string `env:"STORAGE_PREFIX,default=/storage"`

	Port           string `env:"PORT,default=8080"`
	MetricsPort    string `env:"METRICS_PORT,default=9090"`
	MetricsEnabled bool   `env:"METRICS_ENABLED,default=true"`

	ThumbnailWidth  int    `env:"THUMBNAIL_WIDTH,default=300"`
	ThumbnailHeight int    `env:"THUMBNAIL_HEIGHT,default=180"`
	ThumbnailDir    string `env:"THUMBNAIL_DIR"`
	FFmpegPath      string `env:"FFMPEG_PATH"`

	DefaultQuality int    `env:"DEFAULT_QUALITY,default=70"`
	AllowEnlarge   bool   `env:"ALLOW_ENLARGE,default=false"`
	Codec          string `env:"CODEC,default=auto"`

	WatchSources bool `env:"WATCH_SOURCES,default=true"`
	// InventoryInterval is how often stored artifacts are counted, in seconds.
	InventoryInterval int `env:"INVENTORY_INTERVAL,default=300"`

	LogLevel        string `env:"LOG_LEVEL,default=info"`
	LogStaticFiles  bool   `env:"LOG_STATIC_FILES,default=false"`
	LogHealthChecks bool   `env:"LOG_HEALTH_CHECKS,default=true"`
}

// ReadConfig loads envFile (if it exists) and parses the environment into a
// validated Config without touching the filesystem otherwise.
func ReadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	config := &Config{}
	if _, err := env.UnmarshalFromEnviron(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) normalize() error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return fmt.Errorf("DEFAULT_QUALITY must be between 1 and 100, got %d", c.DefaultQuality)
	}
	if c.ThumbnailWidth < 1 || c.ThumbnailHeight < 1 {
		return fmt.Errorf("thumbnail box must be positive, got %dx%d", c.ThumbnailWidth, c.ThumbnailHeight)
	}

	switch codec.Kind(strings.ToLower(c.Codec)) {
	case codec.KindAuto, codec.KindVips, codec.KindImaging:
		c.Codec = strings.ToLower(c.Codec)
	default:
		return fmt.Errorf("CODEC must be auto, vips or imaging, got %q", c.Codec)
	}

	c.StoragePrefix = "/" + strings.Trim(c.StoragePrefix, "/")
	if c.StoragePrefix == "/" {
		return errors.New("STORAGE_PREFIX must not be the site root")
	}

	if c.ThumbnailDir != "" {
		clean := path.Clean("/" + filepath.ToSlash(c.ThumbnailDir))
		if clean == "/" || strings.Contains(c.ThumbnailDir, "..") {
			return fmt.Errorf("THUMBNAIL_DIR must be a subdirectory of the storage root, got %q", c.ThumbnailDir)
		}
		c.ThumbnailDir = strings.TrimPrefix(clean, "/")
	}

	if c.InventoryInterval < 0 {
		c.InventoryInterval = 0
	}

	if level, ok := logging.ParseLevel(c.LogLevel); ok {
		logging.SetLevel(level)
	} else {
		logging.Warn("Invalid LOG_LEVEL %q, keeping %s", c.LogLevel, logging.GetLevel())
	}

	abs, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return fmt.Errorf("failed to resolve storage directory path: %w", err)
	}
	c.StorageDir = abs
	return nil
}

// LoadConfig prints the startup banner, reads the configuration and prepares
// the storage root. The storage root must be writable since derivatives
// and thumbnails are written into it.
func LoadConfig(envFile string) (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := ReadConfig(envFile)
	if err != nil {
		return nil, err
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  STORAGE_DIR:         %s", config.StorageDir)
	logging.Info("  STORAGE_PREFIX:      %s", config.StoragePrefix)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  THUMBNAIL_BOX:       %dx%d", config.ThumbnailWidth, config.ThumbnailHeight)
	logging.Info("  THUMBNAIL_DIR:       %s", orDefault(config.ThumbnailDir, "(beside sources)"))
	logging.Info("  DEFAULT_QUALITY:     %d", config.DefaultQuality)
	logging.Info("  ALLOW_ENLARGE:       %v", config.AllowEnlarge)
	logging.Info("  CODEC:               %s", config.Codec)
	logging.Info("  WATCH_SOURCES:       %v", config.WatchSources)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := ensureDirectory(config.StorageDir, "storage"); err != nil {
		return nil, fmt.Errorf("storage directory error: %w", err)
	}

	logging.Debug("  Testing storage directory write access...")
	if err := testWriteAccess(config.StorageDir); err != nil {
		return nil, fmt.Errorf("storage directory is not writable (required for derivatives): %w", err)
	}
	logging.Info("  [OK] Storage directory is writable")

	if config.ThumbnailDir != "" {
		thumbs := filepath.Join(config.StorageDir, filepath.FromSlash(config.ThumbnailDir))
		if err := ensureDirectory(thumbs, "thumbnails"); err != nil {
			return nil, fmt.Errorf("thumbnail directory error: %w", err)
		}
	}

	return config, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func ensureDirectory(dir, name string) error {
	logging.Debug("  Checking %s directory: %s", name, dir)

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "storage" && logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(dir); err == nil {
			files, dirs := 0, 0
			for _, e := range entries {
				if e.IsDir() {
					dirs++
				} else {
					files++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", files, dirs)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
