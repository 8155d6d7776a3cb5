package derivative

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"media-derive/internal/codec"
	"media-derive/internal/geometry"
	"media-derive/internal/logging"
	"media-derive/internal/metrics"
	"media-derive/internal/storage"
)

// Config configures a Cache.
type Config struct {
	Root *storage.Root
	// DefaultQuality applies when the request has no q modifier.
	DefaultQuality int
	// AllowEnlarge permits output larger than the source.
	AllowEnlarge bool
	// SourceExts is the ResolveSource probe order. Nil uses DefaultSourceExts.
	SourceExts []string
}

// Cache produces derivatives and persists them beside their sources.
type Cache struct {
	cfg   Config
	codec codec.Codec
}

// NewCache creates a cache over cfg.Root using c for image work.
func NewCache(cfg Config, c codec.Codec) *Cache {
	if cfg.DefaultQuality == 0 {
		cfg.DefaultQuality = codec.DefaultQuality
	}
	if len(cfg.SourceExts) == 0 {
		cfg.SourceExts = DefaultSourceExts
	}
	return &Cache{cfg: cfg, codec: c}
}

// Root returns the storage root.
func (c *Cache) Root() *storage.Root {
	return c.cfg.Root
}

// GetOrCreate returns the derivative at requestPath, generating and
// persisting it first if it does not exist. The content type comes from the
// requested extension.
func (c *Cache) GetOrCreate(ctx context.Context, requestPath string) ([]byte, string, error) {
	req, err := Decode(requestPath)
	if err != nil {
		return nil, "", err
	}
	if !req.IsDerivative {
		return nil, "", fmt.Errorf("%w: %s", ErrNotADerivative, requestPath)
	}
	if err := req.Spec.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotADerivative, err)
	}

	src, err := ResolveSource(c.cfg.Root, req.Dir, req.Base, c.cfg.SourceExts)
	if err != nil {
		return nil, "", err
	}

	format, err := OutputFormat(req, src)
	if err != nil {
		return nil, "", err
	}
	if !format.IsDerivative() {
		return nil, "", fmt.Errorf("%w: %s", codec.ErrUnsupportedOutputFormat, format)
	}

	contentType := codec.ContentTypeForExt(req.Ext)
	dest := req.Path()

	if data, ok := c.existing(dest); ok {
		metrics.DerivativeCacheHits.Inc()
		return data, contentType, nil
	}
	metrics.DerivativeCacheMisses.Inc()

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := c.generate(src, req.Spec, format)
	if err != nil {
		metrics.DerivativeGenerationsTotal.WithLabelValues(string(format), errorStatus(err)).Inc()
		return nil, "", fmt.Errorf("generate %s: %w", dest, err)
	}

	// Another request may have finished first; its bytes are identical.
	if existing, ok := c.existing(dest); ok {
		logging.Debug("Derivative %s appeared during generation, serving existing file", dest)
		return existing, contentType, nil
	}

	if err := c.cfg.Root.WriteAtomic(dest, data); err != nil {
		metrics.DerivativeGenerationsTotal.WithLabelValues(string(format), "error_write").Inc()
		return nil, "", fmt.Errorf("persist %s: %w", dest, err)
	}

	metrics.DerivativeGenerationsTotal.WithLabelValues(string(format), "success").Inc()
	metrics.DerivativeBytesWritten.WithLabelValues(string(format)).Add(float64(len(data)))
	return data, contentType, nil
}

func (c *Cache) existing(dest string) ([]byte, bool) {
	if !c.cfg.Root.IsFile(dest) {
		return nil, false
	}
	data, err := c.cfg.Root.ReadFile(dest)
	if err != nil {
		logging.Warn("Derivative %s exists but could not be read: %v", dest, err)
		return nil, false
	}
	return data, true
}

func (c *Cache) generate(src *Source, spec TransformSpec, format codec.Format) ([]byte, error) {
	start := time.Now()

	input, err := c.cfg.Root.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	raster, err := c.codec.Load(input)
	if err != nil {
		return nil, err
	}
	defer raster.Close()

	srcW, srcH := raster.Width(), raster.Height()
	plan, err := geometry.Resolve(srcW, srcH, spec.Width, spec.Height, c.cfg.AllowEnlarge)
	if err != nil {
		return nil, err
	}

	if err := c.codec.Apply(raster, plan); err != nil {
		return nil, err
	}

	quality := spec.Quality
	if quality == 0 {
		quality = c.cfg.DefaultQuality
	}

	out, err := c.codec.Encode(raster, format, codec.EncodeOptions{
		Quality:    quality,
		SourceSize: int64(len(input)),
	})
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.DerivativeGenerationDuration.WithLabelValues(string(format)).Observe(elapsed.Seconds())
	logging.Debug("Derived %s (%dx%d) -> %s %dx%d q%d, %s in %v",
		src.Path, srcW, srcH, format, plan.Width, plan.Height, quality,
		humanize.Bytes(uint64(len(out))), elapsed)

	return out, nil
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, codec.ErrDecode):
		return "error_decode"
	case errors.Is(err, codec.ErrUnsupportedFormat), errors.Is(err, codec.ErrUnsupportedOutputFormat):
		return "error_unsupported"
	default:
		return "error"
	}
}
