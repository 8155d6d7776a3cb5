package codec

import (
	"errors"
	"fmt"
	"sync"

	"media-derive/internal/geometry"
	"media-derive/internal/logging"
	"media-derive/internal/workers"

	"github.com/davidbyttow/govips/v2/vips"
)

// avifEffort is the fixed libvips AVIF effort (0 fastest, 9 slowest).
const avifEffort = 3

// webpReductionEffort mirrors cwebp -m 6.
const webpReductionEffort = 6

var (
	vipsInitialized bool
	vipsStopped     bool
	vipsInitMutex   sync.Mutex

	// vipsStartup panics when libvips cannot be initialized.
	vipsStartup = vips.Startup
)

var errVipsStopped = errors.New("libvips was shut down and cannot restart")

// InitVips starts libvips once per process. govips cannot restart after
// ShutdownVips, so later calls after a shutdown return an error.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}
	if vipsStopped {
		return errVipsStopped
	}

	vipsLevel, handler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(handler, vipsLevel)

	if err := startVips(&vips.Config{
		ConcurrencyLevel: workers.ForCPU(4),
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	}); err != nil {
		return err
	}

	vipsInitialized = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// startVips turns a failed libvips startup into an error.
func startVips(cfg *vips.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("libvips startup: %v", r)
		}
	}()
	vipsStartup(cfg)
	return nil
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsStopped = true
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether libvips has been started.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsInitialized
}

// vipsLogging routes libvips messages into our logger at a matching level.
func vipsLogging(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	handler := func(domain string, l vips.LogLevel, msg string) {
		switch l {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}

	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo, handler
	case logging.LevelWarn:
		return vips.LogLevelError, handler
	case logging.LevelError:
		return vips.LogLevelCritical, handler
	default:
		return vips.LogLevelWarning, handler
	}
}

type vipsRaster struct {
	ref *vips.ImageRef
}

func (r *vipsRaster) Width() int  { return r.ref.Width() }
func (r *vipsRaster) Height() int { return r.ref.Height() }
func (r *vipsRaster) Close()      { r.ref.Close() }

// VipsCodec implements Codec on libvips.
type VipsCodec struct{}

// NewVipsCodec returns a libvips codec. InitVips must have succeeded.
func NewVipsCodec() *VipsCodec {
	return &VipsCodec{}
}

func (c *VipsCodec) Name() string { return "vips" }

func (c *VipsCodec) Load(data []byte) (Raster, error) {
	if _, err := checkSource(data); err != nil {
		return nil, err
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return upright(ref)
}

func (c *VipsCodec) LoadFrame(data []byte) (Raster, error) {
	params := vips.NewImportParams()
	params.Page.Set(0)
	params.NumPages.Set(1)

	ref, err := vips.LoadImageFromBuffer(data, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return upright(ref)
}

func upright(ref *vips.ImageRef) (Raster, error) {
	if err := ref.AutoRotate(); err != nil {
		ref.Close()
		return nil, fmt.Errorf("%w: auto-rotate: %v", ErrDecode, err)
	}
	return &vipsRaster{ref: ref}, nil
}

func (c *VipsCodec) Apply(r Raster, plan geometry.Plan) error {
	vr, ok := r.(*vipsRaster)
	if !ok {
		return fmt.Errorf("vips codec cannot apply to %T", r)
	}

	if plan.NeedsCrop(vr.Width(), vr.Height()) {
		cr := plan.Crop
		if err := vr.ref.ExtractArea(cr.X, cr.Y, cr.Width, cr.Height); err != nil {
			return fmt.Errorf("vips crop failed: %w", err)
		}
	}

	if plan.NeedsResize() {
		// SizeForce yields exactly the planned dimensions.
		if err := vr.ref.ThumbnailWithSize(plan.Width, plan.Height, vips.InterestingNone, vips.SizeForce); err != nil {
			return fmt.Errorf("vips resize failed: %w", err)
		}
	}
	return nil
}

func (c *VipsCodec) Encode(r Raster, f Format, opts EncodeOptions) ([]byte, error) {
	vr, ok := r.(*vipsRaster)
	if !ok {
		return nil, fmt.Errorf("vips codec cannot encode %T", r)
	}
	quality := ClampQuality(opts.Quality)

	var (
		out []byte
		err error
	)

	switch f {
	case FormatJPEG:
		p := vips.NewJpegExportParams()
		p.StripMetadata = true
		p.Quality = quality
		p.OptimizeCoding = true
		out, _, err = vr.ref.ExportJpeg(p)

	case FormatPNG:
		p := vips.NewPngExportParams()
		p.StripMetadata = true
		p.Compression = PNGCompressionLevel(quality)
		out, _, err = vr.ref.ExportPng(p)

	case FormatWebP:
		budget := WebPTargetSize(opts.SourceSize, quality)
		var chosen int
		out, chosen, err = fitToBudget(budget, func(q int) ([]byte, error) {
			p := vips.NewWebpExportParams()
			p.StripMetadata = true
			p.Lossless = false
			p.ReductionEffort = webpReductionEffort
			p.Quality = q
			b, _, err := vr.ref.ExportWebp(p)
			return b, err
		})
		if err == nil {
			logging.Debug("webp budget %d bytes met at quality %d (%d bytes)", budget, chosen, len(out))
		}

	case FormatAVIF:
		p := vips.NewAvifExportParams()
		p.StripMetadata = true
		p.Quality = quality
		p.Effort = avifEffort
		out, _, err = vr.ref.ExportAvif(p)

	case FormatGIF:
		p := vips.NewGifExportParams()
		p.StripMetadata = true
		out, _, err = vr.ref.ExportGIF(p)

	default:
		return nil, unsupportedOutput(f, "")
	}

	if err != nil {
		return nil, fmt.Errorf("vips %s export failed: %w", f, err)
	}
	return out, nil
}
