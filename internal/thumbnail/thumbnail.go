package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"path"

	"media-derive/internal/codec"
	"media-derive/internal/derivative"
	"media-derive/internal/geometry"
	"media-derive/internal/logging"
	"media-derive/internal/mediatypes"
	"media-derive/internal/metrics"
	"media-derive/internal/storage"
)

// Defaults for the thumbnail box.
const (
	DefaultWidth  = 300
	DefaultHeight = 180
)

var errNoRenderer = errors.New("no thumbnail renderer for this type")

// Config configures a Generator.
type Config struct {
	Root *storage.Root
	// Width and Height are the thumbnail box.
	Width  int
	Height int
	// Dir is the thumbnails subtree under the root; empty stores thumbnails
	// beside their sources.
	Dir     string
	Quality int
}

// Generator creates thumbnails on demand.
type Generator struct {
	cfg    Config
	codec  codec.Codec
	frames FrameExtractor
}

// NewGenerator creates a generator. frames may be nil, in which case video
// sources always fall back to a copy.
func NewGenerator(cfg Config, c codec.Codec, frames FrameExtractor) *Generator {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Quality == 0 {
		cfg.Quality = codec.DefaultQuality
	}
	return &Generator{cfg: cfg, codec: c, frames: frames}
}

// Path returns where the thumbnail of asset lives.
func (g *Generator) Path(asset *storage.FileAsset) string {
	dir := derivative.ThumbnailDir(g.cfg.Dir, path.Dir(asset.Path))
	return path.Join(dir, derivative.ThumbnailName(asset.Base(), thumbnailExt(asset)))
}

func thumbnailExt(asset *storage.FileAsset) string {
	if asset.Kind() == mediatypes.FileTypeImage && asset.Ext != "" {
		return asset.Ext
	}
	return "png"
}

func kindLabel(asset *storage.FileAsset) string {
	switch {
	case asset.IsGIF():
		return "gif"
	case asset.Kind() == mediatypes.FileTypeImage:
		return "image"
	case asset.Kind() == mediatypes.FileTypeVideo:
		return "video"
	case asset.Kind() == mediatypes.FileTypePDF:
		return "pdf"
	default:
		return "file"
	}
}

// Ensure returns the thumbnail path for sourcePath, creating it if absent.
// Only a missing or unreadable source, a cancelled ctx, or a failed fallback
// copy is an error.
func (g *Generator) Ensure(ctx context.Context, sourcePath string) (string, error) {
	asset, err := g.cfg.Root.FileInfo(sourcePath)
	if err != nil {
		return "", err
	}

	dest := g.Path(asset)
	if g.cfg.Root.IsFile(dest) {
		return dest, nil
	}

	kind := kindLabel(asset)
	data, err := g.render(ctx, asset)
	if err == nil {
		err = g.cfg.Root.WriteAtomic(dest, data)
		if err == nil {
			metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "success").Inc()
			logging.Debug("Thumbnail created: %s", dest)
			return dest, nil
		}
	}

	// A cancelled request is not a render failure; a copy written now would
	// never be regenerated.
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("thumbnail %s: %w", dest, err)
	}

	logging.Warn("Thumbnail for %s failed, copying source: %v", asset.Path, err)
	if cerr := g.cfg.Root.CopyAtomic(asset.Path, dest); cerr != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("thumbnail fallback copy %s: %w", dest, cerr)
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "fallback").Inc()
	metrics.ThumbnailFallbacksTotal.WithLabelValues(kind).Inc()
	return dest, nil
}

func (g *Generator) render(ctx context.Context, asset *storage.FileAsset) ([]byte, error) {
	raster, size, err := g.load(ctx, asset)
	if err != nil {
		return nil, err
	}
	defer raster.Close()

	if raster.Width() > g.cfg.Width {
		plan, err := geometry.Resolve(raster.Width(), raster.Height(), g.cfg.Width, g.cfg.Height, true)
		if err != nil {
			return nil, err
		}
		if err := g.codec.Apply(raster, plan); err != nil {
			return nil, err
		}
	}

	format, ok := codec.FormatFromExt(thumbnailExt(asset))
	if !ok {
		return nil, fmt.Errorf("%w: %q", codec.ErrUnsupportedOutputFormat, thumbnailExt(asset))
	}

	return g.codec.Encode(raster, format, codec.EncodeOptions{
		Quality:    g.cfg.Quality,
		SourceSize: size,
	})
}

func (g *Generator) load(ctx context.Context, asset *storage.FileAsset) (codec.Raster, int64, error) {
	switch kindLabel(asset) {
	case "video":
		return g.loadVideo(ctx, asset)
	case "gif", "pdf":
		data, err := g.cfg.Root.ReadFile(asset.Path)
		if err != nil {
			return nil, 0, err
		}
		r, err := g.codec.LoadFrame(data)
		return r, int64(len(data)), err
	case "image":
		data, err := g.cfg.Root.ReadFile(asset.Path)
		if err != nil {
			return nil, 0, err
		}
		r, err := g.codec.Load(data)
		return r, int64(len(data)), err
	default:
		return nil, 0, fmt.Errorf("%w: %s", errNoRenderer, asset.Mime)
	}
}

func (g *Generator) loadVideo(ctx context.Context, asset *storage.FileAsset) (codec.Raster, int64, error) {
	if g.frames == nil {
		return nil, 0, fmt.Errorf("%w: video frames disabled", errNoRenderer)
	}

	localPath, _ := g.cfg.Root.LocalPath(asset.Path)
	var frame []byte
	if localPath != "" {
		var err error
		frame, err = g.frames.ExtractFrame(ctx, localPath, nil)
		if err != nil {
			return nil, 0, err
		}
	} else {
		f, err := g.cfg.Root.Open(asset.Path)
		if err != nil {
			return nil, 0, err
		}
		defer f.Close()
		frame, err = g.frames.ExtractFrame(ctx, "", f)
		if err != nil {
			return nil, 0, err
		}
	}

	r, err := g.codec.Load(frame)
	return r, int64(len(frame)), err
}
