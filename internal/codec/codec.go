package codec

import (
	"fmt"

	"media-derive/internal/geometry"
	"media-derive/internal/logging"
)

// Raster is a decoded, upright image owned by the codec that produced it.
// Callers must Close it when done.
type Raster interface {
	Width() int
	Height() int
	Close()
}

// EncodeOptions controls encoding.
type EncodeOptions struct {
	// Quality in [1, 100]; zero selects DefaultQuality.
	Quality int
	// SourceSize is the byte size of the original asset. It sets the WebP
	// byte budget.
	SourceSize int64
}

// Codec wraps an image library.
type Codec interface {
	// Name identifies the implementation in logs and metrics.
	Name() string
	// Load decodes a derivative source. Only SourceFormats are accepted.
	Load(data []byte) (Raster, error)
	// LoadFrame decodes the first frame or page of any input the library
	// can read, such as animated GIF or PDF.
	LoadFrame(data []byte) (Raster, error)
	// Apply crops and resizes the raster in place.
	Apply(r Raster, plan geometry.Plan) error
	// Encode serializes the raster without metadata.
	Encode(r Raster, f Format, opts EncodeOptions) ([]byte, error)
}

// Kind selects a Codec implementation.
type Kind string

const (
	KindAuto    Kind = "auto"
	KindVips    Kind = "vips"
	KindImaging Kind = "imaging"
)

// initVips is replaced in tests.
var initVips = InitVips

// New returns the codec for kind. KindAuto prefers libvips and falls back to
// the pure Go implementation when libvips fails to start.
func New(kind Kind) (Codec, error) {
	switch kind {
	case KindVips:
		if err := initVips(); err != nil {
			return nil, fmt.Errorf("libvips unavailable: %w", err)
		}
		return NewVipsCodec(), nil
	case KindImaging:
		return NewImagingCodec(), nil
	case KindAuto, "":
		if err := initVips(); err != nil {
			logging.Warn("libvips unavailable, using pure Go codec: %v", err)
			return NewImagingCodec(), nil
		}
		return NewVipsCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", kind)
	}
}

func checkSource(data []byte) (Format, error) {
	f := Detect(data)
	if !f.IsDerivative() {
		if f == FormatUnknown {
			return f, fmt.Errorf("%w: unrecognized content", ErrUnsupportedFormat)
		}
		return f, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return f, nil
}
