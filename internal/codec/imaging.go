package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"media-derive/internal/geometry"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP thumbnails
	_ "golang.org/x/image/tiff" // TIFF thumbnails
	_ "golang.org/x/image/webp" // WebP sources
)

type imagingRaster struct {
	img image.Image
}

func (r *imagingRaster) Width() int  { return r.img.Bounds().Dx() }
func (r *imagingRaster) Height() int { return r.img.Bounds().Dy() }
func (r *imagingRaster) Close()      { r.img = nil }

// ImagingCodec implements Codec in pure Go. It reads jpeg, png, gif, webp,
// bmp and tiff and writes jpeg, png and gif.
type ImagingCodec struct{}

// NewImagingCodec returns a pure Go codec.
func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{}
}

func (c *ImagingCodec) Name() string { return "imaging" }

func (c *ImagingCodec) Load(data []byte) (Raster, error) {
	f, err := checkSource(data)
	if err != nil {
		return nil, err
	}
	if f == FormatAVIF {
		return nil, fmt.Errorf("%w: avif decoding requires libvips", ErrUnsupportedFormat)
	}
	return c.decode(data)
}

// LoadFrame decodes the first frame; image/gif already stops there.
func (c *ImagingCodec) LoadFrame(data []byte) (Raster, error) {
	return c.decode(data)
}

func (c *ImagingCodec) decode(data []byte) (Raster, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &imagingRaster{img: img}, nil
}

func (c *ImagingCodec) Apply(r Raster, plan geometry.Plan) error {
	ir, ok := r.(*imagingRaster)
	if !ok {
		return fmt.Errorf("imaging codec cannot apply to %T", r)
	}

	if plan.NeedsCrop(ir.Width(), ir.Height()) {
		cr := plan.Crop
		ir.img = imaging.Crop(ir.img, image.Rect(cr.X, cr.Y, cr.X+cr.Width, cr.Y+cr.Height))
	}
	if plan.NeedsResize() {
		ir.img = imaging.Resize(ir.img, plan.Width, plan.Height, imaging.Lanczos)
	}
	return nil
}

// Encode writes jpeg, png or gif. The standard library encoders never emit
// EXIF or ICC chunks, so output is always metadata free.
func (c *ImagingCodec) Encode(r Raster, f Format, opts EncodeOptions) ([]byte, error) {
	ir, ok := r.(*imagingRaster)
	if !ok {
		return nil, fmt.Errorf("imaging codec cannot encode %T", r)
	}
	quality := ClampQuality(opts.Quality)

	var buf bytes.Buffer
	var err error

	switch f {
	case FormatJPEG:
		err = imaging.Encode(&buf, ir.img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		err = imaging.Encode(&buf, ir.img, imaging.PNG,
			imaging.PNGCompressionLevel(zlibToPNGLevel(PNGCompressionLevel(quality))))
	case FormatGIF:
		err = imaging.Encode(&buf, ir.img, imaging.GIF)
	case FormatWebP, FormatAVIF:
		return nil, unsupportedOutput(f, "requires libvips")
	default:
		return nil, unsupportedOutput(f, "")
	}

	if err != nil {
		return nil, fmt.Errorf("%s encode failed: %w", f, err)
	}
	return buf.Bytes(), nil
}

// zlibToPNGLevel folds a 0-9 zlib level onto the four levels image/png
// exposes.
func zlibToPNGLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
