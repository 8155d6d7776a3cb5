package derivative

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"media-derive/internal/codec"
	"media-derive/internal/geometry"
	"media-derive/internal/storage"
)

func testImage(t *testing.T, w, h int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 90, 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func memRoot(t *testing.T, files map[string][]byte) *storage.Root {
	t.Helper()
	mem := afero.NewMemMapFs()
	for p, data := range files {
		if err := afero.WriteFile(mem, p, data, 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}
	return storage.NewRootFs(mem)
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	return cfg, format
}

// countingCodec counts calls into a real codec.
type countingCodec struct {
	codec.Codec
	loads   atomic.Int32
	encodes atomic.Int32

	mu    sync.Mutex
	plans []geometry.Plan
}

func newCountingCodec() *countingCodec {
	return &countingCodec{Codec: codec.NewImagingCodec()}
}

func (c *countingCodec) Load(data []byte) (codec.Raster, error) {
	c.loads.Add(1)
	return c.Codec.Load(data)
}

func (c *countingCodec) Apply(r codec.Raster, plan geometry.Plan) error {
	c.mu.Lock()
	c.plans = append(c.plans, plan)
	c.mu.Unlock()
	return c.Codec.Apply(r, plan)
}

func (c *countingCodec) Encode(r codec.Raster, f codec.Format, opts codec.EncodeOptions) ([]byte, error) {
	c.encodes.Add(1)
	return c.Codec.Encode(r, f, opts)
}

// fakeRaster has dimensions but no pixels.
type fakeRaster struct{ w, h int }

func (r *fakeRaster) Width() int  { return r.w }
func (r *fakeRaster) Height() int { return r.h }
func (r *fakeRaster) Close()      {}

// fakeCodec reports fixed source dimensions and records what it was asked.
type fakeCodec struct {
	w, h int

	plan    geometry.Plan
	format  codec.Format
	opts    codec.EncodeOptions
	loadErr error
}

func (c *fakeCodec) Name() string { return "fake" }

func (c *fakeCodec) Load([]byte) (codec.Raster, error) {
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return &fakeRaster{w: c.w, h: c.h}, nil
}

func (c *fakeCodec) LoadFrame(data []byte) (codec.Raster, error) { return c.Load(data) }

func (c *fakeCodec) Apply(r codec.Raster, plan geometry.Plan) error {
	c.plan = plan
	fr := r.(*fakeRaster)
	fr.w, fr.h = plan.Width, plan.Height
	return nil
}

func (c *fakeCodec) Encode(_ codec.Raster, f codec.Format, opts codec.EncodeOptions) ([]byte, error) {
	c.format, c.opts = f, opts
	return []byte("encoded:" + string(f)), nil
}
