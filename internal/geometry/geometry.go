package geometry

import (
	"errors"
	"fmt"
)

// ErrInvalidDimensions is returned for non-positive source or target sizes.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Mode identifies how a Plan was derived.
type Mode int

const (
	// ModeNone keeps the source dimensions (re-encode only).
	ModeNone Mode = iota
	// ModeLongSide scales uniformly from a single requested axis.
	ModeLongSide
	// ModeCrop center-crops to the target ratio and scales to exact size.
	ModeCrop
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeLongSide:
		return "long-side"
	case ModeCrop:
		return "crop"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Rect is an axis-aligned region in source pixel coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Plan describes the crop and resize to apply to a source image.
type Plan struct {
	Mode Mode
	// Crop is the source region to keep. It covers the whole source when no
	// cropping is needed.
	Crop Rect
	// Width and Height are the final output dimensions.
	Width  int
	Height int
}

// NeedsCrop reports whether Crop is smaller than the source.
func (p Plan) NeedsCrop(srcW, srcH int) bool {
	return p.Crop.X != 0 || p.Crop.Y != 0 || p.Crop.Width != srcW || p.Crop.Height != srcH
}

// NeedsResize reports whether the cropped region must be scaled.
func (p Plan) NeedsResize() bool {
	return p.Width != p.Crop.Width || p.Height != p.Crop.Height
}

// Resolve computes the plan for a srcW×srcH source. A zero width or height
// means the axis was not requested.
func Resolve(srcW, srcH, width, height int, allowEnlarge bool) (Plan, error) {
	if srcW <= 0 || srcH <= 0 {
		return Plan{}, fmt.Errorf("%w: source %dx%d", ErrInvalidDimensions, srcW, srcH)
	}
	if width < 0 || height < 0 {
		return Plan{}, fmt.Errorf("%w: target %dx%d", ErrInvalidDimensions, width, height)
	}

	full := Rect{Width: srcW, Height: srcH}

	switch {
	case width > 0 && height > 0:
		return cropAndResize(srcW, srcH, width, height, allowEnlarge), nil
	case width > 0 || height > 0:
		return longSide(srcW, srcH, width, height, allowEnlarge), nil
	default:
		return Plan{Mode: ModeNone, Crop: full, Width: srcW, Height: srcH}, nil
	}
}

// longSide scales uniformly so the requested axis equals the requested value.
// When that axis is the longer source side this is a long-side constraint;
// otherwise the scale is taken relative to the requested axis directly.
func longSide(srcW, srcH, width, height int, allowEnlarge bool) Plan {
	full := Rect{Width: srcW, Height: srcH}

	if width > 0 {
		if !allowEnlarge && width > srcW {
			width = srcW
		}
		return Plan{Mode: ModeLongSide, Crop: full, Width: width, Height: scaled(srcH, width, srcW)}
	}

	if !allowEnlarge && height > srcH {
		height = srcH
	}
	return Plan{Mode: ModeLongSide, Crop: full, Width: scaled(srcW, height, srcH), Height: height}
}

func cropAndResize(srcW, srcH, width, height int, allowEnlarge bool) Plan {
	if !allowEnlarge && (width > srcW || height > srcH) {
		width, height = clampToSource(srcW, srcH, width, height)
	}

	crop := Rect{Width: srcW, Height: srcH}

	// Compare srcW/srcH against width/height without floating point.
	if srcW*height > width*srcH {
		crop.Width = max(srcH*width/height, 1)
		crop.X = (srcW - crop.Width) / 2
	} else {
		crop.Height = max(srcW*height/width, 1)
		crop.Y = (srcH - crop.Height) / 2
	}

	return Plan{Mode: ModeCrop, Crop: crop, Width: width, Height: height}
}

// clampToSource shrinks the target box uniformly until it fits inside the
// source, keeping the requested aspect ratio.
func clampToSource(srcW, srcH, width, height int) (int, int) {
	f := min(1, float64(srcW)/float64(width), float64(srcH)/float64(height))
	return max(int(float64(width)*f), 1), max(int(float64(height)*f), 1)
}

// scaled returns v·num/den truncated, never below one pixel.
func scaled(v, num, den int) int {
	return max(v*num/den, 1)
}
