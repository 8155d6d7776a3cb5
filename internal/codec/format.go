package codec

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrUnsupportedFormat is returned when a source cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrUnsupportedOutputFormat is returned when the requested output
	// extension cannot be encoded.
	ErrUnsupportedOutputFormat = errors.New("unsupported output format")
	// ErrDecode is returned for corrupt or undecodable input.
	ErrDecode = errors.New("image decode failed")
)

// Format is an image container format.
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatAVIF    Format = "avif"
	FormatGIF     Format = "gif"
	FormatPDF     Format = "pdf"
)

// SourceFormats are the formats accepted as derivative sources.
var SourceFormats = []Format{FormatJPEG, FormatPNG, FormatWebP, FormatAVIF}

// DefaultQuality is used when no quality is requested.
const DefaultQuality = 70

var extFormats = map[string]Format{
	"jpg":  FormatJPEG,
	"jpeg": FormatJPEG,
	"png":  FormatPNG,
	"webp": FormatWebP,
	"avif": FormatAVIF,
	"gif":  FormatGIF,
	"pdf":  FormatPDF,
}

var contentTypes = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatWebP: "image/webp",
	FormatAVIF: "image/avif",
	FormatGIF:  "image/gif",
	FormatPDF:  "application/pdf",
}

// FormatFromExt maps a file extension, with or without the leading dot, to
// a Format.
func FormatFromExt(ext string) (Format, bool) {
	f, ok := extFormats[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return f, ok
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsDerivative reports whether the format can be produced as a derivative.
func (f Format) IsDerivative() bool {
	for _, s := range SourceFormats {
		if s == f {
			return true
		}
	}
	return false
}

// ContentTypeForExt derives a content type solely from a file extension.
func ContentTypeForExt(ext string) string {
	f, ok := FormatFromExt(ext)
	if !ok {
		return "application/octet-stream"
	}
	return f.ContentType()
}

// Detect sniffs the container format from the leading bytes.
func Detect(data []byte) Format {
	mtype := mimetype.Detect(data)
	for f, ct := range contentTypes {
		if mtype.Is(ct) {
			return f
		}
	}
	return FormatUnknown
}

// ClampQuality forces q into [1, 100]. Zero maps to DefaultQuality.
func ClampQuality(q int) int {
	switch {
	case q == 0:
		return DefaultQuality
	case q < 1:
		return 1
	case q > 100:
		return 100
	default:
		return q
	}
}

// PNGCompressionLevel maps quality onto a zlib level in [0, 9]. Higher
// quality means less compression effort.
func PNGCompressionLevel(quality int) int {
	q := ClampQuality(quality)
	return int(math.Round(9 * float64(100-q) / 100))
}

// WebPTargetSize is the lossy WebP byte budget for a source of srcSize bytes.
func WebPTargetSize(srcSize int64, quality int) int64 {
	return srcSize * int64(ClampQuality(quality)) / 100
}

// fitToBudget finds the highest quality whose encoding fits in budget bytes.
// When nothing fits, the quality-1 encoding is returned.
func fitToBudget(budget int64, encode func(quality int) ([]byte, error)) ([]byte, int, error) {
	lo, hi := 1, 100
	var best []byte
	bestQ := 0

	for lo <= hi {
		mid := (lo + hi) / 2
		out, err := encode(mid)
		if err != nil {
			return nil, 0, err
		}
		if int64(len(out)) <= budget {
			best, bestQ = out, mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best == nil {
		out, err := encode(1)
		if err != nil {
			return nil, 0, err
		}
		return out, 1, nil
	}
	return best, bestQ, nil
}

func unsupportedOutput(f Format, why string) error {
	if why == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedOutputFormat, f)
	}
	return fmt.Errorf("%w: %q (%s)", ErrUnsupportedOutputFormat, f, why)
}
