package codec

import (
	"errors"
	"testing"
)

func TestFormatFromExt(t *testing.T) {
	tests := []struct {
		ext    string
		want   Format
		wantOK bool
	}{
		{"jpg", FormatJPEG, true},
		{".JPEG", FormatJPEG, true},
		{"png", FormatPNG, true},
		{"webp", FormatWebP, true},
		{"avif", FormatAVIF, true},
		{"gif", FormatGIF, true},
		{"bmp", FormatUnknown, false},
		{"", FormatUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := FormatFromExt(tt.ext)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FormatFromExt(%q) = %q, %v; want %q, %v", tt.ext, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestContentTypeForExt(t *testing.T) {
	tests := map[string]string{
		"jpg":  "image/jpeg",
		"JPEG": "image/jpeg",
		"png":  "image/png",
		"webp": "image/webp",
		"avif": "image/avif",
		"mp4":  "application/octet-stream",
	}
	for ext, want := range tests {
		if got := ContentTypeForExt(ext); got != want {
			t.Errorf("ContentTypeForExt(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestIsDerivative(t *testing.T) {
	for _, f := range []Format{FormatJPEG, FormatPNG, FormatWebP, FormatAVIF} {
		if !f.IsDerivative() {
			t.Errorf("%s.IsDerivative() = false", f)
		}
	}
	for _, f := range []Format{FormatGIF, FormatPDF, FormatUnknown} {
		if f.IsDerivative() {
			t.Errorf("%q.IsDerivative() = true", f)
		}
	}
}

func TestPNGCompressionLevel(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{100, 0},
		{90, 1},
		{80, 2},
		{50, 5},
		{30, 6},
		{1, 9},
	}

	for _, tt := range tests {
		if got := PNGCompressionLevel(tt.quality); got != tt.want {
			t.Errorf("PNGCompressionLevel(%d) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

func TestWebPTargetSize(t *testing.T) {
	if got := WebPTargetSize(100_000, 80); got != 80_000 {
		t.Errorf("WebPTargetSize(100000, 80) = %d, want 80000", got)
	}
	if got := WebPTargetSize(1000, 0); got != 700 {
		t.Errorf("WebPTargetSize(1000, 0) = %d, want default-quality budget 700", got)
	}
}

func TestClampQuality(t *testing.T) {
	tests := map[int]int{0: DefaultQuality, -5: 1, 1: 1, 55: 55, 100: 100, 250: 100}
	for in, want := range tests {
		if got := ClampQuality(in); got != want {
			t.Errorf("ClampQuality(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDetect(t *testing.T) {
	if got := Detect(encodeTestImage(t, 8, 8, FormatJPEG)); got != FormatJPEG {
		t.Errorf("Detect(jpeg) = %q", got)
	}
	if got := Detect(encodeTestImage(t, 8, 8, FormatPNG)); got != FormatPNG {
		t.Errorf("Detect(png) = %q", got)
	}
	if got := Detect(encodeTestImage(t, 8, 8, FormatGIF)); got != FormatGIF {
		t.Errorf("Detect(gif) = %q", got)
	}
	if got := Detect([]byte("plain text, not an image")); got != FormatUnknown {
		t.Errorf("Detect(text) = %q, want unknown", got)
	}
}

func TestFitToBudget(t *testing.T) {
	// Output size grows linearly with quality: 10 bytes per step.
	encode := func(q int) ([]byte, error) { return make([]byte, q*10), nil }

	out, q, err := fitToBudget(555, encode)
	if err != nil {
		t.Fatalf("fitToBudget() error: %v", err)
	}
	if q != 55 || len(out) != 550 {
		t.Errorf("fitToBudget(555) = quality %d, %d bytes; want 55, 550", q, len(out))
	}

	out, q, err = fitToBudget(3, encode)
	if err != nil {
		t.Fatalf("fitToBudget() error: %v", err)
	}
	if q != 1 || len(out) != 10 {
		t.Errorf("unreachable budget = quality %d, %d bytes; want floor quality 1", q, len(out))
	}

	boom := errors.New("boom")
	if _, _, err := fitToBudget(100, func(int) ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("fitToBudget() error = %v, want encoder error", err)
	}
}
