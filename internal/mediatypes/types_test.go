package mediatypes

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		mime string
		want FileType
	}{
		{"image/jpeg", FileTypeImage},
		{"image/svg+xml", FileTypeImage},
		{"video/mp4", FileTypeVideo},
		{"application/pdf", FileTypePDF},
		{"text/plain; charset=utf-8", FileTypeText},
		{"application/zip", FileTypeOther},
		{"directory", FileTypeFolder},
		{"", FileTypeOther},
		{"IMAGE/PNG", FileTypeImage},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := Classify(tt.mime); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{"JPEG image", ".jpg", FileTypeImage},
		{"uppercase", ".PNG", FileTypeImage},
		{"AVIF image", ".avif", FileTypeImage},
		{"MP4 video", ".mp4", FileTypeVideo},
		{"PDF", ".pdf", FileTypePDF},
		{"text", ".txt", FileTypeText},
		{"Unknown extension", ".xyz", FileTypeOther},
		{"Empty extension", "", FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetFileType(tt.ext); got != tt.want {
				t.Errorf("GetFileType(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	if got := GetMimeType(".webp"); got != "image/webp" {
		t.Errorf("GetMimeType(.webp) = %q", got)
	}
	if got := GetMimeType(".nope"); got != "application/octet-stream" {
		t.Errorf("GetMimeType(.nope) = %q", got)
	}
}

func TestIsMediaFile(t *testing.T) {
	for ext, want := range map[string]bool{".jpg": true, ".mkv": true, ".pdf": false, ".txt": false} {
		if got := IsMediaFile(ext); got != want {
			t.Errorf("IsMediaFile(%q) = %v, want %v", ext, got, want)
		}
	}
}
