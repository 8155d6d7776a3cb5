package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"media-derive/internal/engine"
	"media-derive/internal/startup"
	"media-derive/internal/storage"
)

func writeJPEG(t *testing.T, fs afero.Fs, p string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newTestOpener returns an Opener over a fresh in-memory storage root.
func newTestOpener(t *testing.T) (afero.Fs, Opener) {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeJPEG(t, fs, "/photos/cat.jpg", 400, 200)
	writeJPEG(t, fs, "/photos/dog.jpg", 100, 100)
	writeJPEG(t, fs, "/photos/trip/beach.jpg", 300, 300)
	if err := afero.WriteFile(fs, "/photos/notes.txt", []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	config := &startup.Config{
		ThumbnailWidth:  40,
		ThumbnailHeight: 40,
		ThumbnailDir:    "__thumbnails",
		DefaultQuality:  70,
		Codec:           "imaging",
		FFmpegPath:      "/nonexistent/ffmpeg",
	}
	root := storage.NewRootFs(fs)
	return fs, func(Options) (*engine.Engine, error) {
		return engine.NewWithRoot(config, root)
	}
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(context.Background(), open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func exists(t *testing.T, fs afero.Fs, p string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, p)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func TestDeriveCommand(t *testing.T) {
	fs, open := newTestOpener(t)

	out, err := run(t, open, "derive", "/photos/cat_mod_w100.jpg")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !strings.Contains(out, "image/jpeg") {
		t.Errorf("output = %q", out)
	}
	if !exists(t, fs, "/photos/cat_mod_w100.jpg") {
		t.Error("derivative was not stored")
	}

	if _, err := run(t, open, "derive", "/photos/missing_mod_w100.jpg"); err == nil {
		t.Error("derive of missing source succeeded")
	}
	if _, err := run(t, open, "derive"); err == nil {
		t.Error("derive without argument succeeded")
	}
}

func TestThumbCommand(t *testing.T) {
	fs, open := newTestOpener(t)

	out, err := run(t, open, "thumb", "/photos/cat.jpg")
	if err != nil {
		t.Fatalf("thumb: %v", err)
	}
	want := "/__thumbnails/photos/cat_thumbnail_.jpg"
	if strings.TrimSpace(out) != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if !exists(t, fs, want) {
		t.Error("thumbnail was not stored")
	}
}

func TestPurgeCommand(t *testing.T) {
	fs, open := newTestOpener(t)

	for _, p := range []string{"/photos/cat_mod_w100.jpg", "/photos/cat_mod_q50.jpg"} {
		if _, err := run(t, open, "derive", p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := run(t, open, "thumb", "/photos/cat.jpg"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, open, "purge", "/photos/cat.jpg")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !strings.Contains(out, "purged 3 files") {
		t.Errorf("output = %q", out)
	}
	if !exists(t, fs, "/photos/cat.jpg") {
		t.Error("purge removed the source")
	}
	if exists(t, fs, "/photos/cat_mod_w100.jpg") {
		t.Error("derivative survived purge")
	}
}

func TestPurgeCommandDirectory(t *testing.T) {
	fs, open := newTestOpener(t)

	if _, err := run(t, open, "thumb", "/photos/trip/beach.jpg"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, open, "purge", "/photos/trip"); err != nil {
		t.Fatalf("purge dir: %v", err)
	}
	if exists(t, fs, "/__thumbnails/photos/trip") {
		t.Error("thumbnail subtree survived directory purge")
	}
}

func TestKeyCommands(t *testing.T) {
	_, open := newTestOpener(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"encode", []string{"key", "encode", "photos/cat.jpg", "--spec", "w300_q70"}, "photos/cat_mod_w300_q70.jpg", false},
		{"encode with format", []string{"key", "encode", "cat.jpg", "--spec", "h200", "--format", "webp"}, "cat_mod_h200.webp", false},
		{"encode format only", []string{"key", "encode", "cat.jpg", "--format", "png"}, "cat_mod.png", false},
		{"encode empty", []string{"key", "encode", "cat.jpg"}, "", true},
		{"encode bad format", []string{"key", "encode", "cat.jpg", "--spec", "w1", "--format", "gif"}, "", true},
		{"encode bad quality", []string{"key", "encode", "cat.jpg", "--spec", "q101"}, "", true},
		{"encode duplicate modifier", []string{"key", "encode", "cat.jpg", "--spec", "w1_w2"}, "", true},
		{"decode", []string{"key", "decode", "/a/cat_mod_w300_h200.webp"}, "transform: w300_h200", false},
		{"decode literal", []string{"key", "decode", "/a/cat.jpg"}, "not a derivative", false},
		{"decode duplicate modifier", []string{"key", "decode", "/a/cat_mod_w1_w2.jpg"}, "not a derivative", false},
		{"decode escape", []string{"key", "decode", "../etc/passwd_mod_w1.jpg"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, open, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestURLCommand(t *testing.T) {
	_, open := newTestOpener(t)

	out, err := run(t, open, "url", "photos/my cat.jpg", "--spec", "w640", "--prefix", "/media")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/media/photos/my%20cat_mod_w640.jpg"; strings.TrimSpace(out) != want {
		t.Errorf("url = %q, want %q", out, want)
	}
}

func TestKeyCommandsNeverOpenEngine(t *testing.T) {
	failing := func(Options) (*engine.Engine, error) {
		return nil, errors.New("engine opened")
	}
	if _, err := run(t, failing, "key", "encode", "cat.jpg", "--spec", "w1"); err != nil {
		t.Errorf("key encode: %v", err)
	}
	if _, err := run(t, failing, "derive", "/cat_mod_w1.jpg"); err == nil {
		t.Error("derive succeeded without an engine")
	}
}

func TestPersistentFlagsReachOpener(t *testing.T) {
	var got Options
	open := func(opts Options) (*engine.Engine, error) {
		got = opts
		return nil, errors.New("stop")
	}
	_, _ = run(t, open, "--env-file", "custom.env", "--storage", "/srv/media", "thumb", "/a.jpg")

	if got.EnvFile != "custom.env" || got.StorageDir != "/srv/media" {
		t.Errorf("options = %+v", got)
	}
}
