package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

func newMemRoot(t *testing.T, files map[string]string) *Root {
	t.Helper()
	mem := afero.NewMemMapFs()
	for p, content := range files {
		if err := afero.WriteFile(mem, p, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}
	return NewRootFs(mem)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "/", false},
		{"/", "/", false},
		{"photos/a.jpg", "/photos/a.jpg", false},
		{"/photos//a.jpg", "/photos/a.jpg", false},
		{"/photos/./a.jpg", "/photos/a.jpg", false},
		{"/photos/2024/../a.jpg", "/photos/a.jpg", false},
		{"/photos/", "/photos", false},
		{"/../etc/passwd", "", true},
		{"/photos/../../etc", "", true},
		{"..", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Clean(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrOutsideRoot) {
					t.Fatalf("Clean(%q) error = %v, want ErrOutsideRoot", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Clean(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExistsAndReadFile(t *testing.T) {
	r := newMemRoot(t, map[string]string{"/photos/a.jpg": "data"})

	ok, err := r.Exists("photos/a.jpg")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	ok, err = r.Exists("/photos/missing.jpg")
	if err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v; want false, nil", ok, err)
	}

	data, err := r.ReadFile("/photos/a.jpg")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("ReadFile = %q", data)
	}

	if _, err := r.ReadFile("/../secret"); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("ReadFile outside root error = %v", err)
	}
}

func TestWriteAtomic(t *testing.T) {
	r := newMemRoot(t, nil)

	if err := r.WriteAtomic("/new/dir/out.jpg", []byte("one")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := r.WriteAtomic("/new/dir/out.jpg", []byte("two")); err != nil {
		t.Fatalf("WriteAtomic overwrite: %v", err)
	}

	data, err := r.ReadFile("/new/dir/out.jpg")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want two", data)
	}

	assertNoTempFiles(t, r, "/new/dir")
}

func TestWriteAtomicConcurrent(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	payload := []byte(strings.Repeat("x", 64*1024))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.WriteAtomic("/a/out.bin", payload)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("WriteAtomic: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bin" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory entries = %v, want [out.bin]", names)
	}

	info, _ := os.Stat(filepath.Join(dir, "a", "out.bin"))
	if info.Size() != int64(len(payload)) {
		t.Errorf("size = %d, want %d", info.Size(), len(payload))
	}
}

func TestWriteAtomicFileMode(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	for _, p := range []string{"/a/photo_mod_w5.jpg", "/a/photo_thumbnail_.jpg"} {
		if err := r.WriteAtomic(p, []byte("data")); err != nil {
			t.Fatalf("WriteAtomic(%s): %v", p, err)
		}
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p)))
		if err != nil {
			t.Fatal(err)
		}
		if mode := info.Mode().Perm(); mode != 0o644 {
			t.Errorf("%s mode = %v, want -rw-r--r--", p, mode)
		}
	}
}

func TestNewRootErrors(t *testing.T) {
	if _, err := NewRoot(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}

	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRoot(file); err == nil {
		t.Error("expected error for file root")
	}
}

func TestBasePathConfinement(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(filepath.Dir(dir), "outside.txt")
	r, err := NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	if err := r.WriteAtomic("/../outside.txt", []byte("x")); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("WriteAtomic escape error = %v", err)
	}
	if _, err := os.Stat(outside); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("file written outside root")
	}
}

func TestCopyAtomicAndRemove(t *testing.T) {
	r := newMemRoot(t, map[string]string{"/v/clip.mp4": "video"})

	if err := r.CopyAtomic("/v/clip.mp4", "/v/clip_thumbnail_.png"); err != nil {
		t.Fatalf("CopyAtomic: %v", err)
	}
	data, _ := r.ReadFile("/v/clip_thumbnail_.png")
	if string(data) != "video" {
		t.Errorf("copy content = %q", data)
	}

	if err := r.Remove("/v/clip.mp4"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r.IsFile("/v/clip.mp4") {
		t.Error("file still exists after Remove")
	}

	if err := r.Remove("/v"); err != nil {
		t.Fatalf("Remove dir: %v", err)
	}
	if ok, _ := r.Exists("/v/clip_thumbnail_.png"); ok {
		t.Error("directory contents survived Remove")
	}

	if err := r.Remove("/"); err == nil {
		t.Error("Remove(/) succeeded")
	}
}

func TestGlob(t *testing.T) {
	r := newMemRoot(t, map[string]string{
		"/p/photo.jpg":                  "",
		"/p/photo_mod_w300.jpg":         "",
		"/p/photo_mod_w300_h200_q80.png": "",
		"/p/photograph.jpg":             "",
	})

	matches, err := r.Glob("/p/photo_mod_*")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Glob matched %v, want 2 entries", matches)
	}
}

func assertNoTempFiles(t *testing.T, r *Root, dir string) {
	t.Helper()
	entries, err := afero.ReadDir(r.Fs(), dir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
