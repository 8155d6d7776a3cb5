package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"media-derive/internal/filesystem"
)

var (
	// ErrOutsideRoot is returned for paths that resolve above the storage root.
	ErrOutsideRoot = errors.New("path escapes storage root")
	// ErrIsDir is returned where a regular file is required.
	ErrIsDir = errors.New("is a directory")
)

// Root is a storage root. It is safe for concurrent use.
type Root struct {
	fs    afero.Fs
	dir   string
	retry filesystem.RetryConfig
}

// NewRoot opens dir on the OS filesystem as a storage root.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %w", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", abs)
	}

	r := NewRootFs(afero.NewBasePathFs(afero.NewOsFs(), abs))
	r.dir = abs
	return r, nil
}

// NewRootFs wraps an existing afero filesystem.
func NewRootFs(fsys afero.Fs) *Root {
	return &Root{fs: fsys, retry: filesystem.DefaultRetryConfig()}
}

// Fs returns the underlying filesystem.
func (r *Root) Fs() afero.Fs {
	return r.fs
}

// Dir returns the absolute OS directory, or "" for non-OS roots.
func (r *Root) Dir() string {
	return r.dir
}

// LocalPath returns the OS path of p for roots on the OS filesystem.
func (r *Root) LocalPath(p string) (string, bool) {
	if r.dir == "" {
		return "", false
	}
	clean, err := Clean(p)
	if err != nil {
		return "", false
	}
	return filepath.Join(r.dir, filepath.FromSlash(clean)), true
}

// Clean normalizes p to a rooted slash path. Empty and "." segments are
// dropped and ".." is resolved; a ".." at the top returns ErrOutsideRoot.
func Clean(p string) (string, error) {
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", fmt.Errorf("%w: %q", ErrOutsideRoot, p)
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}

	return "/" + strings.Join(out, "/"), nil
}

// Stat returns file info for p.
func (r *Root) Stat(p string) (os.FileInfo, error) {
	clean, err := Clean(p)
	if err != nil {
		return nil, err
	}
	return filesystem.StatWithRetry(r.fs, clean, r.retry)
}

// Exists reports whether p exists. Errors other than not-exist are returned.
func (r *Root) Exists(p string) (bool, error) {
	_, err := r.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// IsFile reports whether p exists and is a regular file.
func (r *Root) IsFile(p string) bool {
	info, err := r.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// ReadFile reads the whole file at p.
func (r *Root) ReadFile(p string) ([]byte, error) {
	clean, err := Clean(p)
	if err != nil {
		return nil, err
	}
	return filesystem.ReadFileWithRetry(r.fs, clean, r.retry)
}

// Open opens p for reading.
func (r *Root) Open(p string) (afero.File, error) {
	clean, err := Clean(p)
	if err != nil {
		return nil, err
	}
	return filesystem.OpenWithRetry(r.fs, clean, r.retry)
}

// MkdirAll creates p and any missing parents.
func (r *Root) MkdirAll(p string) error {
	clean, err := Clean(p)
	if err != nil {
		return err
	}
	return r.fs.MkdirAll(clean, 0o755)
}

// artifactMode is the permission of every file WriteAtomic commits.
const artifactMode os.FileMode = 0o644

// WriteAtomic writes data to p through a temp file in the same directory
// followed by a rename. Parent directories are created as needed.
func (r *Root) WriteAtomic(p string, data []byte) error {
	clean, err := Clean(p)
	if err != nil {
		return err
	}
	if clean == "/" {
		return fmt.Errorf("write %q: not a file path", p)
	}

	dir, name := path.Split(clean)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(r.fs, dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", clean, err)
	}
	tmpName := path.Join(dir, path.Base(tmp.Name()))

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("close %s: %w", clean, err)
	}
	// Temp files are created 0600; artifacts must be as readable as sources.
	if err := r.fs.Chmod(tmpName, artifactMode); err != nil {
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", clean, err)
	}

	if err := r.fs.Rename(tmpName, clean); err != nil {
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("commit %s: %w", clean, err)
	}
	return nil
}

// CopyAtomic copies src to dst using WriteAtomic.
func (r *Root) CopyAtomic(src, dst string) error {
	data, err := r.ReadFile(src)
	if err != nil {
		return err
	}
	return r.WriteAtomic(dst, data)
}

// Remove deletes p. Directories are removed recursively.
func (r *Root) Remove(p string) error {
	clean, err := Clean(p)
	if err != nil {
		return err
	}
	if clean == "/" {
		return fmt.Errorf("%w: refusing to remove the root", ErrOutsideRoot)
	}

	info, err := r.fs.Stat(clean)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return r.fs.RemoveAll(clean)
	}
	return r.fs.Remove(clean)
}

// Glob returns the paths matching pattern. Metacharacters in literal
// segments must be escaped with a backslash.
func (r *Root) Glob(pattern string) ([]string, error) {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, pattern)
		}
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return afero.Glob(r.fs, pattern)
}

// Walk walks the tree rooted at p.
func (r *Root) Walk(p string, fn filepath.WalkFunc) error {
	clean, err := Clean(p)
	if err != nil {
		return err
	}
	return afero.Walk(r.fs, clean, fn)
}
