package storage

import (
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	// Decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"media-derive/internal/mediatypes"
)

// Asset is either a *FileAsset or a *DirectoryAsset.
type Asset interface {
	AssetPath() string
	Kind() mediatypes.FileType
}

// Dims are pixel dimensions. Zero for non-images and undecodable headers.
type Dims struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FileAsset describes a regular file under the root.
type FileAsset struct {
	Path          string              `json:"path"`
	Name          string              `json:"name"`
	Ext           string              `json:"ext"`
	Size          int64               `json:"size"`
	FormattedSize string              `json:"formattedSize"`
	ModTime       time.Time           `json:"time"`
	Mime          string              `json:"mime"`
	Type          mediatypes.FileType `json:"type"`
	Dims          Dims                `json:"dims"`
}

// AssetPath implements Asset.
func (f *FileAsset) AssetPath() string { return f.Path }

// Kind implements Asset.
func (f *FileAsset) Kind() mediatypes.FileType { return f.Type }

// Base returns the file name without its extension.
func (f *FileAsset) Base() string {
	return strings.TrimSuffix(f.Name, path.Ext(f.Name))
}

// IsGIF reports whether the sniffed type is GIF.
func (f *FileAsset) IsGIF() bool {
	return strings.Contains(f.Mime, "gif")
}

// DirectoryAsset describes a directory under the root.
type DirectoryAsset struct {
	Path          string    `json:"path"`
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	FormattedSize string    `json:"formattedSize"`
	ModTime       time.Time `json:"time"`
	Files         int       `json:"files"`
	Folders       int       `json:"folders"`
}

// AssetPath implements Asset.
func (d *DirectoryAsset) AssetPath() string { return d.Path }

// Kind implements Asset.
func (d *DirectoryAsset) Kind() mediatypes.FileType { return mediatypes.FileTypeFolder }

// Info describes the file or directory at p.
func (r *Root) Info(p string) (Asset, error) {
	clean, err := Clean(p)
	if err != nil {
		return nil, err
	}

	info, err := r.Stat(clean)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return r.dirInfo(clean, info)
	}
	return r.fileInfo(clean, info)
}

// FileInfo is Info restricted to regular files.
func (r *Root) FileInfo(p string) (*FileAsset, error) {
	a, err := r.Info(p)
	if err != nil {
		return nil, err
	}
	f, ok := a.(*FileAsset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", a.AssetPath(), ErrIsDir)
	}
	return f, nil
}

func (r *Root) fileInfo(clean string, info os.FileInfo) (*FileAsset, error) {
	f, err := r.Open(clean)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect type of %s: %w", clean, err)
	}

	name := path.Base(clean)
	asset := &FileAsset{
		Path:          clean,
		Name:          name,
		Ext:           strings.TrimPrefix(path.Ext(name), "."),
		Size:          info.Size(),
		FormattedSize: humanize.Bytes(uint64(info.Size())),
		ModTime:       info.ModTime(),
		Mime:          mtype.String(),
		Type:          mediatypes.Classify(mtype.String()),
	}

	if asset.Type == mediatypes.FileTypeImage {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if cfg, _, err := image.DecodeConfig(f); err == nil {
				asset.Dims = Dims{Width: cfg.Width, Height: cfg.Height}
			}
		}
	}

	return asset, nil
}

func (r *Root) dirInfo(clean string, info os.FileInfo) (*DirectoryAsset, error) {
	asset := &DirectoryAsset{
		Path:    clean,
		Name:    path.Base(clean),
		ModTime: info.ModTime(),
	}

	err := r.Walk(clean, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if path.Clean(p) != clean {
				asset.Folders++
			}
			return nil
		}
		asset.Files++
		asset.Size += fi.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", clean, err)
	}

	asset.FormattedSize = humanize.Bytes(uint64(asset.Size))
	return asset, nil
}
