package derivative

import (
	"errors"
	"io/fs"
	"path"
	"strings"

	"media-derive/internal/logging"
	"media-derive/internal/metrics"
	"media-derive/internal/storage"
)

// Purge removes every derivative and thumbnail of sourcePath. thumbRoot is
// the thumbnails subtree, empty when thumbnails live beside sources. trigger
// labels the purge metric. The returned paths are those actually removed.
func Purge(root *storage.Root, sourcePath, thumbRoot, trigger string) ([]string, error) {
	clean, err := storage.Clean(sourcePath)
	if err != nil {
		return nil, err
	}

	dir, name := path.Split(clean)
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		return nil, nil
	}
	escaped := escapeGlob(base)
	globDir := escapeGlob(dir)
	thumbDir := escapeGlob(ThumbnailDir(thumbRoot, dir))

	type target struct {
		pattern  string
		artifact string
	}
	targets := []target{
		{globDir + escaped + modMarker + "_*", "derivative"},
		{globDir + escaped + modMarker + ".*", "derivative"},
		{path.Join(thumbDir, escaped+ThumbnailSuffix+"*"), "thumbnail"},
	}
	if thumbRoot != "" {
		// Thumbnails generated before the subtree was configured.
		targets = append(targets, target{globDir + escaped + ThumbnailSuffix + "*", "thumbnail"})
	}

	var removed []string
	var errs []error
	for _, t := range targets {
		matches, err := root.Glob(t.pattern)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range matches {
			if err := root.Remove(m); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, err)
				}
				continue
			}
			removed = append(removed, m)
			metrics.PurgedFilesTotal.WithLabelValues(t.artifact, trigger).Inc()
		}
	}

	if len(removed) > 0 {
		logging.Info("Purged %d artifact(s) of %s", len(removed), clean)
	}
	return removed, errors.Join(errs...)
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PurgeDir removes the thumbnail subtree mirroring a deleted directory.
// Derivatives beside sources went with the directory itself.
func PurgeDir(root *storage.Root, dirPath, thumbRoot, trigger string) error {
	if thumbRoot == "" {
		return nil
	}
	clean, err := storage.Clean(dirPath)
	if err != nil {
		return err
	}
	if clean == "/" {
		return nil
	}

	thumbs := ThumbnailDir(thumbRoot, clean)
	ok, err := root.Exists(thumbs)
	if err != nil || !ok {
		return err
	}
	if err := root.Remove(thumbs); err != nil {
		return err
	}
	metrics.PurgedFilesTotal.WithLabelValues("thumbnail", trigger).Inc()
	logging.Info("Purged thumbnail directory %s", thumbs)
	return nil
}
