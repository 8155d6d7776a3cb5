package derivative

import (
	"os"
	"path"
	"strings"

	"media-derive/internal/metrics"
	"media-derive/internal/storage"
)

// Inventory counts sources, derivatives and thumbnails under a root. It
// implements metrics.StatsProvider.
type Inventory struct {
	Root      *storage.Root
	ThumbRoot string
}

// GetStats walks the whole root.
func (inv Inventory) GetStats() (metrics.Stats, error) {
	var stats metrics.Stats
	thumbPrefix := ""
	if inv.ThumbRoot != "" {
		thumbPrefix = path.Join("/", inv.ThumbRoot) + "/"
	}

	err := inv.Root.Walk("/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.Contains(info.Name(), ".tmp-") {
			return nil
		}

		name := info.Name()
		filename := strings.TrimSuffix(name, path.Ext(name))
		switch {
		case strings.HasSuffix(filename, ThumbnailSuffix), thumbPrefix != "" && strings.HasPrefix(p, thumbPrefix):
			stats.Thumbnails++
			stats.ThumbnailBytes += info.Size()
		case IsArtifact(name):
			stats.Derivatives++
			stats.DerivativeBytes += info.Size()
		default:
			stats.Sources++
			stats.SourceBytes += info.Size()
		}
		return nil
	})
	return stats, err
}
