// Package engine assembles the storage root, codec, derivative cache and
// thumbnail generator from the loaded configuration. Both the server and
// derivectl build their components here.
package engine

import (
	"fmt"
	"time"

	"media-derive/internal/codec"
	"media-derive/internal/derivative"
	"media-derive/internal/startup"
	"media-derive/internal/storage"
	"media-derive/internal/thumbnail"
)

// Engine holds the wired components.
type Engine struct {
	Config *startup.Config
	Root   *storage.Root
	Codec  codec.Codec
	Cache  *derivative.Cache
	Thumbs *thumbnail.Generator
	FFmpeg thumbnail.FFmpeg

	// CodecInit is how long the codec took to start.
	CodecInit time.Duration
}

// New opens the storage root and builds every component over it.
func New(cfg *startup.Config) (*Engine, error) {
	root, err := storage.NewRoot(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("open storage root: %w", err)
	}
	return NewWithRoot(cfg, root)
}

// NewWithRoot builds the components over an existing root.
func NewWithRoot(cfg *startup.Config, root *storage.Root) (*Engine, error) {
	start := time.Now()
	c, err := codec.New(codec.Kind(cfg.Codec))
	if err != nil {
		return nil, err
	}

	ffmpeg := thumbnail.FFmpeg{Path: cfg.FFmpegPath}
	var frames thumbnail.FrameExtractor
	if ffmpeg.Available() {
		frames = ffmpeg
	}

	return &Engine{
		Config: cfg,
		Root:   root,
		Codec:  c,
		Cache: derivative.NewCache(derivative.Config{
			Root:           root,
			DefaultQuality: cfg.DefaultQuality,
			AllowEnlarge:   cfg.AllowEnlarge,
		}, c),
		Thumbs: thumbnail.NewGenerator(thumbnail.Config{
			Root:    root,
			Width:   cfg.ThumbnailWidth,
			Height:  cfg.ThumbnailHeight,
			Dir:     cfg.ThumbnailDir,
			Quality: cfg.DefaultQuality,
		}, c, frames),
		FFmpeg:    ffmpeg,
		CodecInit: time.Since(start),
	}, nil
}

// Inventory returns the artifact inventory for the metrics collector.
func (e *Engine) Inventory() derivative.Inventory {
	return derivative.Inventory{Root: e.Root, ThumbRoot: e.Config.ThumbnailDir}
}

// Close releases codec resources.
func (e *Engine) Close() {
	codec.ShutdownVips()
}
