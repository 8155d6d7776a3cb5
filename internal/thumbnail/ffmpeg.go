package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"media-derive/internal/logging"
	"media-derive/internal/metrics"
)

// FrameExtractor returns the first video frame as PNG bytes. localPath is
// the OS path when the storage root is on disk; otherwise r is streamed.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, localPath string, r io.Reader) ([]byte, error)
}

// FFmpeg extracts frames with the ffmpeg binary.
type FFmpeg struct {
	// Path is the binary; empty means "ffmpeg" on PATH.
	Path string
}

func (f FFmpeg) binary() (string, error) {
	name := f.Path
	if name == "" {
		name = "ffmpeg"
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found: %w", err)
	}
	return p, nil
}

// Available reports whether the binary can be found.
func (f FFmpeg) Available() bool {
	_, err := f.binary()
	return err == nil
}

// ExtractFrame implements FrameExtractor. The process is killed when ctx is
// done.
func (f FFmpeg) ExtractFrame(ctx context.Context, localPath string, r io.Reader) ([]byte, error) {
	bin, err := f.binary()
	if err != nil {
		return nil, err
	}

	input := localPath
	if input == "" {
		input = "pipe:0"
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner",
		"-loglevel", "error",
		"-ss", "0",
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if localPath == "" {
		cmd.Stdin = r
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	metrics.ThumbnailFFmpegDuration.Observe(time.Since(start).Seconds())

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", input)
	}

	logging.Debug("FFmpeg frame for %s: %d bytes", input, stdout.Len())
	return stdout.Bytes(), nil
}
