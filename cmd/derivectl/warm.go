package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"media-derive/internal/codec"
	"media-derive/internal/derivative"
	"media-derive/internal/engine"
	"media-derive/internal/logging"
	"media-derive/internal/memory"
	"media-derive/internal/workers"
)

// warmStats counts the outcome of a warm run.
type warmStats struct {
	sources   atomic.Int64
	generated atomic.Int64
	bytes     atomic.Int64
	errors    atomic.Int64
}

type warmOptions struct {
	spec       derivative.TransformSpec
	thumbnails bool
	workers    int
	failFast   bool
}

func newWarmCommand(a *app) *cobra.Command {
	var (
		flags specFlags
		opts  warmOptions
	)
	cmd := &cobra.Command{
		Use:     "warm [dir]",
		Example: "$ derivectl warm /photos --spec w300_h200 --format webp --thumbnails",
		Short:   "Pre-generate derivatives for every image under a directory",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := flags.spec()
			if err != nil {
				return err
			}
			opts.spec = spec

			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}

			eng, err := a.ensure()
			if err != nil {
				return err
			}

			monitor := memory.NewMonitor(memory.DefaultConfig())
			monitor.Start()
			defer monitor.Stop()

			start := time.Now()
			stats, err := warm(a.ctx, eng, monitor, dir, opts)
			fmt.Fprintf(cmd.OutOrStdout(), "%d sources, %d derivatives (%s), %d errors in %v\n",
				stats.sources.Load(), stats.generated.Load(),
				humanize.IBytes(uint64(stats.bytes.Load())), stats.errors.Load(),
				time.Since(start).Round(time.Millisecond))
			return err
		},
	}
	flags.register(cmd, "w300_h200")
	cmd.Flags().BoolVar(&opts.thumbnails, "thumbnails", false, "also create thumbnails")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "upper bound on concurrent jobs (0 = no bound)")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop at the first error")
	return cmd
}

// warm walks dir and creates the derivative of every image source on a
// bounded pool. Errors are counted and logged unless failFast is set.
func warm(ctx context.Context, eng *engine.Engine, monitor *memory.Monitor, dir string, opts warmOptions) (*warmStats, error) {
	stats := &warmStats{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForMixed(opts.workers))

	thumbPrefix := ""
	if eng.Config.ThumbnailDir != "" {
		thumbPrefix = path.Join("/", eng.Config.ThumbnailDir)
	}

	walkErr := eng.Root.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := info.Name()
		if info.IsDir() {
			if p == thumbPrefix || (strings.HasPrefix(name, ".") && name != ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isWarmSource(name) {
			return nil
		}
		stats.sources.Add(1)

		source := filepath.ToSlash(p)
		g.Go(func() error {
			if !monitor.WaitIfPaused() {
				return context.Canceled
			}
			return warmOne(ctx, eng, source, opts, stats)
		})
		return nil
	})

	err := g.Wait()
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		return stats, fmt.Errorf("walk %s: %w", dir, walkErr)
	}
	return stats, err
}

func warmOne(ctx context.Context, eng *engine.Engine, source string, opts warmOptions, stats *warmStats) error {
	target := derivative.EncodePath(source, opts.spec)
	data, _, err := eng.Cache.GetOrCreate(ctx, target)
	if err == nil {
		stats.generated.Add(1)
		stats.bytes.Add(int64(len(data)))
		logging.Debug("Warmed %s", target)
	}
	if err == nil && opts.thumbnails {
		_, err = eng.Thumbs.Ensure(ctx, source)
	}
	if err != nil {
		stats.errors.Add(1)
		logging.Warn("Warm %s: %v", source, err)
		if opts.failFast {
			return fmt.Errorf("%s: %w", source, err)
		}
	}
	return nil
}

// isWarmSource reports whether name is an image the codec can derive from
// and not itself an artifact.
func isWarmSource(name string) bool {
	if derivative.IsArtifact(name) || strings.Contains(name, ".tmp-") {
		return false
	}
	f, ok := codec.FormatFromExt(path.Ext(name))
	return ok && f.IsDerivative()
}
