package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"media-derive/internal/codec"
	"media-derive/internal/derivative"
	"media-derive/internal/engine"
	"media-derive/internal/startup"
)

// Options are the persistent flags shared by every command.
type Options struct {
	EnvFile    string
	StorageDir string
}

// Opener builds an engine from the persistent flags.
type Opener func(opts Options) (*engine.Engine, error)

// app carries the lazily opened engine between commands.
type app struct {
	ctx  context.Context
	opts Options
	open Opener
	eng  *engine.Engine
}

func (a *app) ensure() (*engine.Engine, error) {
	if a.eng != nil {
		return a.eng, nil
	}
	eng, err := a.open(a.opts)
	if err != nil {
		return nil, err
	}
	a.eng = eng
	return eng, nil
}

func (a *app) close() {
	if a.eng != nil {
		a.eng.Close()
		a.eng = nil
	}
}

// NewRootCommand returns the root command with all subcommands attached.
func NewRootCommand(ctx context.Context, open Opener) *cobra.Command {
	a := &app{ctx: ctx, open: open}

	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:           "derivectl",
		Short:         "Create, inspect and purge media derivatives.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.opts.EnvFile, "env-file", startup.DefaultEnvFile, "environment file read before the environment")
	rootCmd.PersistentFlags().StringVar(&a.opts.StorageDir, "storage", "", "storage root, overriding STORAGE_DIR")

	rootCmd.AddCommand(newDeriveCommand(a))
	rootCmd.AddCommand(newThumbCommand(a))
	rootCmd.AddCommand(newPurgeCommand(a))
	rootCmd.AddCommand(newKeyCommand())
	rootCmd.AddCommand(newURLCommand())
	rootCmd.AddCommand(newWarmCommand(a))

	return rootCmd
}

// specFlags binds --spec and --format to a TransformSpec.
type specFlags struct {
	mods   string
	format string
}

func (f *specFlags) register(cmd *cobra.Command, defaultMods string) {
	cmd.Flags().StringVar(&f.mods, "spec", defaultMods, "modifiers such as w300_h200_q70")
	cmd.Flags().StringVar(&f.format, "format", "", "output format: jpg, png, webp or avif")
}

func (f *specFlags) spec() (derivative.TransformSpec, error) {
	spec, err := derivative.ParseModifiers(f.mods)
	if err != nil {
		return spec, err
	}
	if err := spec.Validate(); err != nil {
		return spec, err
	}
	if f.format != "" {
		format, ok := codec.FormatFromExt(f.format)
		if !ok || !format.IsDerivative() {
			return spec, fmt.Errorf("unsupported output format %q", f.format)
		}
		spec.Format = format
	}
	if spec.IsEmpty() && spec.Format == codec.FormatUnknown {
		return spec, fmt.Errorf("empty transform: pass --spec or --format")
	}
	return spec, nil
}

func newDeriveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "derive [path]",
		Example: "$ derivectl derive /photos/cat_mod_w300.webp",
		Short:   "Create the derivative named by path",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.ensure()
			if err != nil {
				return err
			}
			data, contentType, err := eng.Cache.GetOrCreate(a.ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", args[0], contentType, humanize.IBytes(uint64(len(data))))
			return nil
		},
	}
}

func newThumbCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thumb [path]",
		Short: "Create the thumbnail of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.ensure()
			if err != nil {
				return err
			}
			thumb, err := eng.Thumbs.Ensure(a.ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), thumb)
			return nil
		},
	}
}

func newPurgeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge [path]",
		Short: "Remove every derivative and thumbnail of a source",
		Long: `Remove every derivative and thumbnail of a source. The source itself is
kept. A directory argument removes its mirrored thumbnail subtree.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.ensure()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if info, err := eng.Root.Stat(args[0]); err == nil && info.IsDir() {
				return derivative.PurgeDir(eng.Root, args[0], eng.Config.ThumbnailDir, "cli")
			}
			removed, err := derivative.Purge(eng.Root, args[0], eng.Config.ThumbnailDir, "cli")
			for _, p := range removed {
				fmt.Fprintln(out, p)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "purged %d files\n", len(removed))
			return nil
		},
	}
}

func newKeyCommand() *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Encode or decode derivative file names",
	}

	var flags specFlags
	encode := &cobra.Command{
		Use:     "encode [source]",
		Example: "$ derivectl key encode photos/cat.jpg --spec w300_q70 --format webp",
		Short:   "Print the derivative name of a source",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := flags.spec()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), derivative.EncodePath(args[0], spec))
			return nil
		},
	}
	flags.register(encode, "")

	decode := &cobra.Command{
		Use:   "decode [name]",
		Short: "Print what a derivative name requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := derivative.Decode(args[0])
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), req)
			return nil
		},
	}

	keyCmd.AddCommand(encode, decode)
	return keyCmd
}

func printRequest(w io.Writer, req derivative.Request) {
	if !req.IsDerivative {
		fmt.Fprintf(w, "%s is not a derivative name\n", req.Path())
		return
	}
	fmt.Fprintf(w, "dir:       %s\n", req.Dir)
	fmt.Fprintf(w, "base:      %s\n", req.Base)
	fmt.Fprintf(w, "extension: %s\n", req.Ext)
	fmt.Fprintf(w, "transform: %s\n", req.Spec)
	if err := req.Spec.Validate(); err != nil {
		fmt.Fprintf(w, "invalid:   %v\n", err)
	}
}

func newURLCommand() *cobra.Command {
	var (
		flags  specFlags
		prefix string
	)
	cmd := &cobra.Command{
		Use:     "url [source]",
		Example: "$ derivectl url photos/cat.jpg --spec w640",
		Short:   "Print the public URL of a derivative",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := flags.spec()
			if err != nil {
				return err
			}
			u := derivative.URL(prefix, args[0], spec)
			if u == "" {
				return fmt.Errorf("invalid source path %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	flags.register(cmd, "")
	cmd.Flags().StringVar(&prefix, "prefix", "/storage", "storage URL prefix")
	return cmd
}
