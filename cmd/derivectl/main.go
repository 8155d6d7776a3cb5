package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"media-derive/internal/engine"
	"media-derive/internal/startup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := NewRootCommand(ctx, openEngine)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// openEngine reads the server configuration and builds the engine over it.
func openEngine(opts Options) (*engine.Engine, error) {
	config, err := startup.ReadConfig(opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	if opts.StorageDir != "" {
		config.StorageDir = opts.StorageDir
	}
	return engine.New(config)
}
