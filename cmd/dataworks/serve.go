package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dataworks/internal/config"
	"dataworks/internal/logging"
	"dataworks/internal/server"
	"dataworks/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over HTTP",
	Long: `Starts the HTTP API:

  GET/POST /run       submit a task and wait for the result
  GET      /read      read a file from inside the sandbox
  GET      /runs      list stored runs
  GET      /runs/{id} fetch one stored run with its trace
  GET      /healthz   liveness probe

The configuration file is watched while serving; log level changes
take effect without a restart.`,
	RunE: serveAgent,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address override (host:port)")
}

func serveAgent(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	registry, sandbox, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	loop, err := buildLoop(ctx, cfg, registry)
	if err != nil {
		return err
	}
	runs, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer runs.Close()

	srv := server.New(cfg.Server.Addr, loop, sandbox, runs)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	g.Go(func() error {
		err := config.Watch(ctx, configPath, func(fresh *config.Config) {
			if err := logging.SetLevel(fresh.Logging.Level); err != nil {
				logging.Boot("ignoring invalid log level %q: %v", fresh.Logging.Level, err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
