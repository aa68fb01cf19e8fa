package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/sitelog/internal/config"
	"github.com/thebtf/sitelog/internal/telemetry"
	"github.com/thebtf/sitelog/internal/watcher"
	"github.com/thebtf/sitelog/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long:  `Serve the JSON API, the browser UI and the gRPC health service on one port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.WorkerPort = port
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from settings)")
	return cmd
}

func runServe(cfg *config.Config) error {
	metrics, err := telemetry.New(nil)
	if err != nil {
		return err
	}

	svc, err := worker.NewService(Version, cfg, worker.WithMetrics(metrics))
	if err != nil {
		return err
	}

	w := watchSettings()
	if w != nil {
		defer func() { _ = w.Stop() }()
	}

	if err := svc.Start(); err != nil {
		return err
	}
	log.Info().Str("addr", cfg.Addr()).Str("version", Version).Str("driver", cfg.DBDriver).Msg("sitelog started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return svc.Shutdown(ctx)
}

// watchSettings exits the process when settings.json changes so a
// supervisor restarts it with the new configuration.
func watchSettings() *watcher.Watcher {
	path := config.SettingsPath()
	w, err := watcher.New(path, func() {
		log.Warn().Str("path", path).Msg("Config file changed, exiting for restart...")
		time.Sleep(100 * time.Millisecond)
		os.Exit(0)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
		return nil
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
		return nil
	}
	log.Info().Str("path", path).Msg("Config file watcher started")
	return w
}
