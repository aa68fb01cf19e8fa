package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/thebtf/sitelog/internal/config"
	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
)

var (
	debug  bool
	pretty bool
	dbPath string
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitelog",
		Short: "Construction daily logs with a site assistant",
		Long: `sitelog records daily construction logs, tracks action items raised from them
and answers questions about the site through an OpenAI-backed assistant.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(os.Stderr, debug, pretty || isTerminal(os.Stderr))
			if err := config.LoadDotEnv(); err != nil {
				log.Warn().Err(err).Msg("Failed to load .env")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Human-readable log output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (default: ~/.sitelog/sitelog.db)")

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newExportCommand(),
		newChatCommand(),
		newHashTokenCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

func setupLogging(out io.Writer, debug, console bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if console {
		out = zerolog.ConsoleWriter{Out: out}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// loadConfig reads settings and applies the --db override.
func loadConfig() (*config.Config, error) {
	if err := config.EnsureAll(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*gormdb.Store, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return gormdb.NewStore(gormdb.Config{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		DSN:      cfg.DBDSN,
		MaxConns: cfg.MaxConns,
		LogLevel: level,
	})
}
