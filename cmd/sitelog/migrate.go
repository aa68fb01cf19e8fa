package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
)

func newMigrateCommand() *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
		Example: `  # Apply pending migrations
  sitelog migrate

  # Revert the most recent migration
  sitelog migrate --rollback`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if rollback {
				if err := store.RollbackLast(); err != nil {
					return fmt.Errorf("rollback: %w", err)
				}
				log.Info().Msg("Rolled back last migration")
				return nil
			}

			for _, id := range gormdb.MigrationIDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			log.Info().Str("driver", store.Dialect()).Msg("Schema is up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "Revert the most recent migration")
	return cmd
}
