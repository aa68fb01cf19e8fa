package main

import (
	"fmt"

	"github.com/spf13/cobra"

	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
	"github.com/thebtf/sitelog/internal/seed"
)

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load projects, crews and subcontractors from a YAML catalog",
		Long: `Create every catalog entry whose name is not already present. Without --file
the settings value is used, then the built-in sample catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.SeedFile
			}
			catalog, err := seed.Load(file)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := seed.Apply(cmd.Context(), gormdb.NewCatalogStore(store), catalog)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d projects, %d crews (%d members), %d subcontractors\n",
				res.Projects, res.Crews, res.CrewMembers, res.Subcontractors)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalog YAML file")
	return cmd
}
