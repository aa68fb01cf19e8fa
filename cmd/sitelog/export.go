package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
	"github.com/thebtf/sitelog/internal/export"
)

func newExportCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <log-id>",
		Short: "Export a daily log as text, CSV or a spreadsheet",
		Args:  cobra.ExactArgs(1),
		Example: `  # Print view to stdout
  sitelog export 6f1c...

  # Spreadsheet named after the log
  sitelog export 6f1c... --format xlsx -o -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			l, err := gormdb.NewLogStore(store).GetDailyLog(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if l == nil {
				return fmt.Errorf("daily log %s not found", args[0])
			}

			var w io.Writer = cmd.OutOrStdout()
			switch {
			case output == "-":
				output = export.Filename(l, f)
				fallthrough
			case output != "":
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return export.Write(w, l, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "txt", "txt, csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file; \"-\" names it after the log (default stdout)")
	return cmd
}
