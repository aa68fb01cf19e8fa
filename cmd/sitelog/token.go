package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thebtf/sitelog/internal/auth"
	"github.com/thebtf/sitelog/internal/config"
)

func newHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Hash an API token for settings.json",
		Long: `Print a bcrypt hash for SITELOG_API_TOKEN_HASH. Without an argument a random
token is generated and printed first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				var err error
				if token, err = auth.GenerateToken(); err != nil {
					return err
				}
				fmt.Fprintf(out, "token: %s\n", token)
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", config.KeyAPITokenHash, hash)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
