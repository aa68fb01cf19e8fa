package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/thebtf/sitelog/internal/config"
	"github.com/thebtf/sitelog/internal/threads"
	"github.com/thebtf/sitelog/internal/tui"
)

// envAPIToken holds the bearer token the chat client sends.
const envAPIToken = "SITELOG_API_TOKEN"

func newChatCommand() *cobra.Command {
	var (
		server string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the site assistant in the terminal",
		Long:  `Open a terminal chat against a running sitelog server. Threads are kept locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if server == "" {
				server = cfg.ServerURL
			}
			if token == "" {
				token = os.Getenv(envAPIToken)
			}

			store := threads.NewStore(threads.NewFilePersister(config.ThreadsPath()))
			if err := store.Load(); err != nil {
				return err
			}
			return tui.Run(store, tui.NewClient(server, token))
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server base URL (default from settings)")
	cmd.Flags().StringVar(&token, "token", "", "API bearer token (default $"+envAPIToken+")")
	return cmd
}
