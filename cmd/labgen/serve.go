package main

import (
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labgen/internal/application"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var (
		envFile string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web form and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Overload(envFile); err != nil {
					return err
				}
			}
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "load environment variables from this file first")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides SERVER_PORT)")
	return cmd
}
