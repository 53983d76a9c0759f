package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nfrund/refbot/internal/app"
	"github.com/nfrund/refbot/internal/config"
	"github.com/nfrund/refbot/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the referee bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogFormat)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
