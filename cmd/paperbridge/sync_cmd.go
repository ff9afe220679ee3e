package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paperbridge/paperbridge/internal/bridge"
	"github.com/paperbridge/paperbridge/internal/bridge/config"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass in each direction and exit",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			setupLogging(cfg)

			b, err := bridge.New(cfg)
			if err != nil {
				return err
			}
			if err := b.RunOnce(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("sync", "error", err)
				return err
			}
			return nil
		},
	}
}
