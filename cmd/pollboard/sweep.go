package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/pollboard/internal/app"
	"github.com/sakif/pollboard/internal/service"
)

func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete polls older than retention.max_age and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := app.OpenStore(ctx, cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			polls := service.NewPollService(store, store, store, nil, logger)
			n, err := polls.SweepExpired(ctx, cfg.Retention.MaxAge)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}

			logger.Info("sweep finished", slog.Int64("deleted", n))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired poll(s)\n", n)
			return nil
		},
	}
}
