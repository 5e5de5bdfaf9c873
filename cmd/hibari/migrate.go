package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hibari-ai/hibari/internal/storage"
	"github.com/hibari-ai/hibari/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEnvironment()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			db, err := storage.New(ctx, cfg.DatabaseURL, logger)
			if err != nil {
				return fmt.Errorf("storage: %w", err)
			}
			defer db.Close()

			if err := db.RunMigrations(ctx, migrations.FS); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}
