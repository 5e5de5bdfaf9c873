package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hibari-ai/hibari/internal/agent"
	"github.com/hibari-ai/hibari/internal/auth"
	"github.com/hibari-ai/hibari/internal/chat"
	"github.com/hibari-ai/hibari/internal/rpc"
	"github.com/hibari-ai/hibari/internal/server"
	"github.com/hibari-ai/hibari/internal/storage"
	"github.com/hibari-ai/hibari/internal/telemetry"
	"github.com/hibari-ai/hibari/internal/tools"
	"github.com/hibari-ai/hibari/migrations"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadEnvironment()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	logger.Info("hibari starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	registry := tools.NewRegistry(tools.NewHandler(db))
	chatSvc := chat.NewService(db, agent.New(cfg, registry, logger), logger)

	srv := server.New(server.ServerConfig{
		DB:                  db,
		ChatSvc:             chatSvc,
		RPCHandler:          rpc.NewHandler(registry, logger),
		Verifier:            auth.NewVerifier(cfg, logger),
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		CORSOrigins:         cfg.CORSOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("hibari stopped")
	return nil
}
