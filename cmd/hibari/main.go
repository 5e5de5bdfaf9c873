// Package main is the entry point for the hibari server binary.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hibari-ai/hibari/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "hibari",
	Short: "Task-manager chat service",
	Long: `hibari is an LLM-backed task manager. It serves a chat API that turns
natural-language messages into task operations, and a JSON-RPC tool
endpoint that executes those operations against Postgres.

Quick start:
  hibari migrate    Apply database migrations
  hibari serve      Start the HTTP server`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadEnvironment reads .env if present and loads validated configuration.
func loadEnvironment() (config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process-wide JSON logger.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hibari version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hibari %s\n", version)
		},
	}
}
