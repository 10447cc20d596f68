package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"chapterqa/internal/config"
)

var (
	configPath string
	logLevel   string
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chapterqa",
		Short:        "Ask questions about textbook chapters",
		Long:         "chapterqa chunks a chapter PDF once, caches the chunks and answers questions from the most relevant passages.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml, then ~/.config/chapterqa/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(serveCmd())
	root.AddCommand(submitCmd())
	root.AddCommand(askCmd())
	root.AddCommand(quizCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(configCmd())
	return root
}

func loadConfig() (*config.AppConfig, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// setup loads config and assembles the pipeline. The caller closes the app.
func setup(ctx context.Context) (*app, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Log, logLevel)
	if err != nil {
		return nil, nil, err
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
