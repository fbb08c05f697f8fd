package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"EngagementSync/internal/app"
	"EngagementSync/internal/config"
	"EngagementSync/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// exitCode is set by commands whose outcome is not a plain error.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:           "engagementsync",
	Short:         "engagementsync keeps local snapshots of article and post engagement up to date.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config (defaults to $ENGAGEMENT_SYNC_CONFIG).")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides the configured log level.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Overrides the configured log format (text or json).")
}

// ExecuteContext runs the CLI and returns the process exit status.
func ExecuteContext(ctx context.Context) int {
	exitCode = 0
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format), nil
}

func newApplication(ctx context.Context) (*app.Application, *slog.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, logger, nil
}
