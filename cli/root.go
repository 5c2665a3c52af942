// Package cli defines the intentd command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chatstack/intentd/pkg/config"
	"github.com/chatstack/intentd/pkg/logger"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "intentd",
		Short:        "Intent classification gateway and canary rollout controller",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	cmd.PersistentFlags().Bool("log-source", false, "include source locations in log output")
	cmd.AddCommand(serveCmd(), canaryCmd(), versionCmd())
	return cmd
}

// loadConfig builds the runtime configuration, applies log flag
// overrides and returns a context carrying the configured logger.
func loadConfig(cmd *cobra.Command) (context.Context, *config.Config, error) {
	ctx := cmd.Context()
	cfg, err := config.NewService().Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	applyLogFlags(cmd, cfg)

	logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Source)
	lcfg := logger.DefaultConfig()
	lcfg.Level = logger.LogLevel(cfg.Log.Level)
	lcfg.JSON = cfg.Log.JSON
	lcfg.AddSource = cfg.Log.Source
	return logger.ContextWithLogger(ctx, logger.NewLogger(lcfg)), cfg, nil
}

func applyLogFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("log-source") {
		cfg.Log.Source, _ = flags.GetBool("log-source")
	}
}
