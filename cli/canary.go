package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatstack/intentd/engine/canary"
	"github.com/chatstack/intentd/pkg/logger"
)

func canaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canary",
		Short: "Run the canary rollout controller",
		RunE:  runCanary,
	}
}

func runCanary(cmd *cobra.Command, _ []string) error {
	ctx, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	flagAPIURL := cfg.Canary.FlagAPIURL
	if flagAPIURL == "" {
		flagAPIURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
		logger.FromContext(ctx).Info("flag api url not configured, using local gateway", "url", flagAPIURL)
	}
	adminToken := cfg.Canary.AdminToken
	if adminToken == "" {
		adminToken = cfg.Server.AdminToken
	}

	ctrl, err := canary.New(canary.Params{
		Config: cfg,
		Flags:  canary.NewFlagClient(flagAPIURL, adminToken),
	})
	if err != nil {
		return err
	}
	return ctrl.Run(ctx)
}
