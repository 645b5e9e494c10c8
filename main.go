package main

import (
	"fmt"
	"os"
	"time"

	"nudge/config"
	"nudge/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nudge",
		Short:         "Reminder scheduling and push delivery server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadConfig()
			utils.InitializeLogger()
		},
	}
	root.AddCommand(newServeCmd(), newSweepCmd(), newAdminTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder sweep trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.AppConfig, utils.GetLogger())
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger()
			app, err := buildApp(cmd.Context(), config.AppConfig, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.sweeper.Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("sweep finished",
				zap.Bool("skipped", report.Skipped),
				zap.Int("due", report.Due),
				zap.Int("delivered", report.Delivered),
				zap.Int("advanced", report.Advanced),
				zap.Int("superseded", report.Superseded),
				zap.Int("failed", report.Failed),
				zap.Int("noTarget", report.NoTarget))
			return nil
		},
	}
}

func newAdminTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Print a signed admin token for sendBroadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := config.AppConfig.AdminJWTSecret
			if secret == "" {
				return fmt.Errorf("ADMIN_JWT_SECRET is not set")
			}
			token, err := utils.GenerateAdminToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
