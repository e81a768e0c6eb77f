package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adichiru/jenkins-auto-update/internal/config"
	"github.com/adichiru/jenkins-auto-update/internal/logger"
	"github.com/adichiru/jenkins-auto-update/internal/service/rollback"
	"github.com/adichiru/jenkins-auto-update/internal/service/update"
	"github.com/adichiru/jenkins-auto-update/internal/version"
)

// errNoCommand makes a bare invocation exit non-zero after printing usage.
var errNoCommand = errors.New("a command is required")

var (
	// configPath to the configuration YAML file.
	configPath string

	// logLevel is the console logger verbosity.
	logLevel string

	// rootCmd represents the base command for package orchestration.
	rootCmd = &cobra.Command{
		Use:   "jenkins-updater",
		Short: "Update or roll back the Jenkins package on this host",
		Long: "jenkins-updater drives the host package manager to upgrade or roll back " +
			"the Jenkins package, controlling the systemd unit around the operation and " +
			"appending every step to a run record file.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errNoCommand
		},
	}

	// updateCmd runs the update workflow.
	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Upgrade the package when a new candidate version is available",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return update.Run(ctx, &update.Options{
				ConfigPath: configPath,
			})
		},
	}

	// rollbackCmd runs the rollback workflow for an explicit version.
	rollbackCmd = &cobra.Command{
		Use:   "rollback <version>",
		Short: "Roll the package back to the given version",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return rollback.Run(ctx, &rollback.Options{
				ConfigPath: configPath,
				Version:    args[0],
			})
		},
	}
)

// Execute runs the jenkins-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l",
		"info", "console log level (debug, info, warn, error, fatal)")

	rootCmd.AddCommand(updateCmd, rollbackCmd)
}
