package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/service/client"
	"github.com/oshokin/lookout-monitor/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// address overrides the control address from config.
	address string

	// rootCmd groups the control-plane subcommands.
	rootCmd = &cobra.Command{
		Use:   "lookout-ctl",
		Short: "Query and steer a running lookout-monitor.",
		Long: `Talks to the control plane of a running lookout-monitor.

The control address is read from the configuration file unless --address is set.
Recenter and activity requests carry the current user and hostname for the log.`,
		SilenceUsage: true,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the engine snapshot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.ActionStatus, "")
		},
	}

	recenterCmd = &cobra.Command{
		Use:   "recenter",
		Short: "Capture the current head orientation as forward.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.ActionRecenter, "")
		},
	}

	activityCmd = &cobra.Command{
		Use:       "activity on|off|auto",
		Short:     "Force the monitor active or inactive, or return to the configured gate.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(activity.ModeOn), string(activity.ModeOff), string(activity.ModeAuto)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := activity.ParseMode(args[0])
			if err != nil {
				return err
			}

			return run(cmd, client.ActionActivity, mode)
		},
	}
)

func run(cmd *cobra.Command, action client.Action, mode activity.Mode) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, &client.Options{
		ConfigPath: cfgPath,
		Address:    address,
		Action:     action,
		Mode:       mode,
		Output:     cmd.OutOrStdout(),
	})
}

// Execute runs the lookout-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(statusCmd, recenterCmd, activityCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&address, "address", "a", "", "control address (overrides config)")
}
