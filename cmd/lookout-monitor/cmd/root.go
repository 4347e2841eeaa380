package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/service/monitor"
	"github.com/oshokin/lookout-monitor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where the fixed center is persisted.
	stateFile string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the monitor loop.
	rootCmd = &cobra.Command{
		Use:   "lookout-monitor [control-address]",
		Short: "Track head orientation and warn when the lookout lapses.",
		Long: `Polls a head tracker and raises an audible warning when the operator has not
scanned the configured lookout area in time.

Orientation comes from OpenTrack UDP datagrams or a serial tracker. Each alarm
defines a cone the operator has to sweep left, right, up and down; a completed
sweep resets its idle timer and silences its warning for a while.

The control plane (status, recenter, activity override) listens on the address
given as argument or on the one from the configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use control address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &monitor.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				LogLevel:      logLevel,
				StateFile:     stateFile,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the lookout-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to persist the fixed center (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
