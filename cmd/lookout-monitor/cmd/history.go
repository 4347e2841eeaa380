package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/lookout-monitor/internal/service/monitor"
)

var (
	historyOptions monitor.HistoryOptions

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recent events from the journal.",
		Long: `Prints the newest journal events first. Events can be narrowed to one monitor
run with --session and to one kind with --kind; --summary adds per-kind counts
for the selected session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			historyOptions.ConfigPath = configPath
			historyOptions.Output = cmd.OutOrStdout()

			return monitor.RunHistory(cmd.Context(), &historyOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := historyCmd.Flags()
	flags.StringVarP(&historyOptions.JournalPath, "journal", "j", "", "path to the journal database (overrides config)")
	flags.IntVarP(&historyOptions.Limit, "limit", "n", 0, "maximum number of events")
	flags.StringVar(&historyOptions.SessionID, "session", "", "restrict to one session id")
	flags.StringVar(&historyOptions.Kind, "kind", "", "restrict to one event kind")
	flags.BoolVar(&historyOptions.Summary, "summary", false, "print per-kind counts for --session")
}
