package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/repository/journal"
)

// HistoryOptions controls the journal listing.
type HistoryOptions struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// JournalPath overrides the configured journal database.
	JournalPath string
	// Limit caps the number of listed events.
	Limit int
	// SessionID restricts the listing to one monitor run.
	SessionID string
	// Kind restricts the listing to one event kind.
	Kind string
	// Summary appends per-kind counts for the listed session.
	Summary bool
	// Output receives the table, stdout when nil.
	Output io.Writer
}

// RunHistory prints the most recent journal events, newest first.
func RunHistory(ctx context.Context, opts *HistoryOptions) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	path := settings.Journal.Path
	if opts.JournalPath != "" {
		path = opts.JournalPath
	}

	j, err := journal.Open(ctx, path)
	if err != nil {
		return err
	}

	defer func() {
		_ = j.Close()
	}()

	entries, err := j.Recent(ctx, journal.Query{
		Limit:     opts.Limit,
		SessionID: opts.SessionID,
		Kind:      lookout.EventKind(opts.Kind),
	})
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "AT\tSESSION\tKIND\tALARM\tDETAIL")

	for _, e := range entries {
		alarm := "-"
		if e.AlarmName != "" {
			alarm = e.AlarmName
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.At.Local().Format(time.DateTime), e.SessionID, e.Kind, alarm, e.Detail)
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	if !opts.Summary || opts.SessionID == "" {
		return nil
	}

	counts, err := j.CountByKind(ctx, opts.SessionID)
	if err != nil {
		return err
	}

	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}

	slices.Sort(kinds)

	_, _ = fmt.Fprintln(out)

	for _, kind := range kinds {
		_, _ = fmt.Fprintf(out, "%s: %d\n", kind, counts[lookout.EventKind(kind)])
	}

	return nil
}
