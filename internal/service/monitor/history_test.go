package monitor

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/repository/journal"
)

func TestRunHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	settings := config.Default()
	settings.Journal.Path = filepath.Join(dir, "journal.db")

	configPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(configPath, settings))

	j, err := journal.Open(ctx, settings.Journal.Path)
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	events := []lookout.Event{
		{At: at, Kind: lookout.EventActivityStarted, AlarmIndex: lookout.NoAlarm},
		{At: at.Add(time.Second), Kind: lookout.EventWarningStarted, AlarmIndex: 0, AlarmName: "forward", Detail: "idle 30s"},
		{At: at.Add(2 * time.Second), Kind: lookout.EventLookoutSuccess, AlarmIndex: 0, AlarmName: "forward"},
	}

	for _, e := range events {
		require.NoError(t, j.Append(ctx, e))
	}

	session := j.SessionID()
	require.NoError(t, j.Close())

	var out bytes.Buffer

	err = RunHistory(ctx, &HistoryOptions{
		ConfigPath: configPath,
		SessionID:  session,
		Summary:    true,
		Output:     &out,
	})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "idle 30s")
	require.Contains(t, text, "warning_started: 1")
	require.Contains(t, text, "lookout_success: 1")

	// Newest first.
	require.Less(t, strings.Index(text, string(lookout.EventLookoutSuccess)),
		strings.Index(text, string(lookout.EventWarningStarted)))

	out.Reset()

	err = RunHistory(ctx, &HistoryOptions{
		ConfigPath: configPath,
		Kind:       string(lookout.EventWarningStarted),
		Limit:      10,
		Output:     &out,
	})
	require.NoError(t, err)
	require.NotContains(t, out.String(), string(lookout.EventActivityStarted))
	require.NotContains(t, out.String(), "warning_started: 1")
}
