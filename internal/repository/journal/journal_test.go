package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

func openTestJournal(t *testing.T, path string) *Journal {
	t.Helper()

	j, err := Open(context.Background(), path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = j.Close() })

	return j
}

func TestRecordRecentRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := openTestJournal(t, filepath.Join(t.TempDir(), "journal.db"))

	_, err := uuid.Parse(j.SessionID())
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	j.Record(ctx, lookout.Event{
		At: at, EngineMs: 2000, Kind: lookout.EventWarningStarted,
		AlarmIndex: 0, AlarmName: "forward", Detail: "volume 50",
	})
	j.Record(ctx, lookout.Event{
		At: at.Add(time.Second), EngineMs: 3000, Kind: lookout.EventActivityStopped,
		AlarmIndex: lookout.NoAlarm,
	})

	entries, err := j.Recent(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, lookout.EventActivityStopped, entries[0].Kind)
	require.Equal(t, lookout.NoAlarm, entries[0].AlarmIndex)

	first := entries[1]
	require.Equal(t, j.SessionID(), first.SessionID)
	require.Equal(t, lookout.EventWarningStarted, first.Kind)
	require.Equal(t, "forward", first.AlarmName)
	require.Equal(t, "volume 50", first.Detail)
	require.Equal(t, int64(2000), first.EngineMs)
	require.True(t, at.Equal(first.At))

	filtered, err := j.Recent(ctx, Query{Kind: lookout.EventWarningStarted, Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
}

func TestSessionsAreSeparate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	first := openTestJournal(t, path)
	first.Record(ctx, lookout.Event{At: time.Now(), Kind: lookout.EventLookoutSuccess})
	first.Record(ctx, lookout.Event{At: time.Now(), Kind: lookout.EventLookoutSuccess})
	require.NoError(t, first.Close())

	second := openTestJournal(t, path)
	require.NotEqual(t, first.SessionID(), second.SessionID())

	second.Record(ctx, lookout.Event{At: time.Now(), Kind: lookout.EventLookoutPartial})

	counts, err := second.CountByKind(ctx, first.SessionID())
	require.NoError(t, err)
	require.Equal(t, map[lookout.EventKind]int{lookout.EventLookoutSuccess: 2}, counts)

	entries, err := second.Recent(ctx, Query{SessionID: second.SessionID()})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	all, err := second.Recent(ctx, Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestClosedJournal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := openTestJournal(t, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	require.ErrorIs(t, j.Append(ctx, lookout.Event{}), errJournalClosed)

	_, err := j.Recent(ctx, Query{})
	require.ErrorIs(t, err, errJournalClosed)

	// Record swallows the error.
	j.Record(ctx, lookout.Event{})
}
