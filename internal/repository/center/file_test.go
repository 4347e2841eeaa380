package center

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lookout-monitor/internal/engine"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))

	ref, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, ref)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns the same center.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "center.json")
	repo := NewFileRepository(file)

	want := &Reference{
		Yaw:        -12.5,
		Pitch:      3.25,
		CapturedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, &engine.Reference{Yaw: -12.5, Pitch: 3.25}, got.Engine())

	info, err := os.Stat(file)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o600))

	_, err := NewFileRepository(broken).Load(context.Background())
	require.Error(t, err)

	partial := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(partial, []byte(`{"yaw": 4}`), 0o600))

	_, err = NewFileRepository(partial).Load(context.Background())
	require.ErrorIs(t, err, errMissingField)

	var nilRef *Reference
	require.Nil(t, nilRef.Engine())
}
