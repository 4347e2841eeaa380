package client

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

func TestWriteStatus(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := writeStatus(&out, &lookout.Status{
		EngineMs:     61000,
		Active:       true,
		BaselineMode: "adaptive",
		ActivityMode: "auto",
		Alarms: []lookout.AlarmStatus{
			{Name: "forward", Enabled: true, Widest: true, IdleMs: 1500, SeenLeft: true, SeenDown: true, AppliedVolume: 50},
			{Name: "broken"},
		},
	})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "engine: active, auto, uptime 1m1s")
	require.Contains(t, text, "forward*")
	require.Contains(t, text, "L--D")
	require.Contains(t, text, "1.5s")
	require.Contains(t, text, "disabled")
}

func TestWriteStatus_Nil(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, writeStatus(&out, nil))
	require.Contains(t, out.String(), "<nil status>")
}

func TestRun_UnknownAction(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, config.Default()))

	err := Run(context.Background(), &Options{ConfigPath: path, Action: "reboot"})
	require.ErrorIs(t, err, errUnknownAction)
}

func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Action:     ActionStatus,
	})
	require.Error(t, err)
}
