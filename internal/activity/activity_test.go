package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// fakeLister serves a mutable process table and counts scans.
type fakeLister struct {
	names []string
	err   error
	scans int
}

func (f *fakeLister) list() ([]ps.Process, error) {
	f.scans++

	if f.err != nil {
		return nil, f.err
	}

	out := make([]ps.Process, 0, len(f.names))
	for i, name := range f.names {
		out = append(out, fakeProcess{pid: i + 100, name: name})
	}

	return out, nil
}

func TestProcessGateMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		watch   []string
		running []string
		want    bool
	}{
		{name: "exact", watch: []string{"condor.exe"}, running: []string{"condor.exe"}, want: true},
		{name: "case insensitive", watch: []string{"Condor.EXE"}, running: []string{"condor.exe"}, want: true},
		{name: "suffix optional", watch: []string{"condor"}, running: []string{"Condor.exe"}, want: true},
		{name: "not running", watch: []string{"condor"}, running: []string{"bash", "sshd"}, want: false},
		{name: "substring is not a match", watch: []string{"con"}, running: []string{"condor"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lister := &fakeLister{names: tt.running}
			gate := NewProcess(tt.watch, time.Second, WithProcessLister(lister.list))

			require.Equal(t, tt.want, gate.Active(context.Background()))
		})
	}
}

func TestProcessGateCachesScans(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{names: []string{"condor.exe"}}

	gate := NewProcess([]string{"condor.exe"}, 5*time.Second,
		WithProcessLister(lister.list),
		WithClock(func() time.Time { return now }))

	require.True(t, gate.Active(ctx))

	lister.names = nil
	now = now.Add(4 * time.Second)

	require.True(t, gate.Active(ctx), "cached result")
	require.Equal(t, 1, lister.scans)

	now = now.Add(time.Second)

	require.False(t, gate.Active(ctx))
	require.Equal(t, 2, lister.scans)
}

func TestProcessGateKeepsStateOnScanFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{names: []string{"condor"}}

	gate := NewProcess([]string{"condor"}, time.Second,
		WithProcessLister(lister.list),
		WithClock(func() time.Time { return now }))

	require.True(t, gate.Active(ctx))

	lister.err = errors.New("permission denied")
	now = now.Add(2 * time.Second)

	require.True(t, gate.Active(ctx))
}

func TestOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lister := &fakeLister{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		now = now.Add(time.Minute)

		return now
	}

	gate := NewOverride(NewProcess([]string{"condor"}, time.Second,
		WithProcessLister(lister.list), WithClock(tick)))

	require.Equal(t, ModeAuto, gate.Mode())
	require.False(t, gate.Active(ctx))

	gate.Set(ModeOn)
	require.True(t, gate.Active(ctx))

	gate.Set(ModeOff)
	require.False(t, gate.Active(ctx))

	gate.Set(ModeAuto)
	lister.names = []string{"condor"}
	require.True(t, gate.Active(ctx))

	require.True(t, NewOverride(Always{}).Active(ctx))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Mode{"on": ModeOn, " OFF ": ModeOff, "Auto": ModeAuto} {
		got, err := ParseMode(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseMode("sometimes")
	require.ErrorIs(t, err, errUnknownMode)
}
