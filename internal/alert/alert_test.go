package alert

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

// fakeProcess records kills and blocks Wait until killed.
type fakeProcess struct {
	once   sync.Once
	killed chan struct{}
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{killed: make(chan struct{})}
}

func (p *fakeProcess) Kill() error {
	p.once.Do(func() { close(p.killed) })

	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.killed

	return nil
}

func (p *fakeProcess) isKilled() bool {
	select {
	case <-p.killed:
		return true
	default:
		return false
	}
}

// fakeLauncher records launches.
type fakeLauncher struct {
	mu    sync.Mutex
	err   error
	runs  [][]string
	procs []*fakeProcess
}

func (f *fakeLauncher) launch(name string, args ...string) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.runs = append(f.runs, append([]string{name}, args...))
	proc := newFakeProcess()
	f.procs = append(f.procs, proc)

	return proc, nil
}

func newTestCommand(t *testing.T) (*Command, *fakeLauncher) {
	t.Helper()

	launcher := new(fakeLauncher)

	c, err := NewCommand("ffplay", []string{"-volume", "{volume}", "{file}"}, "", WithLauncher(launcher.launch))
	require.NoError(t, err)

	return c, launcher
}

func TestCommandSubstitutesPlaceholders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, launcher := newTestCommand(t)

	h1, err := c.Start(ctx, "", 40)
	require.NoError(t, err)

	h2, err := c.Start(ctx, "sounds/horn.wav", 100)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
	require.NotZero(t, h1)

	require.Equal(t, [][]string{
		{"ffplay", "-volume", "40", DefaultFallbackFile},
		{"ffplay", "-volume", "100", "sounds/horn.wav"},
	}, launcher.runs)
}

func TestCommandMuteAndStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, launcher := newTestCommand(t)

	h, err := c.Start(ctx, "beep.wav", 50)
	require.NoError(t, err)

	require.NoError(t, c.SetVolume(ctx, h, 70))
	require.False(t, launcher.procs[0].isKilled(), "non-zero volume keeps playing")

	require.NoError(t, c.SetVolume(ctx, h, 0))
	require.True(t, launcher.procs[0].isKilled())

	require.NoError(t, c.Stop(ctx, h))
	require.NoError(t, c.Stop(ctx, h), "unknown handles are ignored")
	require.NoError(t, c.SetVolume(ctx, h, 10))
}

func TestCommandZeroVolumeStartIsSilent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, launcher := newTestCommand(t)

	h, err := c.Start(ctx, "beep.wav", 0)
	require.NoError(t, err)
	require.NotZero(t, h)
	require.Empty(t, launcher.runs)
	require.NoError(t, c.Stop(ctx, h))
}

func TestCommandStartFailure(t *testing.T) {
	t.Parallel()

	c, launcher := newTestCommand(t)
	launcher.err = errors.New("executable file not found")

	h, err := c.Start(context.Background(), "beep.wav", 50)
	require.Error(t, err)
	require.Equal(t, lookout.AlertHandle(0), h)
}

func TestCommandCloseStopsAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, launcher := newTestCommand(t)

	for range 3 {
		_, err := c.Start(ctx, "beep.wav", 30)
		require.NoError(t, err)
	}

	require.NoError(t, c.Close(ctx))

	for _, p := range launcher.procs {
		require.True(t, p.isKilled())
	}
}

func TestNewCommandRequiresExecutable(t *testing.T) {
	t.Parallel()

	_, err := NewCommand("", nil, "")
	require.ErrorIs(t, err, errEmptyCommand)
}

func TestLogPlayer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewLog()

	h1, err := l.Start(ctx, "beep.wav", 10)
	require.NoError(t, err)

	h2, err := l.Start(ctx, "beep.wav", 10)
	require.NoError(t, err)
	require.Greater(t, h2, h1)

	require.NoError(t, l.SetVolume(ctx, h1, 0))
	require.NoError(t, l.Stop(ctx, h1))
}
