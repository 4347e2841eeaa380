package alert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

const (
	// DefaultFallbackFile is played for alarms without an audio reference.
	DefaultFallbackFile = "beep.wav"

	filePlaceholder   = "{file}"
	volumePlaceholder = "{volume}"
)

var errEmptyCommand = errors.New("player command is empty")

// Process is a running player.
type Process interface {
	Kill() error
	Wait() error
}

// Launcher starts a player process.
type Launcher func(name string, args ...string) (Process, error)

// execProcess adapts exec.Cmd to Process.
type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

// execLauncher runs the player detached from any tick context so that a
// finished tick does not cut the sound short.
func execLauncher(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...) //nolint:gosec,noctx // The player command comes from the operator's settings.

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd}, nil
}

// playback is one alert handle. proc is nil while muted.
type playback struct {
	file   string
	volume int
	proc   Process
}

// Command plays alerts by running an external player such as ffplay or aplay.
type Command struct {
	command  string
	args     []string
	fallback string
	launch   Launcher

	mu      sync.Mutex
	next    lookout.AlertHandle
	playing map[lookout.AlertHandle]*playback
}

// CommandOption configures a Command player.
type CommandOption func(*Command)

// WithLauncher replaces process creation.
func WithLauncher(launch Launcher) CommandOption {
	return func(c *Command) {
		c.launch = launch
	}
}

// NewCommand builds a player. args may contain {file} and {volume}
// placeholders; an empty fallback selects DefaultFallbackFile.
func NewCommand(command string, args []string, fallback string, opts ...CommandOption) (*Command, error) {
	if command == "" {
		return nil, errEmptyCommand
	}

	if fallback == "" {
		fallback = DefaultFallbackFile
	}

	c := &Command{
		command:  command,
		args:     args,
		fallback: fallback,
		launch:   execLauncher,
		playing:  make(map[lookout.AlertHandle]*playback),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Start begins a new alert. A zero volume registers a muted alert without
// running the player.
func (c *Command) Start(ctx context.Context, audioRef string, volume int) (lookout.AlertHandle, error) {
	file := audioRef
	if file == "" {
		file = c.fallback
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	play := &playback{file: file, volume: volume}

	if volume > 0 {
		proc, err := c.spawn(ctx, file, volume)
		if err != nil {
			return 0, err
		}

		play.proc = proc
	}

	c.next++
	c.playing[c.next] = play

	return c.next, nil
}

// SetVolume records the volume for the next start. Zero mutes by stopping
// the player immediately.
func (c *Command) SetVolume(ctx context.Context, handle lookout.AlertHandle, volume int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	play, ok := c.playing[handle]
	if !ok {
		return nil
	}

	play.volume = volume

	if volume == 0 && play.proc != nil {
		logger.DebugKV(ctx, "Alert muted", "handle", handle)

		err := play.proc.Kill()
		play.proc = nil

		if err != nil {
			return fmt.Errorf("mute alert: %w", err)
		}
	}

	return nil
}

// Stop ends the alert and forgets the handle. Unknown handles are ignored.
func (c *Command) Stop(_ context.Context, handle lookout.AlertHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	play, ok := c.playing[handle]
	if !ok {
		return nil
	}

	delete(c.playing, handle)

	if play.proc == nil {
		return nil
	}

	if err := play.proc.Kill(); err != nil {
		return fmt.Errorf("stop alert: %w", err)
	}

	return nil
}

// Close stops every alert still registered.
func (c *Command) Close(ctx context.Context) error {
	c.mu.Lock()
	handles := make([]lookout.AlertHandle, 0, len(c.playing))

	for h := range c.playing {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	var errs []error

	for _, h := range handles {
		if err := c.Stop(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (c *Command) spawn(ctx context.Context, file string, volume int) (Process, error) {
	args := make([]string, len(c.args))

	for i, arg := range c.args {
		arg = strings.ReplaceAll(arg, filePlaceholder, file)
		args[i] = strings.ReplaceAll(arg, volumePlaceholder, strconv.Itoa(volume))
	}

	proc, err := c.launch(c.command, args...)
	if err != nil {
		return nil, fmt.Errorf("start player %s: %w", c.command, err)
	}

	logger.DebugKV(ctx, "Alert player started", "command", c.command, "file", file, "volume", volume)

	// Reap the player once it exits on its own or is killed.
	go func() {
		_ = proc.Wait()
	}()

	return proc, nil
}
