package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/lookout-monitor/internal/logger"
)

// DefaultCheckInterval is how long a process scan result is reused.
const DefaultCheckInterval = 5 * time.Second

// errUnknownMode is returned for override modes other than on, off and auto.
var errUnknownMode = errors.New("unknown activity mode")

// Gate reports whether the monitored activity is in progress.
type Gate interface {
	Active(ctx context.Context) bool
}

// Always is a gate that is permanently active.
type Always struct{}

// Active always returns true.
func (Always) Active(context.Context) bool {
	return true
}

// ProcessLister enumerates running processes.
type ProcessLister func() ([]ps.Process, error)

// Process is active while any of the named executables is running.
type Process struct {
	names    map[string]struct{}
	interval time.Duration
	list     ProcessLister
	now      func() time.Time

	mu        sync.Mutex
	checked   bool
	checkedAt time.Time
	active    bool
	matched   string
}

// ProcessOption configures a Process gate.
type ProcessOption func(*Process)

// WithProcessLister replaces the operating system process table.
func WithProcessLister(list ProcessLister) ProcessOption {
	return func(p *Process) {
		p.list = list
	}
}

// WithClock overrides the clock used for result caching.
func WithClock(now func() time.Time) ProcessOption {
	return func(p *Process) {
		p.now = now
	}
}

// NewProcess builds a gate watching for names. Matching ignores case and an
// optional ".exe" suffix.
func NewProcess(names []string, interval time.Duration, opts ...ProcessOption) *Process {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	p := &Process{
		names:    make(map[string]struct{}, len(names)),
		interval: interval,
		list:     ps.Processes,
		now:      time.Now,
	}

	for _, name := range names {
		p.names[normalizeExecutable(name)] = struct{}{}
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Active scans the process table at most once per check interval. A failed
// scan keeps the previous answer.
func (p *Process) Active(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.checked && now.Sub(p.checkedAt) < p.interval {
		return p.active
	}

	p.checked = true
	p.checkedAt = now

	processes, err := p.list()
	if err != nil {
		logger.WarnKV(ctx, "Process scan failed, keeping previous activity state",
			"active", p.active, "error", err)

		return p.active
	}

	active, matched := false, ""

	for _, process := range processes {
		if _, ok := p.names[normalizeExecutable(process.Executable())]; ok {
			active, matched = true, process.Executable()

			break
		}
	}

	if active != p.active {
		logger.InfoKV(ctx, "Monitored process state changed", "active", active, "process", matched)
	}

	p.active = active
	p.matched = matched

	return active
}

func normalizeExecutable(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".exe")
}

// Mode is a manual override of the activity gate.
type Mode string

const (
	// ModeAuto defers to the underlying gate.
	ModeAuto Mode = "auto"
	// ModeOn forces the gate active.
	ModeOn Mode = "on"
	// ModeOff forces the gate inactive.
	ModeOff Mode = "off"
)

// ParseMode converts user input to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeOn, ModeOff:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownMode, s)
	}
}

// Override layers a manual on/off switch over another gate.
type Override struct {
	inner Gate

	mu   sync.RWMutex
	mode Mode
}

// NewOverride wraps inner in auto mode.
func NewOverride(inner Gate) *Override {
	return &Override{
		inner: inner,
		mode:  ModeAuto,
	}
}

// Set switches the override mode.
func (o *Override) Set(mode Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.mode = mode
}

// Mode returns the current override mode.
func (o *Override) Mode() Mode {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.mode
}

// Active applies the override, falling through to the inner gate in auto mode.
func (o *Override) Active(ctx context.Context) bool {
	switch o.Mode() {
	case ModeOn:
		return true
	case ModeOff:
		return false
	case ModeAuto:
	}

	return o.inner.Active(ctx)
}
