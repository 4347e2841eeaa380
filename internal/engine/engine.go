package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

const (
	// DefaultPollInterval is the tick period used when none is configured.
	DefaultPollInterval = 50 * time.Millisecond

	// minRepeatIntervalMs is the shortest repeat cadence accepted as configured.
	minRepeatIntervalMs = 100
	// fallbackRepeatIntervalMs replaces repeat intervals below the minimum.
	fallbackRepeatIntervalMs = 2000

	// stateDumpEveryMs throttles the periodic debug dump.
	stateDumpEveryMs = 1000

	maxVolume = 100
)

var (
	// ErrNoAlarmsConfigured is returned when no configured alarm is enabled.
	ErrNoAlarmsConfigured = errors.New("no enabled alarms configured")

	errPollIntervalTooShort = errors.New("poll interval must be at least 1ms")
	errUnknownBaselineMode  = errors.New("unknown baseline mode")
)

// Alerter plays alerts on behalf of the engine.
type Alerter interface {
	Start(ctx context.Context, audioRef string, volume int) (lookout.AlertHandle, error)
	SetVolume(ctx context.Context, handle lookout.AlertHandle, volume int) error
	Stop(ctx context.Context, handle lookout.AlertHandle) error
}

// EventSink receives informational events. Implementations must not block
// for long: they run inside the tick.
type EventSink interface {
	Record(ctx context.Context, event lookout.Event)
}

// BaselineConfig configures the Baseline Estimator.
type BaselineConfig struct {
	Mode   BaselineMode
	Window time.Duration
	// RecenterOnActivate requests a fixed-mode recenter whenever activity starts.
	RecenterOnActivate bool
	// Initial seeds the fixed reference, typically from a persisted capture.
	Initial *Reference
}

// CenterHoldConfig configures the center-hold reset. HoldMs <= 0 disables it.
type CenterHoldConfig struct {
	WindowDeg float64
	HoldMs    int64
}

// Config is everything the engine needs at construction.
type Config struct {
	PollInterval time.Duration
	Alarms       []lookout.AlarmConfig
	Baseline     BaselineConfig
	CenterHold   CenterHoldConfig
}

// Input is what the outer loop gathered for one tick.
type Input struct {
	// Active is the activity gate signal.
	Active bool
	// Recenter is a one-shot recenter request.
	Recenter bool
	// Sample is the orientation reading, nil when tracking is unavailable.
	Sample *lookout.Sample
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithAlerter sets the alert player.
func WithAlerter(alerter Alerter) Option {
	return func(e *Engine) {
		e.alerter = alerter
	}
}

// WithEventSink sets the informational event sink.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithClock overrides the wall clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithStateDumpLogger sets the logger for the once-per-second state dump.
func WithStateDumpLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) {
		e.dumpLogger = l
	}
}

// WithRecenterHook registers a callback fired after each fixed-mode capture.
func WithRecenterHook(hook func(ctx context.Context, ref Reference)) Option {
	return func(e *Engine) {
		e.onRecenter = hook
	}
}

// centerHold tracks how long the head has rested near the center.
type centerHold struct {
	windowDeg float64
	holdMs    int64
	heldMs    int64
	fired     bool
}

// Engine is the lookout detection and escalation core. All methods are safe
// for concurrent use; state changes are serialized by one mutex.
type Engine struct {
	mu sync.Mutex

	pollMs int64
	nowMs  int64

	baseline           *Baseline
	recenterOnActivate bool
	recenterPending    bool

	alarms []*alarm
	widest int

	active bool
	closed bool
	hold   centerHold

	centerYaw, centerPitch float64
	relYaw, relPitch       float64

	lastDumpMs int64

	alerter    Alerter
	sink       EventSink
	clock      func() time.Time
	dumpLogger *zap.SugaredLogger
	onRecenter func(ctx context.Context, ref Reference)
}

// New validates cfg and builds an engine. Disabled alarms are kept for
// status reporting but never evaluated.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	poll := cfg.PollInterval
	if poll == 0 {
		poll = DefaultPollInterval
	}

	if poll < time.Millisecond {
		return nil, errPollIntervalTooShort
	}

	mode := cfg.Baseline.Mode
	if mode == "" {
		mode = BaselineAdaptive
	}

	if mode != BaselineAdaptive && mode != BaselineFixed {
		return nil, fmt.Errorf("%w: %q", errUnknownBaselineMode, mode)
	}

	e := &Engine{
		pollMs:             poll.Milliseconds(),
		baseline:           NewBaseline(mode, cfg.Baseline.Window, cfg.Baseline.Initial),
		recenterOnActivate: cfg.Baseline.RecenterOnActivate && mode == BaselineFixed,
		alarms:             make([]*alarm, 0, len(cfg.Alarms)),
		widest:             -1,
		hold: centerHold{
			windowDeg: cfg.CenterHold.WindowDeg,
			holdMs:    cfg.CenterHold.HoldMs,
		},
		clock: time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	for i := range cfg.Alarms {
		a := newAlarm(ctx, i, cfg.Alarms[i])
		e.alarms = append(e.alarms, a)

		if !a.enabled {
			continue
		}

		if e.widest < 0 || a.cfg.HorizontalSpanDeg > e.alarms[e.widest].cfg.HorizontalSpanDeg {
			e.widest = i
		}
	}

	if e.widest < 0 {
		return nil, ErrNoAlarmsConfigured
	}

	logger.InfoKV(ctx, "Lookout engine ready",
		"alarms", len(e.alarms),
		"widest", e.alarms[e.widest].name,
		"baseline", mode,
		"poll_ms", e.pollMs,
	)

	return e, nil
}

// newAlarm normalizes one alarm configuration and builds its state.
func newAlarm(ctx context.Context, index int, cfg lookout.AlarmConfig) *alarm {
	a := &alarm{
		index:   index,
		name:    cfg.Label(index),
		cfg:     cfg,
		enabled: cfg.Enabled(),
	}

	if !a.enabled {
		logger.WarnKV(ctx, "Alarm disabled by non-positive spans",
			"alarm", a.name,
			"horizontal_span_deg", cfg.HorizontalSpanDeg,
			"vertical_up_deg", cfg.VerticalUpDeg,
			"vertical_down_deg", cfg.VerticalDownDeg,
		)

		return a
	}

	if a.cfg.RepeatIntervalMs < minRepeatIntervalMs {
		logger.WarnKV(ctx, "Repeat interval too short, using fallback",
			"alarm", a.name,
			"configured_ms", a.cfg.RepeatIntervalMs,
			"fallback_ms", fallbackRepeatIntervalMs,
		)

		a.cfg.RepeatIntervalMs = fallbackRepeatIntervalMs
	}

	a.cfg.StartVolume = max(0, min(maxVolume, a.cfg.StartVolume))
	a.cfg.EndVolume = max(0, min(maxVolume, a.cfg.EndVolume))

	return a
}

// Tick runs one evaluation pass.
func (e *Engine) Tick(ctx context.Context, in Input) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	e.nowMs += e.pollMs

	if in.Recenter {
		e.recenterPending = true
	}

	if !in.Active {
		if e.active {
			e.deactivate(ctx)
		}

		return
	}

	if !e.active {
		e.activate(ctx)
	}

	// Tracking lost: nothing is detected and no timer advances.
	if in.Sample == nil {
		return
	}

	sample := *in.Sample

	if e.recenterPending {
		e.recenterPending = false
		e.recenter(ctx, sample)
	}

	e.centerYaw, e.centerPitch = e.baseline.Center(sample)
	e.baseline.Ingest(sample, e.nowMs)

	e.relYaw = lookout.WrapDegrees(sample.Yaw - e.centerYaw)
	e.relPitch = lookout.WrapDegrees(sample.Pitch - e.centerPitch)

	e.checkCenterHold(ctx)

	for _, a := range e.alarms {
		if !a.enabled || a.cascadedAtMs == e.nowMs {
			continue
		}

		e.evaluate(ctx, a)
	}

	e.dumpState(ctx)
}

// evaluate runs tracker, cascade and scheduler for one alarm.
func (e *Engine) evaluate(ctx context.Context, a *alarm) {
	obs := a.observe(e.relYaw, e.relPitch, e.nowMs)

	if obs.crossed {
		logger.DebugKV(ctx, "Horizontal crossing",
			"alarm", a.name,
			"relative_yaw", e.relYaw,
			"silenced_for_ms", a.silenceUntilMs-e.nowMs,
		)
	}

	switch obs.verdict {
	case verdictSuccess:
		e.resetAlarm(ctx, a)

		logger.InfoKV(ctx, "Lookout completed", "alarm", a.name, "crossing_gap_ms", obs.gapMs)
		e.emit(ctx, a, lookout.EventLookoutSuccess, fmt.Sprintf("crossing gap %d ms", obs.gapMs))

		if a.index == e.widest {
			e.cascade(ctx, a)
		}

		return
	case verdictPartial:
		logger.InfoKV(ctx, "Lookout not counted, left and right too close together",
			"alarm", a.name,
			"crossing_gap_ms", obs.gapMs,
			"min_crossing_ms", a.cfg.MinCrossingMs,
		)
		e.emit(ctx, a, lookout.EventLookoutPartial,
			fmt.Sprintf("crossing gap %d ms < %d ms", obs.gapMs, a.cfg.MinCrossingMs))
	case verdictNone:
	}

	e.escalate(ctx, a, obs.crossed)
}

// cascade resets every enabled alarm narrower than the widest one.
func (e *Engine) cascade(ctx context.Context, widest *alarm) {
	for _, a := range e.alarms {
		if a == widest || !a.enabled || a.cfg.HorizontalSpanDeg >= widest.cfg.HorizontalSpanDeg {
			continue
		}

		e.resetAlarm(ctx, a)
		a.cascadedAtMs = e.nowMs

		logger.InfoKV(ctx, "Narrower alarm reset by wide lookout", "alarm", a.name, "by", widest.name)
		e.emit(ctx, a, lookout.EventCascadeReset, "reset by "+widest.name)
	}
}

// activate starts a clean evaluation after the activity gate opens.
func (e *Engine) activate(ctx context.Context) {
	e.active = true
	e.resetAll(ctx)

	if e.recenterOnActivate {
		e.recenterPending = true
	}

	logger.Info(ctx, "Activity started, lookout monitoring resumed")
	e.emit(ctx, nil, lookout.EventActivityStarted, "")
}

// deactivate forces every alarm to IDLE and silences all alerts.
func (e *Engine) deactivate(ctx context.Context) {
	e.active = false
	e.resetAll(ctx)

	logger.Info(ctx, "Activity stopped, lookout monitoring suspended")
	e.emit(ctx, nil, lookout.EventActivityStopped, "")
}

// recenter captures a new reference and fully resets every alarm.
func (e *Engine) recenter(ctx context.Context, sample lookout.Sample) {
	e.baseline.Recenter(sample)
	e.resetAll(ctx)

	logger.InfoKV(ctx, "Baseline recentered",
		"mode", e.baseline.Mode(), "yaw", sample.Yaw, "pitch", sample.Pitch)
	e.emit(ctx, nil, lookout.EventRecentered,
		fmt.Sprintf("yaw %.1f pitch %.1f", sample.Yaw, sample.Pitch))

	if ref, ok := e.baseline.Reference(); ok && e.onRecenter != nil && e.baseline.Mode() == BaselineFixed {
		e.onRecenter(ctx, ref)
	}
}

func (e *Engine) resetAll(ctx context.Context) {
	for _, a := range e.alarms {
		e.resetAlarm(ctx, a)
	}

	e.hold.heldMs = 0
	e.hold.fired = false
}

// checkCenterHold clears every alarm's scan flags once the head has rested
// near the center for the configured time.
func (e *Engine) checkCenterHold(ctx context.Context) {
	h := &e.hold
	if h.holdMs <= 0 {
		return
	}

	if !withinCone(e.relYaw, e.relPitch, h.windowDeg) {
		h.heldMs = 0
		h.fired = false

		return
	}

	h.heldMs += e.pollMs
	if h.fired || h.heldMs < h.holdMs {
		return
	}

	h.fired = true

	for _, a := range e.alarms {
		a.scan.clear()
	}

	logger.DebugKV(ctx, "Center held, scan flags cleared", "held_ms", h.heldMs)
	e.emit(ctx, nil, lookout.EventCenterHoldReset, fmt.Sprintf("held %d ms", h.heldMs))
}

// Close stops every playing alert. Further ticks are ignored.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	e.closed = true

	for _, a := range e.alarms {
		e.stopAlert(ctx, a)
	}

	logger.Info(ctx, "Lookout engine stopped, alerts released")
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() lookout.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := lookout.Status{
		EngineMs:      e.nowMs,
		Active:        e.active,
		CenterYaw:     e.centerYaw,
		CenterPitch:   e.centerPitch,
		RelativeYaw:   e.relYaw,
		RelativePitch: e.relPitch,
		BaselineMode:  string(e.baseline.Mode()),
		Alarms:        make([]lookout.AlarmStatus, 0, len(e.alarms)),
	}

	for _, a := range e.alarms {
		st.Alarms = append(st.Alarms, lookout.AlarmStatus{
			Index:         a.index,
			Name:          a.name,
			Enabled:       a.enabled,
			Widest:        a.index == e.widest,
			IdleMs:        a.idleMs,
			SeenLeft:      a.scan.left.seen,
			SeenRight:     a.scan.right.seen,
			SeenUp:        a.scan.up,
			SeenDown:      a.scan.down,
			WarningActive: a.warningActive,
			SilencedForMs: max(0, a.silenceUntilMs-e.nowMs),
			AlertPlaying:  a.handle != 0,
			AppliedVolume: a.appliedVolume,
		})
	}

	return st
}

// dumpState logs every alarm once per second of engine time.
func (e *Engine) dumpState(ctx context.Context) {
	if e.nowMs-e.lastDumpMs < stateDumpEveryMs {
		return
	}

	e.lastDumpMs = e.nowMs

	l := e.dumpLogger
	if l == nil {
		l = logger.FromContext(ctx)
	}

	for _, a := range e.alarms {
		if !a.enabled {
			continue
		}

		l.Debugw("Alarm state",
			"alarm", a.name,
			"relative_yaw", e.relYaw,
			"relative_pitch", e.relPitch,
			"center_yaw", e.centerYaw,
			"center_pitch", e.centerPitch,
			"left", a.scan.left.seen,
			"right", a.scan.right.seen,
			"up", a.scan.up,
			"down", a.scan.down,
			"idle_ms", a.idleMs,
			"warning", a.warningActive,
			"silenced_for_ms", max(0, a.silenceUntilMs-e.nowMs),
		)
	}
}

// emit forwards an event to the sink. a may be nil for engine-wide events.
func (e *Engine) emit(ctx context.Context, a *alarm, kind lookout.EventKind, detail string) {
	if e.sink == nil {
		return
	}

	event := lookout.Event{
		At:         e.clock(),
		EngineMs:   e.nowMs,
		Kind:       kind,
		AlarmIndex: lookout.NoAlarm,
		Detail:     detail,
	}

	if a != nil {
		event.AlarmIndex = a.index
		event.AlarmName = a.name
	}

	e.sink.Record(ctx, event)
}
