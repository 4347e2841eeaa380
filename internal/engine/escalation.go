package engine

import (
	"context"
	"fmt"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

// alarm is the mutable state of one configured alarm.
type alarm struct {
	index   int
	name    string
	cfg     lookout.AlarmConfig
	enabled bool

	scan scanRecord

	idleMs           int64
	warningActive    bool
	warningStartedMs int64
	repeatElapsedMs  int64
	silenceUntilMs   int64

	handle        lookout.AlertHandle
	appliedVolume int

	// deferNoticed throttles the "warning deferred" notice to once per deferral.
	deferNoticed bool

	// cascadedAtMs is the engine time of the last reset by a wider lookout.
	// The alarm is not evaluated again on that tick.
	cascadedAtMs int64
}

// rampedVolume interpolates from StartVolume to EndVolume over VolumeRampMs
// since the warning started, clamped once the ramp completes.
func (a *alarm) rampedVolume(nowMs int64) int {
	progress := 1.0

	if a.cfg.VolumeRampMs > 0 {
		progress = float64(nowMs-a.warningStartedMs) / float64(a.cfg.VolumeRampMs)
		progress = max(0, min(1, progress))
	}

	return a.cfg.StartVolume + int(progress*float64(a.cfg.EndVolume-a.cfg.StartVolume))
}

// escalate advances the IDLE/WARNING scheduler for one tick.
func (e *Engine) escalate(ctx context.Context, a *alarm, crossed bool) {
	if a.warningActive {
		e.escalateWarning(ctx, a)

		return
	}

	// A glance while the warning is being held back by silence earns a reprieve.
	if crossed && a.idleMs >= a.cfg.MaxIdleMs {
		logger.DebugKV(ctx, "Glance during deferred warning, idle timer reset",
			"alarm", a.name, "idle_ms", a.idleMs)

		a.idleMs = 0
		a.deferNoticed = false
	}

	a.idleMs += e.pollMs

	if a.idleMs < a.cfg.MaxIdleMs {
		return
	}

	if a.silenced(e.nowMs) {
		if !a.deferNoticed {
			a.deferNoticed = true

			logger.InfoKV(ctx, "Warning deferred by recent glance",
				"alarm", a.name, "silenced_for_ms", a.silenceUntilMs-e.nowMs)
		}

		return
	}

	e.startWarning(ctx, a)
}

// startWarning enters WARNING: timers restart, a fresh scan begins and the
// alert sounds at the start volume.
func (e *Engine) startWarning(ctx context.Context, a *alarm) {
	a.warningActive = true
	a.warningStartedMs = e.nowMs
	a.idleMs = 0
	a.repeatElapsedMs = 0
	a.deferNoticed = false
	a.scan.clear()

	logger.WarnKV(ctx, "Please perform a visual lookout",
		"alarm", a.name,
		"volume", a.cfg.StartVolume,
		"center_yaw", e.centerYaw,
		"center_pitch", e.centerPitch,
		"relative_yaw", e.relYaw,
		"relative_pitch", e.relPitch,
	)

	e.stopAlert(ctx, a)
	e.startAlert(ctx, a, a.cfg.StartVolume)
	e.emit(ctx, a, lookout.EventWarningStarted, fmt.Sprintf("volume %d", a.cfg.StartVolume))
}

// escalateWarning handles volume and repeats inside WARNING.
func (e *Engine) escalateWarning(ctx context.Context, a *alarm) {
	a.repeatElapsedMs += e.pollMs

	silenced := a.silenced(e.nowMs)

	target := 0
	if !silenced {
		target = a.rampedVolume(e.nowMs)
	}

	if a.handle != 0 && target != a.appliedVolume {
		e.setVolume(ctx, a, target)
	}

	if a.repeatElapsedMs < a.cfg.RepeatIntervalMs {
		return
	}

	a.repeatElapsedMs = 0

	if silenced {
		logger.DebugKV(ctx, "Repeat skipped while silenced",
			"alarm", a.name, "silenced_for_ms", a.silenceUntilMs-e.nowMs)
		e.emit(ctx, a, lookout.EventWarningRepeatSkipped, "")

		return
	}

	volume := a.rampedVolume(e.nowMs)

	logger.WarnKV(ctx, "Please perform a visual lookout (repeat)",
		"alarm", a.name,
		"volume", volume,
		"relative_yaw", e.relYaw,
		"relative_pitch", e.relPitch,
	)

	e.stopAlert(ctx, a)
	e.startAlert(ctx, a, volume)
	e.emit(ctx, a, lookout.EventWarningRepeated, fmt.Sprintf("volume %d", volume))
}

// resetAlarm returns an alarm to a clean IDLE state and stops its alert.
func (e *Engine) resetAlarm(ctx context.Context, a *alarm) {
	e.stopAlert(ctx, a)

	a.scan.clear()
	a.idleMs = 0
	a.warningActive = false
	a.warningStartedMs = 0
	a.repeatElapsedMs = 0
	a.silenceUntilMs = 0
	a.deferNoticed = false
}

// startAlert asks the alerter for a new alert. Failures leave the alarm
// without a handle; timing is unaffected.
func (e *Engine) startAlert(ctx context.Context, a *alarm, volume int) {
	if e.alerter == nil {
		return
	}

	handle, err := e.alerter.Start(ctx, a.cfg.AudioRef, volume)
	if err != nil {
		logger.WarnKV(ctx, "Alert start failed, continuing without sound",
			"alarm", a.name, "audio_ref", a.cfg.AudioRef, "error", err)
		e.emit(ctx, a, lookout.EventAlertFailed, err.Error())

		return
	}

	a.handle = handle
	a.appliedVolume = volume
}

// setVolume pushes a new volume to the playing alert. The applied volume is
// recorded even on failure so a broken device is not retried every tick.
func (e *Engine) setVolume(ctx context.Context, a *alarm, volume int) {
	if e.alerter == nil || a.handle == 0 {
		return
	}

	if err := e.alerter.SetVolume(ctx, a.handle, volume); err != nil {
		logger.WarnKV(ctx, "Alert volume change failed",
			"alarm", a.name, "volume", volume, "error", err)
	}

	a.appliedVolume = volume
}

// stopAlert releases the alarm's alert, if any.
func (e *Engine) stopAlert(ctx context.Context, a *alarm) {
	if a.handle == 0 {
		return
	}

	if e.alerter != nil {
		if err := e.alerter.Stop(ctx, a.handle); err != nil {
			logger.WarnKV(ctx, "Alert stop failed", "alarm", a.name, "error", err)
			e.emit(ctx, a, lookout.EventAlertFailed, err.Error())
		}
	}

	a.handle = 0
	a.appliedVolume = 0
}
