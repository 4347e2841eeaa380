package lookout

import "time"

// EventKind names an informational engine event.
type EventKind string

// Event kinds emitted by the engine.
const (
	EventLookoutSuccess       EventKind = "lookout_success"
	EventLookoutPartial       EventKind = "lookout_partial"
	EventWarningStarted       EventKind = "warning_started"
	EventWarningRepeated      EventKind = "warning_repeated"
	EventWarningRepeatSkipped EventKind = "warning_repeat_skipped"
	EventCascadeReset         EventKind = "alarm_cascade_reset"
	EventActivityStarted      EventKind = "activity_started"
	EventActivityStopped      EventKind = "activity_stopped"
	EventRecentered           EventKind = "recentered"
	EventCenterHoldReset      EventKind = "center_hold_reset"
	EventAlertFailed          EventKind = "alert_failed"
)

// NoAlarm marks events that do not belong to a single alarm.
const NoAlarm = -1

// Event is an informational notice about an engine transition.
type Event struct {
	// At is the wall-clock time of the tick that produced the event.
	At time.Time
	// EngineMs is the engine time of that tick.
	EngineMs int64
	// Kind is what happened.
	Kind EventKind
	// AlarmIndex is the position of the alarm in the configuration, or NoAlarm.
	AlarmIndex int
	// AlarmName is the alarm label, empty for engine-wide events.
	AlarmName string
	// Detail is a short human-readable elaboration.
	Detail string
}
