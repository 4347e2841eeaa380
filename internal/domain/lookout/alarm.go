package lookout

import "fmt"

// AlarmConfig describes one lookout alarm. It is immutable for the run.
type AlarmConfig struct {
	// Name labels the alarm in logs, events and status.
	Name string `yaml:"name"`
	// HorizontalSpanDeg is the total left-to-right sweep; each side needs half of it.
	HorizontalSpanDeg float64 `yaml:"horizontal_span_deg"`
	// VerticalUpDeg is how far above center counts as an up glance.
	VerticalUpDeg float64 `yaml:"vertical_up_deg"`
	// VerticalDownDeg is how far below center counts as a down glance.
	VerticalDownDeg float64 `yaml:"vertical_down_deg"`
	// MaxIdleMs is the time without a completed lookout before warning.
	MaxIdleMs int64 `yaml:"max_idle_ms"`
	// MinCrossingMs is the minimum gap between the left and right crossings.
	MinCrossingMs int64 `yaml:"min_crossing_ms"`
	// SilenceAfterGlanceMs mutes or defers alerts after a horizontal crossing.
	SilenceAfterGlanceMs int64 `yaml:"silence_after_glance_ms"`
	// RepeatIntervalMs is the cadence of repeated alerts while warning.
	RepeatIntervalMs int64 `yaml:"repeat_interval_ms"`
	// StartVolume is the alert volume when a warning starts, 0..100.
	StartVolume int `yaml:"start_volume"`
	// EndVolume is the alert volume once the ramp completes, 0..100.
	EndVolume int `yaml:"end_volume"`
	// VolumeRampMs is how long the ramp from StartVolume to EndVolume takes.
	VolumeRampMs int64 `yaml:"volume_ramp_ms"`
	// AudioRef identifies the sound to play; empty selects the default beep.
	AudioRef string `yaml:"audio_ref"`
}

// Enabled reports whether the alarm takes part in evaluation.
// A non-positive horizontal span, or both vertical spans non-positive,
// disables it.
func (c *AlarmConfig) Enabled() bool {
	if c.HorizontalSpanDeg <= 0 {
		return false
	}

	return c.VerticalUpDeg > 0 || c.VerticalDownDeg > 0
}

// Label returns the configured name or a positional fallback.
func (c *AlarmConfig) Label(index int) string {
	if c.Name != "" {
		return c.Name
	}

	return fmt.Sprintf("alarm-%d", index)
}

// AlertHandle references one playing alert. The zero value means none.
type AlertHandle uint64
