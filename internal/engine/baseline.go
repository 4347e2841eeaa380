package engine

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

// BaselineMode selects how the forward reference is maintained.
type BaselineMode string

const (
	// BaselineAdaptive tracks a robust median over a trailing window.
	BaselineAdaptive BaselineMode = "adaptive"
	// BaselineFixed keeps one captured reference until the next recenter.
	BaselineFixed BaselineMode = "fixed"
)

// DefaultBaselineWindow is the trailing window used by the adaptive mode.
const DefaultBaselineWindow = 30 * time.Second

// Reference is a captured forward orientation.
type Reference struct {
	Yaw   float64
	Pitch float64
}

// timedSample is a window entry stamped with engine time.
type timedSample struct {
	atMs  int64
	yaw   float64
	pitch float64
}

// Baseline estimates the operator's forward orientation.
type Baseline struct {
	mode     BaselineMode
	windowMs int64
	window   []timedSample

	reference    Reference
	hasReference bool

	// lastYaw is the previous adaptive center, used to unwrap the window.
	lastYaw    float64
	hasLastYaw bool
}

// NewBaseline creates an estimator. initial seeds the fixed reference and is
// ignored in adaptive mode.
func NewBaseline(mode BaselineMode, window time.Duration, initial *Reference) *Baseline {
	if window <= 0 {
		window = DefaultBaselineWindow
	}

	b := &Baseline{
		mode:     mode,
		windowMs: window.Milliseconds(),
	}

	if mode == BaselineFixed && initial != nil {
		b.reference = *initial
		b.hasReference = true
	}

	return b
}

// Mode returns the estimator mode.
func (b *Baseline) Mode() BaselineMode {
	return b.mode
}

// Center returns the reference for the current tick. It must be called
// before Ingest so the current sample does not vote for its own center.
// An empty adaptive window, or a fixed estimator that has not captured
// anything yet, yields the current sample.
func (b *Baseline) Center(current lookout.Sample) (float64, float64) {
	if b.mode == BaselineFixed {
		if !b.hasReference {
			b.capture(current)
		}

		return b.reference.Yaw, b.reference.Pitch
	}

	if len(b.window) == 0 {
		return current.Yaw, current.Pitch
	}

	around := b.window[0].yaw
	if b.hasLastYaw {
		around = b.lastYaw
	}

	yaws := make([]float64, len(b.window))
	pitches := make([]float64, len(b.window))

	// Yaw is unwrapped around the previous center so a window straddling
	// ±180° sorts as one contiguous arc.
	for i, s := range b.window {
		yaws[i] = around + lookout.WrapDegrees(s.yaw-around)
		pitches[i] = s.pitch
	}

	b.lastYaw = lookout.WrapDegrees(interquartileMedian(yaws))
	b.hasLastYaw = true

	return b.lastYaw, interquartileMedian(pitches)
}

// Ingest adds a sample to the adaptive window and drops entries older than
// the window. Fixed estimators ignore it.
func (b *Baseline) Ingest(s lookout.Sample, nowMs int64) {
	if b.mode != BaselineAdaptive {
		return
	}

	b.window = append(b.window, timedSample{atMs: nowMs, yaw: s.Yaw, pitch: s.Pitch})

	cutoff := nowMs - b.windowMs
	drop := 0

	for drop < len(b.window) && b.window[drop].atMs <= cutoff {
		drop++
	}

	if drop > 0 {
		b.window = slices.Delete(b.window, 0, drop)
	}
}

// Recenter captures s as the fixed reference, or restarts the adaptive window.
func (b *Baseline) Recenter(s lookout.Sample) {
	if b.mode == BaselineFixed {
		b.capture(s)

		return
	}

	b.window = b.window[:0]
	b.hasLastYaw = false
}

// Reference returns the fixed reference and whether one was captured.
func (b *Baseline) Reference() (Reference, bool) {
	return b.reference, b.hasReference
}

func (b *Baseline) capture(s lookout.Sample) {
	b.reference = Reference{Yaw: s.Yaw, Pitch: s.Pitch}
	b.hasReference = true
}

// interquartileMedian sorts values, keeps the elements between the first and
// third quartile indexes inclusive and returns the median of that subset.
// An even subset yields its upper middle element.
func interquartileMedian(values []float64) float64 {
	slices.Sort(values)

	n := len(values)
	q1, q3 := n/4, (3*n)/4
	subset := values[q1 : q3+1]

	// Empirical quantiles pick the lower middle; dropping the smallest
	// element shifts that pick to the upper one.
	if len(subset)%2 == 0 {
		subset = subset[1:]
	}

	return stat.Quantile(0.5, stat.Empirical, subset, nil)
}
