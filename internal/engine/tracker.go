package engine

import "math"

// crossing is a horizontal side of the scan. The timestamp is only reachable
// through at, which also reports whether the side was reached.
type crossing struct {
	seen bool
	atMs int64
}

// reach marks the side at nowMs. It reports true only on the false to true
// transition, which is what makes it a crossing event.
func (c *crossing) reach(nowMs int64) bool {
	if c.seen {
		return false
	}

	c.seen = true
	c.atMs = nowMs

	return true
}

// at returns the crossing time and whether the side was reached.
func (c *crossing) at() (int64, bool) {
	return c.atMs, c.seen
}

// scanRecord holds what one alarm has seen since its last reset.
// Horizontal sides are timed, vertical sides are plain flags.
type scanRecord struct {
	left  crossing
	right crossing
	up    bool
	down  bool
}

func (s *scanRecord) complete() bool {
	return s.left.seen && s.right.seen && s.up && s.down
}

// crossingGap returns |left - right| and false unless both sides were reached.
func (s *scanRecord) crossingGap() (int64, bool) {
	leftAt, leftOK := s.left.at()
	rightAt, rightOK := s.right.at()

	if !leftOK || !rightOK {
		return 0, false
	}

	gap := leftAt - rightAt
	if gap < 0 {
		gap = -gap
	}

	return gap, true
}

func (s *scanRecord) clearHorizontal() {
	s.left = crossing{}
	s.right = crossing{}
}

func (s *scanRecord) clear() {
	*s = scanRecord{}
}

// verdict is the tracker's decision for a tick.
type verdict int

const (
	verdictNone verdict = iota
	verdictSuccess
	verdictPartial
)

// observation is what the tracker reports to the engine for one tick.
type observation struct {
	// crossed is true when a horizontal side was reached this tick.
	crossed bool
	verdict verdict
	gapMs   int64
}

// observe classifies the relative angles against the alarm's thresholds,
// records crossings and evaluates a complete scan. A crossing opens or
// extends the suppression window. A PARTIAL verdict clears the horizontal
// sides here; a SUCCESS reset is left to the engine because it also stops
// the alert and may cascade.
func (a *alarm) observe(relYaw, relPitch float64, nowMs int64) observation {
	var (
		obs  observation
		half = a.cfg.HorizontalSpanDeg / 2
	)

	if relYaw < -half && a.scan.left.reach(nowMs) {
		obs.crossed = true
	}

	if relYaw > half && a.scan.right.reach(nowMs) {
		obs.crossed = true
	}

	// A non-positive vertical threshold means that direction is not required.
	if a.cfg.VerticalUpDeg <= 0 || relPitch > a.cfg.VerticalUpDeg {
		a.scan.up = true
	}

	if a.cfg.VerticalDownDeg <= 0 || relPitch < -a.cfg.VerticalDownDeg {
		a.scan.down = true
	}

	if obs.crossed {
		a.extendSilence(nowMs)
	}

	if !a.scan.complete() {
		return obs
	}

	gap, _ := a.scan.crossingGap()
	obs.gapMs = gap

	if gap >= a.cfg.MinCrossingMs {
		obs.verdict = verdictSuccess

		return obs
	}

	a.scan.clearHorizontal()
	obs.verdict = verdictPartial

	return obs
}

// extendSilence moves the suppression window forward, never backward.
func (a *alarm) extendSilence(nowMs int64) {
	a.silenceUntilMs = max(a.silenceUntilMs, nowMs+a.cfg.SilenceAfterGlanceMs)
}

func (a *alarm) silenced(nowMs int64) bool {
	return nowMs < a.silenceUntilMs
}

// withinCone reports whether both relative angles are inside a symmetric cone.
func withinCone(relYaw, relPitch, coneDeg float64) bool {
	return math.Abs(relYaw) < coneDeg && math.Abs(relPitch) < coneDeg
}
