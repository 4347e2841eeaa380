package lookout

import (
	"math"
	"time"
)

// Sample is one head orientation reading in degrees.
type Sample struct {
	// Yaw is the heading, normalized into (-180, 180].
	Yaw float64
	// Pitch is the elevation, clamped into [-90, 90].
	Pitch float64
	// Timestamp is when the source received the reading.
	Timestamp time.Time
}

// NewSample builds a sample with yaw wrapped and pitch clamped.
func NewSample(yaw, pitch float64, at time.Time) Sample {
	return Sample{
		Yaw:       WrapDegrees(yaw),
		Pitch:     math.Max(-90, math.Min(90, pitch)),
		Timestamp: at,
	}
}

// WrapDegrees maps any finite angle into (-180, 180].
func WrapDegrees(deg float64) float64 {
	wrapped := math.Mod(deg, 360)

	switch {
	case wrapped > 180:
		wrapped -= 360
	case wrapped <= -180:
		wrapped += 360
	}

	return wrapped
}
