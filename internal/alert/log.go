package alert

import (
	"context"
	"sync/atomic"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

// Log is a silent player that only logs what it would play.
type Log struct {
	next atomic.Uint64
}

// NewLog returns a log-only player.
func NewLog() *Log {
	return new(Log)
}

// Start logs the alert and returns a fresh handle.
func (l *Log) Start(ctx context.Context, audioRef string, volume int) (lookout.AlertHandle, error) {
	handle := lookout.AlertHandle(l.next.Add(1))

	logger.InfoKV(ctx, "Alert started", "handle", handle, "audio_ref", audioRef, "volume", volume)

	return handle, nil
}

// SetVolume logs the volume change.
func (l *Log) SetVolume(ctx context.Context, handle lookout.AlertHandle, volume int) error {
	logger.DebugKV(ctx, "Alert volume changed", "handle", handle, "volume", volume)

	return nil
}

// Stop logs the stop.
func (l *Log) Stop(ctx context.Context, handle lookout.AlertHandle) error {
	logger.DebugKV(ctx, "Alert stopped", "handle", handle)

	return nil
}
