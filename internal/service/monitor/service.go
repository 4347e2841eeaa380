package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/engine"
	"github.com/oshokin/lookout-monitor/internal/logger"
	"github.com/oshokin/lookout-monitor/internal/repository/center"
	"github.com/oshokin/lookout-monitor/internal/sensor"
)

// service glues the control plane and the polling loop to the engine.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// engine is the lookout core, set once construction succeeds.
	engine *engine.Engine
	// gate is the activity gate with its manual override.
	gate *activity.Override
	// centers persists fixed-mode captures.
	centers center.Repository
	// recenter is the one-shot recenter request consumed by the next tick.
	recenter atomic.Bool
	// tracking remembers whether the last active tick had a sample.
	tracking bool
	// now stamps saved centers.
	now func() time.Time
}

func newService(centers center.Repository, gate *activity.Override) *service {
	return &service{
		gate:     gate,
		centers:  centers,
		tracking: true,
		now:      time.Now,
	}
}

// loop ticks the engine every period until ctx is canceled.
func (s *service) loop(ctx context.Context, source sensor.Source, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, stopping lookout monitor")

			return
		case <-ticker.C:
			s.tick(ctx, source)
		}
	}
}

// tick gathers one engine input and feeds it to the engine.
func (s *service) tick(ctx context.Context, source sensor.Source) {
	in := engine.Input{
		Active:   s.gate.Active(ctx),
		Recenter: s.recenter.Swap(false),
	}

	sample, err := source.Poll(ctx)

	switch {
	case err == nil:
		in.Sample = &sample
	case errors.Is(err, sensor.ErrUnavailable):
	default:
		logger.WarnKV(ctx, "Orientation poll failed", "error", err)
	}

	if in.Active {
		s.noteTracking(ctx, in.Sample != nil)
	}

	s.engine.Tick(ctx, in)
}

// noteTracking logs tracking loss and recovery once per transition.
func (s *service) noteTracking(ctx context.Context, ok bool) {
	if ok == s.tracking {
		return
	}

	s.tracking = ok

	if ok {
		logger.Info(ctx, "Head tracking restored")

		return
	}

	logger.Warn(ctx, "Head tracking lost, lookout timers paused")
}

// Status returns the engine snapshot with the override mode filled in.
func (s *service) Status(_ context.Context) lookout.Status {
	st := s.engine.Status()
	st.ActivityMode = string(s.gate.Mode())

	return st
}

// RequestRecenter schedules a recenter on the next tick.
func (s *service) RequestRecenter(ctx context.Context, actor *lookout.Actor) error {
	s.recenter.Store(true)

	logger.InfoKV(ctx, "Recenter requested", "actor", actor.String())

	return nil
}

// SetActivityMode switches the activity override.
func (s *service) SetActivityMode(ctx context.Context, actor *lookout.Actor, mode activity.Mode) error {
	previous := s.gate.Mode()
	s.gate.Set(mode)

	logger.InfoKV(ctx, "Activity override changed", "from", previous, "to", mode, "actor", actor.String())

	return nil
}

// saveCenter persists a fixed-mode capture. Failures only cost the restore
// on next start, so they are logged.
func (s *service) saveCenter(ctx context.Context, ref engine.Reference) {
	if s.centers == nil {
		return
	}

	err := s.centers.Save(ctx, &center.Reference{
		Yaw:        ref.Yaw,
		Pitch:      ref.Pitch,
		CapturedAt: s.now(),
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to persist center", "error", err)
	}
}
