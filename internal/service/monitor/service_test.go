package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/engine"
	"github.com/oshokin/lookout-monitor/internal/repository/center"
	"github.com/oshokin/lookout-monitor/internal/sensor"
)

var errTestLoad = errors.New("test load error")

// memoryRepository is a minimal in-memory center.Repository for tests.
type memoryRepository struct {
	mu sync.Mutex
	// ref is returned from Load.
	ref *center.Reference
	// loadErr is returned from Load when set.
	loadErr error
	// saved collects every Save call.
	saved []*center.Reference
}

func (m *memoryRepository) Load(context.Context) (*center.Reference, error) {
	return m.ref, m.loadErr
}

func (m *memoryRepository) Save(_ context.Context, ref *center.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved = append(m.saved, ref)

	return nil
}

// fakeSource serves a settable sample.
type fakeSource struct {
	mu     sync.Mutex
	sample *lookout.Sample
	closed bool
}

func (f *fakeSource) set(yaw, pitch float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sample = &lookout.Sample{Yaw: yaw, Pitch: pitch}
}

func (f *fakeSource) lose() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sample = nil
}

func (f *fakeSource) Poll(context.Context) (lookout.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sample == nil {
		return lookout.Sample{}, sensor.ErrUnavailable
	}

	return *f.sample, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func newTestService(t *testing.T, repo *memoryRepository, maxIdleMs int64) *service {
	t.Helper()

	svc := newService(repo, activity.NewOverride(activity.Always{}))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	eng, err := engine.New(context.Background(), engine.Config{
		PollInterval: 50 * time.Millisecond,
		Alarms: []lookout.AlarmConfig{{
			Name:              "forward",
			HorizontalSpanDeg: 60,
			VerticalUpDeg:     10,
			VerticalDownDeg:   10,
			MaxIdleMs:         maxIdleMs,
			MinCrossingMs:     500,
			RepeatIntervalMs:  1000,
			StartVolume:       50,
			EndVolume:         100,
		}},
		Baseline: engine.BaselineConfig{Mode: engine.BaselineFixed},
	}, engine.WithRecenterHook(svc.saveCenter))
	require.NoError(t, err)

	svc.engine = eng

	return svc
}

// TestLoadCenter asserts the restore behavior on saved, missing and broken centers.
func TestLoadCenter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	saved := &memoryRepository{ref: &center.Reference{Yaw: 7, Pitch: -1}}

	require.Equal(t, &engine.Reference{Yaw: 7, Pitch: -1}, loadCenter(ctx, saved, "fixed"))
	require.Nil(t, loadCenter(ctx, saved, "adaptive"), "adaptive mode ignores the saved center")
	require.Nil(t, loadCenter(ctx, &memoryRepository{loadErr: center.ErrNotFound}, "fixed"))
	require.Nil(t, loadCenter(ctx, &memoryRepository{loadErr: errTestLoad}, "fixed"))
}

// TestService_TickFeedsEngine checks that samples and gaps reach the engine.
func TestService_TickFeedsEngine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t, new(memoryRepository), 200)
	src := new(fakeSource)
	src.set(0, 0)

	svc.tick(ctx, src)
	svc.tick(ctx, src)

	st := svc.Status(ctx)
	require.True(t, st.Active)
	require.Equal(t, int64(100), st.Alarms[0].IdleMs)

	src.lose()

	for range 10 {
		svc.tick(ctx, src)
	}

	require.False(t, svc.tracking)
	require.Equal(t, int64(100), svc.Status(ctx).Alarms[0].IdleMs, "timers pause without tracking")

	src.set(0, 0)
	svc.tick(ctx, src)
	svc.tick(ctx, src)

	require.True(t, svc.tracking)
	require.True(t, svc.Status(ctx).Alarms[0].WarningActive)
}

// TestService_RecenterIsOneShot verifies a control request recenters exactly one tick.
func TestService_RecenterIsOneShot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := new(memoryRepository)
	svc := newTestService(t, repo, 60000)
	src := new(fakeSource)
	actor := &lookout.Actor{Hostname: "sim-rig", Username: "pilot"}

	src.set(0, 0)
	svc.tick(ctx, src)
	require.Empty(t, repo.saved, "the first capture is not a recenter")

	require.NoError(t, svc.RequestRecenter(ctx, actor))

	src.set(20, -4)
	svc.tick(ctx, src)

	require.Len(t, repo.saved, 1)
	require.InDelta(t, 20, repo.saved[0].Yaw, 1e-9)
	require.InDelta(t, -4, repo.saved[0].Pitch, 1e-9)
	require.False(t, repo.saved[0].CapturedAt.IsZero())

	src.set(35, 0)
	svc.tick(ctx, src)

	require.Len(t, repo.saved, 1)
	require.InDelta(t, 15, svc.Status(ctx).RelativeYaw, 1e-9)
}

// TestService_ActivityOverride verifies manual activity modes reach the engine.
func TestService_ActivityOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t, new(memoryRepository), 60000)
	src := new(fakeSource)
	src.set(0, 0)
	actor := &lookout.Actor{Username: "pilot"}

	svc.tick(ctx, src)
	require.True(t, svc.Status(ctx).Active)

	require.NoError(t, svc.SetActivityMode(ctx, actor, activity.ModeOff))
	svc.tick(ctx, src)

	st := svc.Status(ctx)
	require.False(t, st.Active)
	require.Equal(t, string(activity.ModeOff), st.ActivityMode)
	require.Zero(t, st.Alarms[0].IdleMs)

	require.NoError(t, svc.SetActivityMode(ctx, actor, activity.ModeAuto))
	svc.tick(ctx, src)
	require.True(t, svc.Status(ctx).Active)
}
