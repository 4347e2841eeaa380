package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/alert"
	"github.com/oshokin/lookout-monitor/internal/api/grpc/control"
	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/engine"
	"github.com/oshokin/lookout-monitor/internal/logger"
	"github.com/oshokin/lookout-monitor/internal/repository/center"
	"github.com/oshokin/lookout-monitor/internal/repository/journal"
	"github.com/oshokin/lookout-monitor/internal/sensor"
	"github.com/oshokin/lookout-monitor/internal/version"
)

// Options controls the lookout-monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress overrides the control plane listen address.
	ListenAddress string
	// LogLevel overrides the configured log level.
	LogLevel string
	// StateFile overrides the path of the persisted center.
	StateFile string

	// Source replaces the configured orientation source.
	Source sensor.Source
	// Gate replaces the configured activity gate.
	Gate activity.Gate
	// Alerter replaces the configured alert player.
	Alerter engine.Alerter
	// Ready is called with the control plane address once it is serving.
	Ready func(controlAddress string)
}

var errUnknownKind = errors.New("unknown component kind")

// Run loads the settings, builds every collaborator and runs the polling loop
// until ctx is canceled. On return every alert has been stopped.
//
//nolint:cyclop,funlen // Wiring reads top to bottom; splitting would scatter the cleanup order.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lookout-monitor")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	centers := center.NewFileRepository(settings.StateFile)
	initial := loadCenter(ctx, centers, settings.Baseline.Mode)

	gate := opts.Gate
	if gate == nil {
		gate = newGate(settings.Activity)
	}

	svc := newService(centers, activity.NewOverride(gate))

	engineOpts := []engine.Option{
		engine.WithRecenterHook(svc.saveCenter),
	}

	alerter := opts.Alerter
	if alerter == nil {
		if alerter, err = newAlerter(settings.Audio); err != nil {
			return fmt.Errorf("initialise alert player: %w", err)
		}
	}

	engineOpts = append(engineOpts, engine.WithAlerter(alerter))

	if !settings.Journal.Disabled {
		j, err := journal.Open(ctx, settings.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}

		defer func() {
			_ = j.Close()
		}()

		engineOpts = append(engineOpts, engine.WithEventSink(j))
	}

	if settings.StateDump {
		engineOpts = append(engineOpts, engine.WithStateDumpLogger(logger.Pinned(zapcore.DebugLevel)))
	}

	eng, err := engine.New(ctx, settings.EngineConfig(initial), engineOpts...)
	if err != nil {
		return fmt.Errorf("initialise engine: %w", err)
	}

	svc.engine = eng

	source := opts.Source
	if source == nil {
		if source, err = newSource(ctx, settings.Sensor); err != nil {
			return fmt.Errorf("initialise orientation source: %w", err)
		}
	}

	defer func() {
		_ = source.Close()
	}()

	if settings.Control.ListenAddress != "" {
		stop, err := serveControl(ctx, settings.Control.ListenAddress, svc, opts.Ready)
		if err != nil {
			return err
		}

		defer stop()
	}

	logger.InfoKV(ctx, "Lookout monitor running", append(version.KV(),
		"poll_interval", settings.PollInterval.String(),
		"sensor", settings.Sensor.Kind,
		"activity", settings.Activity.Kind,
		"audio", settings.Audio.Player,
	)...)

	svc.loop(ctx, source, settings.PollInterval)

	// The run context is canceled by now; alert teardown still needs a live one.
	teardown := context.WithoutCancel(ctx)
	eng.Close(teardown)

	if closer, ok := alerter.(alertCloser); ok {
		if err := closer.Close(teardown); err != nil {
			logger.WarnKV(ctx, "Alert player did not stop cleanly", "error", err)
		}
	}

	return nil
}

// alertCloser is implemented by players that own background playback.
type alertCloser interface {
	Close(ctx context.Context) error
}

// applyOverrides lets command line flags win over the settings file.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.ListenAddress != "" {
		settings.Control.ListenAddress = opts.ListenAddress
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if opts.StateFile != "" {
		settings.StateFile = opts.StateFile
	}
}

// loadCenter returns the persisted center in fixed mode, or nil.
func loadCenter(ctx context.Context, centers center.Repository, mode string) *engine.Reference {
	if engine.BaselineMode(mode) != engine.BaselineFixed {
		return nil
	}

	ref, err := centers.Load(ctx)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Restored saved center", "yaw", ref.Yaw, "pitch", ref.Pitch, "captured_at", ref.CapturedAt)

		return ref.Engine()
	case errors.Is(err, center.ErrNotFound):
		logger.Info(ctx, "No saved center, the first sample becomes the center")
	default:
		logger.WarnKV(ctx, "Saved center unreadable, the first sample becomes the center", "error", err)
	}

	return nil
}

func newSource(ctx context.Context, s config.SensorSettings) (sensor.Source, error) { //nolint:ireturn // Kind is chosen at runtime.
	switch s.Kind {
	case config.SensorUDP:
		return sensor.ListenUDP(ctx, s.UDPAddress, s.StaleAfter)
	case config.SensorSerial:
		return sensor.OpenSerial(ctx, s.SerialPort, sensor.PortOptions{BaudRate: s.BaudRate}, s.StaleAfter)
	default:
		return nil, fmt.Errorf("%w: sensor %q", errUnknownKind, s.Kind)
	}
}

func newGate(a config.ActivitySettings) activity.Gate { //nolint:ireturn // Kind is chosen at runtime.
	if a.Kind == config.ActivityProcess {
		return activity.NewProcess(a.ProcessNames, a.CheckInterval)
	}

	return activity.Always{}
}

func newAlerter(a config.AudioSettings) (engine.Alerter, error) { //nolint:ireturn // Kind is chosen at runtime.
	switch a.Player {
	case config.PlayerCommand:
		return alert.NewCommand(a.Command, a.Args, a.FallbackFile)
	case config.PlayerLog:
		return alert.NewLog(), nil
	default:
		return nil, fmt.Errorf("%w: audio player %q", errUnknownKind, a.Player)
	}
}

// serveControl starts the gRPC control plane. The returned function stops it
// gracefully and waits for the server goroutine.
func serveControl(ctx context.Context, address string, svc *service, ready func(string)) (func(), error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	control.Register(grpcServer, control.NewServer(svc))

	logger.InfoKV(ctx, "Control plane listening", "listen_address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.ErrorKV(ctx, "Control plane stopped", "error", err)
		}
	}()

	if ready != nil {
		ready(lis.Addr().String())
	}

	return func() {
		logger.Info(ctx, "Shutting down control plane")

		stopped := make(chan struct{})

		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(config.DefaultTimeout):
			grpcServer.Stop()
		}

		<-done
	}, nil
}
