package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/engine"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

// Config holds every setting of the lookout monitor.
type Config struct {
	// PollInterval is the engine tick period.
	PollInterval time.Duration `yaml:"poll_interval"`
	// LogLevel is the minimum level of the global logger.
	LogLevel string `yaml:"log_level"`
	// StateDump enables the once-per-second alarm state dump regardless of LogLevel.
	StateDump bool `yaml:"state_dump"`
	// StateFile is where the fixed center reference is persisted.
	StateFile string `yaml:"state_file"`
	// Baseline configures the forward reference estimator.
	Baseline BaselineSettings `yaml:"baseline"`
	// CenterHold configures the center-hold reset.
	CenterHold CenterHoldSettings `yaml:"center_hold"`
	// Sensor selects and configures the orientation source.
	Sensor SensorSettings `yaml:"sensor"`
	// Activity selects and configures the activity gate.
	Activity ActivitySettings `yaml:"activity"`
	// Audio selects and configures the alert player.
	Audio AudioSettings `yaml:"audio"`
	// Control configures the gRPC control plane.
	Control ControlSettings `yaml:"control"`
	// Journal configures the SQLite event journal.
	Journal JournalSettings `yaml:"journal"`
	// Alarms lists the lookout alarms in evaluation order.
	Alarms []lookout.AlarmConfig `yaml:"alarms"`
}

// BaselineSettings configures the baseline estimator.
type BaselineSettings struct {
	// Mode is "adaptive" or "fixed".
	Mode string `yaml:"mode"`
	// Window is the adaptive trailing window.
	Window time.Duration `yaml:"window"`
	// RecenterOnActivate captures a new fixed reference whenever activity starts.
	RecenterOnActivate bool `yaml:"recenter_on_activate"`
}

// CenterHoldSettings configures the center-hold reset. A zero Hold disables it.
type CenterHoldSettings struct {
	WindowDeg float64       `yaml:"window_deg"`
	Hold      time.Duration `yaml:"hold"`
}

// SensorSettings configures the orientation source.
type SensorSettings struct {
	// Kind is "udp" or "serial".
	Kind string `yaml:"kind"`
	// UDPAddress is the listen address for OpenTrack datagrams.
	UDPAddress string `yaml:"udp_address"`
	// SerialPort is the device name of the serial tracker.
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the serial line speed.
	BaudRate int `yaml:"baud_rate"`
	// StaleAfter marks samples older than this as unavailable.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// ActivitySettings configures the activity gate.
type ActivitySettings struct {
	// Kind is "always" or "process".
	Kind string `yaml:"kind"`
	// ProcessNames are executable names that mean the operator is active.
	ProcessNames []string `yaml:"process_names"`
	// CheckInterval is how long a process scan result is reused.
	CheckInterval time.Duration `yaml:"check_interval"`
}

// AudioSettings configures the alert player.
type AudioSettings struct {
	// Player is "command" or "log".
	Player string `yaml:"player"`
	// Command is the external player executable.
	Command string `yaml:"command"`
	// Args are passed to Command; {file} and {volume} are substituted.
	Args []string `yaml:"args"`
	// FallbackFile is played for alarms without an audio reference.
	FallbackFile string `yaml:"fallback_file"`
}

// ControlSettings configures the control plane.
type ControlSettings struct {
	// ListenAddress is the gRPC address; empty disables the server.
	ListenAddress string `yaml:"listen_address"`
	// Timeout bounds control client calls.
	Timeout time.Duration `yaml:"timeout"`
}

// JournalSettings configures the event journal.
type JournalSettings struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
	// Disabled turns the journal off.
	Disabled bool `yaml:"disabled"`
}

const (
	// DefaultConfigFilename is the default filename for monitor settings.
	DefaultConfigFilename = "lookout-settings.yaml"

	// DefaultStateFilename is the default file for the persisted center.
	DefaultStateFilename = "lookout-center.json"

	// DefaultJournalFilename is the default SQLite journal file.
	DefaultJournalFilename = "lookout-journal.db"

	// DefaultControlAddress is the default gRPC control address.
	DefaultControlAddress = "127.0.0.1:50551"

	// DefaultUDPAddress is the default OpenTrack listen address.
	DefaultUDPAddress = "127.0.0.1:4242"

	// DefaultTimeout is the default duration for control calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// Sensor kinds.
	SensorUDP    = "udp"
	SensorSerial = "serial"

	// Activity kinds.
	ActivityAlways  = "always"
	ActivityProcess = "process"

	// Audio players.
	PlayerCommand = "command"
	PlayerLog     = "log"

	defaultBaudRate      = 115200
	defaultStaleAfter    = 500 * time.Millisecond
	defaultCheckInterval = 5 * time.Second
	defaultFallbackFile  = "beep.wav"
	maxVolume            = 100
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidSetting is wrapped by every validation failure.
	errInvalidSetting = errors.New("invalid setting")
)

// Default returns the settings used when no file overrides them: one forward
// alarm in the fixed-center mode, an OpenTrack listener and the ffplay player.
func Default() *Config {
	return &Config{
		PollInterval: engine.DefaultPollInterval,
		LogLevel:     "info",
		StateFile:    DefaultStateFilename,
		Baseline: BaselineSettings{
			Mode:   string(engine.BaselineAdaptive),
			Window: engine.DefaultBaselineWindow,
		},
		CenterHold: CenterHoldSettings{
			WindowDeg: 10,
			Hold:      4 * time.Second,
		},
		Sensor: SensorSettings{
			Kind:       SensorUDP,
			UDPAddress: DefaultUDPAddress,
			BaudRate:   defaultBaudRate,
			StaleAfter: defaultStaleAfter,
		},
		Activity: ActivitySettings{
			Kind:          ActivityAlways,
			CheckInterval: defaultCheckInterval,
		},
		Audio: AudioSettings{
			Player:       PlayerCommand,
			Command:      "ffplay",
			Args:         []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", "{volume}", "{file}"},
			FallbackFile: defaultFallbackFile,
		},
		Control: ControlSettings{
			ListenAddress: DefaultControlAddress,
			Timeout:       DefaultTimeout,
		},
		Journal: JournalSettings{
			Path: DefaultJournalFilename,
		},
		Alarms: []lookout.AlarmConfig{
			{
				Name:                 "forward",
				HorizontalSpanDeg:    45,
				VerticalUpDeg:        7.5,
				VerticalDownDeg:      0,
				MaxIdleMs:            30000,
				MinCrossingMs:        2000,
				SilenceAfterGlanceMs: 5000,
				RepeatIntervalMs:     5000,
				StartVolume:          50,
				EndVolume:            100,
				VolumeRampMs:         30000,
			},
		},
	}
}

// Load reads configuration from the provided path over the defaults and
// validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings, filling defaults for empty optional fields.
// Alarms with non-positive spans are accepted here; the engine disables them.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.PollInterval == 0 {
		settings.PollInterval = engine.DefaultPollInterval
	}

	if settings.PollInterval < time.Millisecond {
		return fmt.Errorf("%w: poll_interval %s is shorter than 1ms", errInvalidSetting, settings.PollInterval)
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q", errInvalidSetting, settings.LogLevel)
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	validators := []func(*Config) error{
		validateBaseline,
		validateSensor,
		validateActivity,
		validateAudio,
		validateControl,
		validateAlarms,
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			return err
		}
	}

	if settings.Journal.Path == "" {
		settings.Journal.Path = DefaultJournalFilename
	}

	return nil
}

func validateBaseline(settings *Config) error {
	b := &settings.Baseline

	switch engine.BaselineMode(b.Mode) {
	case "":
		b.Mode = string(engine.BaselineAdaptive)
	case engine.BaselineAdaptive, engine.BaselineFixed:
	default:
		return fmt.Errorf("%w: baseline.mode %q", errInvalidSetting, b.Mode)
	}

	if b.Window < 0 {
		return fmt.Errorf("%w: baseline.window must not be negative", errInvalidSetting)
	}

	if settings.CenterHold.Hold < 0 || settings.CenterHold.WindowDeg < 0 {
		return fmt.Errorf("%w: center_hold values must not be negative", errInvalidSetting)
	}

	return nil
}

func validateSensor(settings *Config) error {
	s := &settings.Sensor

	if s.StaleAfter <= 0 {
		s.StaleAfter = defaultStaleAfter
	}

	switch s.Kind {
	case "", SensorUDP:
		s.Kind = SensorUDP

		if s.UDPAddress == "" {
			s.UDPAddress = DefaultUDPAddress
		}

		if _, err := net.ResolveUDPAddr("udp", s.UDPAddress); err != nil {
			return fmt.Errorf("%w: sensor.udp_address: %w", errInvalidSetting, err)
		}
	case SensorSerial:
		if s.SerialPort == "" {
			return fmt.Errorf("%w: sensor.serial_port is required for the serial sensor", errInvalidSetting)
		}

		if s.BaudRate <= 0 {
			s.BaudRate = defaultBaudRate
		}
	default:
		return fmt.Errorf("%w: sensor.kind %q", errInvalidSetting, s.Kind)
	}

	return nil
}

func validateActivity(settings *Config) error {
	a := &settings.Activity

	if a.CheckInterval <= 0 {
		a.CheckInterval = defaultCheckInterval
	}

	switch a.Kind {
	case "", ActivityAlways:
		a.Kind = ActivityAlways
	case ActivityProcess:
		if len(a.ProcessNames) == 0 {
			return fmt.Errorf("%w: activity.process_names is required for the process gate", errInvalidSetting)
		}
	default:
		return fmt.Errorf("%w: activity.kind %q", errInvalidSetting, a.Kind)
	}

	return nil
}

func validateAudio(settings *Config) error {
	a := &settings.Audio

	if a.FallbackFile == "" {
		a.FallbackFile = defaultFallbackFile
	}

	switch a.Player {
	case "", PlayerLog:
		a.Player = PlayerLog
	case PlayerCommand:
		if a.Command == "" {
			return fmt.Errorf("%w: audio.command is required for the command player", errInvalidSetting)
		}
	default:
		return fmt.Errorf("%w: audio.player %q", errInvalidSetting, a.Player)
	}

	return nil
}

func validateControl(settings *Config) error {
	c := &settings.Control

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.ListenAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", c.ListenAddress); err != nil {
		return fmt.Errorf("%w: control.listen_address: %w", errInvalidSetting, err)
	}

	return nil
}

func validateAlarms(settings *Config) error {
	if len(settings.Alarms) == 0 {
		return fmt.Errorf("%w: at least one alarm is required", errInvalidSetting)
	}

	for i := range settings.Alarms {
		a := &settings.Alarms[i]
		label := a.Label(i)

		if a.MaxIdleMs < 0 || a.MinCrossingMs < 0 || a.SilenceAfterGlanceMs < 0 ||
			a.RepeatIntervalMs < 0 || a.VolumeRampMs < 0 {
			return fmt.Errorf("%w: alarm %s: durations must not be negative", errInvalidSetting, label)
		}

		if a.StartVolume < 0 || a.StartVolume > maxVolume || a.EndVolume < 0 || a.EndVolume > maxVolume {
			return fmt.Errorf("%w: alarm %s: volumes must be within 0..%d", errInvalidSetting, label, maxVolume)
		}
	}

	return nil
}

// EngineConfig converts the settings to the engine's construction input.
// initial seeds the fixed reference and may be nil.
func (c *Config) EngineConfig(initial *engine.Reference) engine.Config {
	return engine.Config{
		PollInterval: c.PollInterval,
		Alarms:       c.Alarms,
		Baseline: engine.BaselineConfig{
			Mode:               engine.BaselineMode(c.Baseline.Mode),
			Window:             c.Baseline.Window,
			RecenterOnActivate: c.Baseline.RecenterOnActivate,
			Initial:            initial,
		},
		CenterHold: engine.CenterHoldConfig{
			WindowDeg: c.CenterHold.WindowDeg,
			HoldMs:    c.CenterHold.Hold.Milliseconds(),
		},
	}
}
