package lookout

// AlarmStatus is a read-only view of one alarm's state.
type AlarmStatus struct {
	Index         int
	Name          string
	Enabled       bool
	Widest        bool
	IdleMs        int64
	SeenLeft      bool
	SeenRight     bool
	SeenUp        bool
	SeenDown      bool
	WarningActive bool
	SilencedForMs int64
	AlertPlaying  bool
	AppliedVolume int
}

// Status is a snapshot of the whole engine.
type Status struct {
	EngineMs      int64
	Active        bool
	CenterYaw     float64
	CenterPitch   float64
	RelativeYaw   float64
	RelativePitch float64
	BaselineMode  string
	// ActivityMode is the manual override mode, filled in by the monitor.
	ActivityMode string
	Alarms       []AlarmStatus
}
