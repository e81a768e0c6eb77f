package pkg

// HealthState is the typed status of the managed service unit.
// It replaces free-text status parsing with an explicit enum derived from
// the init system's load and active states.
type HealthState int

const (
	// HealthUnknown means the unit state could not be determined.
	HealthUnknown HealthState = iota
	// HealthStopped means the unit is loaded but not active.
	HealthStopped
	// HealthFailed means the unit entered the failed state.
	HealthFailed
	// HealthRunning means the unit is loaded and active.
	HealthRunning
)

// Running reports whether the service is healthy.
func (s HealthState) Running() bool {
	return s == HealthRunning
}

// String implements fmt.Stringer.
func (s HealthState) String() string {
	switch s {
	case HealthStopped:
		return "stopped"
	case HealthFailed:
		return "failed"
	case HealthRunning:
		return "running"
	default:
		return "unknown"
	}
}
