package events

// Event type constants for kelindar/event.
const (
	TypeModeChanged uint32 = iota + 1
	TypeProcessExit
	TypeConfigReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ModeChangedEvent is published on every actual standby/live transition.
// No-op transitions (already in the requested mode) publish nothing.
type ModeChangedEvent struct {
	StreamID  string `json:"stream_id" example:"cam1" doc:"Camera identifier"`
	Name      string `json:"name" example:"Kamera 1" doc:"Display name"`
	Mode      string `json:"mode" example:"live" doc:"New presentation mode"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for ModeChangedEvent.
func (e ModeChangedEvent) Type() uint32 { return TypeModeChanged }

// ProcessExitEvent is published when a supervised encoder process exits
// unexpectedly. The supervisor restarts it; this event exists for metrics
// and SSE clients.
type ProcessExitEvent struct {
	StreamID  string `json:"stream_id" example:"cam1" doc:"Camera identifier"`
	ExitCode  int    `json:"exit_code" example:"1" doc:"Process exit code"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Exit timestamp"`
}

// Type returns the event type identifier for ProcessExitEvent.
func (e ProcessExitEvent) Type() uint32 { return TypeProcessExit }

// ConfigReloadedEvent is published when the cameras file changes on disk.
// Camera bundles are fixed for the process lifetime, so a change only takes
// effect after a restart.
type ConfigReloadedEvent struct {
	Path      string `json:"path" example:"cameras.toml" doc:"Config file path"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Change timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }
