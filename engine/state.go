package engine

// State is the lifecycle state of a managed server process.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateInitialized   State = "initialized"
	StateStarting      State = "starting"
	StateReady         State = "ready"
	StateStopping      State = "stopping"
	StateStopped       State = "stopped"
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }
