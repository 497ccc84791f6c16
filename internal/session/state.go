package session

// State is the lifecycle state of a session.
type State int

// List of valid State values.
const (
	Uninitialized State = iota
	Initializing
	Ready
	Loading
	Loaded
	Running
	Paused
	Faulted
	Disposed
)

// used by begin() for operations that do not announce an intermediate state
const noChange State = -1

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initializing:
		return "Initializing"
	case Ready:
		return "Ready"
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Faulted:
		return "Faulted"
	case Disposed:
		return "Disposed"
	}
	return "Unknown"
}

// HasCartridge is true for the states in which a cartridge is mounted.
func (s State) HasCartridge() bool {
	return s == Loaded || s == Running || s == Paused
}
