package particle

import "fmt"

// State is the lifecycle state of a System.
type State int

const (
	StateStop State = iota
	StateRunning
	StatePause
)

func (s State) String() string {
	switch s {
	case StateStop:
		return "Stop"
	case StateRunning:
		return "Running"
	case StatePause:
		return "Pause"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}
