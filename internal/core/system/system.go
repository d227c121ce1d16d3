package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput     Phase = iota // 0: drain session and terminal input
	PhasePreUpdate              // 1: dispatch last tick's events
	PhaseUpdate                 // 2: emit + affect every particle system
	PhaseRender                 // 3: hand final particle state to renderers
	PhaseOutput                 // 4: stream frames to viewers
	PhasePersist                // 5: metrics + stats sampling
	PhaseCleanup                // 6: destroy queued systems
)

var phaseNames = [...]string{"input", "pre_update", "update", "render", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every loop system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
