package particle

import "github.com/go-gl/mathgl/mgl32"

// Frame carries the per-tick inputs of one update.
type Frame struct {
	Tick      uint64
	Delta     float32 // seconds since the previous tick
	Elapsed   float32 // seconds since the system was started
	Transform mgl32.Mat4
	KeepLocal bool
}

// Emitter creates particles by acquiring free records and initializing them.
// budget is the remaining quota; an emitter stops silently when Acquire
// reports exhaustion. It returns the number of particles emitted.
type Emitter interface {
	Emit(f Frame, budget int, p *Pool) int
}

// Affector mutates active particles. It traverses with the pool's cursor
// and may release the current particle.
type Affector interface {
	Affect(f Frame, p *Pool)
}

// Renderer builds a draw payload from the active particles. It must not
// change pool membership.
type Renderer interface {
	Render(active View, transform mgl32.Mat4, blend BlendFunc)
}

// Resetter is implemented by policies that keep state across ticks and need
// to start over when their system starts.
type Resetter interface {
	Reset()
}

// Listener observes lifecycle and capacity signals of a System.
type Listener interface {
	StateChanged(s *System, from, to State)
	QuotaExhausted(s *System)
}

// AffectorFunc adapts a per-particle function to an Affector. Returning
// false kills the particle.
type AffectorFunc func(f Frame, p *Particle) bool

func (fn AffectorFunc) Affect(f Frame, p *Pool) {
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if !fn(f, r) {
			p.ReleaseCurrent()
		}
	}
}
