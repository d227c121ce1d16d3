package particle

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrQuotaBelowActive is returned when a quota smaller than the number of
// live particles is requested. Shrinking below the live set is unsupported.
var ErrQuotaBelowActive = errors.New("quota below active particle count")

// System owns one particle pool and the emitter, ordered affectors and
// renderer that operate on it each tick. A System is driven by a single
// goroutine.
type System struct {
	name      string
	state     State
	enabled   bool
	keepLocal bool
	quota     int
	alive     int
	saturated bool
	elapsed   float32

	emitter   Emitter
	affectors []Affector
	renderer  Renderer
	blend     BlendFunc
	pool      *Pool
	listener  Listener

	log *zap.Logger
}

// NewSystem creates a stopped, enabled system whose pool holds quota records.
func NewSystem(name string, quota int, log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	s := &System{
		name:    name,
		state:   StateStop,
		enabled: true,
		blend:   BlendAlphaNonPremultiplied,
		pool:    NewPool(),
		log:     log.With(zap.String("system", name)),
	}
	if quota > 0 {
		s.pool.Grow(quota)
		s.quota = quota
	}
	return s
}

func (s *System) Name() string { return s.name }

// ── Lifecycle ──────────────────────────────────────────────────────

// Start moves STOP or PAUSE to RUNNING, returning every particle to the
// free list and resetting emission. Starting a running system is a no-op.
func (s *System) Start() {
	if s.state == StateRunning {
		return
	}
	s.pool.ReleaseAll()
	s.alive = 0
	s.elapsed = 0
	s.saturated = false
	if r, ok := s.emitter.(Resetter); ok {
		r.Reset()
	}
	for _, a := range s.affectors {
		if r, ok := a.(Resetter); ok {
			r.Reset()
		}
	}
	s.setState(StateRunning)
}

// Stop moves RUNNING or PAUSE to STOP and releases all particles.
func (s *System) Stop() {
	if s.state == StateStop {
		return
	}
	s.pool.ReleaseAll()
	s.alive = 0
	s.saturated = false
	s.setState(StateStop)
}

// Pause freezes a running system. The pool is untouched.
func (s *System) Pause() {
	if s.state != StateRunning {
		return
	}
	s.setState(StatePause)
}

// Resume continues a paused system.
func (s *System) Resume() {
	if s.state != StatePause {
		return
	}
	s.setState(StateRunning)
}

func (s *System) State() State { return s.state }

func (s *System) setState(to State) {
	from := s.state
	s.state = to
	s.log.Debug("state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if s.listener != nil {
		s.listener.StateChanged(s, from, to)
	}
}

// SetEnabled shows or hides the system without touching its state. A
// disabled system neither updates nor draws.
func (s *System) SetEnabled(enabled bool) { s.enabled = enabled }
func (s *System) Enabled() bool           { return s.enabled }

// ── Tick ───────────────────────────────────────────────────────────

// Update runs emission and then every affector in order. It does nothing
// unless the system is enabled and running.
func (s *System) Update(f Frame) {
	if !s.enabled || s.state != StateRunning {
		return
	}
	if f.Transform == (mgl32.Mat4{}) {
		f.Transform = mgl32.Ident4()
	}
	s.elapsed += f.Delta
	f.Elapsed = s.elapsed
	f.KeepLocal = s.keepLocal

	if s.emitter != nil {
		if budget := s.quota - s.pool.Len(); budget > 0 {
			s.emitter.Emit(f, budget, s.pool)
		}
	}
	for _, a := range s.affectors {
		a.Affect(f, s.pool)
	}
	s.alive = s.pool.Len()

	full := s.alive >= s.quota || s.pool.Exhausted()
	if full && !s.saturated && s.listener != nil {
		s.listener.QuotaExhausted(s)
	}
	s.saturated = full
}

// Draw hands the active particles to the renderer. Paused systems keep
// drawing their frozen state; stopped or disabled systems draw nothing.
// The transform is only applied to systems that keep particles local.
func (s *System) Draw(transform mgl32.Mat4) {
	if !s.enabled || s.state == StateStop || s.renderer == nil {
		return
	}
	if !s.keepLocal || transform == (mgl32.Mat4{}) {
		transform = mgl32.Ident4()
	}
	s.renderer.Render(s.pool.Active(), transform, s.blend)
}

// Tick is Update followed by Draw.
func (s *System) Tick(f Frame) {
	s.Update(f)
	s.Draw(f.Transform)
}

// AliveCount is the active particle count as of the last update.
func (s *System) AliveCount() int { return s.alive }

// ── Capacity ───────────────────────────────────────────────────────

// Quota is the maximum number of simultaneously active particles.
func (s *System) Quota() int { return s.quota }

// SetQuota changes the particle quota. Raising it above the pool capacity
// grows the pool by the difference; lowering it only bounds future emission.
// A quota below the live particle count is rejected.
func (s *System) SetQuota(n int) error {
	if n < 0 || n < s.pool.Len() {
		return fmt.Errorf("set quota %d with %d active: %w", n, s.pool.Len(), ErrQuotaBelowActive)
	}
	if grow := n - s.pool.Cap(); grow > 0 {
		s.pool.Grow(grow)
		s.log.Debug("pool grown", zap.Int("by", grow), zap.Int("capacity", s.pool.Cap()))
	}
	s.quota = n
	return nil
}

// Pool exposes the particle pool for diagnostics. Membership must only be
// changed through the emitter/affector contract.
func (s *System) Pool() *Pool { return s.pool }

// Purge stops the system and destroys all pool storage.
func (s *System) Purge() {
	s.Stop()
	s.pool.Purge()
	s.quota = 0
}

// ── Policies ───────────────────────────────────────────────────────

func (s *System) SetEmitter(e Emitter) { s.emitter = e }
func (s *System) Emitter() Emitter     { return s.emitter }

func (s *System) SetRenderer(r Renderer) { s.renderer = r }
func (s *System) Renderer() Renderer     { return s.renderer }

// AddAffector appends an affector. Affectors run in the order added.
func (s *System) AddAffector(a Affector) {
	if a == nil {
		return
	}
	s.affectors = append(s.affectors, a)
}

// Affector returns the affector at index i, or nil.
func (s *System) Affector(i int) Affector {
	if i < 0 || i >= len(s.affectors) {
		return nil
	}
	return s.affectors[i]
}

// RemoveAffector removes the affector at index i, keeping the others' order.
func (s *System) RemoveAffector(i int) bool {
	if i < 0 || i >= len(s.affectors) {
		return false
	}
	s.affectors = append(s.affectors[:i], s.affectors[i+1:]...)
	return true
}

func (s *System) RemoveAllAffectors() { s.affectors = s.affectors[:0] }

// Affectors returns the affectors in execution order.
func (s *System) Affectors() []Affector { return s.affectors }

func (s *System) SetBlendFunc(b BlendFunc) { s.blend = b }
func (s *System) BlendFunc() BlendFunc     { return s.blend }

// SetKeepLocal selects whether particles live in the system's local space
// (rendered with the node transform) or in world space.
func (s *System) SetKeepLocal(keep bool) { s.keepLocal = keep }
func (s *System) KeepLocal() bool        { return s.keepLocal }

func (s *System) SetListener(l Listener) { s.listener = l }
