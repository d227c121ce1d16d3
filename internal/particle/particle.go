package particle

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/particle3d/server/internal/core/pool"
)

// Particle is one pooled particle record. Records are identified by their
// pool slot and are never compared by value.
type Particle struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Color       mgl32.Vec4
	LBUV        mgl32.Vec2 // left-bottom uv
	RTUV        mgl32.Vec2 // right-top uv
	Width       float32
	Height      float32
	Depth       float32

	Ext Ext
}

// SlotMask names the extension slots an emitter filled in.
type SlotMask uint16

const (
	SlotVelocity SlotMask = 1 << iota
	SlotLifetime
	SlotSpin
	SlotStartColor
	SlotScalars
)

// Has reports whether every slot in want is set.
func (m SlotMask) Has(want SlotMask) bool { return m&want == want }

// Ext is the closed set of per-particle extension slots shared by emitters,
// affectors and renderers. Scalars are free for scripted policies.
type Ext struct {
	Slots      SlotMask
	Velocity   mgl32.Vec3
	Age        float32
	Lifetime   float32
	Spin       float32 // radians per second around the particle's Z axis
	StartColor mgl32.Vec4
	StartSize  mgl32.Vec3
	Scalars    [4]float32
}

// Remaining is the time left to live, or 0 when no lifetime slot is set.
func (e *Ext) Remaining() float32 {
	if !e.Slots.Has(SlotLifetime) {
		return 0
	}
	return e.Lifetime - e.Age
}

// Progress is Age/Lifetime clamped to [0,1]; 0 without a lifetime slot.
func (e *Ext) Progress() float32 {
	if !e.Slots.Has(SlotLifetime) || e.Lifetime <= 0 {
		return 0
	}
	t := e.Age / e.Lifetime
	if t > 1 {
		return 1
	}
	if t < 0 {
		return 0
	}
	return t
}

// Reset puts p into the inert state every freshly acquired record starts in.
func (p *Particle) Reset() {
	*p = Particle{
		Orientation: mgl32.QuatIdent(),
		Color:       mgl32.Vec4{1, 1, 1, 1},
		RTUV:        mgl32.Vec2{1, 1},
		Width:       1,
		Height:      1,
		Depth:       1,
	}
}

// Handle identifies a particle slot.
type Handle = pool.Handle

// NoHandle marks the end of a list walk.
const NoHandle = pool.NoHandle

// Pool is the particle record pool.
type Pool = pool.Pool[Particle]

// View is a read-only view of a particle list.
type View = pool.View[Particle]

// NewPool returns an empty pool whose records are reset on acquire.
func NewPool() *Pool {
	return pool.New(pool.WithReset((*Particle).Reset))
}
