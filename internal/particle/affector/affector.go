// Package affector holds the stock particle affectors. Each one walks the
// active list once with the pool's shared cursor.
package affector

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/particle3d/server/internal/particle"
)

// Lifetime ages particles and releases them once their lifetime is spent.
// Particles without a lifetime slot live until the system stops.
type Lifetime struct{}

func (Lifetime) Affect(f particle.Frame, p *particle.Pool) {
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if !r.Ext.Slots.Has(particle.SlotLifetime) {
			continue
		}
		r.Ext.Age += f.Delta
		if r.Ext.Age >= r.Ext.Lifetime {
			p.ReleaseCurrent()
		}
	}
}

// Gravity adds a constant acceleration to particle velocity.
type Gravity struct {
	Accel mgl32.Vec3
}

func (g Gravity) Affect(f particle.Frame, p *particle.Pool) {
	dv := g.Accel.Mul(f.Delta)
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if r.Ext.Slots.Has(particle.SlotVelocity) {
			r.Ext.Velocity = r.Ext.Velocity.Add(dv)
		}
	}
}

// Drag damps velocity by Coefficient per second.
type Drag struct {
	Coefficient float32
}

func (d Drag) Affect(f particle.Frame, p *particle.Pool) {
	k := 1 - d.Coefficient*f.Delta
	if k < 0 {
		k = 0
	}
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if r.Ext.Slots.Has(particle.SlotVelocity) {
			r.Ext.Velocity = r.Ext.Velocity.Mul(k)
		}
	}
}

// Motion integrates position from velocity.
type Motion struct{}

func (Motion) Affect(f particle.Frame, p *particle.Pool) {
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if r.Ext.Slots.Has(particle.SlotVelocity) {
			r.Position = r.Position.Add(r.Ext.Velocity.Mul(f.Delta))
		}
	}
}

// ColorFade interpolates from the emitted color to To over the lifetime.
type ColorFade struct {
	To mgl32.Vec4
}

func (c ColorFade) Affect(_ particle.Frame, p *particle.Pool) {
	const need = particle.SlotLifetime | particle.SlotStartColor
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if !r.Ext.Slots.Has(need) {
			continue
		}
		t := r.Ext.Progress()
		from := r.Ext.StartColor
		r.Color = from.Add(c.To.Sub(from).Mul(t))
	}
}

// Scale grows or shrinks extents from the emitted size to End times that
// size over the lifetime.
type Scale struct {
	End float32
}

func (s Scale) Affect(_ particle.Frame, p *particle.Pool) {
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if !r.Ext.Slots.Has(particle.SlotLifetime) {
			continue
		}
		k := 1 + (s.End-1)*r.Ext.Progress()
		r.Width = r.Ext.StartSize[0] * k
		r.Height = r.Ext.StartSize[1] * k
		r.Depth = r.Ext.StartSize[2] * k
	}
}

// Spin rotates orientation around the particle's Z axis by its spin rate.
type Spin struct{}

func (Spin) Affect(f particle.Frame, p *particle.Pool) {
	axis := mgl32.Vec3{0, 0, 1}
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if !r.Ext.Slots.Has(particle.SlotSpin) {
			continue
		}
		r.Orientation = r.Orientation.Mul(mgl32.QuatRotate(r.Ext.Spin*f.Delta, axis)).Normalize()
	}
}

// Bounds kills particles that leave an axis-aligned box.
type Bounds struct {
	Min, Max mgl32.Vec3
}

func (b Bounds) Affect(_ particle.Frame, p *particle.Pool) {
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		pos := r.Position
		if pos[0] < b.Min[0] || pos[1] < b.Min[1] || pos[2] < b.Min[2] ||
			pos[0] > b.Max[0] || pos[1] > b.Max[1] || pos[2] > b.Max[2] {
			p.ReleaseCurrent()
		}
	}
}

// LinearForce applies a force to velocity. In Average mode the velocity is
// pulled halfway towards the force each tick instead of accumulating it.
type LinearForce struct {
	Force   mgl32.Vec3
	Average bool
}

func (l LinearForce) Affect(f particle.Frame, p *particle.Pool) {
	dv := l.Force.Mul(f.Delta)
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if !r.Ext.Slots.Has(particle.SlotVelocity) {
			continue
		}
		if l.Average {
			r.Ext.Velocity = r.Ext.Velocity.Add(dv).Mul(0.5)
		} else {
			r.Ext.Velocity = r.Ext.Velocity.Add(dv)
		}
	}
}

// Script runs a named per-particle function. It returns false to kill.
type Script interface {
	Affect(fn string, r *particle.Particle, dt float32) bool
}

// Scripted hands every particle to a script function.
type Scripted struct {
	Script Script
	Func   string
}

func (s Scripted) Affect(f particle.Frame, p *particle.Pool) {
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if !s.Script.Affect(s.Func, r, f.Delta) {
			p.ReleaseCurrent()
		}
	}
}
