package emitter

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/particle3d/server/internal/particle"
)

// Config describes how new particles are initialized.
type Config struct {
	Rate      float32 // particles per second
	Burst     int     // particles emitted on the first tick after a (re)start
	Shape     Shape
	Lifetime  Range // seconds
	Speed     Range
	Direction mgl32.Vec3
	Angle     float32 // cone half angle, radians
	Size      Range
	Spin      Range // radians per second
	ColorMin  mgl32.Vec4
	ColorMax  mgl32.Vec4
}

// RateFunc overrides the configured rate, given seconds since start.
type RateFunc func(elapsed float32) float32

// Rate emits Config.Rate particles per second using a fractional
// accumulator, plus an optional burst after every reset. Whatever exceeds
// the quota budget in a tick is dropped, not carried over.
type Rate struct {
	cfg    Config
	rng    *rand.Rand
	rateFn RateFunc

	accum     float32
	burstDone bool
}

// NewRate creates a rate emitter with its own random source.
func NewRate(cfg Config, seed int64) *Rate {
	if cfg.Shape == nil {
		cfg.Shape = Point{}
	}
	if cfg.ColorMin == (mgl32.Vec4{}) && cfg.ColorMax == (mgl32.Vec4{}) {
		cfg.ColorMin = mgl32.Vec4{1, 1, 1, 1}
		cfg.ColorMax = cfg.ColorMin
	}
	return &Rate{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewScripted is a rate emitter whose per-tick rate comes from fn.
func NewScripted(cfg Config, seed int64, fn RateFunc) *Rate {
	e := NewRate(cfg, seed)
	e.rateFn = fn
	return e
}

// Config returns the emitter configuration for live tuning.
func (e *Rate) Config() *Config { return &e.cfg }

func (e *Rate) Reset() {
	e.accum = 0
	e.burstDone = false
}

func (e *Rate) Emit(f particle.Frame, budget int, p *particle.Pool) int {
	want := 0
	if !e.burstDone {
		want += e.cfg.Burst
		e.burstDone = true
	}
	rate := e.cfg.Rate
	if e.rateFn != nil {
		rate = e.rateFn(f.Elapsed)
	}
	if rate > 0 {
		e.accum += rate * f.Delta
		n := int(e.accum)
		e.accum -= float32(n)
		want += n
	}
	if want > budget {
		want = budget
	}

	emitted := 0
	for ; emitted < want; emitted++ {
		rec, ok := p.Acquire()
		if !ok {
			break
		}
		e.init(f, rec)
	}
	return emitted
}

func (e *Rate) init(f particle.Frame, rec *particle.Particle) {
	c := &e.cfg
	pos := c.Shape.Sample(e.rng)
	dir := coneDirection(e.rng, c.Direction, c.Angle)
	if !f.KeepLocal {
		pos = f.Transform.Mul4x1(pos.Vec4(1)).Vec3()
		if d := f.Transform.Mul4x1(dir.Vec4(0)).Vec3(); d.Len() > 0 {
			dir = d.Normalize()
		}
	}
	rec.Position = pos

	size := c.Size.Sample(e.rng)
	if size > 0 {
		rec.Width, rec.Height, rec.Depth = size, size, size
	}
	rec.Color = lerpColor(c.ColorMin, c.ColorMax, e.rng.Float32())

	rec.Ext.Velocity = dir.Mul(c.Speed.Sample(e.rng))
	rec.Ext.Lifetime = c.Lifetime.Sample(e.rng)
	rec.Ext.Age = 0
	rec.Ext.Spin = c.Spin.Sample(e.rng)
	rec.Ext.StartColor = rec.Color
	rec.Ext.StartSize = mgl32.Vec3{rec.Width, rec.Height, rec.Depth}
	rec.Ext.Slots |= particle.SlotVelocity | particle.SlotStartColor
	if rec.Ext.Lifetime > 0 {
		rec.Ext.Slots |= particle.SlotLifetime
	}
	if rec.Ext.Spin != 0 {
		rec.Ext.Slots |= particle.SlotSpin
	}
}

func lerpColor(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}
