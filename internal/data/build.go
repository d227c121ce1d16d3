package data

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/particle3d/server/internal/particle"
	"github.com/particle3d/server/internal/particle/affector"
	"github.com/particle3d/server/internal/particle/emitter"
	"github.com/particle3d/server/internal/particle/render"
)

var (
	ErrMissingName     = errors.New("missing name")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrInvalidQuota    = errors.New("quota must be positive")
	ErrUnknownEmitter  = errors.New("unknown emitter type")
	ErrUnknownAffector = errors.New("unknown affector type")
	ErrUnknownRenderer = errors.New("unknown renderer type")
	ErrNoScripts       = errors.New("script referenced but no script engine")
	ErrMissingFunc     = errors.New("lua function not defined")
)

// ScriptHost is the part of the Lua engine definitions can reference.
type ScriptHost interface {
	affector.Script
	Has(fn string) bool
	RateFunc(fn string) func(float32) float32
}

// Deps are the collaborators a built system is wired to.
type Deps struct {
	Log     *zap.Logger
	Scripts ScriptHost     // nil disables lua affectors and rate functions
	Backend render.Backend // nil renders into the void
	Seed    int64          // added to each emitter's own seed
}

// Build constructs a stopped particle system from a definition.
func Build(def *SystemDef, deps Deps) (*particle.System, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := particle.NewSystem(def.Name, def.Quota, log)
	s.SetEnabled(def.IsEnabled())
	s.SetKeepLocal(def.KeepLocal)

	blend, err := buildBlend(def)
	if err != nil {
		return nil, fmt.Errorf("system %q: %w", def.Name, err)
	}
	s.SetBlendFunc(blend)

	em, err := buildEmitter(&def.Emitter, deps)
	if err != nil {
		return nil, fmt.Errorf("system %q: %w", def.Name, err)
	}
	s.SetEmitter(em)

	for i := range def.Affectors {
		a, err := buildAffector(&def.Affectors[i], deps)
		if err != nil {
			return nil, fmt.Errorf("system %q: affector #%d: %w", def.Name, i, err)
		}
		s.AddAffector(a)
	}

	switch def.Renderer.Type {
	case "", "quad":
		s.SetRenderer(render.NewQuadRenderer(def.Name, deps.Backend))
	case "point":
		s.SetRenderer(render.NewPointRenderer(def.Name, deps.Backend))
	case "none":
	default:
		return nil, fmt.Errorf("system %q: %q: %w", def.Name, def.Renderer.Type, ErrUnknownRenderer)
	}
	return s, nil
}

func buildBlend(def *SystemDef) (particle.BlendFunc, error) {
	if def.BlendSrc != "" || def.BlendDst != "" {
		src, err := particle.ParseBlendFactor(def.BlendSrc)
		if err != nil {
			return particle.BlendFunc{}, err
		}
		dst, err := particle.ParseBlendFactor(def.BlendDst)
		if err != nil {
			return particle.BlendFunc{}, err
		}
		return particle.BlendFunc{Src: src, Dst: dst}, nil
	}
	return particle.ParseBlendPreset(def.Blend)
}

func buildEmitter(def *EmitterDef, deps Deps) (*emitter.Rate, error) {
	cfg := emitter.Config{
		Rate:      def.Rate,
		Burst:     def.Burst,
		Lifetime:  span(def.Lifetime),
		Speed:     span(def.Speed),
		Direction: vec3(def.Direction, mgl32.Vec3{0, 1, 0}),
		Angle:     mgl32.DegToRad(def.Angle),
		Size:      span(def.Extent),
		Spin:      emitter.Range{Min: mgl32.DegToRad(def.Spin.Min), Max: mgl32.DegToRad(def.Spin.Max)},
	}
	if len(def.ColorMin) > 0 {
		cfg.ColorMin = color(def.ColorMin)
		cfg.ColorMax = cfg.ColorMin
	}
	if len(def.ColorMax) > 0 {
		cfg.ColorMax = color(def.ColorMax)
	}

	center := vec3(def.Center, mgl32.Vec3{})
	switch def.Type {
	case "", "point":
		cfg.Shape = emitter.Point{Offset: center}
	case "box":
		cfg.Shape = emitter.Box{Center: center, Size: vec3(def.Size, mgl32.Vec3{1, 1, 1})}
	case "sphere":
		cfg.Shape = emitter.Sphere{Center: center, Radius: def.Radius, Shell: def.Shell}
	default:
		return nil, fmt.Errorf("%q: %w", def.Type, ErrUnknownEmitter)
	}

	seed := deps.Seed + def.Seed
	if def.RateFunc == "" {
		return emitter.NewRate(cfg, seed), nil
	}
	if err := checkFunc(deps.Scripts, def.RateFunc); err != nil {
		return nil, err
	}
	return emitter.NewScripted(cfg, seed, deps.Scripts.RateFunc(def.RateFunc)), nil
}

func buildAffector(def *AffectorDef, deps Deps) (particle.Affector, error) {
	switch def.Type {
	case "lifetime":
		return affector.Lifetime{}, nil
	case "gravity":
		return affector.Gravity{Accel: vec3(def.Vector, mgl32.Vec3{0, -9.8, 0})}, nil
	case "linear_force":
		return affector.LinearForce{Force: vec3(def.Vector, mgl32.Vec3{}), Average: def.Average}, nil
	case "drag":
		return affector.Drag{Coefficient: def.Coefficient}, nil
	case "motion":
		return affector.Motion{}, nil
	case "color_fade":
		return affector.ColorFade{To: color(def.Color)}, nil
	case "scale":
		return affector.Scale{End: def.End}, nil
	case "spin":
		return affector.Spin{}, nil
	case "bounds":
		return affector.Bounds{Min: vec3(def.Min, mgl32.Vec3{}), Max: vec3(def.Max, mgl32.Vec3{})}, nil
	case "lua":
		if err := checkFunc(deps.Scripts, def.Func); err != nil {
			return nil, err
		}
		return affector.Scripted{Script: deps.Scripts, Func: def.Func}, nil
	}
	return nil, fmt.Errorf("%q: %w", def.Type, ErrUnknownAffector)
}

func checkFunc(h ScriptHost, fn string) error {
	if h == nil {
		return ErrNoScripts
	}
	if !h.Has(fn) {
		return fmt.Errorf("%q: %w", fn, ErrMissingFunc)
	}
	return nil
}

func span(s Span) emitter.Range {
	return emitter.Range{Min: s.Min, Max: s.Max}
}

func vec3(v Vec, def mgl32.Vec3) mgl32.Vec3 {
	if len(v) == 0 {
		return def
	}
	return mgl32.Vec3{v.at(0, 0), v.at(1, 0), v.at(2, 0)}
}

// Vec3 reads v as a point, missing components are zero.
func (v Vec) Vec3() mgl32.Vec3 { return vec3(v, mgl32.Vec3{}) }

// color reads an RGB or RGBA sequence; alpha defaults to opaque.
func color(v Vec) mgl32.Vec4 {
	return mgl32.Vec4{v.at(0, 1), v.at(1, 1), v.at(2, 1), v.at(3, 1)}
}

// BuildAll builds every definition in table order.
func BuildAll(t *ParticleTable, deps Deps) ([]*particle.System, error) {
	out := make([]*particle.System, 0, t.Count())
	for i := range t.defs {
		s, err := Build(&t.defs[i], deps)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
