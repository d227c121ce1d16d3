package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SystemDef is one particle system definition.
type SystemDef struct {
	Name      string        `yaml:"name"`
	Quota     int           `yaml:"quota"`
	Enabled   *bool         `yaml:"enabled"` // nil = true
	KeepLocal bool          `yaml:"keep_local"`
	Autostart bool          `yaml:"autostart"`
	Blend     string        `yaml:"blend"`     // preset: alpha, premultiplied, additive, disable
	BlendSrc  string        `yaml:"blend_src"` // overrides the preset when both are set
	BlendDst  string        `yaml:"blend_dst"`
	Position  Vec           `yaml:"position"`
	Emitter   EmitterDef    `yaml:"emitter"`
	Affectors []AffectorDef `yaml:"affectors"`
	Renderer  RendererDef   `yaml:"renderer"`
}

// IsEnabled returns the enabled flag, defaulting to true.
func (d *SystemDef) IsEnabled() bool { return d.Enabled == nil || *d.Enabled }

// EmitterDef configures the emission policy.
type EmitterDef struct {
	Type      string  `yaml:"type"` // point, box, sphere
	Rate      float32 `yaml:"rate"`
	RateFunc  string  `yaml:"rate_func"` // Lua function overriding rate
	Burst     int     `yaml:"burst"`
	Center    Vec     `yaml:"center"`
	Size      Vec     `yaml:"size"`   // box extents
	Radius    float32 `yaml:"radius"` // sphere
	Shell     bool    `yaml:"shell"`
	Lifetime  Span    `yaml:"lifetime"`
	Speed     Span    `yaml:"speed"`
	Direction Vec     `yaml:"direction"`
	Angle     float32 `yaml:"angle"` // degrees
	Extent    Span    `yaml:"extent"`
	Spin      Span    `yaml:"spin"` // degrees per second
	ColorMin  Vec     `yaml:"color_min"`
	ColorMax  Vec     `yaml:"color_max"`
	Seed      int64   `yaml:"seed"`
}

// AffectorDef configures one affector. Which fields apply depends on Type.
type AffectorDef struct {
	Type        string  `yaml:"type"`
	Vector      Vec     `yaml:"vector"` // gravity, linear_force
	Average     bool    `yaml:"average"`
	Coefficient float32 `yaml:"coefficient"` // drag
	Color       Vec     `yaml:"color"`       // color_fade
	End         float32 `yaml:"end"`         // scale
	Min         Vec     `yaml:"min"`         // bounds
	Max         Vec     `yaml:"max"`
	Func        string  `yaml:"func"` // lua
}

// RendererDef picks the renderer.
type RendererDef struct {
	Type string `yaml:"type"` // quad (default), point, none
}

// Vec is a YAML sequence of up to four numbers.
type Vec []float32

func (v Vec) at(i int, def float32) float32 {
	if i < len(v) {
		return v[i]
	}
	return def
}

// Span is a [min, max] pair written either as a sequence or a single number.
type Span struct {
	Min, Max float32
	Set      bool
}

// UnmarshalYAML accepts `2` or `[1, 3]`.
func (s *Span) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v float32
		if err := n.Decode(&v); err != nil {
			return err
		}
		*s = Span{Min: v, Max: v, Set: true}
		return nil
	case yaml.SequenceNode:
		var vs []float32
		if err := n.Decode(&vs); err != nil {
			return err
		}
		if len(vs) != 2 {
			return fmt.Errorf("line %d: range needs 2 values, got %d", n.Line, len(vs))
		}
		*s = Span{Min: vs[0], Max: vs[1], Set: true}
		return nil
	}
	return fmt.Errorf("line %d: range must be a number or [min, max]", n.Line)
}

// ParticleTable indexes system definitions by name, keeping file order.
type ParticleTable struct {
	defs   []SystemDef
	byName map[string]*SystemDef
}

// Get returns a definition by name, or nil if not found.
func (t *ParticleTable) Get(name string) *SystemDef {
	return t.byName[name]
}

// All returns the definitions in file order.
func (t *ParticleTable) All() []SystemDef {
	return t.defs
}

// Count returns the number of definitions loaded.
func (t *ParticleTable) Count() int {
	return len(t.defs)
}

// --- YAML loading ---

type particleFile struct {
	Systems []SystemDef `yaml:"systems"`
}

// LoadParticleTable loads particle system definitions from YAML.
func LoadParticleTable(path string) (*ParticleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("particles: read %s: %w", path, err)
	}
	t, err := ParseParticleTable(raw)
	if err != nil {
		return nil, fmt.Errorf("particles: parse %s: %w", path, err)
	}
	return t, nil
}

// ParseParticleTable decodes and validates a definitions document.
func ParseParticleTable(raw []byte) (*ParticleTable, error) {
	var f particleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := &ParticleTable{
		defs:   f.Systems,
		byName: make(map[string]*SystemDef, len(f.Systems)),
	}
	for i := range t.defs {
		d := &t.defs[i]
		if d.Name == "" {
			return nil, fmt.Errorf("system #%d: %w", i, ErrMissingName)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("system %q: %w", d.Name, ErrDuplicateName)
		}
		if d.Quota <= 0 {
			return nil, fmt.Errorf("system %q: quota %d: %w", d.Name, d.Quota, ErrInvalidQuota)
		}
		t.byName[d.Name] = d
	}
	return t, nil
}
