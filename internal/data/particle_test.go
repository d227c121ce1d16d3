package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/particle3d/server/internal/particle"
	"github.com/particle3d/server/internal/particle/affector"
	"github.com/particle3d/server/internal/particle/emitter"
	"github.com/particle3d/server/internal/particle/render"
)

const sample = `
systems:
  - name: fountain
    quota: 200
    autostart: true
    blend: additive
    position: [0, -2, 0]
    emitter:
      type: sphere
      radius: 0.5
      rate: 40
      burst: 5
      lifetime: [1, 2]
      speed: 3
      angle: 15
      color_min: [1, 0.5, 0]
    affectors:
      - type: lifetime
      - type: gravity
      - type: motion
      - type: color_fade
        color: [1, 0, 0, 0]
    renderer:
      type: point
  - name: dust
    quota: 50
    enabled: false
    blend_src: one
    blend_dst: one_minus_src_alpha
    emitter:
      type: box
      size: [4, 1, 4]
    renderer:
      type: none
`

func TestParseParticleTable(t *testing.T) {
	tbl, err := ParseParticleTable([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Count() != 2 || tbl.All()[0].Name != "fountain" {
		t.Fatalf("unexpected table %+v", tbl.All())
	}
	f := tbl.Get("fountain")
	if f == nil || !f.Autostart || !f.IsEnabled() || f.Quota != 200 {
		t.Fatalf("fountain fields wrong: %+v", f)
	}
	if f.Emitter.Lifetime != (Span{Min: 1, Max: 2, Set: true}) || f.Emitter.Speed != (Span{Min: 3, Max: 3, Set: true}) {
		t.Fatalf("ranges decoded wrong: %+v %+v", f.Emitter.Lifetime, f.Emitter.Speed)
	}
	if tbl.Get("dust").IsEnabled() {
		t.Fatalf("dust should be disabled")
	}
	if tbl.Get("nope") != nil {
		t.Fatalf("unknown name resolved")
	}
}

func TestParseRejectsBadTables(t *testing.T) {
	cases := []struct {
		doc  string
		want error
	}{
		{"systems:\n  - quota: 1\n", ErrMissingName},
		{"systems:\n  - {name: a, quota: 1}\n  - {name: a, quota: 1}\n", ErrDuplicateName},
		{"systems:\n  - {name: a}\n", ErrInvalidQuota},
	}
	for _, c := range cases {
		if _, err := ParseParticleTable([]byte(c.doc)); !errors.Is(err, c.want) {
			t.Fatalf("%q: got %v, want %v", c.doc, err, c.want)
		}
	}
	if _, err := ParseParticleTable([]byte("systems:\n  - {name: a, quota: 1, emitter: {speed: [1, 2, 3]}}\n")); err == nil {
		t.Fatalf("three element range accepted")
	}
}

func TestLoadParticleTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "particles.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadParticleTable(path)
	if err != nil || tbl.Count() != 2 {
		t.Fatalf("load: %v", err)
	}
	if _, err := LoadParticleTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestBuildWiresPolicies(t *testing.T) {
	tbl, _ := ParseParticleTable([]byte(sample))
	rec := &render.Recorder{}
	systems, err := BuildAll(tbl, Deps{Backend: rec})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	fountain := systems[0]
	if fountain.Quota() != 200 || fountain.BlendFunc() != particle.BlendAdditive || fountain.State() != particle.StateStop {
		t.Fatalf("fountain misconfigured")
	}
	if len(fountain.Affectors()) != 4 {
		t.Fatalf("expected 4 affectors, got %d", len(fountain.Affectors()))
	}
	if _, ok := fountain.Affectors()[3].(affector.ColorFade); !ok {
		t.Fatalf("affector order not preserved")
	}
	if _, ok := fountain.Renderer().(*render.PointRenderer); !ok {
		t.Fatalf("expected point renderer")
	}
	em := fountain.Emitter().(*emitter.Rate)
	if em.Config().ColorMin != (mgl32.Vec4{1, 0.5, 0, 1}) {
		t.Fatalf("color alpha default lost: %v", em.Config().ColorMin)
	}
	if _, ok := em.Config().Shape.(emitter.Sphere); !ok {
		t.Fatalf("expected sphere shape")
	}

	fountain.Start()
	fountain.Tick(particle.Frame{Delta: 0.1, Transform: mgl32.Ident4()})
	if fountain.AliveCount() != 5+4 {
		t.Fatalf("expected burst plus rate, got %d", fountain.AliveCount())
	}
	if rec.Frames() != 1 || rec.Last().System != "fountain" {
		t.Fatalf("renderer not wired to backend")
	}

	dust := systems[1]
	want := particle.BlendFunc{Src: particle.BlendOne, Dst: particle.BlendOneMinusSrcAlpha}
	if dust.Enabled() || dust.BlendFunc() != want || dust.Renderer() != nil {
		t.Fatalf("dust misconfigured")
	}
}

type fakeScripts struct{ funcs map[string]bool }

func (f fakeScripts) Affect(string, *particle.Particle, float32) bool { return true }
func (f fakeScripts) Has(fn string) bool                               { return f.funcs[fn] }
func (f fakeScripts) RateFunc(string) func(float32) float32 {
	return func(float32) float32 { return 10 }
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		def  SystemDef
		deps Deps
		want error
	}{
		{SystemDef{Name: "a", Quota: 1, Emitter: EmitterDef{Type: "torus"}}, Deps{}, ErrUnknownEmitter},
		{SystemDef{Name: "a", Quota: 1, Affectors: []AffectorDef{{Type: "vortex"}}}, Deps{}, ErrUnknownAffector},
		{SystemDef{Name: "a", Quota: 1, Renderer: RendererDef{Type: "ribbon"}}, Deps{}, ErrUnknownRenderer},
		{SystemDef{Name: "a", Quota: 1, Affectors: []AffectorDef{{Type: "lua", Func: "f"}}}, Deps{}, ErrNoScripts},
		{SystemDef{Name: "a", Quota: 1, Emitter: EmitterDef{RateFunc: "g"}}, Deps{Scripts: fakeScripts{}}, ErrMissingFunc},
	}
	for _, c := range cases {
		if _, err := Build(&c.def, c.deps); !errors.Is(err, c.want) {
			t.Fatalf("%+v: got %v, want %v", c.def, err, c.want)
		}
	}
	if _, err := Build(&SystemDef{Name: "a", Quota: 1, Blend: "glow"}, Deps{}); err == nil {
		t.Fatalf("unknown blend preset accepted")
	}
}

func TestBuildScripted(t *testing.T) {
	def := SystemDef{
		Name:      "s",
		Quota:     10,
		Emitter:   EmitterDef{RateFunc: "pulse"},
		Affectors: []AffectorDef{{Type: "lua", Func: "wobble"}},
	}
	s, err := Build(&def, Deps{Scripts: fakeScripts{funcs: map[string]bool{"pulse": true, "wobble": true}}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := s.Affectors()[0].(affector.Scripted); !ok {
		t.Fatalf("expected scripted affector")
	}
	s.Start()
	s.Update(particle.Frame{Delta: 0.5})
	if s.AliveCount() != 5 {
		t.Fatalf("scripted rate not used, alive=%d", s.AliveCount())
	}
}
