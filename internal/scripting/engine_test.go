package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/particle3d/server/internal/particle"
)

func newEngine(t *testing.T, src string) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEngine("", zap.New(core))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(e.Close)
	if err := e.LoadString(src); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e, logs
}

func TestLoadDirSkipsNonLua(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.lua"), []byte("function rate_a(t) return 3 end"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644)

	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()
	if !e.Has("rate_a") {
		t.Fatalf("function from a.lua not loaded")
	}
	if got := e.EmitRate("rate_a", 0); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestLoadDirReportsSyntaxError(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("function ("), 0o644)
	if _, err := NewEngine(dir, zap.NewNop()); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestMissingDirIsEmpty(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	if err != nil {
		t.Fatalf("missing dir should not fail: %v", err)
	}
	e.Close()
}

func TestAffectWritesBack(t *testing.T) {
	e, _ := newEngine(t, `
function rise(p, dt)
  p.y = p.y + p.vy * dt
  p.a = p.a * 0.5
  p.s1 = p.age
  return true
end`)
	var r particle.Particle
	r.Reset()
	r.Ext.Slots = particle.SlotVelocity | particle.SlotLifetime
	r.Ext.Velocity = mgl32.Vec3{0, 4, 0}
	r.Ext.Age = 0.75

	if !e.Affect("rise", &r, 0.5) {
		t.Fatalf("particle killed")
	}
	if r.Position[1] != 2 || r.Color[3] != 0.5 || r.Ext.Scalars[0] != 0.75 {
		t.Fatalf("write back failed: pos=%v color=%v s1=%v", r.Position, r.Color, r.Ext.Scalars[0])
	}
}

func TestAffectDropsScriptFields(t *testing.T) {
	e, _ := newEngine(t, `
function mark(p, dt)
  if p.tag ~= nil then p.s2 = 1 end
  p.tag = true
  p[1] = "x"
  return true
end`)
	var first, second particle.Particle
	first.Reset()
	second.Reset()
	e.Affect("mark", &first, 0)
	e.Affect("mark", &second, 0)
	if second.Ext.Scalars[1] != 0 {
		t.Fatalf("field set for one particle was visible to the next")
	}
	if v := e.param.RawGetString("tag"); v != lua.LNil {
		t.Fatalf("extra field left on param table: %v", v)
	}
	if v := e.param.RawGetInt(1); v != lua.LNil {
		t.Fatalf("array entry left on param table: %v", v)
	}
}

func TestAffectKillsOnFalseOnly(t *testing.T) {
	e, _ := newEngine(t, `
function old(p, dt) return p.age < 1 end
function silent(p, dt) end`)
	var r particle.Particle
	r.Reset()
	r.Ext.Age = 2
	if e.Affect("old", &r, 0) {
		t.Fatalf("expected kill")
	}
	if !e.Affect("silent", &r, 0) {
		t.Fatalf("nil return must keep the particle")
	}
}

func TestAffectErrorKeepsParticleAndLogsOnce(t *testing.T) {
	e, logs := newEngine(t, `function broken(p, dt) error("boom") end`)
	var r particle.Particle
	r.Reset()
	r.Position = mgl32.Vec3{1, 2, 3}
	for i := 0; i < 3; i++ {
		if !e.Affect("broken", &r, 0.1) {
			t.Fatalf("failing script killed the particle")
		}
	}
	if r.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Fatalf("failing script mutated the particle")
	}
	if n := logs.FilterMessage("lua call failed").Len(); n != 1 {
		t.Fatalf("expected one error log, got %d", n)
	}
	e.Affect("missing", &r, 0)
	if logs.FilterMessage("lua function not found").Len() != 1 {
		t.Fatalf("missing function not logged")
	}
}

func TestEmitRateFallbacks(t *testing.T) {
	e, _ := newEngine(t, `
function pulse(t) if t < 1 then return 10 else return 0 end end
function neg(t) return -5 end
function text(t) return "many" end`)
	if e.EmitRate("pulse", 0.5) != 10 || e.EmitRate("pulse", 2) != 0 {
		t.Fatalf("pulse rate wrong")
	}
	if e.EmitRate("neg", 0) != 0 || e.EmitRate("text", 0) != 0 || e.EmitRate("missing", 0) != 0 {
		t.Fatalf("invalid rates not clamped to zero")
	}
	if rf := e.RateFunc("pulse"); rf(0) != 10 {
		t.Fatalf("bound rate func wrong")
	}
}
