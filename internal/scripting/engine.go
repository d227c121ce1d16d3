package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/particle3d/server/internal/particle"
)

// Engine wraps a single gopher-lua VM for particle scripts.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger

	// param is the table handed to per-particle functions, reused every call.
	param *lua.LTable
	// stale collects keys a script added to param; they are removed after
	// each call so they never reach the next particle.
	stale   []lua.LValue
	collect func(k, v lua.LValue)
	// failed remembers functions that already logged an error.
	failed map[string]bool
}

// NewEngine creates a Lua engine and loads all scripts from dir. A missing
// directory yields an engine with no functions.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:     vm,
		log:    log,
		param:  vm.NewTable(),
		failed: make(map[string]bool),
	}
	e.collect = e.collectStale
	if dir != "" {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically to define functions.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// Has reports whether a global function named fn exists.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Affect calls fn(p, dt) for one particle. The table p carries position
// (x, y, z), velocity (vx, vy, vz), color (r, g, b, a), age, life, size and
// s1..s4; fields written by the script are copied back and any other field it
// sets is dropped before the next call. Returning false kills the particle. On error the particle is left untouched and kept alive.
func (e *Engine) Affect(fn string, r *particle.Particle, dt float32) bool {
	f, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		e.fail(fn, nil)
		return true
	}

	t := e.param
	setVec3(t, "x", "y", "z", r.Position)
	setVec3(t, "vx", "vy", "vz", r.Ext.Velocity)
	t.RawSetString("r", lua.LNumber(r.Color[0]))
	t.RawSetString("g", lua.LNumber(r.Color[1]))
	t.RawSetString("b", lua.LNumber(r.Color[2]))
	t.RawSetString("a", lua.LNumber(r.Color[3]))
	t.RawSetString("age", lua.LNumber(r.Ext.Age))
	t.RawSetString("life", lua.LNumber(r.Ext.Lifetime))
	t.RawSetString("size", lua.LNumber(r.Width))
	for i, k := range scalarKeys {
		t.RawSetString(k, lua.LNumber(r.Ext.Scalars[i]))
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, t, lua.LNumber(dt)); err != nil {
		e.sweepParam()
		e.fail(fn, err)
		return true
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	r.Position = getVec3(t, "x", "y", "z", r.Position)
	if r.Ext.Slots.Has(particle.SlotVelocity) {
		r.Ext.Velocity = getVec3(t, "vx", "vy", "vz", r.Ext.Velocity)
	}
	r.Color[0] = getNum(t, "r", r.Color[0])
	r.Color[1] = getNum(t, "g", r.Color[1])
	r.Color[2] = getNum(t, "b", r.Color[2])
	r.Color[3] = getNum(t, "a", r.Color[3])
	if size := getNum(t, "size", r.Width); size != r.Width {
		r.Width, r.Height, r.Depth = size, size, size
	}
	for i, k := range scalarKeys {
		r.Ext.Scalars[i] = getNum(t, k, r.Ext.Scalars[i])
	}
	e.sweepParam()
	return ret != lua.LFalse
}

// sweepParam removes every key of param that Affect does not own.
func (e *Engine) sweepParam() {
	e.stale = e.stale[:0]
	e.param.ForEach(e.collect)
	for _, k := range e.stale {
		e.param.RawSet(k, lua.LNil)
	}
}

func (e *Engine) collectStale(k, _ lua.LValue) {
	if s, ok := k.(lua.LString); ok && paramKeys[string(s)] {
		return
	}
	e.stale = append(e.stale, k)
}

// EmitRate calls fn(elapsed) and returns the particles-per-second it yields.
// Errors and non-numeric results fall back to zero.
func (e *Engine) EmitRate(fn string, elapsed float32) float32 {
	f, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		e.fail(fn, nil)
		return 0
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(elapsed)); err != nil {
		e.fail(fn, err)
		return 0
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok || n < 0 {
		return 0
	}
	return float32(n)
}

// RateFunc binds fn as an emission rate function.
func (e *Engine) RateFunc(fn string) func(float32) float32 {
	return func(elapsed float32) float32 { return e.EmitRate(fn, elapsed) }
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// fail logs the first error of each function; a broken script would
// otherwise log once per particle per tick.
func (e *Engine) fail(fn string, err error) {
	if e.failed[fn] {
		return
	}
	e.failed[fn] = true
	if err == nil {
		e.log.Error("lua function not found", zap.String("func", fn))
		return
	}
	e.log.Error("lua call failed", zap.String("func", fn), zap.Error(err))
}

var scalarKeys = [4]string{"s1", "s2", "s3", "s4"}

var paramKeys = map[string]bool{
	"x": true, "y": true, "z": true,
	"vx": true, "vy": true, "vz": true,
	"r": true, "g": true, "b": true, "a": true,
	"age": true, "life": true, "size": true,
	"s1": true, "s2": true, "s3": true, "s4": true,
}

func setVec3(t *lua.LTable, kx, ky, kz string, v [3]float32) {
	t.RawSetString(kx, lua.LNumber(v[0]))
	t.RawSetString(ky, lua.LNumber(v[1]))
	t.RawSetString(kz, lua.LNumber(v[2]))
}

func getVec3(t *lua.LTable, kx, ky, kz string, def [3]float32) [3]float32 {
	return [3]float32{getNum(t, kx, def[0]), getNum(t, ky, def[1]), getNum(t, kz, def[2])}
}

func getNum(t *lua.LTable, k string, def float32) float32 {
	if n, ok := t.RawGetString(k).(lua.LNumber); ok {
		return float32(n)
	}
	return def
}
