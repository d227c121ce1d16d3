package handler

import (
	"io"
	stdnet "net"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/particle3d/server/internal/config"
	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
	"github.com/particle3d/server/internal/particle"
	"github.com/particle3d/server/internal/world"
)

type fixture struct {
	deps *Deps
	reg  *packet.Registry
	sess *net.Session
	fire *particle.System
}

func newFixture(t *testing.T, password string) *fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Name = "test"
	cfg.Simulation.MaxQuota = 64
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		cfg.Control.PasswordHash = string(hash)
	}
	scene := world.NewScene(nil)
	fire := particle.NewSystem("fire", 4, nil)
	scene.Add(fire, nil)
	scene.Add(particle.NewSystem("smoke", 2, nil), nil)

	server, client := stdnet.Pipe()
	sess := net.NewSession(server, 1, net.SessionOptions{OutSize: 16}, zap.NewNop())
	t.Cleanup(func() {
		sess.Close()
		client.Close()
	})

	deps := &Deps{Config: cfg, Scene: scene, Log: zap.NewNop()}
	reg := packet.NewRegistry(zap.NewNop())
	RegisterAll(reg, deps)
	Admit(sess, deps)
	return &fixture{deps: deps, reg: reg, sess: sess, fire: fire}
}

func (f *fixture) send(t *testing.T, op byte, build func(w *packet.Writer)) error {
	t.Helper()
	w := packet.NewWriterWithOpcode(op)
	if build != nil {
		build(w)
	}
	return f.reg.Dispatch(f.sess, f.sess.State(), w.Bytes())
}

// replies flushes the session and returns everything it queued.
func (f *fixture) replies() [][]byte {
	f.sess.FlushOutput()
	var out [][]byte
	for {
		select {
		case p := <-f.sess.OutQueue:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestAuthGate(t *testing.T) {
	f := newFixture(t, "secret")
	if f.sess.State() != packet.StateHandshake {
		t.Fatalf("session admitted without password")
	}
	if err := f.send(t, packet.C_OPCODE_LIST, nil); err == nil {
		t.Fatalf("list allowed before auth")
	}

	f.send(t, packet.C_OPCODE_AUTH, func(w *packet.Writer) { w.WriteS("wrong") })
	out := f.replies()
	if len(out) != 1 || out[0][0] != packet.S_OPCODE_AUTH_RESULT || out[0][1] != 0 {
		t.Fatalf("expected auth failure, got %v", out)
	}
	if f.sess.State() != packet.StateHandshake {
		t.Fatalf("wrong password authenticated")
	}

	f.send(t, packet.C_OPCODE_AUTH, func(w *packet.Writer) { w.WriteS("secret") })
	out = f.replies()
	if len(out) != 1 || out[0][1] != 1 || f.sess.State() != packet.StateAuthenticated {
		t.Fatalf("expected auth success, got %v state=%v", out, f.sess.State())
	}
}

func TestOpenServerAdmitsImmediately(t *testing.T) {
	f := newFixture(t, "")
	if f.sess.State() != packet.StateAuthenticated {
		t.Fatalf("expected immediate admission, got %v", f.sess.State())
	}
	hello := packet.NewReader(BuildHello(f.deps.Config))
	if hello.Opcode() != packet.S_OPCODE_HELLO || hello.ReadD() != packet.ProtocolVersion || hello.ReadC() != 0 || hello.ReadS() != "test" {
		t.Fatalf("unexpected hello layout")
	}
}

func TestListSystems(t *testing.T) {
	f := newFixture(t, "")
	f.send(t, packet.C_OPCODE_LIST, nil)
	out := f.replies()
	if len(out) != 1 {
		t.Fatalf("expected one reply, got %d", len(out))
	}
	r := packet.NewReader(out[0])
	if r.Opcode() != packet.S_OPCODE_SYSTEMS || r.ReadH() != 2 {
		t.Fatalf("bad systems header")
	}
	if name := r.ReadS(); name != "fire" {
		t.Fatalf("expected sorted names, first=%q", name)
	}
	if st := r.ReadC(); st != byte(particle.StateStop) {
		t.Fatalf("state %d", st)
	}
	if en := r.ReadC(); en != 1 {
		t.Fatalf("enabled %d", en)
	}
	if alive, quota, capacity := r.ReadD(), r.ReadD(), r.ReadD(); alive != 0 || quota != 4 || capacity != 4 {
		t.Fatalf("counts %d %d %d", alive, quota, capacity)
	}
}

func TestLifecycleRequests(t *testing.T) {
	f := newFixture(t, "")
	byName := func(w *packet.Writer) { w.WriteS("fire") }

	steps := []struct {
		op   byte
		want particle.State
	}{
		{packet.C_OPCODE_START, particle.StateRunning},
		{packet.C_OPCODE_PAUSE, particle.StatePause},
		{packet.C_OPCODE_RESUME, particle.StateRunning},
		{packet.C_OPCODE_STOP, particle.StateStop},
	}
	for _, s := range steps {
		f.send(t, s.op, byName)
		out := f.replies()
		if len(out) != 1 || out[0][0] != packet.S_OPCODE_STATE {
			t.Fatalf("op 0x%02X: expected S_STATE, got %v", s.op, out)
		}
		if f.fire.State() != s.want {
			t.Fatalf("op 0x%02X: state %v, want %v", s.op, f.fire.State(), s.want)
		}
	}
}

func TestUnknownSystemAnswersError(t *testing.T) {
	f := newFixture(t, "")
	f.send(t, packet.C_OPCODE_START, func(w *packet.Writer) { w.WriteS("ghost") })
	out := f.replies()
	if len(out) != 1 {
		t.Fatalf("expected one reply")
	}
	r := packet.NewReader(out[0])
	if r.Opcode() != packet.S_OPCODE_ERROR || r.ReadC() != packet.C_OPCODE_START || r.ReadS() == "" {
		t.Fatalf("bad error reply %v", out[0])
	}
}

func TestQuotaAndEnable(t *testing.T) {
	f := newFixture(t, "")
	f.send(t, packet.C_OPCODE_QUOTA, func(w *packet.Writer) {
		w.WriteS("fire")
		w.WriteD(10)
	})
	if f.fire.Quota() != 10 || f.fire.Pool().Cap() != 10 {
		t.Fatalf("quota %d cap %d", f.fire.Quota(), f.fire.Pool().Cap())
	}
	f.send(t, packet.C_OPCODE_QUOTA, func(w *packet.Writer) {
		w.WriteS("fire")
		w.WriteD(-1)
	})
	out := f.replies()
	if last := out[len(out)-1]; last[0] != packet.S_OPCODE_ERROR {
		t.Fatalf("negative quota accepted")
	}

	f.send(t, packet.C_OPCODE_ENABLE, func(w *packet.Writer) {
		w.WriteS("fire")
		w.WriteC(0)
	})
	if f.fire.Enabled() {
		t.Fatalf("system still enabled")
	}
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, "")
	f.send(t, packet.C_OPCODE_SUBSCRIBE, func(w *packet.Writer) { w.WriteS("smoke") })
	if f.sess.Subscribed != "smoke" {
		t.Fatalf("subscription %q", f.sess.Subscribed)
	}
	f.send(t, packet.C_OPCODE_SUBSCRIBE, func(w *packet.Writer) { w.WriteS("ghost") })
	if f.sess.Subscribed != "smoke" || len(f.replies()) != 1 {
		t.Fatalf("unknown subscription not rejected")
	}
}

func TestBuildFrameCapsParticles(t *testing.T) {
	f := newFixture(t, "")
	for i := 0; i < 3; i++ {
		r, _ := f.fire.Pool().Acquire()
		r.Position[0] = float32(i)
		r.Color[3] = 1
	}
	w := packet.NewWriter()
	data := BuildFrame(w, f.fire, 7, 2)
	r := packet.NewReader(data)
	if r.Opcode() != packet.S_OPCODE_FRAME || r.ReadS() != "fire" || r.ReadD() != 7 {
		t.Fatalf("bad frame header")
	}
	r.ReadC()
	if n := r.ReadH(); n != 2 {
		t.Fatalf("expected 2 particles, got %d", n)
	}
	if x := r.ReadF(); x != 0 {
		t.Fatalf("first x %v", x)
	}
	r.ReadF()
	r.ReadF()
	r.ReadF()
	r.ReadF()
	r.ReadF()
	if a := r.ReadF(); a != 1 {
		t.Fatalf("first alpha %v", a)
	}
	if r.Remaining() != 7*4 {
		t.Fatalf("remaining %d", r.Remaining())
	}
}

func TestQuotaAboveLimitRejected(t *testing.T) {
	f := newFixture(t, "")
	f.send(t, packet.C_OPCODE_QUOTA, func(w *packet.Writer) {
		w.WriteS("fire")
		w.WriteD(0x7FFFFFFF)
	})
	out := f.replies()
	if len(out) != 1 {
		t.Fatalf("expected one reply, got %d", len(out))
	}
	r := packet.NewReader(out[0])
	if r.Opcode() != packet.S_OPCODE_ERROR || r.ReadC() != packet.C_OPCODE_QUOTA {
		t.Fatalf("oversized quota not rejected: %v", out[0])
	}
	if f.fire.Quota() != 4 || f.fire.Pool().Cap() != 4 {
		t.Fatalf("rejected quota changed the pool: quota=%d cap=%d", f.fire.Quota(), f.fire.Pool().Cap())
	}

	f.send(t, packet.C_OPCODE_QUOTA, func(w *packet.Writer) {
		w.WriteS("fire")
		w.WriteD(64)
	})
	if f.fire.Quota() != 64 || f.fire.Pool().Cap() != 64 {
		t.Fatalf("quota at the limit refused: quota=%d cap=%d", f.fire.Quota(), f.fire.Pool().Cap())
	}
}

func TestBuildFrameFitsCodec(t *testing.T) {
	sys := particle.NewSystem("dense", 40000, nil)
	for i := 0; i < 40000; i++ {
		if _, ok := sys.Pool().Acquire(); !ok {
			t.Fatalf("acquire %d failed", i)
		}
	}
	data := BuildFrame(packet.NewWriter(), sys, 1, 0)
	if len(data) > net.MaxFrameSize {
		t.Fatalf("frame of %d bytes exceeds %d", len(data), net.MaxFrameSize)
	}
	if err := net.WriteFrame(io.Discard, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	r := packet.NewReader(data)
	r.ReadS()
	r.ReadD()
	r.ReadC()
	if n := int(r.ReadH()); n != MaxFrameParticles("dense") || n >= 40000 {
		t.Fatalf("expected %d particles, got %d", MaxFrameParticles("dense"), n)
	}
}
