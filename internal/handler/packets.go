package handler

import (
	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
	"github.com/particle3d/server/internal/particle"
)

// writeStatus appends one system status.
// Format: [S name][C state][C enabled][D alive][D quota][D capacity]
func writeStatus(w *packet.Writer, s *particle.System) {
	w.WriteS(s.Name())
	w.WriteC(byte(s.State()))
	if s.Enabled() {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
	w.WriteD(int32(s.AliveCount()))
	w.WriteD(int32(s.Quota()))
	w.WriteD(int32(s.Pool().Cap()))
}

// SendState sends S_STATE for one system.
func SendState(sess *net.Session, s *particle.System) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_STATE)
	writeStatus(w, s)
	sess.Send(w.Bytes())
}

// BuildState builds S_STATE for broadcasting.
func BuildState(s *particle.System) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_STATE)
	writeStatus(w, s)
	return w.Bytes()
}

func sendError(sess *net.Session, op byte, msg string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ERROR)
	w.WriteC(op)
	w.WriteS(msg)
	sess.Send(w.Bytes())
}

// frameParticleSize is the encoded size of one particle in S_FRAME.
const frameParticleSize = 7 * 4

// MaxFrameParticles is how many particles of the named system fit in one
// S_FRAME under net.MaxFrameSize.
func MaxFrameParticles(system string) int {
	header := 1 + len(system) + 1 + 4 + 1 + 2
	n := (net.MaxFrameSize - header) / frameParticleSize
	if limit := MaxFrameParticles(s.Name()); n > limit {
		n = limit
	}
	return n
}

// BuildFrame writes S_FRAME for s into w and returns a copy of the packet.
// At most max particles are encoded (0 = as many as fit in one frame), in
// active list order.
// Format: [S system][D tick][C state][H n] n × [F x y z r g b a]
func BuildFrame(w *packet.Writer, s *particle.System, tick uint64, max int) []byte {
	active := s.Pool().Active()
	n := active.Len()
	if max > 0 && n > max {
		n = max
	}
	if n > 0xFFFF {
		n = 0xFFFF
	}
	w.Reset(packet.S_OPCODE_FRAME)
	w.WriteS(s.Name())
	w.WriteD(int32(tick))
	w.WriteC(byte(s.State()))
	w.WriteH(uint16(n))
	i := 0
	for h := active.First(); h != particle.NoHandle && i < n; h = active.Next(h) {
		p := active.At(h)
		w.WriteF(p.Position[0])
		w.WriteF(p.Position[1])
		w.WriteF(p.Position[2])
		w.WriteF(p.Color[0])
		w.WriteF(p.Color[1])
		w.WriteF(p.Color[2])
		w.WriteF(p.Color[3])
		i++
	}
	return w.Bytes()
}
