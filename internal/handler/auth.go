package handler

import (
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/particle3d/server/internal/config"
	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
)

// AuthRequired reports whether control requests need a password.
func AuthRequired(cfg *config.Config) bool {
	return cfg.Control.PasswordHash != ""
}

// BuildHello builds S_HELLO, queued by every session on connect.
// Format: [D protocol][C auth required][S server name][D start time]
func BuildHello(cfg *config.Config) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_HELLO)
	w.WriteD(packet.ProtocolVersion)
	if AuthRequired(cfg) {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
	w.WriteS(cfg.Server.Name)
	w.WriteD(int32(cfg.Server.StartTime))
	return w.Bytes()
}

// Admit runs when the simulation loop first sees a session. Without a
// configured password every session is authenticated immediately.
func Admit(sess *net.Session, deps *Deps) {
	if !AuthRequired(deps.Config) {
		sess.SetState(packet.StateAuthenticated)
	}
}

// HandleAuth processes C_AUTH.
// Format: [opcode][password\0]
func HandleAuth(sess *net.Session, r *packet.Reader, deps *Deps) {
	password := r.ReadS()
	ok := !AuthRequired(deps.Config) ||
		bcrypt.CompareHashAndPassword([]byte(deps.Config.Control.PasswordHash), []byte(password)) == nil

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_AUTH_RESULT)
	if !ok {
		deps.Log.Info("control auth failed", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
		w.WriteC(0)
		sess.Send(w.Bytes())
		return
	}
	w.WriteC(1)
	sess.Send(w.Bytes())
	sess.SetState(packet.StateAuthenticated)
	deps.Log.Info("control session authenticated", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
}
