package handler

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
	"github.com/particle3d/server/internal/particle"
)

// ErrQuotaAboveLimit is returned for C_QUOTA requests above
// [simulation] max_quota.
var ErrQuotaAboveLimit = errors.New("quota above configured limit")

// HandleList processes C_LIST and answers with S_SYSTEMS.
func HandleList(sess *net.Session, _ *packet.Reader, deps *Deps) {
	names := deps.Scene.Names()
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SYSTEMS)
	w.WriteH(uint16(len(names)))
	for _, n := range names {
		writeStatus(w, deps.Scene.GetByName(n))
	}
	sess.Send(w.Bytes())
}

func HandleStart(sess *net.Session, r *packet.Reader, deps *Deps) {
	withSystem(sess, r, deps, packet.C_OPCODE_START, func(s *particle.System) error {
		s.Start()
		return nil
	})
}

func HandleStop(sess *net.Session, r *packet.Reader, deps *Deps) {
	withSystem(sess, r, deps, packet.C_OPCODE_STOP, func(s *particle.System) error {
		s.Stop()
		return nil
	})
}

func HandlePause(sess *net.Session, r *packet.Reader, deps *Deps) {
	withSystem(sess, r, deps, packet.C_OPCODE_PAUSE, func(s *particle.System) error {
		s.Pause()
		return nil
	})
}

func HandleResume(sess *net.Session, r *packet.Reader, deps *Deps) {
	withSystem(sess, r, deps, packet.C_OPCODE_RESUME, func(s *particle.System) error {
		s.Resume()
		return nil
	})
}

// HandleQuota processes C_QUOTA.
// Format: [opcode][system\0][D quota]
func HandleQuota(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	quota := r.ReadD()
	apply(sess, name, deps, packet.C_OPCODE_QUOTA, func(s *particle.System) error {
		if limit := deps.Config.Simulation.MaxQuota; int(quota) > limit {
			return fmt.Errorf("set quota %d: %w (%d)", quota, ErrQuotaAboveLimit, limit)
		}
		return s.SetQuota(int(quota))
	})
}

// HandleEnable processes C_ENABLE.
// Format: [opcode][system\0][C 0|1]
func HandleEnable(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	on := r.ReadC() != 0
	apply(sess, name, deps, packet.C_OPCODE_ENABLE, func(s *particle.System) error {
		s.SetEnabled(on)
		return nil
	})
}

// HandleSubscribe restricts the session's frame stream to one system.
// An empty name subscribes to all of them.
func HandleSubscribe(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	if name != "" && deps.Scene.GetByName(name) == nil {
		sendError(sess, packet.C_OPCODE_SUBSCRIBE, fmt.Sprintf("unknown system %q", name))
		return
	}
	sess.Subscribed = name
}

// withSystem reads a system name and applies fn to it.
func withSystem(sess *net.Session, r *packet.Reader, deps *Deps, op byte, fn func(*particle.System) error) {
	apply(sess, r.ReadS(), deps, op, fn)
}

// apply runs fn against the named system and answers with S_STATE, or
// S_ERROR when the system is unknown or fn fails.
func apply(sess *net.Session, name string, deps *Deps, op byte, fn func(*particle.System) error) {
	sys := deps.Scene.GetByName(name)
	if sys == nil {
		sendError(sess, op, fmt.Sprintf("unknown system %q", name))
		return
	}
	if err := fn(sys); err != nil {
		deps.Log.Debug("control request rejected",
			zap.Uint64("session", sess.ID),
			zap.String("system", name),
			zap.Error(err),
		)
		sendError(sess, op, err.Error())
		return
	}
	SendState(sess, sys)
}
