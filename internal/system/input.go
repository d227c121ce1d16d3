package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/particle3d/server/internal/core/system"
	"github.com/particle3d/server/internal/handler"
	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
)

// InputSystem registers new and dead sessions and drains their packet
// queues through the packet registry. Phase 0 (Input).
type InputSystem struct {
	netServer  *net.Server
	registry   *packet.Registry
	store      *net.SessionStore
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(
	netServer *net.Server,
	registry *packet.Registry,
	store *net.SessionStore,
	deps *handler.Deps,
	maxPerTick int,
	log *zap.Logger,
) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 16
	}
	return &InputSystem{
		netServer:  netServer,
		registry:   registry,
		store:      store,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	if s.netServer != nil {
		s.acceptSessions()
	}

	// Dead notifications are best effort; sweep closed sessions as well.
	for id, sess := range s.store.Raw() {
		if sess.IsClosed() {
			s.store.Remove(id)
			s.log.Info("viewer disconnected", zap.Uint64("session", id))
			continue
		}
		s.drain(sess)
	}
}

func (s *InputSystem) acceptSessions() {
	for {
		select {
		case sess := <-s.netServer.NewSessions():
			handler.Admit(sess, s.deps)
			s.store.Add(sess)
		case id := <-s.netServer.DeadSessions():
			if s.store.Remove(id) != nil {
				s.log.Info("viewer disconnected", zap.Uint64("session", id))
			}
		default:
			return
		}
	}
}

// drain dispatches up to maxPerTick queued packets of one session.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("packet dispatch failed",
					zap.Uint64("session", sess.ID),
					zap.Error(err),
				)
			}
		default:
			return
		}
	}
}

// SessionCount returns the current number of sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Count()
}
