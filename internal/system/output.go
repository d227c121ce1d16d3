package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/particle3d/server/internal/core/system"
	"github.com/particle3d/server/internal/handler"
	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
	"github.com/particle3d/server/internal/net/ws"
	"github.com/particle3d/server/internal/particle"
	"github.com/particle3d/server/internal/world"
)

// Broadcaster is the websocket side of frame streaming.
type Broadcaster interface {
	Broadcast(v any) error
	Len() int
}

// OutputSystem streams particle snapshots every few ticks and flushes all
// session output buffers. Phase 4 (Output).
type OutputSystem struct {
	scene        *world.Scene
	store        *net.SessionStore
	hub          Broadcaster // may be nil
	every        int
	maxParticles int
	log          *zap.Logger

	w     *packet.Writer
	frame ws.Frame
}

func NewOutputSystem(scene *world.Scene, store *net.SessionStore, hub Broadcaster, every, maxParticles int, log *zap.Logger) *OutputSystem {
	if every <= 0 {
		every = 1
	}
	return &OutputSystem{
		scene:        scene,
		store:        store,
		hub:          hub,
		every:        every,
		maxParticles: maxParticles,
		log:          log,
		w:            packet.NewWriter(),
	}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	if s.scene.Tick%uint64(s.every) == 0 {
		s.stream()
	}
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

func (s *OutputSystem) stream() {
	tcp := s.store.Count() > 0
	web := s.hub != nil && s.hub.Len() > 0
	if !tcp && !web {
		return
	}
	s.scene.AllSystems(func(sys *particle.System) {
		if sys.State() == particle.StateStop || !sys.Enabled() {
			return
		}
		if tcp {
			data := handler.BuildFrame(s.w, sys, s.scene.Tick, s.maxParticles)
			s.store.ForEach(func(sess *net.Session) {
				if sess.State() != packet.StateAuthenticated {
					return
				}
				if sess.Subscribed == "" || sess.Subscribed == sys.Name() {
					sess.Send(data)
				}
			})
		}
		if web {
			s.fillFrame(sys)
			if err := s.hub.Broadcast(&s.frame); err != nil {
				s.log.Warn("websocket frame encode failed", zap.String("system", sys.Name()), zap.Error(err))
			}
		}
	})
}

// fillFrame reuses the frame's particle slice across systems and ticks.
func (s *OutputSystem) fillFrame(sys *particle.System) {
	f := &s.frame
	f.System = sys.Name()
	f.Tick = s.scene.Tick
	f.State = sys.State().String()
	f.Alive = sys.AliveCount()
	f.Quota = sys.Quota()
	f.Particles = f.Particles[:0]

	active := sys.Pool().Active()
	for h := active.First(); h != particle.NoHandle; h = active.Next(h) {
		if s.maxParticles > 0 && len(f.Particles) >= s.maxParticles {
			break
		}
		p := active.At(h)
		f.Particles = append(f.Particles, [7]float32{
			p.Position[0], p.Position[1], p.Position[2],
			p.Color[0], p.Color[1], p.Color[2], p.Color[3],
		})
	}
}
