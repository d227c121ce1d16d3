package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/particle3d/server/internal/core/event"
	coresys "github.com/particle3d/server/internal/core/system"
	"github.com/particle3d/server/internal/metrics"
	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/particle"
	"github.com/particle3d/server/internal/persist"
	"github.com/particle3d/server/internal/world"
)

// StatsRecorder is the storage side of StatsSystem.
type StatsRecorder interface {
	InsertBatch(ctx context.Context, samples []persist.StatsSample, events []persist.EventRow) error
}

// statsQueue bounds the batches waiting for the writer goroutine.
const statsQueue = 4

type statsBatch struct {
	samples []persist.StatsSample
	events  []persist.EventRow

	writes    chan statsBatch
	done      chan struct{}
	closeOnce sync.Once
}

// StatsSystem keeps the Prometheus gauges current every tick, samples pool
// occupancy every sampleEvery ticks and hands samples and lifecycle events to
// a writer goroutine every flushEvery ticks. The tick never waits on the
// database: when the writer is behind, the batch is dropped. Phase 5 (Persist).
type StatsSystem struct {
	scene       *world.Scene
	m           *metrics.Metrics
	repo        StatsRecorder // may be nil
	store       *net.SessionStore
	hub         Broadcaster // may be nil
	sampleEvery uint64
	flushEvery  uint64
	log         *zap.Logger

	samples []persist.StatsSample
	events  []persist.EventRow
}

func NewStatsSystem(
	scene *world.Scene,
	bus *event.Bus,
	m *metrics.Metrics,
	repo StatsRecorder,
	store *net.SessionStore,
	hub Broadcaster,
	sampleEvery, flushEvery int,
	log *zap.Logger,
) *StatsSystem {
	if sampleEvery <= 0 {
		sampleEvery = 1
	}
	if flushEvery < sampleEvery {
		flushEvery = sampleEvery
	}
	s := &StatsSystem{
		scene:       scene,
		m:           m,
		repo:        repo,
		store:       store,
		hub:         hub,
		sampleEvery: uint64(sampleEvery),
		flushEvery:  uint64(flushEvery),
		log:         log,
	}
	if repo != nil {
		s.writes = make(chan statsBatch, statsQueue)
		s.done = make(chan struct{})
		go s.writeLoop()
	}
	event.Subscribe(bus, s.onStateChanged)
	event.Subscribe(bus, s.onQuotaExhausted)
	event.Subscribe(bus, s.onDestroyed)
	return s
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *StatsSystem) Update(_ time.Duration) {
	tick := s.scene.Tick
	sample := s.repo != nil && tick%s.sampleEvery == 0
	now := time.Now()

	s.scene.AllSystems(func(sys *particle.System) {
		name := sys.Name()
		pool := sys.Pool()
		s.m.Alive.WithLabelValues(name).Set(float64(sys.AliveCount()))
		s.m.Capacity.WithLabelValues(name).Set(float64(pool.Cap()))
		s.m.Free.WithLabelValues(name).Set(float64(pool.FreeLen()))
		s.m.State.WithLabelValues(name).Set(float64(sys.State()))
		if sample {
			s.samples = append(s.samples, persist.StatsSample{
				System:    name,
				Tick:      tick,
				SampledAt: now,
				State:     sys.State().String(),
				Alive:     sys.AliveCount(),
				Free:      pool.FreeLen(),
				Capacity:  pool.Cap(),
				Quota:     sys.Quota(),
			})
		}
	})
	if s.store != nil {
		s.m.Viewers.WithLabelValues("tcp").Set(float64(s.store.Count()))
	}
	if s.hub != nil {
		s.m.Viewers.WithLabelValues("websocket").Set(float64(s.hub.Len()))
	}

	if s.repo != nil && tick%s.flushEvery == 0 {
		s.flush()
	}
}

// FlushNow hands whatever is buffered to the writer, then waits for every
// queued batch to be written and stops the writer. Called on graceful
// shutdown; later calls do nothing.
func (s *StatsSystem) FlushNow() {
	if s.repo == nil {
		return
	}
	s.closeOnce.Do(func() {
		if b, ok := s.take(); ok {
			s.writes <- b
		}
		close(s.writes)
		<-s.done
	})
}

// Buffered returns the number of samples and events waiting for a flush.
func (s *StatsSystem) Buffered() (samples, events int) {
	return len(s.samples), len(s.events)
}

func (s *StatsSystem) flush() {
	b, ok := s.take()
	if !ok {
		return
	}
	select {
	case s.writes <- b:
	default:
		s.log.Warn("stats writer behind, batch dropped",
			zap.Int("samples", len(b.samples)),
			zap.Int("events", len(b.events)),
		)
	}
}

// take copies the buffers into a batch for the writer and clears them.
func (s *StatsSystem) take() (statsBatch, bool) {
	if len(s.samples) == 0 && len(s.events) == 0 {
		return statsBatch{}, false
	}
	b := statsBatch{
		samples: append([]persist.StatsSample(nil), s.samples...),
		events:  append([]persist.EventRow(nil), s.events...),
	}
	s.samples = s.samples[:0]
	s.events = s.events[:0]
	return b, true
}

// writeLoop runs on its own goroutine and owns every InsertBatch call.
func (s *StatsSystem) writeLoop() {
	defer close(s.done)
	for b := range s.writes {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.InsertBatch(ctx, b.samples, b.events); err != nil {
			s.log.Error("stats flush failed",
				zap.Int("samples", len(b.samples)),
				zap.Int("events", len(b.events)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

func (s *StatsSystem) record(system, kind, detail string) {
	if s.repo == nil {
		return
	}
	s.events = append(s.events, persist.EventRow{
		System:    system,
		Tick:      s.scene.Tick,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
}

func (s *StatsSystem) onStateChanged(e event.StateChanged) {
	s.record(e.System, "state", fmt.Sprintf("%s->%s", e.From, e.To))
}

func (s *StatsSystem) onQuotaExhausted(e event.QuotaExhausted) {
	s.m.QuotaExhausted.WithLabelValues(e.System).Inc()
	s.record(e.System, "quota_exhausted", fmt.Sprintf("quota=%d", e.Quota))
}

func (s *StatsSystem) onDestroyed(e event.SystemDestroyed) {
	s.m.Forget(e.System)
	s.record(e.System, "destroyed", "")
}
