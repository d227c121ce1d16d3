package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/particle3d/server/internal/component"
	"github.com/particle3d/server/internal/core/ecs"
	"github.com/particle3d/server/internal/core/event"
	"github.com/particle3d/server/internal/particle"
)

// ErrDuplicateSystem is returned when a system name is already in the scene.
var ErrDuplicateSystem = errors.New("duplicate system name")

// Scene is the set of particle systems being simulated. Each system is an
// entity carrying a *particle.System and a *component.Node.
// Accessed only from the simulation loop goroutine; no locks needed.
type Scene struct {
	world   *ecs.World
	systems *ecs.PtrComponentStore[particle.System]
	nodes   *ecs.PtrComponentStore[component.Node]
	byName  map[string]ecs.EntityID
	bus     *event.Bus

	// Tick is the current simulation tick, advanced by SceneSystem.
	Tick uint64
}

// NewScene creates an empty scene. bus may be nil.
func NewScene(bus *event.Bus) *Scene {
	s := &Scene{
		world:   ecs.NewWorld(),
		systems: ecs.NewPtrComponentStore[particle.System](),
		nodes:   ecs.NewPtrComponentStore[component.Node](),
		byName:  make(map[string]ecs.EntityID),
		bus:     bus,
	}
	s.world.Registry().Register(s.systems)
	s.world.Registry().Register(s.nodes)
	s.systems.OnRemove(s.systemRemoved)
	return s
}

// World exposes the entity world (CleanupSystem flushes its queue).
func (s *Scene) World() *ecs.World { return s.world }

// Add places sys in the scene under its name. A nil node places it at the
// origin.
func (s *Scene) Add(sys *particle.System, node *component.Node) (ecs.EntityID, error) {
	if _, dup := s.byName[sys.Name()]; dup {
		return 0, fmt.Errorf("%q: %w", sys.Name(), ErrDuplicateSystem)
	}
	if node == nil {
		node = component.NewNode(mgl32.Vec3{})
	}
	id := s.world.CreateEntity()
	s.systems.Set(id, sys)
	s.nodes.Set(id, node)
	s.byName[sys.Name()] = id
	if s.bus != nil {
		sys.SetListener(&busListener{scene: s})
	}
	return id, nil
}

// Remove queues the named system for destruction at the end of the tick.
func (s *Scene) Remove(name string) bool {
	id, ok := s.byName[name]
	if !ok {
		return false
	}
	s.world.MarkForDestruction(id)
	return true
}

// GetByName returns the named system, or nil.
func (s *Scene) GetByName(name string) *particle.System {
	id, ok := s.byName[name]
	if !ok {
		return nil
	}
	sys, _ := s.systems.Get(id)
	return sys
}

// NodeOf returns the node of the named system, or nil.
func (s *Scene) NodeOf(name string) *component.Node {
	id, ok := s.byName[name]
	if !ok {
		return nil
	}
	n, _ := s.nodes.Get(id)
	return n
}

// Count is the number of systems in the scene.
func (s *Scene) Count() int { return s.systems.Len() }

// Names returns the system names in sorted order.
func (s *Scene) Names() []string {
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AllSystems visits every system in insertion order (modulo removals).
func (s *Scene) AllSystems(fn func(*particle.System)) {
	s.systems.Each(func(_ ecs.EntityID, sys *particle.System) { fn(sys) })
}

// AllPlaced visits every system together with its node.
func (s *Scene) AllPlaced(fn func(*particle.System, *component.Node)) {
	ecs.Each2(s.systems, s.nodes, func(_ ecs.EntityID, sys *particle.System, n *component.Node) { fn(sys, n) })
}

// systemRemoved runs when CleanupSystem destroys a system's entity.
func (s *Scene) systemRemoved(id ecs.EntityID, sys *particle.System) {
	if s.byName[sys.Name()] == id {
		delete(s.byName, sys.Name())
	}
	sys.SetListener(nil)
	sys.Stop()
	sys.Purge()
	if s.bus != nil {
		event.Emit(s.bus, event.SystemDestroyed{System: sys.Name()})
	}
}

// busListener forwards system notifications onto the event bus.
type busListener struct {
	scene *Scene
}

func (l *busListener) StateChanged(sys *particle.System, from, to particle.State) {
	event.Emit(l.scene.bus, event.StateChanged{System: sys.Name(), From: from, To: to})
}

func (l *busListener) QuotaExhausted(sys *particle.System) {
	event.Emit(l.scene.bus, event.QuotaExhausted{System: sys.Name(), Quota: sys.Quota()})
}
