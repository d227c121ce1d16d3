package system

import (
	"time"

	"github.com/particle3d/server/internal/component"
	coresys "github.com/particle3d/server/internal/core/system"
	"github.com/particle3d/server/internal/particle"
	"github.com/particle3d/server/internal/world"
)

// SceneSystem advances the tick counter and runs emission and affectors of
// every particle system. Phase 2 (Update).
type SceneSystem struct {
	scene *world.Scene
}

func NewSceneSystem(scene *world.Scene) *SceneSystem {
	return &SceneSystem{scene: scene}
}

func (s *SceneSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *SceneSystem) Update(dt time.Duration) {
	s.scene.Tick++
	f := particle.Frame{
		Tick:  s.scene.Tick,
		Delta: float32(dt.Seconds()),
	}
	s.scene.AllPlaced(func(sys *particle.System, n *component.Node) {
		f.Transform = n.Transform
		sys.Update(f)
	})
}

// Screen is the frame boundary of a render backend that presents whole
// frames, such as the terminal.
type Screen interface {
	Begin()
	Show() int
}

// RenderSystem hands every visible system's final particle state to its
// renderer. Phase 3 (Render).
type RenderSystem struct {
	scene  *world.Scene
	screen Screen // may be nil
	drawn  int
}

func NewRenderSystem(scene *world.Scene, screen Screen) *RenderSystem {
	return &RenderSystem{scene: scene, screen: screen}
}

func (s *RenderSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *RenderSystem) Update(_ time.Duration) {
	if s.screen != nil {
		s.screen.Begin()
	}
	s.scene.AllPlaced(func(sys *particle.System, n *component.Node) {
		if n.Visible {
			sys.Draw(n.Transform)
		}
	})
	if s.screen != nil {
		s.drawn = s.screen.Show()
	}
}

// Drawn is the number of cells the screen plotted last frame.
func (s *RenderSystem) Drawn() int { return s.drawn }
