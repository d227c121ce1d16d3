package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/particle3d/server/internal/backend/term"
	coresys "github.com/particle3d/server/internal/core/system"
	"github.com/particle3d/server/internal/particle"
	"github.com/particle3d/server/internal/world"
)

// CommandSource yields terminal commands without blocking.
type CommandSource interface {
	Commands(dst []term.Command) []term.Command
}

// ConsoleSystem applies keyboard commands from the terminal to the selected
// particle system. Phase 0 (Input).
type ConsoleSystem struct {
	scene    *world.Scene
	source   CommandSource
	quit     func()
	selected int
	cmds     []term.Command
	log      *zap.Logger
}

func NewConsoleSystem(scene *world.Scene, source CommandSource, quit func(), log *zap.Logger) *ConsoleSystem {
	return &ConsoleSystem{scene: scene, source: source, quit: quit, log: log}
}

func (s *ConsoleSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ConsoleSystem) Update(_ time.Duration) {
	s.cmds = s.source.Commands(s.cmds[:0])
	for _, c := range s.cmds {
		s.apply(c)
	}
}

// Selected returns the name of the system commands apply to.
func (s *ConsoleSystem) Selected() string {
	names := s.scene.Names()
	if len(names) == 0 {
		return ""
	}
	return names[s.selected%len(names)]
}

func (s *ConsoleSystem) apply(c term.Command) {
	if c == term.CmdQuit {
		if s.quit != nil {
			s.quit()
		}
		return
	}
	if c == term.CmdNext {
		s.selected++
		s.log.Info("console selection", zap.String("system", s.Selected()))
		return
	}
	sys := s.scene.GetByName(s.Selected())
	if sys == nil {
		return
	}
	switch c {
	case term.CmdToggleRun:
		if sys.State() == particle.StateStop {
			sys.Start()
		} else {
			sys.Stop()
		}
	case term.CmdTogglePause:
		switch sys.State() {
		case particle.StateRunning:
			sys.Pause()
		case particle.StatePause:
			sys.Resume()
		}
	case term.CmdToggleEnable:
		sys.SetEnabled(!sys.Enabled())
	}
}
