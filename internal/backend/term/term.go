// Package term draws particle batches onto a terminal through tcell.
//
// World space is projected orthographically: the origin sits at the centre
// of the screen, +Y points up and one world unit spans Scale columns.
package term

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/particle3d/server/internal/particle/render"
)

// ramp maps coverage (alpha) to a glyph, faint to solid.
var ramp = []rune(" .:+*#@")

// Command is a user input mapped from a key press.
type Command uint8

const (
	CmdNone Command = iota
	CmdQuit
	CmdToggleRun   // start a stopped system, stop a running one
	CmdTogglePause // pause a running system, resume a paused one
	CmdNext        // select the next system
	CmdToggleEnable
)

// Backend is a render.Backend drawing onto a tcell screen.
type Backend struct {
	screen tcell.Screen
	scale  float32
	log    *zap.Logger

	mu     sync.Mutex
	drawn  int
	events chan tcell.Event
	once   sync.Once
}

// New wraps an initialised screen. scale is columns per world unit.
func New(screen tcell.Screen, scale float32, log *zap.Logger) *Backend {
	if scale <= 0 {
		scale = 4
	}
	return &Backend{
		screen: screen,
		scale:  scale,
		log:    log,
		events: make(chan tcell.Event, 64),
	}
}

// Open creates and initialises the process terminal.
func Open(scale float32, log *zap.Logger) (*Backend, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	return New(screen, scale, log), nil
}

// Begin clears the screen for a new frame.
func (b *Backend) Begin() {
	b.mu.Lock()
	b.screen.Clear()
	b.drawn = 0
	b.mu.Unlock()
}

// Submit plots every particle of the batch as one cell.
func (b *Backend) Submit(batch *render.Batch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, h := b.screen.Size()
	stride := 1
	if batch.Mode == render.ModeQuads {
		stride = 4
	}
	for i := 0; i+stride <= len(batch.Vertices); i += stride {
		v := batch.Vertices[i]
		pos := v.Pos
		if stride == 4 {
			// Quad centre: midpoint of the left-bottom and right-top corners.
			pos = v.Pos.Add(batch.Vertices[i+2].Pos).Mul(0.5)
		}
		x, y, ok := b.project(pos, w, h)
		if !ok {
			continue
		}
		b.screen.SetContent(x, y, glyph(v.Color[3]), nil, styleFor(v.Color))
		b.drawn++
	}
}

// Show flushes the frame to the terminal and returns the number of cells
// plotted since Begin.
func (b *Backend) Show() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.screen.Show()
	return b.drawn
}

// project maps a world position to a cell. Terminal cells are about twice as
// tall as they are wide, so Y is scaled by half.
func (b *Backend) project(p mgl32.Vec3, w, h int) (int, int, bool) {
	x := int(float32(w)/2 + p[0]*b.scale)
	y := int(float32(h)/2 - p[1]*b.scale/2)
	if x < 0 || y < 0 || x >= w || y >= h {
		return 0, 0, false
	}
	return x, y, true
}

func glyph(alpha float32) rune {
	if alpha <= 0 {
		return ramp[0]
	}
	i := int(alpha*float32(len(ramp)-1) + 0.5)
	if i < 1 {
		i = 1
	}
	if i >= len(ramp) {
		i = len(ramp) - 1
	}
	return ramp[i]
}

func styleFor(c mgl32.Vec4) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(channel(c[0]), channel(c[1]), channel(c[2])))
}

func channel(v float32) int32 {
	return int32(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}

// Commands starts the event pump on first use and returns mapped commands
// without blocking, appended to dst[:0].
func (b *Backend) Commands(dst []Command) []Command {
	b.once.Do(func() {
		go func() {
			for {
				ev := b.screen.PollEvent()
				if ev == nil {
					close(b.events)
					return
				}
				select {
				case b.events <- ev:
				default:
					// Drop input when the loop falls behind.
				}
			}
		}()
	})
	dst = dst[:0]
	for {
		select {
		case ev, ok := <-b.events:
			if !ok {
				return append(dst, CmdQuit)
			}
			if cmd := MapEvent(ev); cmd != CmdNone {
				dst = append(dst, cmd)
			}
		default:
			return dst
		}
	}
}

// MapEvent translates a tcell event into a command.
func MapEvent(ev tcell.Event) Command {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return CmdNone
	}
	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return CmdQuit
	case tcell.KeyTab:
		return CmdNext
	case tcell.KeyRune:
		switch key.Rune() {
		case 'q':
			return CmdQuit
		case 's':
			return CmdToggleRun
		case ' ', 'p':
			return CmdTogglePause
		case 'n':
			return CmdNext
		case 'e':
			return CmdToggleEnable
		}
	}
	return CmdNone
}

// Close restores the terminal.
func (b *Backend) Close() {
	b.screen.Fini()
	if b.log != nil {
		b.log.Debug("terminal closed")
	}
}
