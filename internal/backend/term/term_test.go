package term

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/particle3d/server/internal/particle/render"
)

func newSim(t *testing.T) (tcell.SimulationScreen, *Backend) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	screen.SetSize(40, 20)
	t.Cleanup(screen.Fini)
	return screen, New(screen, 2, nil)
}

func TestSubmitPlotsAtCentre(t *testing.T) {
	screen, b := newSim(t)
	b.Begin()
	b.Submit(&render.Batch{
		Mode:     render.ModePoints,
		Vertices: []render.Vertex{{Pos: mgl32.Vec3{0, 0, 0}, Color: mgl32.Vec4{1, 0, 0, 1}}},
	})
	if n := b.Show(); n != 1 {
		t.Fatalf("expected one plotted cell, got %d", n)
	}
	r, _, style, _ := screen.GetContent(20, 10)
	if r != '@' {
		t.Fatalf("expected solid glyph at centre, got %q", r)
	}
	if fg, _, _ := style.Decompose(); fg != tcell.NewRGBColor(255, 0, 0) {
		t.Fatalf("unexpected foreground %v", fg)
	}
}

func TestQuadsPlotCentroid(t *testing.T) {
	screen, b := newSim(t)
	b.Begin()
	// One quad centred on (2, 4): two columns per unit, one row per unit.
	c := mgl32.Vec4{1, 1, 1, 1}
	b.Submit(&render.Batch{
		Mode: render.ModeQuads,
		Vertices: []render.Vertex{
			{Pos: mgl32.Vec3{1.5, 3.5, 0}, Color: c},
			{Pos: mgl32.Vec3{2.5, 3.5, 0}, Color: c},
			{Pos: mgl32.Vec3{2.5, 4.5, 0}, Color: c},
			{Pos: mgl32.Vec3{1.5, 4.5, 0}, Color: c},
		},
	})
	b.Show()
	if r, _, _, _ := screen.GetContent(24, 6); r != '@' {
		t.Fatalf("expected glyph at (24,6), got %q", r)
	}
}

func TestOffscreenIsClipped(t *testing.T) {
	_, b := newSim(t)
	b.Begin()
	b.Submit(&render.Batch{Vertices: []render.Vertex{{Pos: mgl32.Vec3{100, 0, 0}, Color: mgl32.Vec4{1, 1, 1, 1}}}})
	if n := b.Show(); n != 0 {
		t.Fatalf("expected clipped particle, got %d cells", n)
	}
}

func TestGlyphRamp(t *testing.T) {
	if glyph(0) != ' ' || glyph(1) != '@' {
		t.Fatalf("unexpected ramp ends %q %q", glyph(0), glyph(1))
	}
	if glyph(0.01) == ' ' {
		t.Fatalf("visible particle drawn blank")
	}
	if glyph(2) != '@' {
		t.Fatalf("alpha above one not clamped")
	}
}

func TestMapEvent(t *testing.T) {
	cases := []struct {
		ev   *tcell.EventKey
		want Command
	}{
		{tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), CmdQuit},
		{tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), CmdQuit},
		{tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), CmdToggleRun},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), CmdTogglePause},
		{tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), CmdNext},
		{tcell.NewEventKey(tcell.KeyRune, 'e', tcell.ModNone), CmdToggleEnable},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), CmdNone},
	}
	for _, c := range cases {
		if got := MapEvent(c.ev); got != c.want {
			t.Fatalf("key %v: got %d, want %d", c.ev.Name(), got, c.want)
		}
	}
	if MapEvent(tcell.NewEventResize(10, 10)) != CmdNone {
		t.Fatalf("resize mapped to a command")
	}
}
