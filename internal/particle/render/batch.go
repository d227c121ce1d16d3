// Package render turns the active particle list into draw batches and hands
// them to a backend. Batches are reused from tick to tick.
package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/particle3d/server/internal/particle"
)

// Mode is the primitive layout of a batch.
type Mode uint8

const (
	ModePoints Mode = iota // one vertex per particle
	ModeQuads              // four vertices per particle, counter-clockwise from left-bottom
)

func (m Mode) String() string {
	if m == ModeQuads {
		return "quads"
	}
	return "points"
}

// Vertex is one transformed vertex of the draw payload.
type Vertex struct {
	Pos   mgl32.Vec3
	Color mgl32.Vec4
	UV    mgl32.Vec2
	Size  float32
}

// Batch is the draw payload of one system for one frame.
type Batch struct {
	System    string
	Mode      Mode
	Blend     particle.BlendFunc
	Transform mgl32.Mat4
	Particles int
	Vertices  []Vertex
}

// Reset empties b keeping its storage.
func (b *Batch) Reset() {
	b.Particles = 0
	b.Vertices = b.Vertices[:0]
}

// CopyFrom makes b a deep copy of src, reusing b's storage.
func (b *Batch) CopyFrom(src *Batch) {
	verts := append(b.Vertices[:0], src.Vertices...)
	*b = *src
	b.Vertices = verts
}

// Backend consumes finished batches. Backends must not retain b after
// Submit returns.
type Backend interface {
	Submit(b *Batch)
}

// Fanout submits to several backends in order.
type Fanout []Backend

func (f Fanout) Submit(b *Batch) {
	for _, be := range f {
		be.Submit(b)
	}
}

// Recorder keeps a copy of the last submitted batch.
type Recorder struct {
	last   Batch
	frames uint64
}

func (r *Recorder) Submit(b *Batch) {
	r.last.CopyFrom(b)
	r.frames++
}

// Last returns the last recorded batch. It stays valid until the next Submit.
func (r *Recorder) Last() *Batch { return &r.last }

// Frames is the number of batches recorded.
func (r *Recorder) Frames() uint64 { return r.frames }
