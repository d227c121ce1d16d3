package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/particle3d/server/internal/particle"
)

// QuadRenderer expands every particle into an oriented quad of Width x
// Height centred on its position.
type QuadRenderer struct {
	backend Backend
	batch   Batch
}

// NewQuadRenderer creates a quad renderer submitting to backend.
func NewQuadRenderer(system string, backend Backend) *QuadRenderer {
	return &QuadRenderer{
		backend: backend,
		batch:   Batch{System: system, Mode: ModeQuads},
	}
}

var quadCorners = [4]mgl32.Vec2{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}

func (q *QuadRenderer) Render(active particle.View, transform mgl32.Mat4, blend particle.BlendFunc) {
	b := &q.batch
	b.Reset()
	b.Blend = blend
	b.Transform = transform
	for h := active.First(); h != particle.NoHandle; h = active.Next(h) {
		r := active.At(h)
		uvs := [4]mgl32.Vec2{
			r.LBUV,
			{r.RTUV[0], r.LBUV[1]},
			r.RTUV,
			{r.LBUV[0], r.RTUV[1]},
		}
		for i, c := range quadCorners {
			local := r.Orientation.Rotate(mgl32.Vec3{c[0] * r.Width, c[1] * r.Height, 0})
			pos := transform.Mul4x1(r.Position.Add(local).Vec4(1)).Vec3()
			b.Vertices = append(b.Vertices, Vertex{Pos: pos, Color: r.Color, UV: uvs[i], Size: r.Width})
		}
		b.Particles++
	}
	if q.backend != nil {
		q.backend.Submit(b)
	}
}

// PointRenderer emits one vertex per particle, sized by its width.
type PointRenderer struct {
	backend Backend
	batch   Batch
}

// NewPointRenderer creates a point renderer submitting to backend.
func NewPointRenderer(system string, backend Backend) *PointRenderer {
	return &PointRenderer{
		backend: backend,
		batch:   Batch{System: system, Mode: ModePoints},
	}
}

func (pr *PointRenderer) Render(active particle.View, transform mgl32.Mat4, blend particle.BlendFunc) {
	b := &pr.batch
	b.Reset()
	b.Blend = blend
	b.Transform = transform
	for h := active.First(); h != particle.NoHandle; h = active.Next(h) {
		r := active.At(h)
		pos := transform.Mul4x1(r.Position.Vec4(1)).Vec3()
		uv := r.LBUV.Add(r.RTUV).Mul(0.5)
		b.Vertices = append(b.Vertices, Vertex{Pos: pos, Color: r.Color, UV: uv, Size: r.Width})
		b.Particles++
	}
	if pr.backend != nil {
		pr.backend.Submit(b)
	}
}
