package emitter

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Range is a closed [Min,Max] interval sampled uniformly.
type Range struct {
	Min, Max float32
}

// Fixed is a degenerate range.
func Fixed(v float32) Range { return Range{v, v} }

// Sample draws a value from the range.
func (r Range) Sample(rng *rand.Rand) float32 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float32()*(r.Max-r.Min)
}

// Shape picks spawn positions in emitter space.
type Shape interface {
	Sample(rng *rand.Rand) mgl32.Vec3
}

// Point spawns every particle at Offset.
type Point struct {
	Offset mgl32.Vec3
}

func (s Point) Sample(*rand.Rand) mgl32.Vec3 { return s.Offset }

// Box spawns uniformly inside an axis-aligned box centred on Center.
type Box struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
}

func (s Box) Sample(rng *rand.Rand) mgl32.Vec3 {
	return mgl32.Vec3{
		s.Center[0] + (rng.Float32()-0.5)*s.Size[0],
		s.Center[1] + (rng.Float32()-0.5)*s.Size[1],
		s.Center[2] + (rng.Float32()-0.5)*s.Size[2],
	}
}

// Sphere spawns inside a sphere, or on its surface when Shell is set.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
	Shell  bool
}

func (s Sphere) Sample(rng *rand.Rand) mgl32.Vec3 {
	dir := unitVector(rng)
	r := s.Radius
	if !s.Shell {
		// cube root keeps the volume density uniform
		r *= float32(math.Cbrt(rng.Float64()))
	}
	return s.Center.Add(dir.Mul(r))
}

func unitVector(rng *rand.Rand) mgl32.Vec3 {
	z := rng.Float32()*2 - 1
	phi := rng.Float64() * 2 * math.Pi
	rxy := float32(math.Sqrt(float64(1 - z*z)))
	return mgl32.Vec3{
		rxy * float32(math.Cos(phi)),
		rxy * float32(math.Sin(phi)),
		z,
	}
}

// coneDirection samples uniformly inside a cone of half angle around axis.
func coneDirection(rng *rand.Rand, axis mgl32.Vec3, angle float32) mgl32.Vec3 {
	up := mgl32.Vec3{0, 1, 0}
	if axis.Len() == 0 {
		axis = up
	}
	axis = axis.Normalize()
	if angle <= 0 {
		return axis
	}
	cosMax := float32(math.Cos(float64(angle)))
	cosTheta := cosMax + rng.Float32()*(1-cosMax)
	sinTheta := float32(math.Sqrt(float64(1 - cosTheta*cosTheta)))
	phi := rng.Float64() * 2 * math.Pi
	local := mgl32.Vec3{
		float32(math.Cos(phi)) * sinTheta,
		cosTheta,
		float32(math.Sin(phi)) * sinTheta,
	}
	return mgl32.QuatBetweenVectors(up, axis).Rotate(local).Normalize()
}
