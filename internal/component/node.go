package component

import "github.com/go-gl/mathgl/mgl32"

// Node places a particle system in the scene.
// Pure data; SceneSystem and RenderSystem read it every tick.
type Node struct {
	Transform mgl32.Mat4
	Visible   bool
}

// NewNode returns a visible node at position.
func NewNode(position mgl32.Vec3) *Node {
	return &Node{
		Transform: mgl32.Translate3D(position[0], position[1], position[2]),
		Visible:   true,
	}
}
