// Package scene defines the push interface to the rendering scene graph.
package scene

import "github.com/go-gl/mathgl/mgl32"

// NodeID identifies a scene node. Zero is never a valid node.
type NodeID uint32

// Transform places a scene node in world space.
type Transform struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform returns a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{
		Orientation: mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
	}
}

// PrimitiveKind is the shape of a debug primitive.
type PrimitiveKind int

const (
	PrimitivePoint PrimitiveKind = iota
	PrimitiveLine
	PrimitiveTriangle
	PrimitiveLabel
)

// DebugPrimitive is one element of a debug overlay.
type DebugPrimitive struct {
	Kind   PrimitiveKind
	Points [3]mgl32.Vec3
	Color  mgl32.Vec4
	Label  string
}

// Graph is the rendering backend as seen by the graphics proxies. All calls
// are made from the render goroutine.
type Graph interface {
	CreateNode(name string) NodeID
	DestroyNode(id NodeID)
	SetTransform(id NodeID, t Transform)
	SetVisible(id NodeID, visible bool)
	UpdateMesh(id NodeID, vertices, normals []mgl32.Vec3)
	SetMaterialParam(id NodeID, key string, value float32)
	// SetLabel sets the billboard text of a label node.
	SetLabel(id NodeID, text string)
	// SubmitDebug replaces the debug overlay of owner. An empty prims clears it.
	SubmitDebug(owner int, prims []DebugPrimitive)
}
