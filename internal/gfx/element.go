package gfx

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Visible is implemented by every sub-object that can be shown or hidden.
type Visible interface {
	SetVisible(visible bool)
	IsVisible() bool
}

// Updatable is implemented by the sub-objects whose update is a pure
// function of the snapshot.
type Updatable interface {
	Update(sb *core.SimBuffer)
}

// element is one scene node owned by an actor.
type element struct {
	graph   scene.Graph
	node    scene.NodeID
	visible bool
}

func newElement(graph scene.Graph, name string, visible bool) element {
	e := element{graph: graph, node: graph.CreateNode(name), visible: visible}
	if !visible {
		graph.SetVisible(e.node, false)
	}
	return e
}

func (e *element) SetVisible(visible bool) {
	e.visible = visible
	e.graph.SetVisible(e.node, visible)
}

func (e *element) IsVisible() bool {
	return e.visible
}

// Node returns the scene node of the sub-object.
func (e *element) Node() scene.NodeID {
	return e.node
}

func (e *element) destroy() {
	e.graph.DestroyNode(e.node)
}

var (
	axisX = mgl32.Vec3{1, 0, 0}
	axisY = mgl32.Vec3{0, 1, 0}
	axisZ = mgl32.Vec3{0, 0, 1}
)

// frameBasis returns the position and orthonormal orientation of a node
// frame. Degenerate frames fall back to the identity orientation.
func frameBasis(sb *core.SimBuffer, f Frame) (mgl32.Vec3, mgl32.Quat) {
	ref := sb.NodePosition(f.Ref)
	x := sb.NodePosition(f.X).Sub(ref)
	y := sb.NodePosition(f.Y).Sub(ref)
	z := x.Cross(y)
	if x.Len() < 1e-6 || z.Len() < 1e-6 {
		return ref, mgl32.QuatIdent()
	}
	x = x.Normalize()
	z = z.Normalize()
	y = z.Cross(x)
	m := mgl32.Mat3FromCols(x, y, z)
	return ref, mgl32.Mat4ToQuat(m.Mat4()).Normalize()
}

// rotationTo returns the rotation taking +Y onto dir.
func rotationTo(dir mgl32.Vec3) mgl32.Quat {
	if dir.Len() < 1e-6 {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatBetweenVectors(axisY, dir.Normalize())
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

func boolf(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
