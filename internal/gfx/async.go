package gfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Flexbody is a mesh deformed by its node frame. The vertex buffers are
// written by a worker task and read only after the frame's join.
type Flexbody struct {
	element
	def      FlexbodyDef
	vertices []mgl32.Vec3
	normals  []mgl32.Vec3
	pending  bool
}

func newFlexbody(graph scene.Graph, name string, def FlexbodyDef) *Flexbody {
	return &Flexbody{
		element:  newElement(graph, name, true),
		def:      def,
		vertices: make([]mgl32.Vec3, len(def.Vertices)),
		normals:  make([]mgl32.Vec3, len(def.Vertices)),
	}
}

// compute runs on a worker goroutine.
func (f *Flexbody) compute(sb *core.SimBuffer) {
	ref := sb.NodePosition(f.def.Frame.Ref)
	x := sb.NodePosition(f.def.Frame.X).Sub(ref)
	y := sb.NodePosition(f.def.Frame.Y).Sub(ref)
	z := x.Cross(y)
	n := axisY
	if z.Len() > 1e-9 {
		n = z.Normalize()
	}
	for i, v := range f.def.Vertices {
		f.vertices[i] = ref.Add(x.Mul(v.X())).Add(y.Mul(v.Y())).Add(n.Mul(v.Z()))
		f.normals[i] = n
	}
}

func (f *Flexbody) push() {
	f.graph.UpdateMesh(f.node, f.vertices, f.normals)
}

// WheelVisual is a wheel placed at its axle midpoint. Flexible wheels also
// carry a rim mesh built from their rim nodes.
type WheelVisual struct {
	element
	def       WheelDef
	transform scene.Transform
	vertices  []mgl32.Vec3
	normals   []mgl32.Vec3
	pending   bool
}

func newWheelVisual(graph scene.Graph, name string, def WheelDef) *WheelVisual {
	w := &WheelVisual{
		element: newElement(graph, name, true),
		def:     def,
	}
	if def.Flexible {
		w.vertices = make([]mgl32.Vec3, len(def.RimNodes))
		w.normals = make([]mgl32.Vec3, len(def.RimNodes))
	}
	return w
}

// compute runs on a worker goroutine.
func (w *WheelVisual) compute(sb *core.SimBuffer) {
	a := sb.NodePosition(w.def.AxisNode1)
	b := sb.NodePosition(w.def.AxisNode2)
	center := a.Add(b).Mul(0.5)
	axis := b.Sub(a)
	w.transform = scene.Transform{
		Position:    center,
		Orientation: rotationTo(axis),
		Scale:       mgl32.Vec3{w.def.Radius, axis.Len(), w.def.Radius},
	}
	if !w.def.Flexible {
		return
	}
	for i, n := range w.def.RimNodes {
		p := sb.NodePosition(n)
		w.vertices[i] = p
		out := p.Sub(center)
		// project onto the wheel plane
		if l := axis.Len(); l > 1e-6 {
			ax := axis.Mul(1 / l)
			out = out.Sub(ax.Mul(out.Dot(ax)))
		}
		if out.Len() > 1e-6 {
			w.normals[i] = out.Normalize()
		} else {
			w.normals[i] = axisY
		}
	}
}

func (w *WheelVisual) push() {
	w.graph.SetTransform(w.node, w.transform)
	if w.def.Flexible {
		w.graph.UpdateMesh(w.node, w.vertices, w.normals)
	}
}

var (
	_ Visible = (*Flexbody)(nil)
	_ Visible = (*WheelVisual)(nil)
)
