package gfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Rod is a beam drawn as a unit cylinder scaled between its two nodes.
type Rod struct {
	element
	def RodDef
}

func (r *Rod) Update(sb *core.SimBuffer) {
	p1 := sb.NodePosition(r.def.Node1)
	p2 := sb.NodePosition(r.def.Node2)
	d := p2.Sub(p1)
	r.graph.SetTransform(r.node, scene.Transform{
		Position:    p1.Add(p2).Mul(0.5),
		Orientation: rotationTo(d),
		Scale:       mgl32.Vec3{r.def.Diameter, d.Len(), r.def.Diameter},
	})
}

// Cab is the actor's outer skin, rebuilt from node positions every frame.
type Cab struct {
	element
	def      CabDef
	vertices []mgl32.Vec3
	normals  []mgl32.Vec3
}

func newCab(graph scene.Graph, name string, def CabDef) *Cab {
	n := len(def.Triangles) * 3
	return &Cab{
		element:  newElement(graph, name, true),
		def:      def,
		vertices: make([]mgl32.Vec3, n),
		normals:  make([]mgl32.Vec3, n),
	}
}

func (c *Cab) Update(sb *core.SimBuffer) {
	for i, t := range c.def.Triangles {
		a, b, cc := sb.NodePosition(t[0]), sb.NodePosition(t[1]), sb.NodePosition(t[2])
		n := faceNormal(a, b, cc)
		c.vertices[i*3], c.vertices[i*3+1], c.vertices[i*3+2] = a, b, cc
		c.normals[i*3], c.normals[i*3+1], c.normals[i*3+2] = n, n, n
	}
	c.graph.UpdateMesh(c.node, c.vertices, c.normals)
}

// Wing is a flat panel between four nodes, drawn as two triangles.
type Wing struct {
	element
	def      WingDef
	vertices [6]mgl32.Vec3
	normals  [6]mgl32.Vec3
}

func (w *Wing) Update(sb *core.SimBuffer) {
	var c [4]mgl32.Vec3
	for i, n := range w.def.Corners {
		c[i] = sb.NodePosition(n)
	}
	w.vertices = [6]mgl32.Vec3{c[0], c[1], c[2], c[0], c[2], c[3]}
	n1 := faceNormal(c[0], c[1], c[2])
	n2 := faceNormal(c[0], c[2], c[3])
	w.normals = [6]mgl32.Vec3{n1, n1, n1, n2, n2, n2}
	w.graph.UpdateMesh(w.node, w.vertices[:], w.normals[:])
	if w.def.Flap {
		w.graph.SetMaterialParam(w.node, "flap", float32(sb.Gameplay.AeroFlapState))
	}
}

// Airbrake is a panel pivoting around its frame X axis by the airbrake ratio.
type Airbrake struct {
	element
	def AirbrakeDef
}

func (a *Airbrake) Update(sb *core.SimBuffer) {
	pos, rot := frameBasis(sb, a.def.Frame)
	ratio := sb.Airbrakes[a.def.Airbrake].Ratio
	tilt := mgl32.QuatRotate(mgl32.DegToRad(ratio*a.def.MaxAngle), axisX)
	a.graph.SetTransform(a.node, scene.Transform{
		Position:    pos,
		Orientation: rot.Mul(tilt),
		Scale:       mgl32.Vec3{1, 1, 1},
	})
}

// ScrewProp is a marine propeller with its rudder.
type ScrewProp struct {
	element
	def ScrewPropDef
}

// Maximum rudder deflection in degrees at rudder input 1.
const screwPropRudderAngle = 30

func (s *ScrewProp) Update(sb *core.SimBuffer) {
	ref := sb.NodePosition(s.def.Ref)
	back := sb.NodePosition(s.def.Back)
	sp := sb.ScrewProps[s.def.ScrewProp]
	heading := rotationTo(ref.Sub(back))
	rudder := mgl32.QuatRotate(mgl32.DegToRad(sp.Rudder*screwPropRudderAngle), axisY)
	s.graph.SetTransform(s.node, scene.Transform{
		Position:    ref,
		Orientation: heading.Mul(rudder),
		Scale:       mgl32.Vec3{1, 1, 1},
	})
	s.graph.SetMaterialParam(s.node, "throttle", sp.Throttle)
}

func faceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() < 1e-9 {
		return axisY
	}
	return n.Normalize()
}

var (
	_ Updatable = (*Rod)(nil)
	_ Updatable = (*Cab)(nil)
	_ Updatable = (*Wing)(nil)
	_ Updatable = (*Airbrake)(nil)
	_ Updatable = (*ScrewProp)(nil)
	_ Visible   = (*Rod)(nil)
)
