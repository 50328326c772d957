package gfx

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// DebugViewState is the per-actor debug overlay selection. It remembers the
// last non-NONE view so Toggle can bring it back.
type DebugViewState struct {
	current core.DebugView
	last    core.DebugView
}

// NewDebugViewState starts with the overlay off; the first Toggle shows the
// skeleton.
func NewDebugViewState() DebugViewState {
	return DebugViewState{current: core.DebugViewNone, last: core.DebugViewSkeleton}
}

// Current returns the active view.
func (s *DebugViewState) Current() core.DebugView {
	return s.current
}

// Last returns the view Toggle would switch to from NONE.
func (s *DebugViewState) Last() core.DebugView {
	return s.last
}

// Set switches to v. Leaving a non-NONE view remembers it.
func (s *DebugViewState) Set(v core.DebugView) {
	if s.current != core.DebugViewNone {
		s.last = s.current
	}
	s.current = v
}

// Cycle moves to the next view in enumeration order, wrapping to NONE.
func (s *DebugViewState) Cycle() {
	s.Set(s.current.Next())
}

// Toggle flips between NONE and the last non-NONE view.
func (s *DebugViewState) Toggle() {
	if s.current == core.DebugViewNone {
		s.Set(s.last)
	} else {
		s.Set(core.DebugViewNone)
	}
}

var (
	colorNode    = mgl32.Vec4{1, 1, 1, 1}
	colorContact = mgl32.Vec4{1, 0.5, 0, 1}
	colorBeam    = mgl32.Vec4{0, 1, 0, 1}
	colorShock   = mgl32.Vec4{1, 1, 0, 1}
	colorWheel   = mgl32.Vec4{0, 0.5, 1, 1}
	colorRotator = mgl32.Vec4{1, 0, 1, 1}
	colorSlide   = mgl32.Vec4{0, 1, 1, 1}
	colorSubmesh = mgl32.Vec4{0.5, 0.5, 1, 0.5}
)

// DebugView returns the active debug overlay.
func (a *Actor) DebugView() core.DebugView {
	return a.debug.Current()
}

// SetDebugView selects the debug overlay.
func (a *Actor) SetDebugView(v core.DebugView) {
	a.debug.Set(v)
}

// CycleDebugView moves to the next debug overlay.
func (a *Actor) CycleDebugView() {
	a.debug.Cycle()
}

// ToggleDebugView hides or restores the debug overlay.
func (a *Actor) ToggleDebugView() {
	a.debug.Toggle()
}

// UpdateDebugView submits the primitives of the active overlay. NONE clears
// the overlay.
func (a *Actor) UpdateDebugView() {
	if !a.ready("UpdateDebugView") {
		return
	}
	sb := a.sb
	prims := a.debugPrims[:0]
	line := func(p1, p2 mgl32.Vec3, c mgl32.Vec4) {
		prims = append(prims, scene.DebugPrimitive{Kind: scene.PrimitiveLine, Points: [3]mgl32.Vec3{p1, p2}, Color: c})
	}
	point := func(p mgl32.Vec3, c mgl32.Vec4) {
		prims = append(prims, scene.DebugPrimitive{Kind: scene.PrimitivePoint, Points: [3]mgl32.Vec3{p}, Color: c})
	}
	label := func(p mgl32.Vec3, c mgl32.Vec4, s string) {
		prims = append(prims, scene.DebugPrimitive{Kind: scene.PrimitiveLabel, Points: [3]mgl32.Vec3{p}, Color: c, Label: s})
	}

	switch a.debug.Current() {
	case core.DebugViewSkeleton:
		for _, r := range a.rods {
			line(sb.NodePosition(r.def.Node1), sb.NodePosition(r.def.Node2), colorBeam)
		}
	case core.DebugViewNodes:
		for i := range sb.Nodes {
			c := colorNode
			if sb.Nodes[i].HasContact {
				c = colorContact
			}
			point(sb.Nodes[i].Position, c)
			label(sb.Nodes[i].Position, c, strconv.Itoa(i))
		}
	case core.DebugViewBeams:
		for i, r := range a.rods {
			p1, p2 := sb.NodePosition(r.def.Node1), sb.NodePosition(r.def.Node2)
			line(p1, p2, colorBeam)
			label(p1.Add(p2).Mul(0.5), colorBeam, strconv.Itoa(i))
		}
	case core.DebugViewWheels:
		for _, w := range a.wheels {
			line(sb.NodePosition(w.def.AxisNode1), sb.NodePosition(w.def.AxisNode2), colorWheel)
			for _, n := range w.def.RimNodes {
				point(sb.NodePosition(n), colorWheel)
			}
		}
	case core.DebugViewShocks:
		for _, r := range a.rods {
			if r.def.Shock {
				line(sb.NodePosition(r.def.Node1), sb.NodePosition(r.def.Node2), colorShock)
			}
		}
	case core.DebugViewRotators:
		for _, v := range a.aeroEngines {
			line(sb.NodePosition(v.def.Hub), sb.NodePosition(v.def.AxisNode), colorRotator)
		}
		for _, s := range a.screwProps {
			line(sb.NodePosition(s.def.Ref), sb.NodePosition(s.def.Back), colorRotator)
		}
	case core.DebugViewSlidenodes:
		for _, n := range a.slideNodes {
			point(sb.NodePosition(n), colorSlide)
		}
	case core.DebugViewSubmesh:
		if a.cab != nil {
			for _, t := range a.cab.def.Triangles {
				prims = append(prims, scene.DebugPrimitive{
					Kind:   scene.PrimitiveTriangle,
					Points: [3]mgl32.Vec3{sb.NodePosition(t[0]), sb.NodePosition(t[1]), sb.NodePosition(t[2])},
					Color:  colorSubmesh,
				})
			}
		}
	}
	a.debugPrims = prims
	a.graph.SubmitDebug(a.id, prims)
}
