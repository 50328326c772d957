package gfx

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// AeroEngineVisual is the visible part of an aero engine: spinning blades for
// a turboprop, a nozzle and afterburner flame for a turbojet.
type AeroEngineVisual struct {
	element
	def   AeroEngineDef
	angle float32 // blade angle in radians
}

// BladeAngle returns the current blade rotation in radians.
func (v *AeroEngineVisual) BladeAngle() float32 {
	return v.angle
}

func (v *AeroEngineVisual) update(sb *core.SimBuffer, dt float32) {
	ae := sb.AeroEngines[v.def.Engine]
	hub := sb.NodePosition(v.def.Hub)
	axis := sb.NodePosition(v.def.AxisNode).Sub(hub)
	orient := rotationTo(axis)

	if ae.Kind == core.AeroEngineTurboprop {
		v.angle = math32.Mod(v.angle+ae.RPM/60*2*math32.Pi*dt, 2*math32.Pi)
		orient = orient.Mul(mgl32.QuatRotate(v.angle, axisY))
		v.graph.SetMaterialParam(v.node, "pitch", ae.Pitch)
	} else {
		v.graph.SetMaterialParam(v.node, "nozzle", ae.Throttle)
		v.graph.SetMaterialParam(v.node, "reverse", boolf(ae.Reverse))
		v.updateFlame(ae)
	}
	v.graph.SetMaterialParam(v.node, "ignition", boolf(ae.Ignition && !ae.Failed))
	v.graph.SetTransform(v.node, scene.Transform{
		Position:    hub,
		Orientation: orient,
		Scale:       mgl32.Vec3{1, 1, 1},
	})
}

// Afterburner flame length in meters per unit of exhaust velocity (m/s).
const flameLengthPerVelocity = 1.0 / 200

// updateFlame drives the afterburner material. The flame is lit only while
// the afterburner is engaged on a running engine.
func (v *AeroEngineVisual) updateFlame(ae core.AeroEngineSB) {
	var thrust, length float32
	if ae.Afterburner && ae.Ignition && !ae.Failed {
		thrust = ae.AfterburnerThrust
		length = ae.ExhaustVelocity * flameLengthPerVelocity
	}
	v.graph.SetMaterialParam(v.node, "afterburner", thrust)
	v.graph.SetMaterialParam(v.node, "flame_length", length)
}

// UpdateAeroEngines turns turboprop blades by their RPM and updates turbojet
// nozzles. Blades hold still while physics is paused.
func (a *Actor) UpdateAeroEngines(dt float32) {
	if !a.ready("UpdateAeroEngines") {
		return
	}
	if a.sb.PhysicsPaused {
		dt = 0
	}
	for _, v := range a.aeroEngines {
		v.update(a.sb, dt)
	}
}

var _ Visible = (*AeroEngineVisual)(nil)
