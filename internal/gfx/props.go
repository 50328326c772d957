package gfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Prop is a rigid mesh attached to a node frame and animated from snapshot
// values.
type Prop struct {
	element
	def PropDef
}

func (p *Prop) animate(sb *core.SimBuffer, shifter float32) {
	pos, rot := frameBasis(sb, p.def.Frame)
	offset := p.def.Offset
	anim := mgl32.QuatIdent()
	for _, a := range p.def.Animations {
		v := propSourceValue(sb, a, shifter) * a.Ratio
		if a.Upper > a.Lower {
			v = clamp(v, a.Lower, a.Upper)
		}
		switch a.Motion {
		case PropRotateX:
			anim = anim.Mul(mgl32.QuatRotate(mgl32.DegToRad(v), axisX))
		case PropRotateY:
			anim = anim.Mul(mgl32.QuatRotate(mgl32.DegToRad(v), axisY))
		case PropRotateZ:
			anim = anim.Mul(mgl32.QuatRotate(mgl32.DegToRad(v), axisZ))
		case PropOffsetX:
			offset = offset.Add(axisX.Mul(v))
		case PropOffsetY:
			offset = offset.Add(axisY.Mul(v))
		case PropOffsetZ:
			offset = offset.Add(axisZ.Mul(v))
		}
	}
	p.graph.SetTransform(p.node, scene.Transform{
		Position:    pos.Add(rot.Rotate(offset)),
		Orientation: rot.Mul(anim),
		Scale:       mgl32.Vec3{1, 1, 1},
	})
}

// HasDriverSeat reports whether the definition marks a driver seat prop.
func (a *Actor) HasDriverSeat() bool {
	return a.driverSeat != nil
}

// CalculateDriverPos returns where the driver's view sits: the driver seat
// prop's frame moved by its offset. ok is false without a seat or snapshot.
func (a *Actor) CalculateDriverPos() (pos mgl32.Vec3, rot mgl32.Quat, ok bool) {
	if a.driverSeat == nil || !a.IsInitialized() {
		return mgl32.Vec3{}, mgl32.QuatIdent(), false
	}
	ref, rot := frameBasis(a.sb, a.driverSeat.def.Frame)
	return ref.Add(rot.Rotate(a.driverSeat.def.Offset)), rot, true
}

func propSourceValue(sb *core.SimBuffer, a PropAnimDef, shifter float32) float32 {
	pt := &sb.Powertrain
	switch a.Source {
	case PropSourceRPM:
		return pt.RPM
	case PropSourceTacho:
		if pt.MaxRPM > 0 {
			return pt.RPM / pt.MaxRPM
		}
	case PropSourceSpeedo:
		if pt.UseMaxRPMForSpeedo && pt.MaxRPM > 0 {
			return pt.RPM / pt.MaxRPM
		}
		if pt.SpeedoHighestKph > 0 {
			return pt.WheelSpeed * 3.6 / pt.SpeedoHighestKph
		}
	case PropSourceTurbo:
		return pt.TurboPSI
	case PropSourceSteering:
		return sb.Steering.HydroDir
	case PropSourceShifter:
		return shifter
	case PropSourceThrottle:
		return pt.Accel
	case PropSourceClutch:
		return pt.Clutch
	case PropSourceParkingBrake:
		return boolf(sb.Gameplay.ParkingBrake)
	case PropSourceAeroRPM:
		return sb.AeroEngines[a.Index].RPMPercent
	case PropSourceAeroThrottle:
		return sb.AeroEngines[a.Index].Throttle
	case PropSourceAirspeed:
		return sb.Gameplay.Airspeed
	case PropSourceAltimeter:
		return sb.Gameplay.Altitude
	case PropSourceFlaps:
		return float32(sb.Gameplay.AeroFlapState)
	case PropSourceAirbrake:
		return sb.Gameplay.AirbrakeState
	case PropSourceAPHeading:
		if sb.HasAutopilot {
			return float32(sb.Autopilot.HeadingValue)
		}
	case PropSourceCommandKey:
		return sb.CommandKeys[a.Index].Value
	case PropSourceBrake:
		return sb.Gameplay.Brake
	case PropSourceAoA:
		return sb.Gameplay.Wing4AoA
	case PropSourceAEPitch:
		return sb.AeroEngines[a.Index].Pitch
	case PropSourceAETorque:
		return sb.AeroEngines[a.Index].Torque
	}
	return 0
}

// shifter advances the gear-change memory and returns the gear the shifter
// props display. A change of gear starts a ShiftTime long interpolation from
// the remembered gear to the new one.
func (a *Actor) shifter(dt float32, gear int) float32 {
	if gear != a.prevGear {
		a.shiftFrom = a.shifterPos
		a.shiftTimer = a.cfg.ShiftTime
		a.prevGear = gear
	}
	if a.shiftTimer > 0 {
		a.shiftTimer -= dt
		if a.shiftTimer < 0 {
			a.shiftTimer = 0
		}
	}
	t := 1 - a.shiftTimer/a.cfg.ShiftTime
	a.shifterPos = a.shiftFrom + (float32(gear)-a.shiftFrom)*t
	return a.shifterPos
}

// UpdateProps animates every prop from the snapshot. Dashboard props are
// only animated for the player's actor.
func (a *Actor) UpdateProps(dt float32, isPlayer bool) {
	if !a.ready("UpdateProps") {
		return
	}
	sb := a.sb
	shifter := a.shifter(dt, sb.Powertrain.Gear)
	for _, p := range a.props {
		if p.def.Dashboard && !isPlayer {
			continue
		}
		p.animate(sb, shifter)
	}
}

// Shifter returns the gear position the shifter props currently display.
func (a *Actor) Shifter() float32 {
	return a.shifterPos
}

var _ Visible = (*Prop)(nil)
