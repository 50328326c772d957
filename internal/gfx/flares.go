package gfx

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Command key value above which a user flare is lit.
const userFlareThreshold = 0.5

// Flare is a light attached to a node.
type Flare struct {
	element
	def FlareDef
	on  bool
}

// On reports whether the flare was lit by the last UpdateFlares.
func (f *Flare) On() bool {
	return f.on
}

func (f *Flare) set(on bool, pos mgl32.Vec3, orient mgl32.Quat) {
	f.on = on
	f.graph.SetTransform(f.node, scene.Transform{
		Position:    pos,
		Orientation: orient,
		Scale:       mgl32.Vec3{1, 1, 1},
	})
	f.graph.SetMaterialParam(f.node, "intensity", boolf(on))
}

// advanceBlink steps the blinker timer. The blinker is lit for the first
// half of every BlinkPeriod.
func (a *Actor) advanceBlink(dt float32, blinker core.BlinkType) {
	if blinker == core.BlinkNone {
		a.blinkTimer = 0
		a.blinkOn = false
		return
	}
	period := float32(a.cfg.BlinkPeriod.Seconds())
	a.blinkTimer = math32.Mod(a.blinkTimer+dt, period)
	a.blinkOn = a.blinkTimer < period/2
}

// UpdateFlares switches every flare from the light state of the snapshot and
// advances the blinker and beacon timers. Cockpit flares are only lit for
// the player's actor.
func (a *Actor) UpdateFlares(dt float32, isPlayer bool) {
	if !a.ready("UpdateFlares") {
		return
	}
	sb := a.sb
	lights := sb.Lights

	a.advanceBlink(dt, lights.Blinker)
	if lights.Beacons {
		a.beaconAngle = math32.Mod(a.beaconAngle+dt*a.cfg.BeaconSpeed*2*math32.Pi, 2*math32.Pi)
	}
	left := a.blinkOn && (lights.Blinker == core.BlinkLeft || lights.Blinker == core.BlinkWarn)
	right := a.blinkOn && (lights.Blinker == core.BlinkRight || lights.Blinker == core.BlinkWarn)

	for _, f := range a.flares {
		pos := sb.NodePosition(f.def.Node)
		orient := mgl32.QuatIdent()
		var on bool
		switch f.def.Kind {
		case FlareHeadlight:
			on = lights.Headlights
		case FlareBrake:
			on = lights.BrakeLights
		case FlareReverse:
			on = lights.ReverseLight
		case FlareBlinkLeft:
			on = left
		case FlareBlinkRight:
			on = right
		case FlareBeacon:
			on = lights.Beacons
			orient = mgl32.QuatRotate(a.beaconAngle, axisY)
		case FlareUser:
			on = sb.CommandKeys[f.def.CommandKey].Value > userFlareThreshold
		}
		if f.def.Cockpit && !isPlayer {
			on = false
		}
		f.set(on, pos, orient)
	}
}

// BlinkerLit reports whether the turn signal is in the lit half of its period.
func (a *Actor) BlinkerLit() bool {
	return a.blinkOn
}

var _ Visible = (*Flare)(nil)
