package snapshot

import (
	"fmt"

	"github.com/rorsim/gfxbridge/internal/sim"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Capture overwrites every field of sb from the authoritative actor state.
// A source whose layout differs from sb is a contract violation and panics.
func Capture(sb *core.SimBuffer, src sim.Actor) {
	if got, want := src.Layout(), sb.Layout(); got != want {
		panic(fmt.Sprintf("snapshot: actor %d layout %+v does not match buffer %+v", src.ID(), got, want))
	}

	sb.ActorID = src.ID()
	sb.State = src.State()
	sb.PhysicsPaused = src.PhysicsPaused()
	sb.Username, sb.ColorNum, sb.LiveLocal = src.Network()
	sb.SimTime = src.SimTime()

	sb.Position = src.Position()
	sb.Rotation, sb.Direction = src.Orientation()
	sb.Node0Velocity = src.Node0Velocity()
	sb.AABBMin, sb.AABBMax = src.BoundingBox()
	src.Nodes(sb.Nodes)

	if pt, ok := src.Powertrain(); ok {
		sb.HasEngine = true
		sb.Powertrain = pt
	} else {
		sb.HasEngine = false
		sb.Powertrain = core.PowertrainSB{}
	}

	sb.Steering = src.Steering()
	src.AeroEngines(sb.AeroEngines)
	src.Airbrakes(sb.Airbrakes)
	src.ScrewProps(sb.ScrewProps)

	if ap, ok := src.Autopilot(); ok {
		sb.HasAutopilot = true
		sb.Autopilot = ap
	} else {
		sb.ResetAutopilot()
	}

	src.CommandKeys(sb.CommandKeys)
	sb.Lights = src.Lights()
	sb.Gameplay = src.Gameplay()
}

// PublishFrom captures src into the store's back buffer and publishes it.
func (s *Store) PublishFrom(src sim.Actor) {
	s.Publish(func(sb *core.SimBuffer) {
		Capture(sb, src)
	})
}
