// Package sim defines the pull interface through which the graphics layer
// reads authoritative state from a simulated actor.
package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/pkg/core"
)

// Actor is the authoritative simulation side of one actor. All methods are
// called from the simulation goroutine during a publish, once each.
//
// Slice-filling methods write exactly len(dst) entries; dst lengths match the
// actor's Layout.
type Actor interface {
	ID() int
	State() core.ActorState
	Layout() core.Layout
	SimTime() float64
	PhysicsPaused() bool
	Network() (username string, colorNum int, liveLocal bool)

	Position() mgl32.Vec3
	// Orientation is the heading around the up axis and the forward vector.
	Orientation() (rotation float32, direction mgl32.Vec3)
	Node0Velocity() mgl32.Vec3
	BoundingBox() (min, max mgl32.Vec3)
	Nodes(dst []core.NodeSB)

	Powertrain() (core.PowertrainSB, bool)
	Steering() core.SteeringSB
	AeroEngines(dst []core.AeroEngineSB)
	Airbrakes(dst []core.AirbrakeSB)
	ScrewProps(dst []core.ScrewPropSB)
	Autopilot() (core.AutopilotSB, bool)
	CommandKeys(dst []core.CommandKeySB)
	Lights() core.LightsSB
	Gameplay() core.GameplaySB
}
