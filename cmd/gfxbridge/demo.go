package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/gfx"
	"github.com/rorsim/gfxbridge/internal/sim"
)

// demoShape is a 2x1x4 m box truck: nodes 0-3 are the ground corners, 4-7
// the roof corners, 8-9 the exhaust pipe.
func demoShape() []mgl32.Vec3 {
	return []mgl32.Vec3{
		{-1, 0, -2}, {1, 0, -2}, {-1, 0, 2}, {1, 0, 2},
		{-1, 1, -2}, {1, 1, -2}, {-1, 1, 2}, {1, 1, 2},
		{0.8, 0.3, -2.1}, {0.8, 0.3, -1.9},
	}
}

func demoActor(id int) *sim.Scripted {
	return sim.NewScripted(sim.ScriptedConfig{
		ID:         id,
		Name:       fmt.Sprintf("truck_%d", id),
		Shape:      demoShape(),
		Center:     mgl32.Vec3{float32(id) * 60, 0, 0},
		PathRadius: 20 + float32(id)*5,
		Speed:      8 + float32(id),
		HasEngine:  true,
		CrankTime:  1.5,

		CommandKeys: 1,
	})
}

func demoDefinition() gfx.Definition {
	frame := gfx.Frame{Ref: 0, X: 1, Y: 4}
	return gfx.Definition{
		Name: "box_truck",
		Rods: []gfx.RodDef{
			{Node1: 0, Node2: 1, Diameter: 0.08},
			{Node1: 2, Node2: 3, Diameter: 0.08},
			{Node1: 0, Node2: 4, Diameter: 0.12, Shock: true},
			{Node1: 1, Node2: 5, Diameter: 0.12, Shock: true},
			{Node1: 2, Node2: 6, Diameter: 0.12, Shock: true},
			{Node1: 3, Node2: 7, Diameter: 0.12, Shock: true},
			{Node1: 4, Node2: 7, Diameter: 0.05, Hidden: true},
		},
		Wheels: []gfx.WheelDef{
			{AxisNode1: 0, AxisNode2: 1, RimNodes: []int{0, 1}, Radius: 0.45, Flexible: true},
			{AxisNode1: 2, AxisNode2: 3, RimNodes: []int{2, 3}, Radius: 0.45, Flexible: true},
		},
		Flexbodies: []gfx.FlexbodyDef{
			{Name: "cargo_box", Frame: frame, Vertices: []mgl32.Vec3{
				{0, 0, 0}, {2, 0, 0}, {0, 1, 0}, {2, 1, 0},
				{0, 0, 4}, {2, 0, 4}, {0, 1, 4}, {2, 1, 4},
			}},
		},
		Props: []gfx.PropDef{
			{Name: "steering_wheel", Frame: frame, Animations: []gfx.PropAnimDef{
				{Source: gfx.PropSourceSteering, Motion: gfx.PropRotateZ, Ratio: 450, Lower: -450, Upper: 450},
			}},
			{Name: "shifter", Frame: frame, Animations: []gfx.PropAnimDef{
				{Source: gfx.PropSourceShifter, Motion: gfx.PropOffsetZ, Ratio: 0.05},
			}},
			{Name: "tachometer", Frame: frame, Dashboard: true, Animations: []gfx.PropAnimDef{
				{Source: gfx.PropSourceTacho, Motion: gfx.PropRotateZ, Ratio: 270, Lower: 0, Upper: 270},
			}},
			{Name: "speedometer", Frame: frame, Dashboard: true, Animations: []gfx.PropAnimDef{
				{Source: gfx.PropSourceSpeedo, Motion: gfx.PropRotateZ, Ratio: 270, Lower: 0, Upper: 270},
			}},
		},
		Flares: []gfx.FlareDef{
			{Kind: gfx.FlareHeadlight, Node: 4},
			{Kind: gfx.FlareHeadlight, Node: 5},
			{Kind: gfx.FlareBlinkLeft, Node: 4},
			{Kind: gfx.FlareBlinkRight, Node: 5},
			{Kind: gfx.FlareBeacon, Node: 6},
			{Kind: gfx.FlareUser, Node: 7, CommandKey: 0},
			{Kind: gfx.FlareHeadlight, Node: 5, Cockpit: true},
		},
		Cab:        &gfx.CabDef{Triangles: [][3]int{{4, 5, 6}, {5, 7, 6}}},
		Exhausts:   []gfx.ExhaustDef{{Node: 8, DirNode: 9}},
		SlideNodes: []int{2, 3},
	}
}
