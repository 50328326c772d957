package gfx

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/internal/console"
	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/internal/sim"
	"github.com/rorsim/gfxbridge/internal/worker"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// testActor is a mutable authoritative actor; tests change its fields and
// publish.
type testActor struct {
	id        int
	layout    core.Layout
	state     core.ActorState
	paused    bool
	vel       mgl32.Vec3
	nodes     []core.NodeSB
	engine    *core.PowertrainSB
	steering  core.SteeringSB
	aero      []core.AeroEngineSB
	brakes    []core.AirbrakeSB
	screws    []core.ScrewPropSB
	autopilot *core.AutopilotSB
	keys      []core.CommandKeySB
	lights    core.LightsSB
	gameplay  core.GameplaySB
	username  string
	colorNum  int
	remote    bool
}

var _ sim.Actor = (*testActor)(nil)

var testLayout = core.Layout{Nodes: 8, CommandKeys: 2, AeroEngines: 1, Airbrakes: 1, ScrewProps: 1}

// newTestActor builds a unit cube: node i sits at (i&1, i>>2, (i>>1)&1), the
// bottom four nodes touch the ground.
func newTestActor(id int) *testActor {
	a := &testActor{
		id:     id,
		layout: testLayout,
		state:  core.ActorStateLocalSimulated,
		nodes:  make([]core.NodeSB, testLayout.Nodes),
		aero:   make([]core.AeroEngineSB, testLayout.AeroEngines),
		brakes: make([]core.AirbrakeSB, testLayout.Airbrakes),
		screws: make([]core.ScrewPropSB, testLayout.ScrewProps),
		keys:   make([]core.CommandKeySB, testLayout.CommandKeys),
	}
	for i := range a.nodes {
		a.nodes[i] = core.NodeSB{
			Position:   mgl32.Vec3{float32(i & 1), float32(i >> 2), float32((i >> 1) & 1)},
			HasContact: i < 4,
		}
	}
	return a
}

// shape returns the node positions as rest positions for a Scripted actor.
func (a *testActor) shape() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(a.nodes))
	for i, n := range a.nodes {
		out[i] = n.Position
	}
	return out
}

func (a *testActor) ID() int { return a.id }
func (a *testActor) State() core.ActorState { return a.state }
func (a *testActor) Layout() core.Layout { return a.layout }
func (a *testActor) SimTime() float64 { return 0 }
func (a *testActor) PhysicsPaused() bool { return a.paused }
func (a *testActor) Network() (string, int, bool) {
	return a.username, a.colorNum, !a.remote
}
func (a *testActor) Position() mgl32.Vec3 { return a.nodes[0].Position }
func (a *testActor) Orientation() (float32, mgl32.Vec3) {
	return 0, mgl32.Vec3{0, 0, 1}
}
func (a *testActor) Node0Velocity() mgl32.Vec3 { return a.vel }
func (a *testActor) BoundingBox() (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}
}
func (a *testActor) Nodes(dst []core.NodeSB) { copy(dst, a.nodes) }
func (a *testActor) Powertrain() (core.PowertrainSB, bool) {
	if a.engine == nil {
		return core.PowertrainSB{}, false
	}
	return *a.engine, true
}
func (a *testActor) Steering() core.SteeringSB { return a.steering }
func (a *testActor) AeroEngines(dst []core.AeroEngineSB) { copy(dst, a.aero) }
func (a *testActor) Airbrakes(dst []core.AirbrakeSB) { copy(dst, a.brakes) }
func (a *testActor) ScrewProps(dst []core.ScrewPropSB) { copy(dst, a.screws) }
func (a *testActor) Autopilot() (core.AutopilotSB, bool) {
	if a.autopilot == nil {
		return core.AutopilotSB{}, false
	}
	return *a.autopilot, true
}
func (a *testActor) CommandKeys(dst []core.CommandKeySB) { copy(dst, a.keys) }
func (a *testActor) Lights() core.LightsSB { return a.lights }
func (a *testActor) Gameplay() core.GameplaySB { return a.gameplay }

// Scene nodes created for testDefinition, particle pools and the name label
// included.
const testDefinitionNodes = 21

func testDefinition() Definition {
	return Definition{
		Name: "cube",
		Rods: []RodDef{
			{Node1: 0, Node2: 1, Diameter: 0.1},
			{Node1: 0, Node2: 4, Diameter: 0.1, Shock: true},
			{Node1: 4, Node2: 7, Diameter: 0.1, Hidden: true},
		},
		Wheels: []WheelDef{
			{AxisNode1: 0, AxisNode2: 2, RimNodes: []int{0, 1, 2, 3}, Radius: 0.5, Flexible: true},
		},
		Flexbodies: []FlexbodyDef{
			{Name: "body", Frame: Frame{Ref: 0, X: 1, Y: 2}, Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0.5}}},
		},
		Props: []PropDef{
			{Name: "shifter", Frame: Frame{Ref: 0, X: 1, Y: 2}, Animations: []PropAnimDef{
				{Source: PropSourceShifter, Motion: PropOffsetX, Ratio: 1},
			}},
			{Name: "tacho", Frame: Frame{Ref: 0, X: 1, Y: 2}, Dashboard: true, Animations: []PropAnimDef{
				{Source: PropSourceTacho, Motion: PropRotateZ, Ratio: 270, Lower: 0, Upper: 270},
			}},
		},
		Flares: []FlareDef{
			{Kind: FlareHeadlight, Node: 4},
			{Kind: FlareBlinkLeft, Node: 5},
			{Kind: FlareBlinkRight, Node: 6},
			{Kind: FlareBeacon, Node: 7},
			{Kind: FlareUser, Node: 7, CommandKey: 1},
			{Kind: FlareHeadlight, Node: 4, Cockpit: true},
		},
		Cab:         &CabDef{Triangles: [][3]int{{4, 5, 6}, {5, 7, 6}}},
		Wings:       []WingDef{{Corners: [4]int{4, 5, 7, 6}, Flap: true}},
		Exhausts:    []ExhaustDef{{Node: 3, DirNode: 2}},
		AeroEngines: []AeroEngineDef{{Engine: 0, Hub: 5, AxisNode: 7}},
		Airbrakes:   []AirbrakeDef{{Airbrake: 0, Frame: Frame{Ref: 0, X: 1, Y: 2}, MaxAngle: 60}},
		ScrewProps:  []ScrewPropDef{{ScrewProp: 0, Ref: 1, Back: 0}},
		SlideNodes:  []int{2, 3},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BlinkPeriod = 500 * time.Millisecond
	cfg.ShiftTime = 0.5
	cfg.ParticlePoolSize = 16
	return cfg
}

type fixture struct {
	graph   *scene.Memory
	console *console.Console
	factory *Factory
}

func newFixture() *fixture {
	g := scene.NewMemory()
	c := console.New(slog.New(slog.NewTextHandler(io.Discard, nil)), 32)
	return &fixture{
		graph:   g,
		console: c,
		factory: &Factory{Graph: g, Console: c, Config: testConfig()},
	}
}

// spawn creates a proxy and, when publish is set, publishes once and begins
// a frame so the proxy is initialized.
func (f *fixture) spawn(src *testActor, publish bool) *Actor {
	a := f.factory.Spawn(src, testDefinition())
	if publish {
		a.Publish()
		a.BeginFrame()
	}
	return a
}

// republish publishes src's current state and acquires it.
func republish(a *Actor) {
	a.Publish()
	a.BeginFrame()
}

func newTestPool(t *testing.T) *worker.Pool {
	t.Helper()
	p, err := worker.NewPool(2, nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

// meshState strips the update counter so two pushes of equal data compare
// equal.
func meshState(t *testing.T, g *scene.Memory, id scene.NodeID) scene.NodeState {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %d", id)
	n.MeshUpdates = 0
	return n
}
