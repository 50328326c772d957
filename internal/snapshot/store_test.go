package snapshot

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/internal/sim"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// fakeActor returns fixed authoritative values for capture tests
type fakeActor struct {
	layout     core.Layout
	nodes      []core.NodeSB
	powertrain *core.PowertrainSB
	autopilot  *core.AutopilotSB
	aero       []core.AeroEngineSB
	brakes     []core.AirbrakeSB
	screws     []core.ScrewPropSB
	keys       []core.CommandKeySB
}

var _ sim.Actor = (*fakeActor)(nil)

func newFakeActor(layout core.Layout) *fakeActor {
	f := &fakeActor{
		layout: layout,
		nodes:  make([]core.NodeSB, layout.Nodes),
		aero:   make([]core.AeroEngineSB, layout.AeroEngines),
		brakes: make([]core.AirbrakeSB, layout.Airbrakes),
		screws: make([]core.ScrewPropSB, layout.ScrewProps),
		keys:   make([]core.CommandKeySB, layout.CommandKeys),
	}
	for i := range f.nodes {
		f.nodes[i] = core.NodeSB{Position: mgl32.Vec3{float32(i), 1, 2}, HasContact: i%2 == 0}
	}
	for i := range f.aero {
		f.aero[i] = core.AeroEngineSB{RPM: 1000 + float32(i), Ignition: true, Torque: 80, Pitch: 12.5}
	}
	if len(f.aero) > 1 {
		f.aero[1] = core.AeroEngineSB{
			Kind: core.AeroEngineTurbojet, Throttle: 1, Afterburner: true,
			AfterburnerThrust: 35, ExhaustVelocity: 600,
		}
	}
	for i := range f.brakes {
		f.brakes[i] = core.AirbrakeSB{Ratio: 0.25 * float32(i)}
	}
	for i := range f.screws {
		f.screws[i] = core.ScrewPropSB{Rudder: -0.5, Throttle: float32(i)}
	}
	for i := range f.keys {
		f.keys[i] = core.CommandKeySB{Value: 0.1 * float32(i)}
	}
	return f
}

func (f *fakeActor) ID() int { return 42 }
func (f *fakeActor) State() core.ActorState { return core.ActorStateLocalSimulated }
func (f *fakeActor) Layout() core.Layout { return f.layout }
func (f *fakeActor) SimTime() float64 { return 12.5 }
func (f *fakeActor) PhysicsPaused() bool { return false }
func (f *fakeActor) Position() mgl32.Vec3 { return mgl32.Vec3{10, 0, -3} }
func (f *fakeActor) Node0Velocity() mgl32.Vec3 { return mgl32.Vec3{0, 0, 5} }
func (f *fakeActor) Orientation() (float32, mgl32.Vec3) {
	return 1.25, mgl32.Vec3{0, 0, 1}
}
func (f *fakeActor) Network() (string, int, bool) {
	return "driver", 3, true
}
func (f *fakeActor) BoundingBox() (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}
}
func (f *fakeActor) Nodes(dst []core.NodeSB) { copy(dst, f.nodes) }
func (f *fakeActor) Powertrain() (core.PowertrainSB, bool) {
	if f.powertrain == nil {
		return core.PowertrainSB{}, false
	}
	return *f.powertrain, true
}
func (f *fakeActor) Steering() core.SteeringSB {
	return core.SteeringSB{HydroDir: 0.3}
}
func (f *fakeActor) AeroEngines(dst []core.AeroEngineSB) { copy(dst, f.aero) }
func (f *fakeActor) Airbrakes(dst []core.AirbrakeSB) { copy(dst, f.brakes) }
func (f *fakeActor) ScrewProps(dst []core.ScrewPropSB) { copy(dst, f.screws) }
func (f *fakeActor) Autopilot() (core.AutopilotSB, bool) {
	if f.autopilot == nil {
		return core.AutopilotSB{}, false
	}
	return *f.autopilot, true
}
func (f *fakeActor) CommandKeys(dst []core.CommandKeySB) { copy(dst, f.keys) }
func (f *fakeActor) Lights() core.LightsSB {
	return core.LightsSB{Headlights: true, Blinker: core.BlinkWarn}
}
func (f *fakeActor) Gameplay() core.GameplaySB {
	return core.GameplaySB{
		TyrePressure: 40, TyrePressurizing: true, AeroFlapState: 2, Brake: 0.6,
		SmokeEnabled: true, Wing4AoA: 7.5, TopSpeed: 31, CineCam: 2,
	}
}

func testLayout() core.Layout {
	return core.Layout{Nodes: 5, CommandKeys: 3, AeroEngines: 2, Airbrakes: 2, ScrewProps: 1}
}

func TestNew_InitialState(t *testing.T) {
	s := New(testLayout())

	assert.False(t, s.Published())
	assert.Equal(t, uint64(0), s.Seq())
	sb := s.Acquire()
	require.NotNil(t, sb)
	assert.Equal(t, testLayout(), sb.Layout())
	assert.Equal(t, core.DefaultAutopilot(), sb.Autopilot)
}

func TestPublishFrom_FieldByFieldEquality(t *testing.T) {
	src := newFakeActor(testLayout())
	src.powertrain = &core.PowertrainSB{RPM: 2500, Gear: 3, Clutch: 0.7, Torque: 310, DiffType: core.DiffLocked}
	src.autopilot = &core.AutopilotSB{HeadingMode: core.HeadingNav, AltValue: 5000, IASValue: 240}

	s := New(testLayout())
	s.PublishFrom(src)
	sb := s.Acquire()

	assert.Equal(t, 42, sb.ActorID)
	assert.Equal(t, core.ActorStateLocalSimulated, sb.State)
	assert.Equal(t, 12.5, sb.SimTime)
	assert.Equal(t, "driver", sb.Username)
	assert.Equal(t, 3, sb.ColorNum)
	assert.True(t, sb.LiveLocal)
	assert.Equal(t, src.Position(), sb.Position)
	assert.Equal(t, float32(1.25), sb.Rotation)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, sb.Direction)
	assert.Equal(t, src.Node0Velocity(), sb.Node0Velocity)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, sb.AABBMin)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, sb.AABBMax)
	assert.Equal(t, src.nodes, sb.Nodes)
	assert.True(t, sb.HasEngine)
	assert.Equal(t, *src.powertrain, sb.Powertrain)
	assert.Equal(t, src.Steering(), sb.Steering)
	assert.Equal(t, src.aero, sb.AeroEngines)
	assert.Equal(t, float32(80), sb.AeroEngines[0].Torque)
	assert.Equal(t, float32(12.5), sb.AeroEngines[0].Pitch)
	assert.True(t, sb.AeroEngines[1].Afterburner)
	assert.Equal(t, float32(35), sb.AeroEngines[1].AfterburnerThrust)
	assert.Equal(t, float32(600), sb.AeroEngines[1].ExhaustVelocity)
	assert.Equal(t, src.brakes, sb.Airbrakes)
	assert.Equal(t, src.screws, sb.ScrewProps)
	assert.True(t, sb.HasAutopilot)
	assert.Equal(t, *src.autopilot, sb.Autopilot)
	assert.Equal(t, src.keys, sb.CommandKeys)
	assert.Equal(t, src.Lights(), sb.Lights)
	assert.Equal(t, src.Gameplay(), sb.Gameplay)
	assert.True(t, sb.Gameplay.SmokeEnabled)
	assert.True(t, sb.Gameplay.TyrePressurizing)
	assert.Equal(t, float32(0.6), sb.Gameplay.Brake)
	assert.Equal(t, float32(7.5), sb.Gameplay.Wing4AoA)
	assert.Equal(t, float32(31), sb.Gameplay.TopSpeed)
	assert.Equal(t, 2, sb.Gameplay.CineCam)
	assert.Equal(t, core.DiffLocked, sb.Powertrain.DiffType)
	assert.Equal(t, uint64(1), s.Seq())
}

func TestPublishFrom_AutopilotDisabledUsesDefaults(t *testing.T) {
	src := newFakeActor(testLayout())
	src.autopilot = &core.AutopilotSB{HeadingMode: core.HeadingFixed, AltValue: 9000, IASValue: 300}

	s := New(testLayout())
	s.PublishFrom(src)
	s.PublishFrom(src)
	s.PublishFrom(src)

	// every buffer in the ring has held autopilot data; turning it off must reset
	src.autopilot = nil
	for i := 0; i < 3; i++ {
		s.PublishFrom(src)
		sb := s.Acquire()
		assert.False(t, sb.HasAutopilot)
		assert.Equal(t, core.HeadingNone, sb.Autopilot.HeadingMode)
		assert.Equal(t, 1000, sb.Autopilot.AltValue)
		assert.Equal(t, 150, sb.Autopilot.IASValue)
	}
}

func TestPublishFrom_EngineRemovedClearsPowertrain(t *testing.T) {
	src := newFakeActor(testLayout())
	src.powertrain = &core.PowertrainSB{RPM: 900}
	s := New(testLayout())
	for i := 0; i < 3; i++ {
		s.PublishFrom(src)
	}

	src.powertrain = nil
	s.PublishFrom(src)
	sb := s.Acquire()
	assert.False(t, sb.HasEngine)
	assert.Equal(t, core.PowertrainSB{}, sb.Powertrain)
}

func TestPublishFrom_LayoutMismatchPanics(t *testing.T) {
	s := New(testLayout())
	other := testLayout()
	other.Airbrakes = 9

	assert.Panics(t, func() { s.PublishFrom(newFakeActor(other)) })
}

func TestPublish_ResizingPanics(t *testing.T) {
	s := New(testLayout())
	assert.Panics(t, func() {
		s.Publish(func(sb *core.SimBuffer) {
			sb.Nodes = append(sb.Nodes, core.NodeSB{})
		})
	})
}

func TestArrayLengthsStableAcrossPublishes(t *testing.T) {
	src := sim.NewScripted(sim.ScriptedConfig{
		ID:          1,
		Shape:       []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Speed:       5,
		HasEngine:   true,
		CommandKeys: 2,
		AeroEngines: 1,
		Airbrakes:   1,
		ScrewProps:  1,
	})
	s := New(src.Layout())

	for i := 0; i < 10; i++ {
		src.Step(0.01)
		s.PublishFrom(src)
		sb := s.Acquire()
		assert.Equal(t, src.Layout(), sb.Layout())
	}
}

func TestAcquire_RepeatsWithoutPublish(t *testing.T) {
	s := New(testLayout())
	s.PublishFrom(newFakeActor(testLayout()))

	first := s.Acquire()
	second := s.Acquire()
	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), s.Seq())
}

func TestAcquire_SkipsToLatest(t *testing.T) {
	s := New(core.Layout{Nodes: 1})
	for i := 1; i <= 5; i++ {
		v := float32(i)
		s.Publish(func(sb *core.SimBuffer) {
			sb.Nodes[0].Position = mgl32.Vec3{v, v, v}
		})
	}

	sb := s.Acquire()
	assert.Equal(t, mgl32.Vec3{5, 5, 5}, sb.Nodes[0].Position)
	assert.Equal(t, uint64(5), s.Seq())
	assert.Equal(t, uint64(5), s.Publishes())
}

func TestAcquire_HeldBufferIsNotOverwritten(t *testing.T) {
	s := New(core.Layout{Nodes: 1})
	s.Publish(func(sb *core.SimBuffer) { sb.ActorID = 1 })
	held := s.Acquire()

	for i := 2; i < 10; i++ {
		id := i
		s.Publish(func(sb *core.SimBuffer) {
			require.NotSame(t, held, sb)
			sb.ActorID = id
		})
	}
	assert.Equal(t, 1, held.ActorID)
	assert.Equal(t, 9, s.Acquire().ActorID)
}

// Every published buffer is internally consistent: all fields carry the same
// sequence value. A torn read would mix values from two publishes.
func TestConcurrentPublishAcquire_NoTornReads(t *testing.T) {
	layout := core.Layout{Nodes: 64, CommandKeys: 8}
	s := New(layout)

	const ticks = 20000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= ticks; i++ {
			v := float32(i)
			s.Publish(func(sb *core.SimBuffer) {
				sb.ActorID = i
				for n := range sb.Nodes {
					sb.Nodes[n].Position = mgl32.Vec3{v, v, v}
				}
				for k := range sb.CommandKeys {
					sb.CommandKeys[k].Value = v
				}
			})
		}
	}()

	var lastSeq uint64
	for lastSeq < ticks {
		sb := s.Acquire()
		seq := s.Seq()
		require.GreaterOrEqual(t, seq, lastSeq, "sequence must never go backwards")
		lastSeq = seq
		if seq == 0 {
			continue
		}
		want := float32(sb.ActorID)
		for n := range sb.Nodes {
			require.Equal(t, want, sb.Nodes[n].Position.X())
		}
		for k := range sb.CommandKeys {
			require.Equal(t, want, sb.CommandKeys[k].Value)
		}
	}
	wg.Wait()
}
