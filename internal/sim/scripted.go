package sim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/pkg/core"
)

// ScriptedConfig describes a Scripted actor. Shape holds the node rest
// positions in actor-local space; nodes with a rest height at or below
// GroundHeight report ground contact.
type ScriptedConfig struct {
	ID           int
	Name         string
	Shape        []mgl32.Vec3
	Center       mgl32.Vec3
	PathRadius   float32
	Speed        float32
	GroundHeight float32

	HasEngine bool
	IdleRPM   float32
	MaxRPM    float32
	NumGears  int
	GearTime  float32
	CrankTime float32

	CommandKeys int
	AeroEngines int
	Turbojets   bool // aero engines are turbojets instead of turboprops
	Airbrakes   int
	ScrewProps  int
	Autopilot   bool
}

// Scripted is a deterministic kinematic stand-in for a physics actor. It
// drives its node cloud around a circle and derives powertrain and aero
// telemetry from elapsed time. It is not a physics model.
type Scripted struct {
	cfg    ScriptedConfig
	state  core.ActorState
	paused bool
	t      float32

	nodes []core.NodeSB
	pos   mgl32.Vec3
	vel   mgl32.Vec3
}

// NewScripted creates a Scripted actor positioned at time zero.
func NewScripted(cfg ScriptedConfig) *Scripted {
	if cfg.PathRadius <= 0 {
		cfg.PathRadius = 25
	}
	if cfg.NumGears <= 0 {
		cfg.NumGears = 5
	}
	if cfg.GearTime <= 0 {
		cfg.GearTime = 4
	}
	if cfg.MaxRPM <= 0 {
		cfg.MaxRPM = 3500
	}
	if cfg.IdleRPM <= 0 {
		cfg.IdleRPM = 800
	}
	s := &Scripted{
		cfg:   cfg,
		state: core.ActorStateLocalSimulated,
		nodes: make([]core.NodeSB, len(cfg.Shape)),
	}
	s.place()
	return s
}

// Step advances the script by dt seconds. A paused or sleeping actor keeps
// its pose.
func (s *Scripted) Step(dt float32) {
	if s.paused || !s.state.IsSimulated() {
		return
	}
	s.t += dt
	s.place()
}

// SetPaused freezes or resumes the script.
func (s *Scripted) SetPaused(p bool) { s.paused = p }

// SetState changes the reported actor state.
func (s *Scripted) SetState(st core.ActorState) { s.state = st }

// Name returns the configured display name.
func (s *Scripted) Name() string { return s.cfg.Name }

func (s *Scripted) heading() float32 {
	return s.cfg.Speed * s.t / s.cfg.PathRadius
}

func (s *Scripted) place() {
	h := s.heading()
	sin, cos := math32.Sincos(h)
	s.pos = s.cfg.Center.Add(mgl32.Vec3{s.cfg.PathRadius * cos, 0, s.cfg.PathRadius * sin})
	s.vel = mgl32.Vec3{-sin, 0, cos}.Mul(s.cfg.Speed)

	rot := mgl32.Rotate3DY(-h)
	for i, rest := range s.cfg.Shape {
		p := s.pos.Add(rot.Mul3x1(rest))
		p[1] += 0.02 * math32.Sin(s.t*10+float32(i))
		s.nodes[i] = core.NodeSB{
			Position:   p,
			HasContact: rest.Y() <= s.cfg.GroundHeight,
		}
	}
}

func (s *Scripted) ID() int { return s.cfg.ID }
func (s *Scripted) State() core.ActorState { return s.state }
func (s *Scripted) SimTime() float64 { return float64(s.t) }
func (s *Scripted) PhysicsPaused() bool { return s.paused }
func (s *Scripted) Position() mgl32.Vec3 { return s.pos }
func (s *Scripted) Node0Velocity() mgl32.Vec3 { return s.vel }

func (s *Scripted) Orientation() (float32, mgl32.Vec3) {
	h := s.heading()
	sin, cos := math32.Sincos(h)
	return h, mgl32.Vec3{-sin, 0, cos}
}

func (s *Scripted) Layout() core.Layout {
	return core.Layout{
		Nodes:       len(s.cfg.Shape),
		CommandKeys: s.cfg.CommandKeys,
		AeroEngines: s.cfg.AeroEngines,
		Airbrakes:   s.cfg.Airbrakes,
		ScrewProps:  s.cfg.ScrewProps,
	}
}

func (s *Scripted) Network() (string, int, bool) {
	return "", s.cfg.ID % 8, true
}

func (s *Scripted) BoundingBox() (mgl32.Vec3, mgl32.Vec3) {
	if len(s.nodes) == 0 {
		return s.pos, s.pos
	}
	lo, hi := s.nodes[0].Position, s.nodes[0].Position
	for _, n := range s.nodes[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], n.Position[k])
			hi[k] = math32.Max(hi[k], n.Position[k])
		}
	}
	return lo, hi
}

func (s *Scripted) Nodes(dst []core.NodeSB) {
	copy(dst, s.nodes)
}

func (s *Scripted) gear() int {
	return 1 + int(s.t/s.cfg.GearTime)%s.cfg.NumGears
}

func (s *Scripted) Powertrain() (core.PowertrainSB, bool) {
	if !s.cfg.HasEngine {
		return core.PowertrainSB{}, false
	}
	frac := math32.Mod(s.t, s.cfg.GearTime) / s.cfg.GearTime
	var crank float32
	if s.cfg.CrankTime > 0 && s.t < s.cfg.CrankTime {
		crank = s.t / s.cfg.CrankTime
	}
	rpm := s.cfg.IdleRPM + (s.cfg.MaxRPM-s.cfg.IdleRPM)*frac
	return core.PowertrainSB{
		RPM:              rpm,
		MaxRPM:           s.cfg.MaxRPM,
		Crank:            crank,
		Accel:            1 - frac,
		Torque:           400 * (1 - frac*0.5),
		InputShaftRPM:    rpm * 0.9,
		DriveRatio:       3.7,
		Clutch:           1,
		DiffType:         core.DiffOpen,
		Gear:             s.gear(),
		NumGears:         s.cfg.NumGears,
		AutoShift:        1,
		WheelSpeed:       s.cfg.Speed,
		SpeedoHighestKph: 140,
	}, true
}

func (s *Scripted) Steering() core.SteeringSB {
	turn := math32.Min(1, s.cfg.Speed/s.cfg.PathRadius)
	return core.SteeringSB{
		HydroDir:        turn,
		HydroAileron:    0.2 * math32.Sin(s.t),
		HydroElevator:   0.1 * math32.Cos(s.t),
		HydroAeroRudder: -turn * 0.5,
	}
}

func (s *Scripted) AeroEngines(dst []core.AeroEngineSB) {
	for i := range dst {
		pc := 50 + 40*math32.Sin(s.t*0.5+float32(i))
		ae := core.AeroEngineSB{
			Kind:       core.AeroEngineTurboprop,
			RPM:        pc * 25,
			RPMPercent: pc,
			Throttle:   pc / 100,
			Ignition:   true,
		}
		if s.cfg.Turbojets {
			ae.Kind = core.AeroEngineTurbojet
			ae.Afterburner = ae.Throttle > 0.85
			if ae.Afterburner {
				ae.AfterburnerThrust = 40 * (ae.Throttle - 0.85) / 0.15
			}
			ae.ExhaustVelocity = 300 + 500*ae.Throttle
		} else {
			ae.Torque = 2000 * ae.Throttle
			ae.Pitch = 10 + 20*ae.Throttle
		}
		dst[i] = ae
	}
}

func (s *Scripted) Airbrakes(dst []core.AirbrakeSB) {
	for i := range dst {
		dst[i] = core.AirbrakeSB{Ratio: 0.5 * (1 + math32.Sin(s.t/2))}
	}
}

func (s *Scripted) ScrewProps(dst []core.ScrewPropSB) {
	for i := range dst {
		dst[i] = core.ScrewPropSB{Rudder: math32.Sin(s.t), Throttle: 0.8}
	}
}

func (s *Scripted) Autopilot() (core.AutopilotSB, bool) {
	if !s.cfg.Autopilot {
		return core.AutopilotSB{}, false
	}
	ap := core.DefaultAutopilot()
	ap.HeadingMode = core.HeadingFixed
	ap.HeadingValue = int(mgl32.RadToDeg(s.heading())) % 360
	ap.AltMode = true
	return ap, true
}

func (s *Scripted) CommandKeys(dst []core.CommandKeySB) {
	for i := range dst {
		dst[i] = core.CommandKeySB{Value: math32.Max(0, math32.Sin(s.t+float32(i)))}
	}
}

// braking is true in the last quarter of each gear.
func (s *Scripted) braking() bool {
	return math32.Mod(s.t, s.cfg.GearTime) > 0.75*s.cfg.GearTime
}

func (s *Scripted) Lights() core.LightsSB {
	return core.LightsSB{
		Headlights:  true,
		Beacons:     true,
		BrakeLights: s.braking(),
		Blinker:     core.BlinkLeft,
	}
}

func (s *Scripted) Gameplay() core.GameplaySB {
	var brake float32
	if s.braking() {
		brake = 1
	}
	return core.GameplaySB{
		Brake:        brake,
		TyrePressure: 50,
		SmokeEnabled: s.cfg.HasEngine,
		Wing4AoA:     4 * math32.Sin(s.t),
		Airspeed:     s.cfg.Speed * 1.94384,
		Altitude:     s.pos.Y(),
		TopSpeed:     s.cfg.Speed,
	}
}
