// pkg/core/simbuffer.go
package core

import "github.com/go-gl/mathgl/mgl32"

// Autopilot reset values. These must match the simulated autopilot's own
// reset so a disabled autopilot reads the same as a freshly reset one.
const (
	DefaultAutopilotAltitude = 1000
	DefaultAutopilotAirspeed = 150
)

// Layout carries the per-subsystem array sizes of an actor. It is fixed when
// the actor spawns.
type Layout struct {
	Nodes       int `json:"nodes"`
	CommandKeys int `json:"commandKeys"`
	AeroEngines int `json:"aeroEngines"`
	Airbrakes   int `json:"airbrakes"`
	ScrewProps  int `json:"screwProps"`
}

// NodeSB is the buffered state of one physics node.
type NodeSB struct {
	Position   mgl32.Vec3 `json:"position"`
	HasContact bool       `json:"hasContact"`
	IsWet      bool       `json:"isWet"`
}

// ScrewPropSB is the buffered state of one marine propeller.
type ScrewPropSB struct {
	Rudder   float32 `json:"rudder"`
	Throttle float32 `json:"throttle"`
}

// CommandKeySB is the buffered value of one command key.
type CommandKeySB struct {
	Value float32 `json:"value"`
}

// AeroEngineSB is the buffered state of one aircraft engine. Torque and
// Pitch are turboprop only; the afterburner and exhaust fields turbojet only.
type AeroEngineSB struct {
	Kind       AeroEngineKind `json:"kind"`
	RPM        float32        `json:"rpm"`
	RPMPercent float32        `json:"rpmPercent"`
	Throttle   float32        `json:"throttle"`
	Ignition   bool           `json:"ignition"`
	Failed     bool           `json:"failed"`
	Reverse    bool           `json:"reverse"`

	Torque float32 `json:"torque"`
	Pitch  float32 `json:"pitch"`

	Afterburner       bool    `json:"afterburner"`
	AfterburnerThrust float32 `json:"afterburnerThrust"`
	ExhaustVelocity   float32 `json:"exhaustVelocity"`
}

// AirbrakeSB is the buffered state of one airbrake.
type AirbrakeSB struct {
	Ratio float32 `json:"ratio"`
}

// PowertrainSB holds engine, gearbox and speedometer telemetry.
type PowertrainSB struct {
	RPM                float32  `json:"rpm"`
	MaxRPM             float32  `json:"maxRpm"`
	Crank              float32  `json:"crank"`
	TurboPSI           float32  `json:"turboPsi"`
	Accel              float32  `json:"accel"`
	Torque             float32  `json:"torque"`
	InputShaftRPM      float32  `json:"inputShaftRpm"`
	DriveRatio         float32  `json:"driveRatio"`
	Clutch             float32  `json:"clutch"`
	DiffType           DiffType `json:"diffType"`
	Gear               int      `json:"gear"`
	NumGears           int      `json:"numGears"`
	AutoShift          int      `json:"autoShift"`
	WheelSpeed         float32  `json:"wheelSpeed"`
	SpeedoHighestKph   float32  `json:"speedoHighestKph"`
	UseMaxRPMForSpeedo bool     `json:"useMaxRpmForSpeedo"`
}

// SteeringSB holds the hydro (steering and control surface) input states.
type SteeringSB struct {
	HydroDir        float32 `json:"hydroDir"`
	HydroAileron    float32 `json:"hydroAileron"`
	HydroElevator   float32 `json:"hydroElevator"`
	HydroAeroRudder float32 `json:"hydroAeroRudder"`
}

// AutopilotSB holds the buffered autopilot state.
type AutopilotSB struct {
	HeadingMode  HeadingMode `json:"headingMode"`
	HeadingValue int         `json:"headingValue"`
	AltMode      bool        `json:"altMode"`
	AltValue     int         `json:"altValue"`
	IASMode      bool        `json:"iasMode"`
	IASValue     int         `json:"iasValue"`
	GPWS         bool        `json:"gpws"`
	ILSAvailable bool        `json:"ilsAvailable"`
	ILSVDev      float32     `json:"ilsVdev"`
	ILSHDev      float32     `json:"ilsHdev"`
	VSValue      int         `json:"vsValue"`
}

// DefaultAutopilot returns the autopilot state after a reset.
func DefaultAutopilot() AutopilotSB {
	return AutopilotSB{
		HeadingMode: HeadingNone,
		AltValue:    DefaultAutopilotAltitude,
		IASValue:    DefaultAutopilotAirspeed,
	}
}

// LightsSB holds the lamp switches.
type LightsSB struct {
	Headlights   bool      `json:"headlights"`
	Beacons      bool      `json:"beacons"`
	BrakeLights  bool      `json:"brakeLights"`
	ReverseLight bool      `json:"reverseLight"`
	Blinker      BlinkType `json:"blinker"`
}

// GameplaySB holds non-physical actor state shown by the visuals.
type GameplaySB struct {
	ParkingBrake     bool    `json:"parkingBrake"`
	Brake            float32 `json:"brake"`
	TyrePressure     float32 `json:"tyrePressure"`
	TyrePressurizing bool    `json:"tyrePressurizing"`
	SmokeEnabled     bool    `json:"smokeEnabled"`
	AeroFlapState    int     `json:"aeroFlapState"`
	AirbrakeState    float32 `json:"airbrakeState"`
	Wing4AoA         float32 `json:"wing4Aoa"` // angle of attack of the fourth wing, degrees
	Airspeed         float32 `json:"airspeed"`
	Altitude         float32 `json:"altitude"`
	TopSpeed         float32 `json:"topSpeed"`
	CineCam          int     `json:"cineCam"` // active cinecam index
}

// SimBuffer is a snapshot of one simulated actor at one instant, written by
// the simulation step and read by the render step. Array fields are sized by
// NewSimBuffer and never resized afterwards.
type SimBuffer struct {
	ActorID       int        `json:"actorId"`
	State         ActorState `json:"state"`
	PhysicsPaused bool       `json:"physicsPaused"`
	LiveLocal     bool       `json:"liveLocal"`
	Username      string     `json:"username,omitempty"`
	ColorNum      int        `json:"colorNum"`
	SimTime       float64    `json:"simTime"`

	Position      mgl32.Vec3 `json:"position"`
	Rotation      float32    `json:"rotation"` // heading around the up axis, radians
	Direction     mgl32.Vec3 `json:"direction"`
	Node0Velocity mgl32.Vec3 `json:"node0Velocity"`
	AABBMin       mgl32.Vec3 `json:"aabbMin"`
	AABBMax       mgl32.Vec3 `json:"aabbMax"`

	Nodes []NodeSB `json:"nodes"`

	HasEngine  bool         `json:"hasEngine"`
	Powertrain PowertrainSB `json:"powertrain"`

	Steering SteeringSB `json:"steering"`

	AeroEngines []AeroEngineSB `json:"aeroEngines"`
	Airbrakes   []AirbrakeSB   `json:"airbrakes"`
	ScrewProps  []ScrewPropSB  `json:"screwProps"`

	HasAutopilot bool        `json:"hasAutopilot"`
	Autopilot    AutopilotSB `json:"autopilot"`

	CommandKeys []CommandKeySB `json:"commandKeys"`

	Lights   LightsSB   `json:"lights"`
	Gameplay GameplaySB `json:"gameplay"`
}

// NewSimBuffer allocates a snapshot with every array sized from layout.
// Scalars start at their neutral values; the state starts sleeping.
func NewSimBuffer(layout Layout) *SimBuffer {
	return &SimBuffer{
		State:       ActorStateLocalSleeping,
		Nodes:       make([]NodeSB, layout.Nodes),
		CommandKeys: make([]CommandKeySB, layout.CommandKeys),
		AeroEngines: make([]AeroEngineSB, layout.AeroEngines),
		Airbrakes:   make([]AirbrakeSB, layout.Airbrakes),
		ScrewProps:  make([]ScrewPropSB, layout.ScrewProps),
		Autopilot:   DefaultAutopilot(),
	}
}

// Layout reports the array sizes this snapshot was allocated with.
func (sb *SimBuffer) Layout() Layout {
	return Layout{
		Nodes:       len(sb.Nodes),
		CommandKeys: len(sb.CommandKeys),
		AeroEngines: len(sb.AeroEngines),
		Airbrakes:   len(sb.Airbrakes),
		ScrewProps:  len(sb.ScrewProps),
	}
}

// ResetAutopilot puts the autopilot fields back to their reset values.
func (sb *SimBuffer) ResetAutopilot() {
	sb.HasAutopilot = false
	sb.Autopilot = DefaultAutopilot()
}

// NodePosition returns the buffered position of node i.
// An out-of-range index panics.
func (sb *SimBuffer) NodePosition(i int) mgl32.Vec3 {
	return sb.Nodes[i].Position
}

// CopyFrom overwrites every field of sb with src in place.
// The layouts must match.
func (sb *SimBuffer) CopyFrom(src *SimBuffer) {
	if sb.Layout() != src.Layout() {
		panic("core: SimBuffer layout mismatch")
	}
	nodes, keys, aero, brakes, screws := sb.Nodes, sb.CommandKeys, sb.AeroEngines, sb.Airbrakes, sb.ScrewProps
	*sb = *src
	sb.Nodes, sb.CommandKeys, sb.AeroEngines, sb.Airbrakes, sb.ScrewProps = nodes, keys, aero, brakes, screws
	copy(sb.Nodes, src.Nodes)
	copy(sb.CommandKeys, src.CommandKeys)
	copy(sb.AeroEngines, src.AeroEngines)
	copy(sb.Airbrakes, src.Airbrakes)
	copy(sb.ScrewProps, src.ScrewProps)
}

// Clone returns a deep copy that shares no arrays with sb.
func (sb *SimBuffer) Clone() *SimBuffer {
	out := NewSimBuffer(sb.Layout())
	out.CopyFrom(sb)
	return out
}
