package gfx

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/pkg/core"
)

// Config holds the tunables of the update passes.
type Config struct {
	BlinkPeriod         time.Duration
	BeaconSpeed         float32 // beacon revolutions per second
	CrankBurstThreshold float32
	ShiftTime           float32 // seconds a shifter animation takes
	DustSpeed           float32 // minimum speed (m/s) for contact dust
	SmokeRate           float32 // exhaust particles per second at max RPM
	CrankBurst          int     // particles per exhaust on a crank burst
	ParticlePoolSize    int
	ParticleLife        float32
	NetLabelHeight      float32 // meters above the bounding box
}

// DefaultConfig returns the values the driver uses when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BlinkPeriod:         500 * time.Millisecond,
		BeaconSpeed:         4,
		CrankBurstThreshold: 0.5,
		ShiftTime:           0.5,
		DustSpeed:           1,
		SmokeRate:           40,
		CrankBurst:          8,
		ParticlePoolSize:    256,
		ParticleLife:        2,
		NetLabelHeight:      0.5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BlinkPeriod <= 0 {
		c.BlinkPeriod = d.BlinkPeriod
	}
	if c.BeaconSpeed <= 0 {
		c.BeaconSpeed = d.BeaconSpeed
	}
	if c.CrankBurstThreshold <= 0 {
		c.CrankBurstThreshold = d.CrankBurstThreshold
	}
	if c.ShiftTime <= 0 {
		c.ShiftTime = d.ShiftTime
	}
	if c.DustSpeed <= 0 {
		c.DustSpeed = d.DustSpeed
	}
	if c.SmokeRate <= 0 {
		c.SmokeRate = d.SmokeRate
	}
	if c.CrankBurst <= 0 {
		c.CrankBurst = d.CrankBurst
	}
	if c.ParticlePoolSize <= 0 {
		c.ParticlePoolSize = d.ParticlePoolSize
	}
	if c.ParticleLife <= 0 {
		c.ParticleLife = d.ParticleLife
	}
	if c.NetLabelHeight <= 0 {
		c.NetLabelHeight = d.NetLabelHeight
	}
	return c
}

// Frame is a local coordinate frame spanned by three nodes: the reference
// node, a node along X and a node along Y.
type Frame struct {
	Ref, X, Y int
}

// RodDef is a visible beam drawn as a cylinder between two nodes.
type RodDef struct {
	Node1, Node2 int
	Diameter     float32
	Material     string
	Hidden       bool
	Shock        bool // drawn by the SHOCKS debug view
}

// WheelDef is a wheel whose rim follows the given nodes. Flexible wheels get
// a deformed mesh built on the worker pool.
type WheelDef struct {
	AxisNode1, AxisNode2 int
	RimNodes             []int
	Radius               float32
	Flexible             bool
}

// FlexbodyDef is a mesh deformed by the nodes it is attached to. Each vertex
// is stored in the coordinates of Frame.
type FlexbodyDef struct {
	Name     string
	Frame    Frame
	Vertices []mgl32.Vec3
}

// PropSource selects the snapshot value that drives a prop animation.
type PropSource int

const (
	PropSourceNone PropSource = iota
	PropSourceRPM
	PropSourceTacho
	PropSourceSpeedo
	PropSourceTurbo
	PropSourceSteering
	PropSourceShifter
	PropSourceThrottle
	PropSourceClutch
	PropSourceParkingBrake
	PropSourceAeroRPM
	PropSourceAeroThrottle
	PropSourceAirspeed
	PropSourceAltimeter
	PropSourceFlaps
	PropSourceAirbrake
	PropSourceAPHeading
	PropSourceCommandKey
	PropSourceBrake
	PropSourceAoA // angle of attack of the fourth wing
	PropSourceAEPitch
	PropSourceAETorque
)

// PropMotion is what an animation does with its source value.
type PropMotion int

const (
	PropRotateX PropMotion = iota
	PropRotateY
	PropRotateZ
	PropOffsetX
	PropOffsetY
	PropOffsetZ
)

// PropAnimDef drives one degree of freedom of a prop. The source value is
// multiplied by Ratio and clamped to [Lower, Upper] when Upper > Lower.
// Rotations are in degrees.
type PropAnimDef struct {
	Source PropSource
	Index  int // aero engine or command key index
	Motion PropMotion
	Ratio  float32
	Lower  float32
	Upper  float32
}

// PropDef is a rigid mesh attached to a node frame.
type PropDef struct {
	Name       string
	Frame      Frame
	Offset     mgl32.Vec3
	Dashboard  bool // updated only while the actor is the player's
	DriverSeat bool // the driver's view is placed on this prop
	Animations []PropAnimDef
}

// FlareKind selects what switches a flare.
type FlareKind int

const (
	FlareHeadlight FlareKind = iota
	FlareBrake
	FlareReverse
	FlareBlinkLeft
	FlareBlinkRight
	FlareBeacon
	FlareUser
)

// FlareDef is a light attached to a node.
type FlareDef struct {
	Kind       FlareKind
	Node       int
	CommandKey int // FlareUser only
	Cockpit    bool
}

// CabDef is the cab surface, one triangle per entry.
type CabDef struct {
	Triangles [][3]int
}

// WingDef is a wing panel spanned by four nodes in winding order.
type WingDef struct {
	Corners [4]int
	Flap    bool
}

// ExhaustDef emits smoke at Node, blowing towards Node - DirNode.
type ExhaustDef struct {
	Node, DirNode int
}

// AeroEngineDef places the visual of aero engine Engine.
type AeroEngineDef struct {
	Engine   int
	Hub      int
	AxisNode int
}

// AirbrakeDef pivots a panel around the X axis of Frame.
type AirbrakeDef struct {
	Airbrake int
	Frame    Frame
	MaxAngle float32 // degrees
}

// ScrewPropDef places marine propeller ScrewProp.
type ScrewPropDef struct {
	ScrewProp int
	Ref       int
	Back      int
}

// Definition lists the visual sub-objects of an actor. All indices refer to
// the actor's node and subsystem arrays.
type Definition struct {
	Name        string
	Rods        []RodDef
	Wheels      []WheelDef
	Flexbodies  []FlexbodyDef
	Props       []PropDef
	Flares      []FlareDef
	Cab         *CabDef
	Wings       []WingDef
	Exhausts    []ExhaustDef
	AeroEngines []AeroEngineDef
	Airbrakes   []AirbrakeDef
	ScrewProps  []ScrewPropDef
	SlideNodes  []int
}

// Validate checks every index in the definition against layout.
func (d *Definition) Validate(layout core.Layout) error {
	v := validator{layout: layout}
	for i, r := range d.Rods {
		v.node(fmt.Sprintf("rod %d", i), r.Node1, r.Node2)
	}
	for i, w := range d.Wheels {
		name := fmt.Sprintf("wheel %d", i)
		v.node(name, w.AxisNode1, w.AxisNode2)
		v.node(name, w.RimNodes...)
	}
	for i, f := range d.Flexbodies {
		v.frame(fmt.Sprintf("flexbody %d", i), f.Frame)
	}
	seats := 0
	for i, p := range d.Props {
		name := fmt.Sprintf("prop %d", i)
		v.frame(name, p.Frame)
		if p.DriverSeat {
			seats++
			if seats > 1 && v.err == nil {
				v.err = fmt.Errorf("%s: more than one driver seat", name)
			}
		}
		for _, a := range p.Animations {
			switch a.Source {
			case PropSourceAeroRPM, PropSourceAeroThrottle, PropSourceAEPitch, PropSourceAETorque:
				v.index(name, "aero engine", a.Index, layout.AeroEngines)
			case PropSourceCommandKey:
				v.index(name, "command key", a.Index, layout.CommandKeys)
			}
		}
	}
	for i, f := range d.Flares {
		name := fmt.Sprintf("flare %d", i)
		v.node(name, f.Node)
		if f.Kind == FlareUser {
			v.index(name, "command key", f.CommandKey, layout.CommandKeys)
		}
	}
	if d.Cab != nil {
		for i, t := range d.Cab.Triangles {
			v.node(fmt.Sprintf("cab triangle %d", i), t[:]...)
		}
	}
	for i, w := range d.Wings {
		v.node(fmt.Sprintf("wing %d", i), w.Corners[:]...)
	}
	for i, e := range d.Exhausts {
		v.node(fmt.Sprintf("exhaust %d", i), e.Node, e.DirNode)
	}
	for i, a := range d.AeroEngines {
		name := fmt.Sprintf("aero engine visual %d", i)
		v.index(name, "aero engine", a.Engine, layout.AeroEngines)
		v.node(name, a.Hub, a.AxisNode)
	}
	for i, a := range d.Airbrakes {
		name := fmt.Sprintf("airbrake visual %d", i)
		v.index(name, "airbrake", a.Airbrake, layout.Airbrakes)
		v.frame(name, a.Frame)
	}
	for i, s := range d.ScrewProps {
		name := fmt.Sprintf("screwprop visual %d", i)
		v.index(name, "screwprop", s.ScrewProp, layout.ScrewProps)
		v.node(name, s.Ref, s.Back)
	}
	v.node("slide nodes", d.SlideNodes...)
	return v.err
}

type validator struct {
	layout core.Layout
	err    error
}

func (v *validator) node(owner string, idx ...int) {
	for _, i := range idx {
		v.index(owner, "node", i, v.layout.Nodes)
	}
}

func (v *validator) frame(owner string, f Frame) {
	v.node(owner, f.Ref, f.X, f.Y)
}

func (v *validator) index(owner, kind string, i, n int) {
	if v.err != nil {
		return
	}
	if i < 0 || i >= n {
		v.err = fmt.Errorf("%s: %s index %d out of range [0,%d)", owner, kind, i, n)
	}
}
