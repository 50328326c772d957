// pkg/core/types.go
package core

import "fmt"

// ActorState is the simulation-side lifecycle state of an actor.
type ActorState int

const (
	ActorStateLocalSimulated ActorState = iota
	ActorStateNetworkedOk
	ActorStateLocalSleeping
	ActorStateNetworkedHidden
	ActorStateDisposed
)

func (s ActorState) String() string {
	switch s {
	case ActorStateLocalSimulated:
		return "LOCAL_SIMULATED"
	case ActorStateNetworkedOk:
		return "NETWORKED_OK"
	case ActorStateLocalSleeping:
		return "LOCAL_SLEEPING"
	case ActorStateNetworkedHidden:
		return "NETWORKED_HIDDEN"
	case ActorStateDisposed:
		return "DISPOSED"
	default:
		return fmt.Sprintf("ActorState(%d)", int(s))
	}
}

// IsSimulated reports whether the actor takes part in physics stepping.
func (s ActorState) IsSimulated() bool {
	return s == ActorStateLocalSimulated || s == ActorStateNetworkedOk
}

// HeadingMode is the autopilot heading-hold mode.
type HeadingMode int

const (
	HeadingNone HeadingMode = iota
	HeadingFixed
	HeadingNav
)

func (m HeadingMode) String() string {
	switch m {
	case HeadingNone:
		return "NONE"
	case HeadingFixed:
		return "FIXED"
	case HeadingNav:
		return "NAV"
	default:
		return fmt.Sprintf("HeadingMode(%d)", int(m))
	}
}

// AeroEngineKind distinguishes turboprops (visible blades) from turbojets.
type AeroEngineKind int

const (
	AeroEngineTurboprop AeroEngineKind = iota
	AeroEngineTurbojet
)

// DiffType is the differential mode of a land vehicle's driven axles.
type DiffType int

const (
	DiffSplit DiffType = iota
	DiffOpen
	DiffViscous
	DiffLocked
)

func (d DiffType) String() string {
	switch d {
	case DiffSplit:
		return "split"
	case DiffOpen:
		return "open"
	case DiffViscous:
		return "viscous"
	case DiffLocked:
		return "locked"
	default:
		return fmt.Sprintf("DiffType(%d)", int(d))
	}
}

// BlinkType is the turn signal state.
type BlinkType int

const (
	BlinkNone BlinkType = iota
	BlinkLeft
	BlinkRight
	BlinkWarn
)

func (b BlinkType) String() string {
	switch b {
	case BlinkNone:
		return "none"
	case BlinkLeft:
		return "left"
	case BlinkRight:
		return "right"
	case BlinkWarn:
		return "warn"
	default:
		return fmt.Sprintf("BlinkType(%d)", int(b))
	}
}

// DebugView selects the diagnostic overlay drawn over an actor.
// The declaration order is the cycling order.
type DebugView int

const (
	DebugViewNone DebugView = iota
	DebugViewSkeleton
	DebugViewNodes
	DebugViewBeams
	DebugViewWheels
	DebugViewShocks
	DebugViewRotators
	DebugViewSlidenodes
	DebugViewSubmesh

	debugViewCount
)

var debugViewNames = [...]string{
	DebugViewNone:       "NONE",
	DebugViewSkeleton:   "SKELETON",
	DebugViewNodes:      "NODES",
	DebugViewBeams:      "BEAMS",
	DebugViewWheels:     "WHEELS",
	DebugViewShocks:     "SHOCKS",
	DebugViewRotators:   "ROTATORS",
	DebugViewSlidenodes: "SLIDENODES",
	DebugViewSubmesh:    "SUBMESH",
}

func (v DebugView) String() string {
	if v < 0 || v >= debugViewCount {
		return fmt.Sprintf("DebugView(%d)", int(v))
	}
	return debugViewNames[v]
}

// Next returns the following view in declaration order, wrapping to NONE.
func (v DebugView) Next() DebugView {
	return (v + 1) % debugViewCount
}

// DebugViews returns every view in cycling order, NONE first.
func DebugViews() []DebugView {
	out := make([]DebugView, 0, debugViewCount)
	for v := DebugViewNone; v < debugViewCount; v++ {
		out = append(out, v)
	}
	return out
}

// ParseDebugView converts a config/console name to a DebugView.
func ParseDebugView(name string) (DebugView, error) {
	for v, n := range debugViewNames {
		if n == name {
			return DebugView(v), nil
		}
	}
	return DebugViewNone, fmt.Errorf("unknown debug view: %q", name)
}
