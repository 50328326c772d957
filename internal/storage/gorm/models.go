package gormstorage

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/rorsim/gfxbridge/pkg/core"
)

// Session is a recorded driver run.
type Session struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string
	StartTime   time.Time
	EndTime     *time.Time
	SimRateHz   int
	RenderFPS   int
	Version     string
	ActorCount  int
	SampleDelay float32
	CreatedAt   time.Time
}

// Actor is an actor registered in a session.
type Actor struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:36;index:idx_actor_session"`
	ActorID   int    `gorm:"index:idx_actor_session"`
	Name      string
	Layout    datatypes.JSON
	SpawnTime time.Time
}

// Frame is one sampled snapshot. Arrays are stored as JSON columns.
type Frame struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:36;index:idx_frame_session_actor"`
	ActorID   int    `gorm:"index:idx_frame_session_actor"`
	FrameNum  uint64
	Time      time.Time
	SimTime   float64
	State     int
	Position  Point

	Nodes      datatypes.JSON
	Subsystems datatypes.JSON
	Scalars    datatypes.JSON
}

// Point is a 3D position column stored as WKB.
type Point struct {
	geom.Point
}

// GormDataType maps the column to blob on sqlite and bytea on postgres.
func (Point) GormDataType() string { return "bytes" }

func vecToPoint(v mgl32.Vec3) Point {
	return Point{geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(v[0]), Y: float64(v[1])},
		Z:    float64(v[2]),
		Type: geom.DimXYZ,
	})}
}

// Vec3 returns the stored position, or zero for an empty point.
func (p Point) Vec3() mgl32.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{float32(c.XY.X), float32(c.XY.Y), float32(c.Z)}
}

// Models lists every table of the backend in migration order.
var Models = []any{&Session{}, &Actor{}, &Frame{}}

// subsystems holds the per-subsystem arrays of a snapshot.
type subsystems struct {
	AeroEngines []core.AeroEngineSB `json:"aeroEngines"`
	Airbrakes   []core.AirbrakeSB   `json:"airbrakes"`
	ScrewProps  []core.ScrewPropSB  `json:"screwProps"`
	CommandKeys []core.CommandKeySB `json:"commandKeys"`
}

// scalars holds the remaining non-array snapshot fields.
type scalars struct {
	PhysicsPaused bool              `json:"physicsPaused"`
	LiveLocal     bool              `json:"liveLocal"`
	Username      string            `json:"username,omitempty"`
	ColorNum      int               `json:"colorNum"`
	Rotation      float32           `json:"rotation"`
	Direction     mgl32.Vec3        `json:"direction"`
	Node0Velocity mgl32.Vec3        `json:"node0Velocity"`
	AABBMin       mgl32.Vec3        `json:"aabbMin"`
	AABBMax       mgl32.Vec3        `json:"aabbMax"`
	HasEngine     bool              `json:"hasEngine"`
	Powertrain    core.PowertrainSB `json:"powertrain"`
	Steering      core.SteeringSB   `json:"steering"`
	HasAutopilot  bool              `json:"hasAutopilot"`
	Autopilot     core.AutopilotSB  `json:"autopilot"`
	Lights        core.LightsSB     `json:"lights"`
	Gameplay      core.GameplaySB   `json:"gameplay"`
}
