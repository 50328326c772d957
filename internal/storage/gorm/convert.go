package gormstorage

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/rorsim/gfxbridge/pkg/core"
)

func sessionToModel(s *core.Session) Session {
	return Session{
		ID:          s.ID,
		Name:        s.Name,
		StartTime:   s.StartTime,
		SimRateHz:   s.SimRateHz,
		RenderFPS:   s.RenderFPS,
		Version:     s.Version,
		ActorCount:  s.ActorCount,
		SampleDelay: s.SampleDelay,
	}
}

func actorToModel(sessionID string, a *core.ActorInfo) (Actor, error) {
	layout, err := json.Marshal(a.Layout)
	if err != nil {
		return Actor{}, fmt.Errorf("marshal layout: %w", err)
	}
	return Actor{
		SessionID: sessionID,
		ActorID:   a.ID,
		Name:      a.Name,
		Layout:    datatypes.JSON(layout),
		SpawnTime: a.SpawnTime,
	}, nil
}

// ToCore converts the row back to an ActorInfo.
func (a Actor) ToCore() (core.ActorInfo, error) {
	info := core.ActorInfo{ID: a.ActorID, Name: a.Name, SpawnTime: a.SpawnTime}
	if err := json.Unmarshal(a.Layout, &info.Layout); err != nil {
		return core.ActorInfo{}, fmt.Errorf("unmarshal layout of actor %d: %w", a.ActorID, err)
	}
	return info, nil
}

func frameToModel(sessionID string, f *core.Frame) (Frame, error) {
	sb := f.Snapshot
	if sb == nil {
		return Frame{}, fmt.Errorf("frame %d of actor %d has no snapshot", f.FrameNum, f.ActorID)
	}

	nodes, err := json.Marshal(sb.Nodes)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal nodes: %w", err)
	}
	subs, err := json.Marshal(subsystems{
		AeroEngines: sb.AeroEngines,
		Airbrakes:   sb.Airbrakes,
		ScrewProps:  sb.ScrewProps,
		CommandKeys: sb.CommandKeys,
	})
	if err != nil {
		return Frame{}, fmt.Errorf("marshal subsystems: %w", err)
	}
	sc, err := json.Marshal(scalars{
		PhysicsPaused: sb.PhysicsPaused,
		LiveLocal:     sb.LiveLocal,
		Username:      sb.Username,
		ColorNum:      sb.ColorNum,
		Rotation:      sb.Rotation,
		Direction:     sb.Direction,
		Node0Velocity: sb.Node0Velocity,
		AABBMin:       sb.AABBMin,
		AABBMax:       sb.AABBMax,
		HasEngine:     sb.HasEngine,
		Powertrain:    sb.Powertrain,
		Steering:      sb.Steering,
		HasAutopilot:  sb.HasAutopilot,
		Autopilot:     sb.Autopilot,
		Lights:        sb.Lights,
		Gameplay:      sb.Gameplay,
	})
	if err != nil {
		return Frame{}, fmt.Errorf("marshal scalars: %w", err)
	}

	return Frame{
		SessionID:  sessionID,
		ActorID:    f.ActorID,
		FrameNum:   f.FrameNum,
		Time:       f.Time,
		SimTime:    sb.SimTime,
		State:      int(sb.State),
		Position:   vecToPoint(sb.Position),
		Nodes:      datatypes.JSON(nodes),
		Subsystems: datatypes.JSON(subs),
		Scalars:    datatypes.JSON(sc),
	}, nil
}

// ToCore rebuilds the frame and its snapshot.
func (f Frame) ToCore() (*core.Frame, error) {
	var nodes []core.NodeSB
	if err := json.Unmarshal(f.Nodes, &nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	var subs subsystems
	if err := json.Unmarshal(f.Subsystems, &subs); err != nil {
		return nil, fmt.Errorf("unmarshal subsystems: %w", err)
	}
	var sc scalars
	if err := json.Unmarshal(f.Scalars, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal scalars: %w", err)
	}

	sb := core.NewSimBuffer(core.Layout{
		Nodes:       len(nodes),
		CommandKeys: len(subs.CommandKeys),
		AeroEngines: len(subs.AeroEngines),
		Airbrakes:   len(subs.Airbrakes),
		ScrewProps:  len(subs.ScrewProps),
	})
	copy(sb.Nodes, nodes)
	copy(sb.CommandKeys, subs.CommandKeys)
	copy(sb.AeroEngines, subs.AeroEngines)
	copy(sb.Airbrakes, subs.Airbrakes)
	copy(sb.ScrewProps, subs.ScrewProps)

	sb.ActorID = f.ActorID
	sb.State = core.ActorState(f.State)
	sb.SimTime = f.SimTime
	sb.Position = f.Position.Vec3()
	sb.Rotation = sc.Rotation
	sb.Direction = sc.Direction
	sb.PhysicsPaused = sc.PhysicsPaused
	sb.LiveLocal = sc.LiveLocal
	sb.Username = sc.Username
	sb.ColorNum = sc.ColorNum
	sb.Node0Velocity = sc.Node0Velocity
	sb.AABBMin = sc.AABBMin
	sb.AABBMax = sc.AABBMax
	sb.HasEngine = sc.HasEngine
	sb.Powertrain = sc.Powertrain
	sb.Steering = sc.Steering
	sb.HasAutopilot = sc.HasAutopilot
	sb.Autopilot = sc.Autopilot
	sb.Lights = sc.Lights
	sb.Gameplay = sc.Gameplay

	return &core.Frame{ActorID: f.ActorID, Time: f.Time, FrameNum: f.FrameNum, Snapshot: sb}, nil
}
