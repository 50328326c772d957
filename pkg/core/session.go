// pkg/core/session.go
package core

import (
	"errors"
	"time"
)

// Storage errors shared by every backend.
var (
	ErrNoSession    = errors.New("no session started")
	ErrUnknownActor = errors.New("actor not registered in session")
)

// Session is one recorded run of the driver.
type Session struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StartTime   time.Time `json:"startTime"`
	SimRateHz   int       `json:"simRateHz"`
	RenderFPS   int       `json:"renderFps"`
	Version     string    `json:"version"`
	ActorCount  int       `json:"actorCount"`
	SampleDelay float32   `json:"sampleDelay"`
}

// ActorInfo describes a recorded actor. ID is the simulation actor id.
type ActorInfo struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Layout    Layout    `json:"layout"`
	SpawnTime time.Time `json:"spawnTime"`
}

// Frame is one sampled snapshot of an actor.
type Frame struct {
	ActorID  int        `json:"actorId"`
	Time     time.Time  `json:"time"`
	FrameNum uint64     `json:"frameNum"`
	Snapshot *SimBuffer `json:"snapshot"`
}

// UploadMetadata accompanies an exported recording sent to a recording
// server.
type UploadMetadata struct {
	SessionID   string
	SessionName string
	Duration    float64 // seconds
	ActorCount  int
	Tag         string
}
