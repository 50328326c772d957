// Package recorder samples published actor snapshots into a storage backend.
package recorder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rorsim/gfxbridge/internal/storage"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// ErrTooEarlyForStateAssociation is returned when a snapshot arrives before
// its actor is registered.
var ErrTooEarlyForStateAssociation = fmt.Errorf("too early for state association")

type actorState struct {
	info     core.ActorInfo
	last     time.Time
	sampled  bool
	frameNum uint64
}

// Recorder rate-limits snapshots per actor and hands them to the backend.
type Recorder struct {
	backend  storage.Backend
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	actors map[int]*actorState
}

// New creates a recorder. A zero interval records every sample.
func New(backend storage.Backend, interval time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		backend:  backend,
		interval: interval,
		logger:   logger,
		actors:   make(map[int]*actorState),
	}
}

// Register adds an actor to the session. Registering an id again replaces
// its info and restarts its sample clock.
func (r *Recorder) Register(info core.ActorInfo) error {
	if err := r.backend.AddActor(&info); err != nil {
		return fmt.Errorf("register actor %d: %w", info.ID, err)
	}
	r.mu.Lock()
	r.actors[info.ID] = &actorState{info: info}
	r.mu.Unlock()
	r.logger.Debug("Actor registered", "actorId", info.ID, "name", info.Name)
	return nil
}

// Unregister stops sampling an actor.
func (r *Recorder) Unregister(actorID int) {
	r.mu.Lock()
	delete(r.actors, actorID)
	r.mu.Unlock()
}

// Sample stores a copy of sb when the interval has elapsed since the actor's
// last stored frame. It reports whether a frame was stored.
func (r *Recorder) Sample(now time.Time, actorID int, sb *core.SimBuffer) (bool, error) {
	r.mu.Lock()
	st, ok := r.actors[actorID]
	if !ok {
		r.mu.Unlock()
		return false, ErrTooEarlyForStateAssociation
	}
	if st.sampled && now.Sub(st.last) < r.interval {
		r.mu.Unlock()
		return false, nil
	}
	st.sampled = true
	st.last = now
	st.frameNum++
	frame := &core.Frame{
		ActorID:  actorID,
		Time:     now,
		FrameNum: st.frameNum,
		Snapshot: sb.Clone(),
	}
	r.mu.Unlock()

	if err := r.backend.RecordFrame(frame); err != nil {
		return false, fmt.Errorf("record frame for actor %d: %w", actorID, err)
	}
	return true, nil
}

// Frames returns how many frames were stored for an actor.
func (r *Recorder) Frames(actorID int) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.actors[actorID]; ok {
		return st.frameNum
	}
	return 0
}
