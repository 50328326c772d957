// Package memory keeps a session in memory and exports it as JSON when the
// session ends.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// ActorRecord groups an actor with all its sampled frames
type ActorRecord struct {
	Info   core.ActorInfo
	Frames []core.Frame
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	actors  map[int]*ActorRecord // keyed by sim actor id
	frames  int

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		actors: make(map[int]*ActorRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and drops the previous one.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.actors = make(map[int]*ActorRecord)
	b.frames = 0
	return nil
}

// EndSession exports the session and forgets it.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.session = nil
	return nil
}

// AddActor registers an actor; registering the same id again replaces its
// info and keeps its frames.
func (b *Backend) AddActor(a *core.ActorInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	if rec, ok := b.actors[a.ID]; ok {
		rec.Info = *a
		return nil
	}
	b.actors[a.ID] = &ActorRecord{Info: *a}
	return nil
}

// RecordFrame appends a frame to its actor's record.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	rec, ok := b.actors[f.ActorID]
	if !ok {
		return fmt.Errorf("frame %d of actor %d: %w", f.FrameNum, f.ActorID, core.ErrUnknownActor)
	}
	rec.Frames = append(rec.Frames, *f)
	b.frames++
	return nil
}

// Session returns the active session, nil between sessions.
func (b *Backend) Session() *core.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Actor returns a copy of the record of actor id.
func (b *Backend) Actor(id int) (ActorRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.actors[id]
	if !ok {
		return ActorRecord{}, false
	}
	out := ActorRecord{Info: rec.Info, Frames: make([]core.Frame, len(rec.Frames))}
	copy(out.Frames, rec.Frames)
	return out, true
}

// FrameCount returns the number of frames recorded in the session.
func (b *Backend) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frames
}

// ExportedFilePath returns the path of the last export, empty before the
// first EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// sortedActors returns the records ordered by actor id.
func (b *Backend) sortedActors() []*ActorRecord {
	out := make([]*ActorRecord, 0, len(b.actors))
	for _, rec := range b.actors {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.ID < out[j].Info.ID })
	return out
}
