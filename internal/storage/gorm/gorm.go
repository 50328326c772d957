// Package gormstorage implements session storage on gorm with internal
// queues and a background writer goroutine. The sqlite and postgres
// backends share it.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/rorsim/gfxbridge/internal/queue"
	"github.com/rorsim/gfxbridge/pkg/core"
)

const (
	// DefaultFlushInterval is how often queued rows are written.
	DefaultFlushInterval = 2 * time.Second
	// DefaultMaxPendingFrames bounds the frame queue while the DB is down.
	DefaultMaxPendingFrames = 100_000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	// MaxPendingFrames caps queued frames; the oldest are dropped first.
	MaxPendingFrames int
}

// Backend stores sessions through gorm with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	actors *queue.Queue[Actor]
	frames *queue.Queue[Frame]

	mu        sync.Mutex
	sessionID string
	writeMu   sync.Mutex

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.MaxPendingFrames <= 0 {
		deps.MaxPendingFrames = DefaultMaxPendingFrames
	}
	return &Backend{
		deps:   deps,
		actors: queue.New[Actor](0),
		frames: queue.New[Frame](deps.MaxPendingFrames),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and writes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartSession inserts the session row synchronously.
func (b *Backend) StartSession(s *core.Session) error {
	row := sessionToModel(s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()
	return nil
}

// EndSession writes the queues and stamps the session end time.
func (b *Backend) EndSession() error {
	id := b.currentSession()
	if id == "" {
		return core.ErrNoSession
	}
	if err := b.Flush(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := b.deps.DB.Model(&Session{}).Where("id = ?", id).Update("end_time", now).Error; err != nil {
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}
	b.mu.Lock()
	b.sessionID = ""
	b.mu.Unlock()
	return nil
}

func (b *Backend) currentSession() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// AddActor converts the actor and pushes it to the write queue.
func (b *Backend) AddActor(a *core.ActorInfo) error {
	id := b.currentSession()
	if id == "" {
		return core.ErrNoSession
	}
	row, err := actorToModel(id, a)
	if err != nil {
		return err
	}
	b.actors.Push(row)
	return nil
}

// RecordFrame converts the frame and pushes it to the write queue.
func (b *Backend) RecordFrame(f *core.Frame) error {
	id := b.currentSession()
	if id == "" {
		return core.ErrNoSession
	}
	row, err := frameToModel(id, f)
	if err != nil {
		return err
	}
	if n := b.frames.Push(row); n > 0 {
		b.deps.Logger.Warn("Frame queue full, dropped oldest frames", "dropped", n, "total", b.frames.Dropped())
	}
	return nil
}

// Pending returns the number of queued actor and frame rows.
func (b *Backend) Pending() (actors, frames int) {
	return b.actors.Len(), b.frames.Len()
}

// Flush writes both queues now. Actors go first so frames never precede
// their actor.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := writeQueue(b.deps.DB, b.actors, "actors"); err != nil {
		return err
	}
	return writeQueue(b.deps.DB, b.frames, "frames")
}

// Actors loads the actors of a session ordered by actor id.
func (b *Backend) Actors(sessionID string) ([]core.ActorInfo, error) {
	var rows []Actor
	if err := b.deps.DB.Where("session_id = ?", sessionID).Order("actor_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading actors: %w", err)
	}
	out := make([]core.ActorInfo, 0, len(rows))
	for _, r := range rows {
		info, err := r.ToCore()
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Frames loads the frames of one actor in frame order.
func (b *Backend) Frames(sessionID string, actorID int) ([]*core.Frame, error) {
	var rows []Frame
	err := b.deps.DB.
		Where("session_id = ? AND actor_id = ?", sessionID, actorID).
		Order("frame_num").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading frames: %w", err)
	}
	out := make([]*core.Frame, 0, len(rows))
	for _, r := range rows {
		f, err := r.ToCore()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// LoadSession returns the stored session row.
func (b *Backend) LoadSession(id string) (Session, error) {
	var s Session
	if err := b.deps.DB.First(&s, "id = ?", id).Error; err != nil {
		return Session{}, fmt.Errorf("loading session %s: %w", id, err)
	}
	return s, nil
}

// writeQueue writes all items from a queue in one transaction. On failure
// the items go back to the front of the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	items := q.Drain()
	if len(items) == 0 {
		return nil
	}

	tx := db.Begin()
	if err := tx.CreateInBatches(&items, 500).Error; err != nil {
		tx.Rollback()
		q.Requeue(items)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return fmt.Errorf("error committing %s: %w", name, err)
	}
	return nil
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("DB writer failed", "error", err)
				continue
			}
			b.deps.Logger.Debug("DB writer flushed", "duration", time.Since(start))
		}
	}
}
