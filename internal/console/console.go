// Package console is the write-only message sink the graphics layer reports
// notifications and caller-misuse through.
package console

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rorsim/gfxbridge/internal/ring"
)

// Area groups messages by subsystem.
type Area string

const (
	AreaActor    Area = "actor"
	AreaGfx      Area = "gfx"
	AreaScript   Area = "script"
	AreaRecorder Area = "recorder"
)

// Level is the severity of a message.
type Level int

const (
	LevelInfo Level = iota
	LevelNotice
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelNotice:
		return "notice"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Sink receives messages. Implementations must be safe for concurrent use.
type Sink interface {
	Put(area Area, level Level, msg string)
	// PutOnce reports msg only the first time key is seen.
	PutOnce(key string, area Area, level Level, msg string)
}

// Message is one recorded console line.
type Message struct {
	Time  time.Time
	Area  Area
	Level Level
	Text  string
}

// Console logs every message through slog and keeps the most recent ones.
type Console struct {
	mu      sync.Mutex
	logger  *slog.Logger
	history *ring.Buffer[Message]
	seen    map[string]struct{}
	now     func() time.Time
}

var _ Sink = (*Console)(nil)

// New creates a console keeping the last history messages.
// A nil logger uses slog.Default.
func New(logger *slog.Logger, history int) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	if history <= 0 {
		history = 1
	}
	return &Console{
		logger:  logger,
		history: ring.New[Message](history),
		seen:    make(map[string]struct{}),
		now:     time.Now,
	}
}

func (c *Console) Put(area Area, level Level, msg string) {
	c.mu.Lock()
	c.history.Push(Message{Time: c.now(), Area: area, Level: level, Text: msg})
	c.mu.Unlock()

	switch level {
	case LevelError:
		c.logger.Error(msg, "area", string(area))
	case LevelWarning:
		c.logger.Warn(msg, "area", string(area))
	case LevelNotice:
		c.logger.Info(msg, "area", string(area), "notice", true)
	default:
		c.logger.Info(msg, "area", string(area))
	}
}

func (c *Console) PutOnce(key string, area Area, level Level, msg string) {
	c.mu.Lock()
	if _, ok := c.seen[key]; ok {
		c.mu.Unlock()
		return
	}
	c.seen[key] = struct{}{}
	c.mu.Unlock()

	c.Put(area, level, msg)
}

// History returns the retained messages, oldest first.
func (c *Console) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Items()
}

// Forget clears the once-only keys with the given prefix so the condition
// can be reported again, e.g. after an actor is removed.
func (c *Console) Forget(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.seen {
		if strings.HasPrefix(k, prefix) {
			delete(c.seen, k)
		}
	}
}
