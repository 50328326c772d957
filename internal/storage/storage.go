// Package storage selects the backend that keeps recorded sessions.
package storage

import (
	"errors"

	"github.com/rorsim/gfxbridge/pkg/core"
)

// ErrUnknownType is returned by NewBackend for an unsupported storage.type.
var ErrUnknownType = errors.New("unknown storage type")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// AddActor registers an actor before any of its frames.
	AddActor(a *core.ActorInfo) error

	// RecordFrame stores one sampled snapshot. The backend may keep f.
	RecordFrame(f *core.Frame) error
}

// Exporter is an optional interface for backends that write a file per
// session.
type Exporter interface {
	ExportedFilePath() string
}
