// Package monitor periodically writes the driver status to a file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Status is one status report.
type Status struct {
	Time            time.Time `json:"time"`
	SessionID       string    `json:"sessionId,omitempty"`
	Frame           uint64    `json:"frame"`
	Actors          int       `json:"actors"`
	Updated         int       `json:"updated"`
	Tasks           int       `json:"tasks"`
	FrameMs         float32   `json:"frameMs"`
	JoinWaitMs      float32   `json:"joinWaitMs"`
	WorkersInFlight int64     `json:"workersInFlight"`
	PendingActors   int       `json:"pendingActors"`
	PendingFrames   int       `json:"pendingFrames"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	StatusPath string
	Interval   time.Duration
	// Status collects the current report. Called from the monitor goroutine.
	Status func() Status
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current status and its indented JSON lines.
func (s *Service) GetProgramStatus() (output []string, status Status) {
	status = s.deps.Status()
	if status.Time.IsZero() {
		status.Time = time.Now()
	}
	b, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		b = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	return []string{string(b)}, status
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	statusFile, err := os.Create(s.deps.StatusPath)
	if err != nil {
		return fmt.Errorf("error creating status file: %w", err)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(statusFile, s.stopChan, s.done)
	return nil
}

func (s *Service) run(statusFile *os.File, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		statusFile.Close()
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(done)
	}()

	s.deps.Logger.Debug("Starting status monitor goroutine", "path", s.deps.StatusPath)
	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			lines, _ := s.GetProgramStatus()
			if err := writeStatus(statusFile, lines); err != nil {
				s.deps.Logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

func writeStatus(f *os.File, lines []string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
