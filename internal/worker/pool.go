// Package worker runs per-frame background tasks on a fixed pool of
// goroutines and hands back joinable handles.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a Pool.
type Option func(*config)

type config struct {
	queueSize int
}

// QueueSize sets how many submitted tasks may wait for a free worker before
// Submit blocks. Submit never drops a task.
func QueueSize(n int) Option {
	return func(c *config) {
		c.queueSize = n
	}
}

type task struct {
	fn func()
	h  *Handle
}

// Handle is the join point of one submitted task.
type Handle struct {
	wg sync.WaitGroup
}

// Wait blocks until the task has run to completion.
func (h *Handle) Wait() {
	h.wg.Wait()
}

// Pool is a fixed set of worker goroutines. Tasks cannot be cancelled: every
// submitted task runs to completion.
type Pool struct {
	size   int
	tasks  chan task
	logger Logger

	workers sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool

	inflight atomic.Int64
	free     sync.Pool

	// OTEL metrics
	submitted metric.Int64Counter
	completed metric.Int64Counter
	panicked  metric.Int64Counter
	joinWait  metric.Float64Histogram
}

// NewPool starts size workers.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewPool(size int, logger Logger, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", size)
	}
	cfg := &config{queueSize: size * 64}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Pool{
		size:   size,
		tasks:  make(chan task, cfg.queueSize),
		logger: logger,
	}
	p.free.New = func() any { return new(Handle) }

	m := meter()
	var err error

	p.submitted, err = m.Int64Counter(
		"worker.tasks.submitted",
		metric.WithDescription("Total tasks submitted to the pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating submitted counter: %w", err)
	}

	p.completed, err = m.Int64Counter(
		"worker.tasks.completed",
		metric.WithDescription("Total tasks run to completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completed counter: %w", err)
	}

	p.panicked, err = m.Int64Counter(
		"worker.tasks.panicked",
		metric.WithDescription("Tasks that panicked and were recovered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating panicked counter: %w", err)
	}

	p.joinWait, err = m.Float64Histogram(
		"worker.join.wait",
		metric.WithDescription("Time spent blocked joining a frame batch"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating join wait histogram: %w", err)
	}

	p.workers.Add(size)
	for i := 0; i < size; i++ {
		go p.loop()
	}

	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// InFlight returns the number of submitted tasks that have not completed.
func (p *Pool) InFlight() int64 {
	return p.inflight.Load()
}

// Submit queues fn and returns its handle. It blocks while the queue is
// full. Submitting to a closed pool panics. Tasks must not submit to the
// pool they run on.
func (p *Pool) Submit(fn func()) *Handle {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		panic("worker: submit on closed pool")
	}

	h := p.free.Get().(*Handle)
	h.wg.Add(1)
	p.inflight.Add(1)
	p.submitted.Add(context.Background(), 1)
	p.tasks <- task{fn: fn, h: h}
	return h
}

// release returns a joined handle to the free list.
func (p *Pool) release(h *Handle) {
	p.free.Put(h)
}

// Close waits for every queued task to finish and stops the workers.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.closeMu.Unlock()

	p.workers.Wait()
}

func (p *Pool) loop() {
	defer p.workers.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(context.Background(), 1)
			if p.logger != nil {
				p.logger.Error("task panicked", "panic", fmt.Sprint(r))
			}
		}
		p.inflight.Add(-1)
		p.completed.Add(context.Background(), 1)
		t.h.wg.Done()
	}()
	t.fn()
}

func (p *Pool) recordJoin(frame uint64, tasks int, d time.Duration) {
	p.joinWait.Record(context.Background(), float64(d.Microseconds())/1000)
	if p.logger != nil && d > 50*time.Millisecond {
		p.logger.Debug("slow frame join", "frame", frame, "tasks", tasks, "wait", d)
	}
}
