package worker

import "time"

// Batch collects the handles of every task forked for one frame. Join is the
// frame's barrier: once it returns, every task in the batch has finished and
// its handle has gone back to the pool.
//
// A Batch is owned by the goroutine that called Begin.
type Batch struct {
	pool    *Pool
	frame   uint64
	handles []*Handle
	joined  bool
	tasks   int
	wait    time.Duration
}

// Begin opens the handle arena for frame.
func (p *Pool) Begin(frame uint64) *Batch {
	return &Batch{
		pool:    p,
		frame:   frame,
		handles: make([]*Handle, 0, 16),
	}
}

// Frame returns the frame number the batch was opened for.
func (b *Batch) Frame() uint64 {
	return b.frame
}

// Len returns the number of tasks forked so far.
func (b *Batch) Len() int {
	return b.tasks
}

// Go forks fn onto the pool. Forking into a joined batch panics.
func (b *Batch) Go(fn func()) {
	if b.joined {
		panic("worker: fork into a joined batch")
	}
	b.handles = append(b.handles, b.pool.Submit(fn))
	b.tasks++
}

// Join waits for every forked task and releases the handles. Further calls
// return immediately.
func (b *Batch) Join() time.Duration {
	if b.joined {
		return 0
	}
	start := time.Now()
	for i, h := range b.handles {
		h.Wait()
		b.pool.release(h)
		b.handles[i] = nil
	}
	b.handles = b.handles[:0]
	b.joined = true
	b.wait = time.Since(start)
	b.pool.recordJoin(b.frame, b.tasks, b.wait)
	return b.wait
}

// Joined reports whether Join has completed.
func (b *Batch) Joined() bool {
	return b.joined
}

// Wait returns how long the Join blocked.
func (b *Batch) Wait() time.Duration {
	return b.wait
}
