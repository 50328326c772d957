// Package snapshot implements the per-actor snapshot store shared between the
// simulation goroutine (producer) and the render goroutine (consumer).
//
// The store is a lock-free triple buffer. The producer fills a private back
// buffer and swaps it into a shared middle slot; the consumer swaps the
// middle slot into its private front buffer when a fresh one is available.
// Neither side ever sees a buffer the other side is writing.
//
// Each Store has exactly one producer and one consumer. Publish must only be
// called from the producer and Acquire/Current/Seq from the consumer; other
// goroutines may read the consumer's buffer while the consumer holds it
// (frame tasks), as long as they are joined before the next Acquire.
package snapshot

import (
	"sync/atomic"

	"github.com/rorsim/gfxbridge/pkg/core"
)

const (
	indexMask = 0b011
	freshBit  = 0b100
)

// Store holds three preallocated SimBuffers for one actor.
type Store struct {
	layout core.Layout
	bufs   [3]*core.SimBuffer
	seqs   [3]uint64

	// middle slot: buffer index plus fresh flag
	mid atomic.Uint32

	// producer side
	back int
	seq  uint64

	// consumer side
	front int

	published atomic.Bool
	publishes atomic.Uint64
}

// New creates a store whose buffers are sized from layout.
func New(layout core.Layout) *Store {
	s := &Store{
		layout: layout,
		front:  0,
		back:   2,
	}
	for i := range s.bufs {
		s.bufs[i] = core.NewSimBuffer(layout)
	}
	s.mid.Store(1)
	return s
}

// Layout returns the array sizes fixed at construction.
func (s *Store) Layout() core.Layout {
	return s.layout
}

// Publish fills the back buffer in one pass and makes it the latest
// snapshot. fill must overwrite every field it is responsible for; the back
// buffer holds whatever was published two ticks ago.
func (s *Store) Publish(fill func(sb *core.SimBuffer)) {
	b := s.bufs[s.back]
	fill(b)
	if b.Layout() != s.layout {
		panic("snapshot: publish changed array sizes")
	}

	s.seq++
	s.seqs[s.back] = s.seq

	old := s.mid.Swap(uint32(s.back) | freshBit)
	s.back = int(old & indexMask)

	s.publishes.Add(1)
	s.published.Store(true)
}

// Acquire makes the most recently published snapshot the consumer's buffer
// and returns it. If nothing new was published since the last Acquire the
// same buffer is returned again. The buffer stays unchanged until the next
// Acquire.
func (s *Store) Acquire() *core.SimBuffer {
	if s.mid.Load()&freshBit != 0 {
		old := s.mid.Swap(uint32(s.front))
		s.front = int(old & indexMask)
	}
	return s.bufs[s.front]
}

// Current returns the consumer's buffer without looking for a newer one.
func (s *Store) Current() *core.SimBuffer {
	return s.bufs[s.front]
}

// Seq returns the publish sequence number of the consumer's buffer. Zero
// means the consumer still holds the initial defaulted buffer.
func (s *Store) Seq() uint64 {
	return s.seqs[s.front]
}

// Published reports whether Publish has been called at least once.
func (s *Store) Published() bool {
	return s.published.Load()
}

// Publishes returns the total number of completed publishes.
func (s *Store) Publishes() uint64 {
	return s.publishes.Load()
}
