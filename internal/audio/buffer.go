package audio

import (
	"sync"
	"sync/atomic"
)

// FrameBuffer is the bounded handoff between the real-time capture callback
// and consumer goroutines. The producer side never blocks: when a consumer
// falls more than the buffer capacity behind, its cursor is advanced past
// the overwritten blocks and the overrun counter is incremented. Overruns
// are diagnostics, not failures.
//
// Each consumer reads independently through its own Cursor over the shared
// ring; blocks are never mutated after Push.
type FrameBuffer struct {
	mu      sync.Mutex
	ring    []FrameBlock
	wpos    uint64 // absolute write position; ring index is wpos % capacity
	cursors []*Cursor
	closed  bool

	overruns atomic.Uint64
}

// Cursor is one consumer's read position over a FrameBuffer.
type Cursor struct {
	buf   *FrameBuffer
	pos   uint64
	ready chan struct{}
}

// NewFrameBuffer creates a buffer holding up to capacity blocks.
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameBuffer{ring: make([]FrameBlock, capacity)}
}

// Push appends a block, overwriting the oldest if the ring is full. Safe to
// call from the real-time capture callback: it holds the mutex only for an
// O(1) slot write and never blocks on consumers.
func (b *FrameBuffer) Push(block FrameBlock) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.ring[b.wpos%uint64(len(b.ring))] = block
	b.wpos++
	cursors := b.cursors
	b.mu.Unlock()

	for _, c := range cursors {
		select {
		case c.ready <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a new consumer starting at the current write position.
func (b *FrameBuffer) Subscribe() *Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &Cursor{buf: b, pos: b.wpos, ready: make(chan struct{}, 1)}
	b.cursors = append(b.cursors, c)
	return c
}

// Overruns reports the total number of blocks lost to slow consumers.
func (b *FrameBuffer) Overruns() uint64 {
	return b.overruns.Load()
}

// Close wakes all consumers; subsequent pushes are dropped and Next returns
// false once drained.
func (b *FrameBuffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	cursors := b.cursors
	b.mu.Unlock()

	for _, c := range cursors {
		select {
		case c.ready <- struct{}{}:
		default:
		}
	}
}

// Unsubscribe removes the cursor from the buffer's consumer set.
func (c *Cursor) Unsubscribe() {
	b := c.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.cursors {
		if cur == c {
			b.cursors = append(b.cursors[:i], b.cursors[i+1:]...)
			break
		}
	}
}

// Next returns the next block for this consumer, blocking until one is
// available, the stop channel fires, or the buffer is closed and drained.
// The second return is false when no block was read.
func (c *Cursor) Next(stop <-chan struct{}) (FrameBlock, bool) {
	b := c.buf
	for {
		b.mu.Lock()
		capacity := uint64(len(b.ring))
		if b.wpos > capacity && c.pos < b.wpos-capacity {
			skipped := b.wpos - capacity - c.pos
			c.pos = b.wpos - capacity
			b.overruns.Add(skipped)
		}
		if c.pos < b.wpos {
			block := b.ring[c.pos%capacity]
			c.pos++
			b.mu.Unlock()
			return block, true
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return FrameBlock{}, false
		}
		select {
		case <-c.ready:
		case <-stop:
			return FrameBlock{}, false
		}
	}
}
