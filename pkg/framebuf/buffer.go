package framebuf

import (
	"sync/atomic"

	"github.com/tauraamui/scopeview/pkg/video/videoframe"
)

const DefaultCapacity = 2

type Stats struct {
	Pushed  uint64
	Dropped uint64
	Popped  uint64
}

// Buffer is a fixed capacity FIFO of frames shared between one producer
// and its consumers. Neither pushing nor popping ever blocks: a push onto
// a full buffer is rejected and a pop from an empty one reports nothing.
type Buffer struct {
	frames  chan videoframe.Frame
	notify  chan struct{}
	pushed  uint64
	dropped uint64
	popped  uint64
}

func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		frames: make(chan videoframe.Frame, capacity),
		notify: make(chan struct{}, 1),
	}
}

// TryPush appends the frame unless the buffer is full. A rejected frame
// is left untouched and still belongs to the caller.
func (b *Buffer) TryPush(frame videoframe.Frame) bool {
	select {
	case b.frames <- frame:
		atomic.AddUint64(&b.pushed, 1)
		b.signal()
		return true
	default:
		atomic.AddUint64(&b.dropped, 1)
		return false
	}
}

// TryPop removes the oldest frame, ownership passes to the caller.
func (b *Buffer) TryPop() (videoframe.Frame, bool) {
	select {
	case frame := <-b.frames:
		atomic.AddUint64(&b.popped, 1)
		return frame, true
	default:
		return nil, false
	}
}

func (b *Buffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Notify fires at least once after every successful push. A wake up
// may find the buffer already emptied, callers should treat it as a
// hint to TryPop again rather than a promise of a frame.
func (b *Buffer) Notify() <-chan struct{} {
	return b.notify
}

func (b *Buffer) Len() int { return len(b.frames) }

func (b *Buffer) Cap() int { return cap(b.frames) }

func (b *Buffer) Stats() Stats {
	return Stats{
		Pushed:  atomic.LoadUint64(&b.pushed),
		Dropped: atomic.LoadUint64(&b.dropped),
		Popped:  atomic.LoadUint64(&b.popped),
	}
}

// Drain pops and closes every frame left in the buffer.
func (b *Buffer) Drain() int {
	n := 0
	for {
		frame, ok := b.TryPop()
		if !ok {
			return n
		}
		frame.Close()
		n++
	}
}
