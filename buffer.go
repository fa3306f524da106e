package groove

import (
	"sync"

	"pipelined.dev/signal"
)

// Buffer is an immutable, reference-counted holder around one decoded and
// filtered PCM frame, shared across every Sink in the class it was built
// for. Construction yields a ref count of zero; the worker performs one
// Ref per successful delivery into a Sink Queue, then always does one
// final Ref/Unref pair so a Buffer nobody accepted is freed immediately.
type Buffer struct {
	mu       sync.Mutex
	refCount int

	frame  signal.Floating
	pool   *signal.PoolAllocator
	format Format
	item   *PlaylistItem
	pos    float64
}

// endOfQueue is the single process-wide distinguished Buffer value used to
// signal "no more data is coming" to a Sink. It carries no frame and is
// never freed; every comparison against it is by pointer identity.
var endOfQueue = &Buffer{}

func newBuffer(frame signal.Floating, pool *signal.PoolAllocator, format Format, item *PlaylistItem, pos float64) *Buffer {
	return &Buffer{frame: frame, pool: pool, format: format, item: item, pos: pos}
}

// Ref increments the buffer's reference count. Every Ref must be paired
// with exactly one Unref.
func (b *Buffer) Ref() {
	if b == endOfQueue {
		return
	}
	b.mu.Lock()
	b.refCount++
	b.mu.Unlock()
}

// Unref decrements the buffer's reference count. When it reaches zero, the
// underlying frame is released back to its pool.
func (b *Buffer) Unref() {
	if b == endOfQueue {
		return
	}
	b.mu.Lock()
	b.refCount--
	zero := b.refCount == 0
	b.mu.Unlock()
	if zero && b.frame != nil && b.pool != nil {
		b.frame.Free(b.pool)
	}
}

// IsEndOfQueue reports whether b is the distinguished end-of-queue
// sentinel, satisfying internal/sinkqueue.Entry.
func (b *Buffer) IsEndOfQueue() bool { return b == endOfQueue }

// ByteSize returns the buffer's payload size in bytes, satisfying
// internal/sinkqueue.Entry. The sentinel reports zero, though sinkqueue
// never counts it anyway.
func (b *Buffer) ByteSize() int64 {
	if b == endOfQueue || b.frame == nil {
		return 0
	}
	return int64(b.frame.Length()*b.format.Channels) * int64(b.format.SampleFormat.BytesPerSample())
}

// FrameCount returns the number of sample frames this buffer holds.
func (b *Buffer) FrameCount() int {
	if b.frame == nil {
		return 0
	}
	return b.frame.Length()
}

// Format returns the buffer's PCM shape.
func (b *Buffer) Format() Format { return b.format }

// Item returns the playlist item this buffer was decoded from. The
// reference is borrowed: it is valid only until the item is removed from
// its Playlist, at which point any outstanding Buffers for it are purged
// from every Sink Queue before the item is freed.
func (b *Buffer) Item() *PlaylistItem { return b.item }

// Pos returns the source position, in seconds, this buffer was decoded
// from.
func (b *Buffer) Pos() float64 { return b.pos }

// Data returns the underlying PCM frame. Callers must not retain it past
// their final Unref.
func (b *Buffer) Data() signal.Floating { return b.frame }
