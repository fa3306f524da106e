package groove

import (
	"fmt"
	"log/slog"

	"github.com/groovecore/groove/internal/sinkqueue"
)

// BufferStatus is GetBuffer's tri-state result, the Go shape of spec
// §6's {YES, END, NO}.
type BufferStatus int

const (
	// StatusReady means a Buffer was returned.
	StatusReady BufferStatus = iota
	// StatusEnd means the end-of-queue sentinel was returned: no Buffer,
	// and no more are coming for the item(s) already played.
	StatusEnd
	// StatusNoBuffer means the queue was empty (non-blocking call) or
	// aborted (blocking call interrupted by Detach).
	StatusNoBuffer
)

// Sink is one consumer endpoint: it declares a target PCM Format and a
// buffer-size threshold, owns a bounded Sink Queue, and receives Buffers
// the engine produces once attached to a Playlist.
type Sink struct {
	format       Format
	bufferSize   int // consumer threshold, in frames
	minQueueSize int64

	queue    *sinkqueue.Queue
	playlist *Playlist

	// Flush, if set, is called after a flushing seek has drained this
	// sink's queue; the flush Detach performs does not call it. Purge, if
	// set, is called whenever a
	// playlist item is removed, once per removed item, after this sink's
	// queue has had that item's buffers purged. Neither hook may call
	// back into the Playlist or Sink API: both run while the owning
	// Playlist's internal mutex is held.
	Flush func()
	Purge func(item *PlaylistItem)

	logger *slog.Logger
}

// NewSink creates a detached Sink targeting format, with bufferSize frames
// as its backpressure threshold.
func NewSink(format Format, bufferSize int) *Sink {
	bytesPerFrame := int64(format.Channels) * int64(format.SampleFormat.BytesPerSample())
	return &Sink{
		format:       format,
		bufferSize:   bufferSize,
		minQueueSize: int64(bufferSize) * bytesPerFrame,
		queue:        sinkqueue.New(),
		logger:       slog.Default(),
	}
}

// Format returns the sink's declared target PCM shape.
func (s *Sink) Format() Format { return s.format }

// Attach links s into p's Sink Map, marking the graph for rebuild on the
// worker's next iteration, and resets the sink's queue for reuse.
func (s *Sink) Attach(p *Playlist) error {
	if s.playlist != nil {
		return ErrAlreadyAttached
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinkMap.attach(s)
	p.engine.rebuildFlag = true
	s.queue.Reset()
	s.playlist = p
	return nil
}

// Detach aborts and flushes s's queue (unblocking any consumer waiting in
// GetBuffer), removes s from its Playlist's Sink Map, and clears the
// back-reference. Detaching an already-detached Sink returns
// ErrNotAttached without side effects.
func (s *Sink) Detach() error {
	p := s.playlist
	if p == nil {
		return ErrNotAttached
	}

	s.queue.Abort()
	s.queue.Flush(func(e sinkqueue.Entry) {
		if b, ok := e.(*Buffer); ok {
			b.Unref()
		}
	})

	p.mu.Lock()
	p.sinkMap.detach(s)
	p.engine.rebuildFlag = true
	p.mu.Unlock()

	s.playlist = nil
	return nil
}

// GetBuffer retrieves the next Buffer from s's queue. If blocking is
// true, it waits until a Buffer is available or the queue is aborted
// (via Detach). A sentinel pop yields StatusEnd with a nil Buffer; an
// aborted or (when non-blocking) empty queue yields StatusNoBuffer.
func (s *Sink) GetBuffer(blocking bool) (BufferStatus, *Buffer) {
	e, ok := s.queue.Get(blocking)
	if !ok {
		return StatusNoBuffer, nil
	}
	b := e.(*Buffer)
	if b.IsEndOfQueue() {
		return StatusEnd, nil
	}
	return StatusReady, b
}

// deliver attempts to enqueue b into s's queue, returning false (and
// logging) if the queue has been aborted — the QueueAborted error kind,
// the only case in which a put is dropped.
func (s *Sink) deliver(b *Buffer) bool {
	if s.queue.Aborted() {
		s.logger.Warn("groove: dropped buffer delivery to aborted sink queue", "format", fmt.Sprint(s.format))
		return false
	}
	s.queue.Put(b)
	return true
}
