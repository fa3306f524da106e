// Package sinkqueue wraps internal/queue with the counters and hooks a
// playback Sink needs: a running buffer count and byte size (so the decode
// worker can tell when a sink is "full" without draining it), and a purge
// predicate hook used when a playlist item is removed mid-decode.
package sinkqueue

import (
	"sync"

	"github.com/groovecore/groove/internal/queue"
)

// Entry is anything a Queue can carry. IsEndOfQueue distinguishes the
// distinguished end-of-queue sentinel (which must not count toward the
// byte/buffer counters) from real payloads.
type Entry interface {
	ByteSize() int64
	IsEndOfQueue() bool
}

// Queue is a bounded-by-convention (not by refusal) FIFO of Entry values.
// Puts never block and never fail; callers throttle production themselves
// by polling Full, matching the spec's "QueueFull is not modeled" design.
type Queue struct {
	q *queue.Queue

	mu          sync.Mutex
	bufferCount int
	byteSize    int64
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{q: queue.New()}
}

// Put enqueues e. The end-of-queue sentinel is enqueued but never counted.
func (sq *Queue) Put(e Entry) {
	sq.q.Put(e)
	if e.IsEndOfQueue() {
		return
	}
	sq.mu.Lock()
	sq.bufferCount++
	sq.byteSize += e.ByteSize()
	sq.mu.Unlock()
}

// Get removes and returns the head entry, decrementing the counters unless
// it was the end-of-queue sentinel. The second result is false if the queue
// was aborted (blocking) or empty (non-blocking).
func (sq *Queue) Get(blocking bool) (Entry, bool) {
	v, ok := sq.q.Get(blocking)
	if !ok {
		return nil, false
	}
	e := v.(Entry)
	if !e.IsEndOfQueue() {
		sq.mu.Lock()
		sq.bufferCount--
		sq.byteSize -= e.ByteSize()
		sq.mu.Unlock()
	}
	return e, true
}

// Flush drains every remaining entry, calling cleanup on each (the caller
// typically unrefs the underlying Buffer there), and zeroes the counters.
func (sq *Queue) Flush(cleanup func(Entry)) {
	sq.q.Flush(func(v any) {
		e := v.(Entry)
		if cleanup != nil {
			cleanup(e)
		}
	})
	sq.mu.Lock()
	sq.bufferCount = 0
	sq.byteSize = 0
	sq.mu.Unlock()
}

// Abort wakes any blocked Get, causing it to return (nil, false).
func (sq *Queue) Abort() {
	sq.q.Abort()
}

// Reset clears the abort state, readying the queue for reuse after a fresh
// Attach.
func (sq *Queue) Reset() {
	sq.q.Reset()
}

// Aborted reports whether the queue has been aborted since the last Reset.
// The worker checks this before a Put to drop-and-log deliveries to a sink
// that is mid-detach, per the spec's QueueAborted error kind.
func (sq *Queue) Aborted() bool {
	return sq.q.Aborted()
}

// Purge removes every entry for which pred returns true, decrementing
// counters for each and invoking cleanup on it.
func (sq *Queue) Purge(pred func(Entry) bool, cleanup func(Entry)) {
	sq.q.Purge(
		func(v any) bool { return pred(v.(Entry)) },
		func(v any) {
			e := v.(Entry)
			if !e.IsEndOfQueue() {
				sq.mu.Lock()
				sq.bufferCount--
				sq.byteSize -= e.ByteSize()
				sq.mu.Unlock()
			}
			if cleanup != nil {
				cleanup(e)
			}
		},
	)
}

// BufferCount returns the number of non-sentinel entries currently queued.
func (sq *Queue) BufferCount() int {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.bufferCount
}

// ByteSize returns the total byte size of non-sentinel entries queued.
func (sq *Queue) ByteSize() int64 {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.byteSize
}

// Full reports whether the queue has reached or exceeded minSize bytes —
// the "audioq_size >= min_audioq_size" test the decode worker polls to
// decide whether to keep producing for this sink.
func (sq *Queue) Full(minSize int64) bool {
	return sq.ByteSize() >= minSize
}
