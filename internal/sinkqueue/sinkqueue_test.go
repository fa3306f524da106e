package sinkqueue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovecore/groove/internal/sinkqueue"
)

type fakeEntry struct {
	size int64
	end  bool
	id   int
}

func (f fakeEntry) ByteSize() int64  { return f.size }
func (f fakeEntry) IsEndOfQueue() bool { return f.end }

func TestCountersIgnoreSentinel(t *testing.T) {
	sq := sinkqueue.New()
	sq.Put(fakeEntry{size: 100, id: 1})
	sq.Put(fakeEntry{end: true})
	sq.Put(fakeEntry{size: 50, id: 2})

	assert.Equal(t, 2, sq.BufferCount())
	assert.Equal(t, int64(150), sq.ByteSize())

	e, ok := sq.Get(false)
	require.True(t, ok)
	assert.Equal(t, 1, e.(fakeEntry).id)
	assert.Equal(t, 1, sq.BufferCount())
	assert.Equal(t, int64(50), sq.ByteSize())

	e, ok = sq.Get(false)
	require.True(t, ok)
	assert.True(t, e.IsEndOfQueue())
	assert.Equal(t, 1, sq.BufferCount(), "sentinel must not decrement counters")
}

func TestAbortedReflectsUnderlyingQueue(t *testing.T) {
	sq := sinkqueue.New()
	assert.False(t, sq.Aborted())

	sq.Abort()
	assert.True(t, sq.Aborted())

	sq.Reset()
	assert.False(t, sq.Aborted())
}

func TestFullThreshold(t *testing.T) {
	sq := sinkqueue.New()
	assert.False(t, sq.Full(1024))
	sq.Put(fakeEntry{size: 2048})
	assert.True(t, sq.Full(1024))
}

func TestFlushRunsCleanupAndZeroesCounters(t *testing.T) {
	sq := sinkqueue.New()
	sq.Put(fakeEntry{size: 10, id: 1})
	sq.Put(fakeEntry{size: 20, id: 2})

	var cleaned []int
	sq.Flush(func(e sinkqueue.Entry) { cleaned = append(cleaned, e.(fakeEntry).id) })

	assert.Equal(t, []int{1, 2}, cleaned)
	assert.Equal(t, 0, sq.BufferCount())
	assert.Equal(t, int64(0), sq.ByteSize())
}

func TestPurgeByPredicate(t *testing.T) {
	sq := sinkqueue.New()
	sq.Put(fakeEntry{size: 10, id: 1})
	sq.Put(fakeEntry{size: 10, id: 2})
	sq.Put(fakeEntry{size: 10, id: 3})

	var purged []int
	sq.Purge(
		func(e sinkqueue.Entry) bool { return e.(fakeEntry).id == 2 },
		func(e sinkqueue.Entry) { purged = append(purged, e.(fakeEntry).id) },
	)

	assert.Equal(t, []int{2}, purged)
	assert.Equal(t, 2, sq.BufferCount())
}
