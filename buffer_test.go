package groove

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pipelined.dev/signal"
)

func TestEndOfQueueIsIdentityOnly(t *testing.T) {
	assert.True(t, endOfQueue.IsEndOfQueue())
	assert.Equal(t, int64(0), endOfQueue.ByteSize())

	other := newBuffer(nil, nil, Format{}, nil, 0)
	assert.False(t, other.IsEndOfQueue())
}

func TestRefUnrefFreesAtZero(t *testing.T) {
	pool := signal.GetPoolAllocator(1, 4, 4)
	frame := pool.Float64()
	format := Format{SampleRate: 8000, Channels: 1, SampleFormat: SampleFormatFloat64}
	b := newBuffer(frame, pool, format, nil, 0)

	require.Equal(t, 0, b.refCount)
	b.Ref()
	b.Ref()
	assert.Equal(t, 2, b.refCount)
	b.Unref()
	assert.Equal(t, 1, b.refCount)
	b.Unref()
	assert.Equal(t, 0, b.refCount)
}

func TestUnrefOnEndOfQueueIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		endOfQueue.Ref()
		endOfQueue.Unref()
	})
}

func TestByteSizeMatchesFrameAndFormat(t *testing.T) {
	pool := signal.GetPoolAllocator(2, 10, 10)
	frame := pool.Float64()
	format := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	b := newBuffer(frame, pool, format, nil, 0)
	assert.Equal(t, int64(10*2*2), b.ByteSize())
}
