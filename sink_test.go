package groove

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSinkComputesMinQueueSize(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	assert.Equal(t, int64(1024*2*2), s.minQueueSize)
}

func TestAttachTwiceFails(t *testing.T) {
	p := NewPlaylist()
	defer p.Close()

	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	require.NoError(t, s.Attach(p))
	assert.ErrorIs(t, s.Attach(p), ErrAlreadyAttached)
}

func TestDetachWithoutAttachFails(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	assert.ErrorIs(t, s.Detach(), ErrNotAttached)
}

func TestDetachIsIdempotent(t *testing.T) {
	p := NewPlaylist()
	defer p.Close()

	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	require.NoError(t, s.Attach(p))
	require.NoError(t, s.Detach())
	assert.ErrorIs(t, s.Detach(), ErrNotAttached)
}

func TestGetBufferNonBlockingEmptyIsNoBuffer(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	status, buf := s.GetBuffer(false)
	assert.Equal(t, StatusNoBuffer, status)
	assert.Nil(t, buf)
}

func TestGetBufferSentinelIsEnd(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	s.queue.Put(endOfQueue)

	status, buf := s.GetBuffer(true)
	assert.Equal(t, StatusEnd, status)
	assert.Nil(t, buf)
}

func TestDeliverDropsAfterAbort(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	s.queue.Abort()

	buf := newBuffer(nil, nil, f, nil, 0)
	assert.False(t, s.deliver(buf))
}
