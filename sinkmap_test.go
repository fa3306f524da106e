package groove

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pipelined.dev/signal"
)

func TestAttachGroupsByFormat(t *testing.T) {
	m := newSinkMap()
	f1 := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	f2 := Format{SampleRate: 48000, Channels: 1, SampleFormat: SampleFormatFloat32}

	s1 := NewSink(f1, 1024)
	s2 := NewSink(f1, 1024)
	s3 := NewSink(f2, 1024)

	m.attach(s1)
	m.attach(s2)
	m.attach(s3)

	require.Equal(t, 2, m.count())

	var class1, class2 *sinkClass
	for _, c := range m.classes {
		if c.format.Equal(f1) {
			class1 = c
		}
		if c.format.Equal(f2) {
			class2 = c
		}
	}
	require.NotNil(t, class1)
	require.NotNil(t, class2)
	assert.Len(t, class1.sinks, 2)
	assert.Len(t, class2.sinks, 1)
}

func TestDetachRemovesEmptyClass(t *testing.T) {
	m := newSinkMap()
	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)

	m.attach(s)
	require.Equal(t, 1, m.count())

	m.detach(s)
	assert.Equal(t, 0, m.count())
}

func TestDetachKeepsClassWithRemainingSinks(t *testing.T) {
	m := newSinkMap()
	f := Format{SampleRate: 44100, Channels: 2, SampleFormat: SampleFormatInt16}
	s1 := NewSink(f, 1024)
	s2 := NewSink(f, 1024)

	m.attach(s1)
	m.attach(s2)
	m.detach(s1)

	require.Equal(t, 1, m.count())
	assert.Len(t, m.classes[0].sinks, 1)
	assert.Same(t, s2, m.classes[0].sinks[0])
}

func TestAllFullIsVacuouslyTrueWithNoSinksAttached(t *testing.T) {
	m := newSinkMap()
	assert.True(t, m.allFull(), "no sink to consume output means the worker should sleep, not decode")
}

func TestAllFullRequiresEverySinkFull(t *testing.T) {
	m := newSinkMap()
	f := Format{SampleRate: 8000, Channels: 1, SampleFormat: SampleFormatInt16}
	s1 := NewSink(f, 1)
	s2 := NewSink(f, 1)
	m.attach(s1)
	m.attach(s2)

	assert.False(t, m.allFull(), "empty sinks are not full")

	item := &PlaylistItem{gain: 1}
	frame := signal.Allocator{Channels: 1, Capacity: 4, Length: 4}.Float64()
	buf := newBuffer(frame, nil, f, item, 0)
	s1.queue.Put(buf)
	assert.False(t, m.allFull(), "only one of two sinks is full")

	s2.queue.Put(buf)
	assert.True(t, m.allFull())
}

func TestPurgeUnrefsMatchingBuffersAndCallsHook(t *testing.T) {
	m := newSinkMap()
	f := Format{SampleRate: 8000, Channels: 1, SampleFormat: SampleFormatInt16}
	s := NewSink(f, 1024)
	m.attach(s)

	itemA := &PlaylistItem{gain: 1}
	itemB := &PlaylistItem{gain: 1}
	bufA := newBuffer(nil, nil, f, itemA, 0)
	bufB := newBuffer(nil, nil, f, itemB, 0)
	bufA.Ref()
	bufB.Ref()
	s.queue.Put(bufA)
	s.queue.Put(bufB)

	var purgedItem *PlaylistItem
	s.Purge = func(item *PlaylistItem) { purgedItem = item }

	m.purge(itemA)

	assert.Equal(t, itemA, purgedItem)
	assert.Equal(t, 1, s.queue.BufferCount())
	assert.Equal(t, 0, bufA.refCount)
}
