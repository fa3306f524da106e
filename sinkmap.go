package groove

import "github.com/groovecore/groove/internal/sinkqueue"

// sinkClass is one Sink Map equivalence class: every attached Sink with
// an identical target Format. Sinks are kept as a stack (appended on
// attach, removed in place on detach) per spec §4.4.
type sinkClass struct {
	format Format
	sinks  []*Sink
}

// sinkMap groups attached Sinks by target format. It is owned by the
// Playlist and mutated only while holding the Playlist's decode_head_mutex
// equivalent; classes own their Sink list entries but not the Sinks
// themselves (each Sink is created and owned by its caller).
type sinkMap struct {
	classes []*sinkClass
}

func newSinkMap() *sinkMap {
	return &sinkMap{}
}

// attach inserts s into the class matching its format, creating a new
// class (prepended to the list, per spec §4.4) if none matches. It has no
// failure path: in idiomatic Go plain slice growth does not fail, so the
// OutOfMemory branch the spec describes here never triggers (see
// DESIGN.md's Open Questions).
func (m *sinkMap) attach(s *Sink) {
	for _, c := range m.classes {
		if c.format.Equal(s.format) {
			c.sinks = append(c.sinks, s)
			return
		}
	}
	m.classes = append([]*sinkClass{{format: s.format, sinks: []*Sink{s}}}, m.classes...)
}

// detach removes s from whichever class holds it. If that class's stack
// becomes empty, the class itself is unlinked.
func (m *sinkMap) detach(s *Sink) {
	for ci, c := range m.classes {
		for si, sink := range c.sinks {
			if sink != s {
				continue
			}
			c.sinks = append(c.sinks[:si], c.sinks[si+1:]...)
			if len(c.sinks) == 0 {
				m.classes = append(m.classes[:ci], m.classes[ci+1:]...)
			}
			return
		}
	}
}

// count returns sink_map_count: the number of distinct format classes.
func (m *sinkMap) count() int {
	return len(m.classes)
}

// forEachSink invokes fn for every attached Sink, across every class.
func (m *sinkMap) forEachSink(fn func(*Sink)) {
	for _, c := range m.classes {
		for _, s := range c.sinks {
			fn(s)
		}
	}
}

// sendEndOfQueue delivers the end-of-queue sentinel to every attached
// Sink exactly once.
func (m *sinkMap) sendEndOfQueue() {
	m.forEachSink(func(s *Sink) { s.queue.Put(endOfQueue) })
}

// allFull reports whether every attached Sink's queue has reached its own
// configured threshold, vacuously true when no Sink is attached: with
// nothing to consume output, the worker should sleep rather than decode
// into the void.
func (m *sinkMap) allFull() bool {
	full := true
	m.forEachSink(func(s *Sink) {
		if !s.queue.Full(s.minQueueSize) {
			full = false
		}
	})
	return full
}

// purge removes, from every Sink's queue, any Buffer referencing item,
// unreferencing each one and invoking the Sink's Purge hook if set. Hooks
// must not call back into the Playlist or Sink API: purge runs while the
// Playlist's decode_head_mutex equivalent is held.
func (m *sinkMap) purge(item *PlaylistItem) {
	m.forEachSink(func(s *Sink) {
		s.queue.Purge(
			func(e sinkqueue.Entry) bool {
				b, ok := e.(*Buffer)
				return ok && b.Item() == item
			},
			func(e sinkqueue.Entry) { e.(*Buffer).Unref() },
		)
		if s.Purge != nil {
			s.Purge(item)
		}
	})
}

// flushAll synchronously drains and unrefs every Sink's queue, then
// invokes each Sink's Flush hook if set. Used when a seek commits with
// seek_flush set. Hooks must not call back into the Playlist or Sink API:
// flushAll runs while the Playlist's decode_head_mutex equivalent is held.
func (m *sinkMap) flushAll() {
	m.forEachSink(func(s *Sink) {
		s.queue.Flush(func(e sinkqueue.Entry) { e.(*Buffer).Unref() })
		if s.Flush != nil {
			s.Flush()
		}
	})
}
