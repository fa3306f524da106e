package groove

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/groovecore/groove/internal/graph"
	"github.com/groovecore/groove/internal/source"
)

const (
	// defaultBufferSize is the number of frames requested per decode pull
	// and per filter-graph push, used when a Playlist is constructed
	// with NewPlaylist.
	defaultBufferSize = 1024

	// noopDelay is how long the decode worker sleeps when it has nothing
	// to do: no current item, or every attached Sink is full.
	noopDelay = 5 * time.Millisecond
)

// PlaylistItem is one entry in a Playlist's ordered item list: a backing
// file, a per-item gain, and the doubly-linked prev/next pointers the
// Playlist mutates under its internal mutex. The zero value is not
// usable; items are created only by Playlist.Insert.
type PlaylistItem struct {
	playlist *Playlist
	path     string
	gain     float64
	prev     *PlaylistItem
	next     *PlaylistItem
	file     *source.File
}

// Path returns the item's backing file path.
func (i *PlaylistItem) Path() string { return i.path }

// Gain returns the item's per-item gain multiplier.
func (i *PlaylistItem) Gain() float64 { return i.gain }

// engineState is the decode engine's mutable state, embedded in Playlist
// and mutated only under Playlist.mu — the Go shape of spec §3's
// "Engine State" row.
type engineState struct {
	decodeHead      *PlaylistItem
	effectiveVolume float64
	filterVolume    float64
	rebuildFlag     bool
	sentEndOfQ      bool
	lastPaused      bool
	purgeItem       *PlaylistItem

	inputFormat graph.Format
	g           *graph.Graph
}

// Playlist is a doubly-linked ordered list of playback items, a global
// volume, and the decode engine state driving a single background worker
// that decodes the current item and multicasts PCM Buffers to every
// attached Sink. All mutation goes through Playlist's methods, which
// serialize on mu — the Go realization of spec §5's decode_head_mutex.
type Playlist struct {
	mu sync.Mutex

	head, tail *PlaylistItem
	volume     float64
	engine     engineState
	sinkMap    *sinkMap

	paused       atomic.Bool
	abortRequest atomic.Bool
	closed       atomic.Bool

	bufferSize int
	logger     *slog.Logger

	workerDone chan struct{}
	closeOnce  sync.Once
}

// NewPlaylist creates an empty Playlist at full volume and starts its
// decode worker. The worker runs until Close is called.
func NewPlaylist() *Playlist {
	p := &Playlist{
		volume:     1.0,
		sinkMap:    newSinkMap(),
		bufferSize: defaultBufferSize,
		logger:     slog.Default(),
		workerDone: make(chan struct{}),
	}
	p.engine.effectiveVolume = 1.0
	p.engine.filterVolume = 1.0
	go p.runWorker()
	return p
}

// SetLogger overrides the logger the decode worker uses for swallowed
// errors (DecodeError, ReadError, SeekError, and dropped deliveries to an
// aborted sink queue). The default is slog.Default().
func (p *Playlist) SetLogger(l *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = l
}

// Close clears the playlist, stops the decode worker, detaches every
// attached Sink, and releases the filter graph. It is safe to call more
// than once.
func (p *Playlist) Close() error {
	p.closeOnce.Do(func() {
		p.Clear()
		p.closed.Store(true)
		p.abortRequest.Store(true)
		<-p.workerDone

		var sinks []*Sink
		p.mu.Lock()
		p.sinkMap.forEachSink(func(s *Sink) { sinks = append(sinks, s) })
		p.mu.Unlock()
		for _, s := range sinks {
			s.Detach()
		}

		p.mu.Lock()
		if p.engine.g != nil {
			p.engine.g.Close()
			p.engine.g = nil
		}
		p.mu.Unlock()
	})
	return nil
}

// Insert opens path, allocates a PlaylistItem with the given gain (a
// non-positive gain is treated as "use the default" and becomes 1.0,
// matching the original implementation's unvalidated default rather than
// propagating silence), and splices it into the list. If next is nil and
// the playlist is currently empty, the new item becomes the decode head
// with its seek armed to position zero (non-flushing, so the worker
// starts the file cleanly on its first iteration). If next is nil and the
// playlist is non-empty, the item is appended to the tail. Otherwise the
// item is spliced immediately before next. Returns ErrClosed if called
// after Close.
func (p *Playlist) Insert(path string, gain float64, next *PlaylistItem) (*PlaylistItem, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if gain <= 0 {
		gain = 1.0
	}

	f, err := source.Open(path, p.bufferSize)
	if err != nil {
		return nil, err
	}
	item := &PlaylistItem{playlist: p, path: path, gain: gain, file: f}

	p.mu.Lock()
	defer p.mu.Unlock()

	if next != nil {
		if next.playlist != p {
			f.Close()
			return nil, ErrUnknownItem
		}
		item.prev = next.prev
		item.next = next
		if next.prev != nil {
			next.prev.next = item
		} else {
			p.head = item
		}
		next.prev = item
		return item, nil
	}

	if p.head == nil {
		p.head = item
		p.tail = item
		p.engine.decodeHead = item
		item.file.RequestSeek(0, false)
		return item, nil
	}

	item.prev = p.tail
	p.tail.next = item
	p.tail = item
	return item, nil
}

// Remove unlinks item from its Playlist's list, advancing the decode head
// past it if it was current, purges any outstanding Buffers referencing
// it from every attached Sink's queue, and closes its backing file.
// Removing an item that does not belong to this Playlist is a no-op.
func (p *Playlist) Remove(item *PlaylistItem) {
	if item == nil || item.playlist != p {
		return
	}

	p.mu.Lock()
	if p.engine.decodeHead == item {
		p.engine.decodeHead = item.next
	}
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		p.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		p.tail = item.prev
	}
	p.engine.purgeItem = item
	p.sinkMap.purge(item)
	p.engine.purgeItem = nil
	p.mu.Unlock()

	item.file.Close()
	item.playlist = nil
}

// Clear removes every item. It reads each item's next pointer before
// removing it — the original implementation read node.next after freeing
// node, a use-after-free this module does not replicate (see
// DESIGN.md's Open Questions).
func (p *Playlist) Clear() {
	p.mu.Lock()
	item := p.head
	p.mu.Unlock()

	for item != nil {
		next := item.next
		p.Remove(item)
		item = next
	}
}

// Count traverses the item list without holding the Playlist's internal
// mutex, matching the original design's documented (if racy) contract:
// callers must not call Count concurrently with Insert/Remove/Clear on
// the same Playlist.
func (p *Playlist) Count() int {
	n := 0
	for item := p.head; item != nil; item = item.next {
		n++
	}
	return n
}

// Seek arms a flushing seek to seconds on item and makes it the decode
// head. The seek takes effect the next time the worker observes it (see
// internal/source.File.PendingSeek), before any further Buffers for the
// item are delivered. Returns ErrClosed if called after Close.
func (p *Playlist) Seek(item *PlaylistItem, seconds float64) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if item == nil || item.playlist != p {
		return ErrUnknownItem
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	item.file.RequestSeek(seconds, true)
	p.engine.decodeHead = item
	return nil
}

// SetGain updates item's per-item gain, recomputing the engine's
// effective volume if item is the current decode head.
func (p *Playlist) SetGain(item *PlaylistItem, gain float64) {
	if item == nil || item.playlist != p {
		return
	}
	p.mu.Lock()
	item.gain = gain
	if p.engine.decodeHead == item {
		p.engine.effectiveVolume = gain * p.volume
	}
	p.mu.Unlock()
}

// SetVolume updates the playlist's global volume, recomputing the
// engine's effective volume against the current decode head's gain.
func (p *Playlist) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = v
	if p.engine.decodeHead != nil {
		p.engine.effectiveVolume = p.engine.decodeHead.gain * v
	}
	p.mu.Unlock()
}

// Position returns the current decode head and its audio clock, in
// seconds. Returns (nil, 0) when nothing is playing.
func (p *Playlist) Position() (*PlaylistItem, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item := p.engine.decodeHead
	if item == nil {
		return nil, 0
	}
	return item, item.file.Clock()
}

// Play clears the paused flag.
func (p *Playlist) Play() { p.paused.Store(false) }

// Pause sets the paused flag reported by Playing. The decode worker
// records the flag each iteration but keeps decoding and delivering
// frames; Pause does not stop production.
func (p *Playlist) Pause() { p.paused.Store(true) }

// Playing reports whether the playlist is currently unpaused.
func (p *Playlist) Playing() bool { return !p.paused.Load() }
