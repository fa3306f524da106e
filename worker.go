// The decode worker: the single background goroutine that advances the
// playlist's decode head, drives the filter graph, and multicasts decoded
// Buffers to every attached Sink. Grounded on the teacher's Mixer worker
// loop (mixer.go's mix goroutine: one long-lived goroutine reading from
// channels and writing pooled buffers downstream), generalized from a
// channel-driven pipeline stage to a lock-driven, pull-based state
// machine matching spec §4.6's decode_one_frame contract.
package groove

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/groovecore/groove/internal/graph"
	"pipelined.dev/signal"
)

// runWorker is the decode worker's main loop. It owns no state of its
// own: everything it touches lives on the Playlist and is read/written
// under p.mu, matching spec §5's "the worker is the sole mutator of
// engine format snapshots, graph structure, sent_end_of_q, and item
// transitions."
func (p *Playlist) runWorker() {
	defer close(p.workerDone)

	for {
		if p.abortRequest.Load() {
			return
		}

		p.mu.Lock()

		if p.engine.decodeHead == nil {
			if !p.engine.sentEndOfQ {
				p.sinkMap.sendEndOfQueue()
				p.engine.sentEndOfQ = true
			}
			p.mu.Unlock()
			time.Sleep(noopDelay)
			continue
		}
		p.engine.sentEndOfQ = false

		if p.sinkMap.allFull() {
			p.mu.Unlock()
			time.Sleep(noopDelay)
			continue
		}

		head := p.engine.decodeHead
		p.engine.effectiveVolume = head.gain * p.volume

		if !p.decodeOneFrame(head) {
			p.engine.decodeHead = head.next
			if p.engine.decodeHead != nil {
				p.engine.decodeHead.file.RequestSeek(0, false)
			}
		}

		p.mu.Unlock()
	}
}

// maybeRebuild tears down and rebuilds the filter graph when it is
// absent, the rebuild flag is set, the input format snapshot is stale, or
// the effective volume has drifted from the volume the graph was last
// built with. Must be called with p.mu held.
func (p *Playlist) maybeRebuild(item *PlaylistItem) error {
	sampleRate, channels := item.file.Format()
	in := graph.Format{SampleRate: sampleRate, Channels: channels}

	stale := p.engine.g == nil ||
		p.engine.rebuildFlag ||
		in != p.engine.inputFormat ||
		p.engine.effectiveVolume != p.engine.filterVolume
	if !stale {
		return nil
	}

	classes := make([]graph.ClassSpec, 0, len(p.sinkMap.classes))
	for i, c := range p.sinkMap.classes {
		classes = append(classes, graph.ClassSpec{
			ID:     i,
			Format: graph.Format{SampleRate: c.format.SampleRate, Channels: c.format.Channels},
		})
	}

	if p.engine.g != nil {
		p.engine.g.Close()
		p.engine.g = nil
	}

	g, err := graph.Build(in, p.engine.effectiveVolume, classes, p.bufferSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGraphBuildFailed, err)
	}

	p.engine.g = g
	p.engine.inputFormat = in
	p.engine.filterVolume = p.engine.effectiveVolume
	p.engine.rebuildFlag = false
	return nil
}

// decodeOneFrame is the Go shape of spec §4.6's decode_one_frame: it
// rebuilds the graph if stale, records the current pause state for
// last_paused bookkeeping, applies any armed seek, and either drains the
// decoder past EOF or pulls the next decoded frame and pushes it through
// the graph. Pause never short-circuits decode itself — it always falls
// through to seek/EOF/decode regardless of pause state. Returns true to
// signal "continue with this item" and false to signal "this item is
// done, the worker should advance the decode head." Must be called with
// p.mu held.
func (p *Playlist) decodeOneFrame(item *PlaylistItem) bool {
	if err := p.maybeRebuild(item); err != nil {
		p.logger.Error("groove: filter graph build failed", "item", item.path, "err", err)
		return false
	}

	p.engine.lastPaused = p.paused.Load()

	if seconds, flush, ok := item.file.PendingSeek(); ok {
		if err := item.file.ApplySeek(seconds); err != nil {
			p.logger.Warn("groove: seek failed", "item", item.path, "err", err)
		} else {
			if flush {
				p.sinkMap.flushAll()
			}
			item.file.SetClock(seconds)
		}
	}

	if item.file.EOF() {
		frame, ok := item.file.Drain()
		if !ok {
			return false
		}
		return p.audioDecodeFrame(item, frame)
	}

	frame, err := item.file.Pull()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			p.logger.Warn("groove: decode read failed", "item", item.path, "err", err)
		}
		return true
	}
	return p.audioDecodeFrame(item, frame)
}

// audioDecodeFrame pushes frame through the filter graph, then for every
// sink-map class repeatedly pulls converted output frames, wraps each in
// a Buffer, and fans it out to every Sink in that class. A Buffer nobody
// accepts is released immediately via the ref/unref pair spec §4.6
// describes.
func (p *Playlist) audioDecodeFrame(item *PlaylistItem, frame signal.Floating) bool {
	if err := p.engine.g.Push(frame); err != nil {
		p.logger.Error("groove: decode error", "item", item.path, "err", err)
		return false
	}

	for classID, c := range p.sinkMap.classes {
		classFormat := c.format
		pool := p.engine.g.PoolFor(classID)

		for {
			out, ok := p.engine.g.Pull(classID)
			if !ok {
				break
			}

			buf := newBuffer(out, pool, classFormat, item, item.file.Clock())
			for _, sink := range c.sinks {
				if sink.deliver(buf) {
					buf.Ref()
				}
			}
			buf.Ref()
			buf.Unref()
		}
	}
	return true
}
