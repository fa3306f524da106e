// Package source adapts a single playlist item's backing file to the
// decode worker. It plays the role the spec marks explicitly out of
// scope — "the codec/demuxer library" and "the file-opening subsystem" —
// by driving the real decoders in pipelined.dev/audio/file (backed by
// pipelined.dev/wav, pipelined.dev/mp3, pipelined.dev/flac) instead of
// reimplementing container parsing.
//
// File owns exactly the per-file state the spec lists: a seek cell guarded
// by its own mutex, an EOF flag, and an audio clock, grounded on the
// teacher's source.go (format-dispatching signal source) generalized from
// "read an in-memory signal.Signal" to "pull from a live pipe.Pump".
package source

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"pipelined.dev/audio/file"
	"pipelined.dev/pipe"
	"pipelined.dev/pipe/mutable"
	"pipelined.dev/signal"
)

// ErrUnsupportedFormat is returned by Open when the file extension does not
// match a known container format.
var ErrUnsupportedFormat = errors.New("source: unsupported file format")

// File is the decode-side state for one playlist item's backing audio
// file: a demuxer/decoder handle, a pending seek request, an EOF flag, and
// an audio clock, exactly as spec §3 describes.
type File struct {
	path       string
	bufferSize int

	rs     *os.File
	format file.Format

	// seekMu guards seekPos/seekFlush/eof, mirroring the spec's per-file
	// seek_mutex.
	seekMu   sync.Mutex
	seekPos  float64 // seconds; < 0 means "no pending seek"
	seekFlush bool
	eof      bool
	drained  bool // true once the trailing "delay capability" drain has run

	clockBits atomic.Uint64 // math.Float64bits(seconds), the audio clock

	decode pipe.SourceFunc
	out    pipe.SignalProperties
}

// Open opens path, detects its container format by extension, and starts
// decoding from the beginning. bufferSize is the number of frames the
// decoder is asked for per pull, matching the playlist's configured graph
// buffer size.
func Open(path string, bufferSize int) (*File, error) {
	format, ok := file.FormatByPath(path)
	if !ok {
		return nil, fmt.Errorf("source: open %q: %w", path, ErrUnsupportedFormat)
	}

	f := &File{path: path, bufferSize: bufferSize, format: format}
	if err := f.reopenFrom(0); err != nil {
		return nil, err
	}
	f.seekPos = -1
	return f, nil
}

// reopenFrom re-opens the backing file and rebuilds the decode pipeline,
// then discards decoded frames until skipSeconds of audio has been
// consumed. A from-scratch reopen-and-discard is used uniformly across
// wav/mp3/flac rather than special-casing byte-accurate seeking for
// uncompressed containers only (see DESIGN.md's seek note).
func (f *File) reopenFrom(skipSeconds float64) error {
	if f.rs != nil {
		f.rs.Close()
	}

	rs, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("source: open %q: %w", f.path, err)
	}

	pump := f.format.Pump(rs)
	alloc := pump.Source()
	src, err := alloc(mutable.Mutable(), f.bufferSize)
	if err != nil {
		rs.Close()
		return fmt.Errorf("source: build decoder for %q: %w", f.path, err)
	}

	f.rs = rs
	f.decode = src.SourceFunc
	f.out = src.Output
	f.eof = false
	f.drained = false
	f.clockBits.Store(0)

	if skipSeconds <= 0 {
		return nil
	}

	bufferFrames := f.bufferSize
	buf := signal.Allocator{Channels: f.out.Channels, Capacity: bufferFrames, Length: bufferFrames}.Float64()
	target := skipSeconds
	elapsed := 0.0
	for elapsed < target {
		n, err := f.decode(buf)
		if n > 0 {
			elapsed += float64(n) / float64(f.out.SampleRate)
		}
		if err != nil {
			break // ran out of file before reaching target: leave clock at elapsed
		}
	}
	f.clockBits.Store(math.Float64bits(elapsed))
	return nil
}

// Format returns the decoder's native sample rate and channel count.
func (f *File) Format() (sampleRate, channels int) {
	return int(f.out.SampleRate), f.out.Channels
}

// RequestSeek arms a pending seek to the given position (negative positions
// become zero). Pull does not read it: the decode worker takes it with
// PendingSeek and performs it with ApplySeek before its next Pull
// (mirroring spec §4.7's seek/seek_mutex contract: "Seek issued ... takes
// effect before any further Buffers ... are delivered").
func (f *File) RequestSeek(seconds float64, flush bool) {
	f.seekMu.Lock()
	defer f.seekMu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	f.seekPos = seconds
	f.seekFlush = flush
}

// PendingSeek reports and clears any armed seek, returning ok == false if
// none is pending. Callers use this to decide whether sink queues need a
// synchronous flush (spec: "if success and seek_flush is set, flush every
// Sink's queue").
func (f *File) PendingSeek() (seconds float64, flush, ok bool) {
	f.seekMu.Lock()
	defer f.seekMu.Unlock()
	if f.seekPos < 0 {
		return 0, false, false
	}
	seconds, flush = f.seekPos, f.seekFlush
	f.seekPos = -1
	f.seekFlush = false
	return seconds, flush, true
}

// ApplySeek performs an armed seek by reopening and discarding up to the
// target position. Errors are non-fatal to the caller (spec: "SeekError:
// log; continue").
func (f *File) ApplySeek(seconds float64) error {
	if err := f.reopenFrom(seconds); err != nil {
		return fmt.Errorf("source: seek %q to %.3fs: %w", f.path, seconds, err)
	}
	return nil
}

// Pull decodes and returns the next frame. It returns io.EOF as soon as the
// decoder reports end of stream, and on every call after that until a seek
// reopens the file; the trailing one-more-frame step is Drain's job.
func (f *File) Pull() (signal.Floating, error) {
	f.seekMu.Lock()
	eof := f.eof
	f.seekMu.Unlock()
	if eof {
		return nil, io.EOF
	}

	buf := signal.Allocator{Channels: f.out.Channels, Capacity: f.bufferSize, Length: f.bufferSize}.Float64()
	n, err := f.decode(buf)
	if n > 0 {
		f.advanceClock(n)
	}
	if err != nil {
		f.seekMu.Lock()
		f.eof = true
		f.seekMu.Unlock()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("source: decode %q: %w", f.path, err)
	}
	if n == 0 {
		return nil, io.EOF
	}
	return buf.Slice(0, n), nil
}

// Drain asks the decoder for exactly one more frame after EOF, the Go shape
// of spec §4.6's "if the decoder advertises a delay capability, feed one
// synthetic empty packet". Returns ok == false once the decoder truly has
// nothing left.
func (f *File) Drain() (signal.Floating, bool) {
	f.seekMu.Lock()
	if f.drained {
		f.seekMu.Unlock()
		return nil, false
	}
	f.drained = true
	f.seekMu.Unlock()

	buf := signal.Allocator{Channels: f.out.Channels, Capacity: f.bufferSize, Length: f.bufferSize}.Float64()
	n, err := f.decode(buf)
	if n <= 0 || err != nil {
		return nil, false
	}
	f.advanceClock(n)
	return buf.Slice(0, n), true
}

// EOF reports whether the decoder has reached end of stream.
func (f *File) EOF() bool {
	f.seekMu.Lock()
	defer f.seekMu.Unlock()
	return f.eof
}

func (f *File) advanceClock(frames int) {
	for {
		old := f.clockBits.Load()
		next := math.Float64bits(math.Float64frombits(old) + float64(frames)/float64(f.out.SampleRate))
		if f.clockBits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Clock returns the current audio clock, in seconds.
func (f *File) Clock() float64 {
	return math.Float64frombits(f.clockBits.Load())
}

// SetClock forcibly sets the audio clock, used right after a seek commits.
func (f *File) SetClock(seconds float64) {
	f.clockBits.Store(math.Float64bits(seconds))
}

// Close releases the underlying file handle.
func (f *File) Close() error {
	if f.rs == nil {
		return nil
	}
	return f.rs.Close()
}
