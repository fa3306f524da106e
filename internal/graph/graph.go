// Package graph builds and drives the per-playlist-item transformation
// topology: source -> optional volume -> optional split -> per-class
// format-convert -> per-class output. It is the Go realization of the
// spec's Filter Graph Manager, grounded on the teacher's Mixer (pooled
// float64 buffers, gain applied as a plain multiply) and Repeater (the
// reference-counted fan-out to N outputs) combined into one topology, with
// per-class resampling handled by resample.go.
package graph

import (
	"fmt"

	"pipelined.dev/signal"
)

// Format describes the PCM shape a graph node produces or consumes. It is
// deliberately smaller than the public groove.Format: the graph only ever
// needs sample rate and channel count to decide whether a node is needed.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// ClassSpec is one Sink Map class's example format, keyed by an opaque ID
// the caller assigns (the class's position in the Sink Map's list, per the
// spec's pad-index ordering).
type ClassSpec struct {
	ID     int
	Format Format
}

// classNode is one built O_i: its format-convert stage and a small output
// buffer (a class's resampler can emit a different number of frames per
// push than it received, so output is buffered until Pull drains it).
type classNode struct {
	spec    ClassSpec
	convert *converter
	pool    *signal.PoolAllocator
	pending []signal.Floating
}

// Graph is a built filter graph for one input format/volume/class-set
// snapshot. It is immutable once built; any change to topology or
// parameters requires building a new Graph (the rebuild predicate lives in
// the caller, matching spec's maybe_rebuild).
type Graph struct {
	in      Format
	volume  float64
	split   bool
	classes []*classNode
	pool    *signal.PoolAllocator
}

// Build constructs a graph for the given input format, clamped volume, and
// target classes, in list order (list order is pad-index order, per spec
// §4.4's ordering tie-break).
func Build(in Format, volume float64, classes []ClassSpec, bufferSize int) (*Graph, error) {
	if in.SampleRate <= 0 || in.Channels <= 0 {
		return nil, fmt.Errorf("graph: invalid input format %s", in)
	}
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}

	g := &Graph{
		in:     in,
		volume: volume,
		split:  len(classes) >= 2,
		pool:   signal.GetPoolAllocator(in.Channels, bufferSize, bufferSize),
	}

	for _, spec := range classes {
		conv, err := newConverter(in, spec.Format)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("graph: build format-convert node for class %d: %w", spec.ID, err)
		}
		pool := signal.GetPoolAllocator(spec.Format.Channels, bufferSize, bufferSize)
		g.classes = append(g.classes, &classNode{spec: spec, convert: conv, pool: pool})
	}
	return g, nil
}

// InputFormat returns the format the graph was built for.
func (g *Graph) InputFormat() Format { return g.in }

// Volume returns the (already clamped) volume the graph was built with.
func (g *Graph) Volume() float64 { return g.volume }

// HasSplit reports whether the graph fans out to two or more classes.
func (g *Graph) HasSplit() bool { return g.split }

// Push feeds one decoded frame through volume scaling and, for every class,
// through that class's format-convert node. Converted output is buffered
// per class; call Pull to harvest it.
func (g *Graph) Push(frame signal.Floating) error {
	scaled := frame
	if g.volume != 1 {
		scaled = g.applyVolume(frame)
	}
	for _, cn := range g.classes {
		out, err := cn.convert.process(scaled)
		if err != nil {
			return fmt.Errorf("graph: class %d format-convert: %w", cn.spec.ID, err)
		}
		if out == nil {
			continue
		}
		// Copy into the class's own pool so the output frame can be freed
		// by reference count later, the same Free(pool) discipline the
		// teacher's Repeater uses for its fanned-out buffers.
		pooled := cn.pool.Float64()
		signal.FloatingAsFloating(out, pooled)
		cn.pending = append(cn.pending, pooled)
	}
	return nil
}

func (g *Graph) applyVolume(in signal.Floating) signal.Floating {
	out := g.pool.Float64()
	n := in.Length()
	for ch := 0; ch < in.Channels(); ch++ {
		for i := 0; i < n; i++ {
			out.SetSample(ch, i, in.Sample(ch, i)*g.volume)
		}
	}
	return out
}

// Pull removes and returns the oldest buffered output frame for classID, if
// any. The worker calls this in a loop (per spec's "repeatedly pulls output
// frames from O_i") until it returns ok == false.
func (g *Graph) Pull(classID int) (signal.Floating, bool) {
	for _, cn := range g.classes {
		if cn.spec.ID != classID {
			continue
		}
		if len(cn.pending) == 0 {
			return nil, false
		}
		out := cn.pending[0]
		cn.pending = cn.pending[1:]
		return out, true
	}
	return nil, false
}

// Close releases the graph's pooled buffers and per-class converters. Safe
// to call on a partially built graph.
func (g *Graph) Close() {
	for _, cn := range g.classes {
		cn.convert.close()
		for _, f := range cn.pending {
			f.Free(cn.pool)
		}
		cn.pending = nil
	}
	g.classes = nil
}

// PoolFor returns the pool allocator backing classID's output buffers, so a
// caller holding one of those buffers past the class's lifetime can free it
// correctly. Returns nil if classID is unknown.
func (g *Graph) PoolFor(classID int) *signal.PoolAllocator {
	for _, cn := range g.classes {
		if cn.spec.ID == classID {
			return cn.pool
		}
	}
	return nil
}
