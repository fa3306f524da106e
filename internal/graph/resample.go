package graph

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
	"pipelined.dev/signal"
)

// converter is one class's format-convert node: sample-rate conversion via
// the pure-Go resampler contributed by haivivi-giztoy's pkg/audio/resampler
// (no cgo, unlike soxr proper), plus channel up/down-mix done directly on
// signal.Floating the way pipelined.dev/signal's AsFloating helpers do.
type converter struct {
	in, out    Format
	needsRate  bool
	needsChans bool
	resampler  resampling.Resampler
}

func newConverter(in, out Format) (*converter, error) {
	c := &converter{
		in:         in,
		out:        out,
		needsRate:  in.SampleRate != out.SampleRate,
		needsChans: in.Channels != out.Channels,
	}
	if c.needsRate {
		cfg := &resampling.Config{
			InputRate:  float64(in.SampleRate),
			OutputRate: float64(out.SampleRate),
			Channels:   out.Channels,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		r, err := resampling.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("resample: create resampler %s->%s: %w", in, out, err)
		}
		c.resampler = r
	}
	return c, nil
}

// process converts one input frame to the class's output format. It may
// return (nil, nil) when the resampler has not yet accumulated enough
// samples to emit a frame.
func (c *converter) process(in signal.Floating) (signal.Floating, error) {
	mixed := in
	if c.needsChans {
		mixed = remix(in, c.out.Channels)
	}

	if !c.needsRate {
		return mixed, nil
	}

	flat := interleave(mixed)
	resampled, err := c.resampler.Process(flat)
	if err != nil {
		return nil, fmt.Errorf("resample: process: %w", err)
	}
	if len(resampled) == 0 {
		return nil, nil
	}
	return deinterleave(resampled, c.out.Channels), nil
}

func (c *converter) close() {
	c.resampler = nil
}

// remix down- or up-mixes channels by averaging (down) or duplicating (up),
// matching the stereoToMono/monoToStereo strategy used by
// haivivi-giztoy/go/pkg/audio/resampler.
func remix(in signal.Floating, outChannels int) signal.Floating {
	n := in.Length()
	out := signal.Allocator{Channels: outChannels, Capacity: n, Length: n}.Float64()

	switch {
	case in.Channels() == 2 && outChannels == 1:
		for i := 0; i < n; i++ {
			out.SetSample(0, i, (in.Sample(0, i)+in.Sample(1, i))/2)
		}
	case in.Channels() == 1 && outChannels == 2:
		for i := 0; i < n; i++ {
			s := in.Sample(0, i)
			out.SetSample(0, i, s)
			out.SetSample(1, i, s)
		}
	default:
		// same channel count, or a layout this engine does not special-case:
		// copy the first min(channels) channels through unchanged.
		chans := in.Channels()
		if outChannels < chans {
			chans = outChannels
		}
		for ch := 0; ch < chans; ch++ {
			for i := 0; i < n; i++ {
				out.SetSample(ch, i, in.Sample(ch, i))
			}
		}
	}
	return out
}

func interleave(in signal.Floating) []float64 {
	n, ch := in.Length(), in.Channels()
	flat := make([]float64, n*ch)
	for i := 0; i < n; i++ {
		for c := 0; c < ch; c++ {
			flat[i*ch+c] = in.Sample(c, i)
		}
	}
	return flat
}

func deinterleave(flat []float64, channels int) signal.Floating {
	n := len(flat) / channels
	out := signal.Allocator{Channels: channels, Capacity: n, Length: n}.Float64()
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			out.SetSample(c, i, flat[i*channels+c])
		}
	}
	return out
}
