package groove

import "fmt"

// SampleFormat is the PCM sample encoding a Sink declares and a Buffer
// carries, the Go enum realization of the spec's sample_fmt field.
type SampleFormat int

const (
	// SampleFormatInt16 is signed 16-bit PCM.
	SampleFormatInt16 SampleFormat = iota
	// SampleFormatInt32 is signed 32-bit PCM.
	SampleFormatInt32
	// SampleFormatFloat32 is 32-bit floating point PCM.
	SampleFormatFloat32
	// SampleFormatFloat64 is 64-bit floating point PCM, the format every
	// pipelined.dev/signal.Floating buffer is carried as internally.
	SampleFormatFloat64
)

// BytesPerSample returns the storage width of one sample in this format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatInt16:
		return 2
	case SampleFormatInt32, SampleFormatFloat32:
		return 4
	case SampleFormatFloat64:
		return 8
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatInt16:
		return "s16"
	case SampleFormatInt32:
		return "s32"
	case SampleFormatFloat32:
		return "flt"
	case SampleFormatFloat64:
		return "dbl"
	default:
		return "unknown"
	}
}

// Format is a Sink's declared target PCM shape, or a Buffer's carried
// shape: sample rate, channel count, and sample encoding. It is the Go
// shape of the spec's (sample_fmt, sample_rate, channel_layout) triple;
// channel_layout is simplified to a plain channel count, since this
// module does not model surround channel masks.
type Format struct {
	SampleRate   int
	Channels     int
	SampleFormat SampleFormat
}

// Equal reports whether two formats describe the identical PCM shape —
// the equality the Sink Map uses to group Sinks into classes.
func (f Format) Equal(other Format) bool {
	return f.SampleRate == other.SampleRate &&
		f.Channels == other.Channels &&
		f.SampleFormat == other.SampleFormat
}

// BytesPerSec returns the derived byte rate for this format: sample rate
// times channel count times bytes per sample. The audio clock does not use
// it; the clock advances by decoded frames over the source sample rate.
func (f Format) BytesPerSec() int64 {
	return int64(f.SampleRate) * int64(f.Channels) * int64(f.SampleFormat.BytesPerSample())
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.SampleFormat, f.SampleRate, f.Channels)
}
