package groove

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV writes a minimal canonical PCM16 WAV file with the given
// sample rate, channel count, and frame count to dir, returning its path.
// Used in place of a checked-in fixture so playlist/sink tests can drive
// the real pipelined.dev/audio/file + pipelined.dev/wav decode path
// end to end.
func writeTestWAV(t *testing.T, dir string, sampleRate, channels, frames int) string {
	t.Helper()

	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := frames * blockAlign

	path := filepath.Join(dir, "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("writeTestWAV: create: %v", err)
	}
	defer f.Close()

	write := func(v any) {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			t.Fatalf("writeTestWAV: write: %v", err)
		}
	}

	f.WriteString("RIFF")
	write(uint32(36 + dataSize))
	f.WriteString("WAVE")

	f.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(channels))
	write(uint32(sampleRate))
	write(uint32(byteRate))
	write(uint16(blockAlign))
	write(uint16(bitsPerSample))

	f.WriteString("data")
	write(uint32(dataSize))

	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16((i % 200) - 100)
	}
	write(samples)

	return path
}
