package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/groovecore/groove/internal/source"
)

func TestOpenRejectsUnsupportedExtension(t *testing.T) {
	_, err := source.Open("testdata/song.ogg", 256)
	assert.ErrorIs(t, err, source.ErrUnsupportedFormat)
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := source.Open("testdata/does-not-exist.wav", 256)
	assert.Error(t, err)
}

func TestRequestSeekClampsNegativePosition(t *testing.T) {
	f := &source.File{}
	f.RequestSeek(-5, true)

	seconds, flush, ok := f.PendingSeek()
	assert.True(t, ok)
	assert.Equal(t, 0.0, seconds)
	assert.True(t, flush)
}

func TestPendingSeekIsConsumedOnce(t *testing.T) {
	f := &source.File{}
	f.RequestSeek(12.5, false)

	_, _, ok := f.PendingSeek()
	assert.True(t, ok)

	_, _, ok = f.PendingSeek()
	assert.False(t, ok, "a pending seek must be cleared once read")
}
