package groove

import "errors"

// Sentinel errors returned by the public API. Internal worker failures
// (DecodeError, ReadError, SeekError) never surface this way — they are
// logged and the worker advances or continues, per the engine's error
// handling design.
var (
	// ErrNoMemory is returned when allocating a Playlist, Sink, or
	// PlaylistItem fails. Go's allocator treats out-of-memory as fatal
	// rather than recoverable, so in practice this is never returned by
	// the current implementation; it exists so callers written against
	// the OutOfMemory contract compile and so a future allocation-limited
	// embedding (e.g. a fixed-size arena) has somewhere to report into.
	ErrNoMemory = errors.New("groove: allocation failed")

	// ErrGraphBuildFailed is returned when the filter graph manager
	// cannot construct a topology for the current input format, volume,
	// and sink map.
	ErrGraphBuildFailed = errors.New("groove: filter graph build failed")

	// ErrNotAttached is returned by Sink.Detach when the sink has no
	// playlist back-reference.
	ErrNotAttached = errors.New("groove: sink is not attached")

	// ErrAlreadyAttached is returned by Sink.Attach when the sink already
	// has a playlist back-reference.
	ErrAlreadyAttached = errors.New("groove: sink is already attached")

	// ErrUnknownItem is returned when an operation names a PlaylistItem
	// that does not belong to the receiving Playlist.
	ErrUnknownItem = errors.New("groove: item does not belong to this playlist")

	// ErrClosed is returned by Playlist operations called after Close.
	ErrClosed = errors.New("groove: playlist is closed")
)
