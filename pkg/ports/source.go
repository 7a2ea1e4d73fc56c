package ports

import "time"

// MediaOpener opens a media resource for playback. Implementations validate
// the resource and report ErrSourceUnavailable or ErrUnsupportedFormat.
type MediaOpener interface {
	// OpenMedia opens the resource and returns a decode handle. The caller
	// owns the handle and must Close it.
	OpenMedia() (MediaSource, error)
}

// MediaSource is an open, seekable decode handle. It is exclusively owned by
// a single playback engine; callers must not share it across engines.
type MediaSource interface {
	// Info describes the opened media.
	Info() MediaInfo

	// Next returns the next frame in decode order. It returns io.EOF when
	// the source is exhausted; any other failure should wrap ErrDecode.
	Next() (*Frame, error)

	// Seek repositions decode to the frame with the greatest native
	// timestamp at or before target and returns that position. Targets past
	// the end clamp to the last frame; negative targets clamp to the first.
	Seek(target time.Duration) (FramePos, error)

	// Close releases the underlying resource. Idempotent.
	Close() error
}

// StreamSource is the transport-control capability set shared by the
// playback engine and live capture sources. Consumers program against this
// interface so a recorded file can stand in for a live camera and vice versa.
type StreamSource interface {
	// Start begins frame production from the beginning of the source.
	Start() error

	// Pause halts delivery without losing position.
	Pause() error

	// Resume continues delivery exactly where Pause left off.
	Resume() error

	// Seek repositions playback to target. Live sources cannot seek.
	Seek(target time.Duration) error

	// Stop ends production and releases the source. Idempotent.
	Stop() error

	// Poll returns the next due frame, or reports that none is due yet,
	// that the stream ended, or that the source failed. This is the only
	// path by which frames leave the source.
	Poll() FrameEvent
}

// FrameSink consumes delivered frames.
type FrameSink interface {
	// WriteFrame persists or forwards a single frame.
	WriteFrame(frame *Frame) error

	// Close flushes and releases the sink.
	Close() error
}
