package ports

import (
	"image"
	"time"
)

// Frame is a single video frame together with its presentation timing.
type Frame struct {
	// Data holds the frame payload. For container sources this is the raw
	// encoded sample; for image sources it is the original file bytes.
	// Must not be modified after the frame leaves its source.
	Data []byte

	// Image is the decoded picture for sources that decode, nil otherwise.
	Image image.Image

	// Index is the frame number within the source, starting at 0.
	Index int

	// Timestamp is the presentation time on the playback virtual clock.
	Timestamp time.Duration

	// Duration is the nominal display duration of this frame.
	Duration time.Duration

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int
}

// EventKind discriminates the possible results of polling a stream source.
type EventKind int

const (
	// EventNotDue means no frame's presentation time has been reached yet.
	EventNotDue EventKind = iota
	// EventFrame carries a frame whose presentation time has arrived.
	EventFrame
	// EventEndOfStream is emitted exactly once when the source is exhausted.
	EventEndOfStream
	// EventError carries a sticky playback error.
	EventError
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventNotDue:
		return "not-due"
	case EventFrame:
		return "frame"
	case EventEndOfStream:
		return "end-of-stream"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// FrameEvent is the result of a single poll. Frame is non-nil only for
// EventFrame; Err is non-nil only for EventError.
type FrameEvent struct {
	Kind  EventKind
	Frame *Frame
	Err   error
}

// MediaInfo describes an opened media source.
type MediaInfo struct {
	// FrameCount is the total number of frames, 0 when unknown.
	FrameCount int

	// FrameInterval is the nominal duration between frames.
	FrameInterval time.Duration

	// Duration is the total playable duration, 0 when unknown.
	Duration time.Duration

	// Width and Height are the picture dimensions in pixels.
	Width  int
	Height int

	// Codec identifies the sample encoding (e.g. "av01", "jpeg").
	Codec string
}

// FramePos identifies a decode position within a media source.
type FramePos struct {
	// Index is the frame number at the position.
	Index int

	// Timestamp is the native presentation timestamp of that frame.
	Timestamp time.Duration
}
