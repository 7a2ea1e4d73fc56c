package ports

import "errors"

// Error taxonomy shared by sources and the playback engine. Failure sites
// wrap these sentinels with context via fmt.Errorf("...: %w", err) so callers
// can classify with errors.Is.
var (
	// ErrSourceUnavailable means the media resource is missing or unreadable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrUnsupportedFormat means the resource exists but cannot be played.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidTransition reports a control call that is not legal in the
	// current playback state. Recoverable; the state is left unchanged.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrSeekOutOfRange reports a negative seek target or one beyond a known
	// source duration.
	ErrSeekOutOfRange = errors.New("seek target out of range")

	// ErrSeekTimeout reports a background-mode seek that did not complete
	// within its deadline.
	ErrSeekTimeout = errors.New("seek timed out")

	// ErrDecode reports a mid-stream decode failure. Sticky: the engine
	// stays Failed until Reset.
	ErrDecode = errors.New("decode failed")
)
