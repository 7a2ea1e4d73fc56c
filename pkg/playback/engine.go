// Package playback implements a frame-accurate, real-time-paced playback
// engine over any ports.MediaSource. The engine owns the source exclusively,
// paces delivery on a pausable virtual clock, and exposes the transport
// controls of a live capture source so a recorded file can substitute for a
// camera feed.
package playback

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/vidfeed/pkg/ports"
)

// State is the playback engine lifecycle state.
type State int

const (
	// StateIdle is the initial state, before Start opens the source.
	StateIdle State = iota
	// StateRunning delivers frames as their presentation time arrives.
	StateRunning
	// StatePaused holds position with the virtual clock frozen.
	StatePaused
	// StateSeeking is the transient state while decode repositions.
	StateSeeking
	// StateStopped means the source is released; Start may run again.
	StateStopped
	// StateFailed is sticky after a decode error until Reset.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BacklogPolicy governs delivery when the consumer polls slower than the
// source frame rate.
type BacklogPolicy int

const (
	// DeliverAll never skips: every elapsed frame is delivered in order on
	// successive polls. This is the default, so playback of the same file
	// always yields the same frame sequence regardless of poll cadence.
	DeliverAll BacklogPolicy = iota
	// DropToLatest skips intermediate frames and delivers only the most
	// recently due one, trading completeness for real-time latency.
	DropToLatest
)

// ParseBacklogPolicy parses a policy name ("deliver_all" or "drop_to_latest").
func ParseBacklogPolicy(s string) (BacklogPolicy, error) {
	switch s {
	case "", "deliver_all":
		return DeliverAll, nil
	case "drop_to_latest":
		return DropToLatest, nil
	default:
		return DeliverAll, fmt.Errorf("unknown backlog policy %q", s)
	}
}

// Options configures an Engine.
type Options struct {
	// FrameRateOverride replaces the source's native pacing when > 0.
	// Presentation timestamps become index/rate instead of the native ones.
	FrameRateOverride float64

	// Backlog selects the slow-consumer delivery policy.
	Backlog BacklogPolicy

	// Loop restarts playback at frame 0 instead of ending the stream.
	Loop bool

	// Now supplies wall-clock time; defaults to time.Now. Tests inject a
	// manual clock here.
	Now func() time.Time

	// Logger receives engine debug output; defaults to a no-op logger.
	Logger ports.Logger
}

// defaultInterval paces sources that report no nominal frame interval.
const defaultInterval = time.Second / 30

// Engine is a deterministic, seekable playback engine. All methods are safe
// for concurrent use; control calls are linearized with Poll through a single
// mutex, so a control call issued during a decode step waits for it.
type Engine struct {
	mu sync.Mutex

	opener ports.MediaOpener
	opts   Options
	log    ports.Logger

	clock    *clock
	state    State
	src      ports.MediaSource
	info     ports.MediaInfo
	interval time.Duration // effective frame interval (override or native)

	pending   *ports.Frame // single decoded frame awaiting delivery
	srcDone   bool         // source hit EOF while a frame was still pending
	failure   error        // sticky, set on decode failure
	delivered int          // index of the last delivered frame, -1 when none
}

// New creates an Engine over the given opener. The source itself is opened by
// Start, not here, so a missing file surfaces as a Start error with the
// engine still Idle.
func New(opener ports.MediaOpener, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{
		opener:    opener,
		opts:      opts,
		log:       log.WithComponent("playback"),
		clock:     newClock(opts.Now),
		state:     StateIdle,
		delivered: -1,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Info describes the opened media. Zero value before the first Start.
func (e *Engine) Info() ports.MediaInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// Start opens the source and transitions Idle/Stopped to Running with the
// virtual clock at 0 and decode at frame 0. An open failure leaves the engine
// in its prior state.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle, StateStopped:
	default:
		return fmt.Errorf("start while %s: %w", e.state, ports.ErrInvalidTransition)
	}

	src, err := e.opener.OpenMedia()
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}

	e.src = src
	e.info = src.Info()
	e.interval = e.effectiveInterval()
	e.pending = nil
	e.srcDone = false
	e.failure = nil
	e.delivered = -1
	e.clock.Reset()
	e.state = StateRunning

	e.log.Debug("started: %d frames, interval %s", e.info.FrameCount, e.interval)
	return nil
}

// Pause transitions Running to Paused and freezes the virtual clock. Frames
// are neither dropped nor fabricated.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return fmt.Errorf("pause while %s: %w", e.state, ports.ErrInvalidTransition)
	}
	e.clock.Pause()
	e.state = StatePaused
	e.log.Debug("paused at %s", e.clock.Virtual())
	return nil
}

// Resume transitions Paused to Running. The clock accumulates the pause span,
// so virtual time continues exactly where it left off.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePaused {
		return fmt.Errorf("resume while %s: %w", e.state, ports.ErrInvalidTransition)
	}
	e.clock.Resume()
	e.state = StateRunning
	e.log.Debug("resumed at %s", e.clock.Virtual())
	return nil
}

// Seek repositions playback to the frame with the greatest presentation
// timestamp at or before target, restoring the prior Running/Paused state.
// Negative targets and targets beyond a known duration fail with
// ErrSeekOutOfRange; when the duration is unknown the seek is accepted and
// end of stream surfaces on a later poll.
func (e *Engine) Seek(target time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateRunning, StatePaused:
	default:
		return fmt.Errorf("seek while %s: %w", e.state, ports.ErrInvalidTransition)
	}
	if target < 0 {
		return fmt.Errorf("seek to %s: %w", target, ports.ErrSeekOutOfRange)
	}
	if d := e.presentationDuration(); d > 0 && target > d {
		return fmt.Errorf("seek to %s beyond duration %s: %w", target, d, ports.ErrSeekOutOfRange)
	}

	prior := e.state
	e.state = StateSeeking

	pos, err := e.src.Seek(e.nativeTarget(target))
	if err != nil {
		e.state = prior
		return fmt.Errorf("seek to %s: %w", target, err)
	}

	e.pending = nil
	e.srcDone = false
	e.clock.SetVirtual(e.presentationTime(pos))
	e.state = prior

	e.log.Debug("seeked to frame %d at %s", pos.Index, e.clock.Virtual())
	return nil
}

// Stop releases the source and transitions to Stopped from any state.
// Idempotent and safe to call at any time; the source is closed before Stop
// returns.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return nil
	}
	err := e.closeSourceLocked()
	e.pending = nil
	e.srcDone = false
	e.state = StateStopped
	e.log.Debug("stopped")
	return err
}

// Reset clears a sticky failure and returns the engine to Idle. Only legal
// from Failed; a fresh Start is required afterwards.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateFailed {
		return fmt.Errorf("reset while %s: %w", e.state, ports.ErrInvalidTransition)
	}
	err := e.closeSourceLocked()
	e.pending = nil
	e.srcDone = false
	e.failure = nil
	e.delivered = -1
	e.state = StateIdle
	return err
}

// Poll returns the next frame whose presentation time has arrived, or reports
// that none is due, that the stream ended, or that playback failed. This is
// the only path by which frames leave the engine. Paused, Idle, and Stopped
// engines report EventNotDue; a Failed engine reports its sticky error on
// every poll.
func (e *Engine) Poll() ports.FrameEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateFailed:
		return ports.FrameEvent{Kind: ports.EventError, Err: e.failure}
	case StateRunning:
	default:
		return ports.FrameEvent{Kind: ports.EventNotDue}
	}

	virtual := e.clock.Virtual()

	if e.pending == nil {
		if e.srcDone {
			return e.finishLocked()
		}
		frame, err := e.src.Next()
		if errors.Is(err, io.EOF) {
			return e.finishLocked()
		}
		if err != nil {
			return e.failLocked(err)
		}
		e.restamp(frame)
		e.pending = frame
	}

	if e.pending.Timestamp > virtual {
		return ports.FrameEvent{Kind: ports.EventNotDue}
	}

	if e.opts.Backlog == DropToLatest {
		// Skip forward to the latest due frame; stage the first frame that
		// is not yet due for a later poll.
		for !e.srcDone {
			frame, err := e.src.Next()
			if errors.Is(err, io.EOF) {
				e.srcDone = true
				break
			}
			if err != nil {
				return e.failLocked(err)
			}
			e.restamp(frame)
			if frame.Timestamp > virtual {
				deliver := e.pending
				e.pending = frame
				return e.deliverLocked(deliver)
			}
			e.pending = frame
		}
	}

	deliver := e.pending
	e.pending = nil
	return e.deliverLocked(deliver)
}

// finishLocked handles source exhaustion: restart at frame 0 in loop mode,
// otherwise release the source and signal EndOfStream exactly once.
func (e *Engine) finishLocked() ports.FrameEvent {
	if e.opts.Loop {
		if _, err := e.src.Seek(0); err != nil {
			return e.failLocked(err)
		}
		e.srcDone = false
		e.clock.SetVirtual(0)
		frame, err := e.src.Next()
		if errors.Is(err, io.EOF) {
			// Source produced nothing even from frame 0.
			return e.endLocked()
		}
		if err != nil {
			return e.failLocked(err)
		}
		e.restamp(frame)
		if frame.Timestamp > e.clock.Virtual() {
			e.pending = frame
			return ports.FrameEvent{Kind: ports.EventNotDue}
		}
		e.log.Debug("looped back to frame 0")
		return e.deliverLocked(frame)
	}
	return e.endLocked()
}

func (e *Engine) endLocked() ports.FrameEvent {
	if err := e.closeSourceLocked(); err != nil {
		e.log.Warn("close source: %s", err)
	}
	e.state = StateStopped
	e.log.Debug("end of stream after frame %d", e.delivered)
	return ports.FrameEvent{Kind: ports.EventEndOfStream}
}

func (e *Engine) failLocked(err error) ports.FrameEvent {
	e.failure = fmt.Errorf("frame %d: %w", e.delivered+1, err)
	e.state = StateFailed
	e.log.Error("playback failed: %s", e.failure)
	return ports.FrameEvent{Kind: ports.EventError, Err: e.failure}
}

func (e *Engine) deliverLocked(frame *ports.Frame) ports.FrameEvent {
	e.delivered = frame.Index
	return ports.FrameEvent{Kind: ports.EventFrame, Frame: frame}
}

func (e *Engine) closeSourceLocked() error {
	if e.src == nil {
		return nil
	}
	err := e.src.Close()
	e.src = nil
	return err
}

// restamp rewrites presentation timing when a frame rate override is active.
func (e *Engine) restamp(frame *ports.Frame) {
	if e.opts.FrameRateOverride <= 0 {
		return
	}
	frame.Timestamp = time.Duration(frame.Index) * e.interval
	frame.Duration = e.interval
}

func (e *Engine) effectiveInterval() time.Duration {
	if e.opts.FrameRateOverride > 0 {
		return time.Duration(float64(time.Second) / e.opts.FrameRateOverride)
	}
	if e.info.FrameInterval > 0 {
		return e.info.FrameInterval
	}
	return defaultInterval
}

// presentationDuration is the source duration on the presentation timeline,
// accounting for a frame rate override. 0 when unknown.
func (e *Engine) presentationDuration() time.Duration {
	if e.opts.FrameRateOverride > 0 {
		if e.info.FrameCount == 0 {
			return 0
		}
		return time.Duration(e.info.FrameCount) * e.interval
	}
	return e.info.Duration
}

// nativeTarget maps a presentation-timeline seek target onto the source's
// native timeline.
func (e *Engine) nativeTarget(target time.Duration) time.Duration {
	if e.opts.FrameRateOverride <= 0 {
		return target
	}
	index := int(target / e.interval)
	native := e.info.FrameInterval
	if native <= 0 {
		native = defaultInterval
	}
	return time.Duration(index) * native
}

// presentationTime maps a native decode position onto the presentation
// timeline.
func (e *Engine) presentationTime(pos ports.FramePos) time.Duration {
	if e.opts.FrameRateOverride > 0 {
		return time.Duration(pos.Index) * e.interval
	}
	return pos.Timestamp
}

// nopLogger avoids nil checks when no logger is configured.
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})      {}
func (nopLogger) Info(string, ...interface{})       {}
func (nopLogger) Warn(string, ...interface{})       {}
func (nopLogger) Error(string, ...interface{})      {}
func (nopLogger) WithComponent(string) ports.Logger { return nopLogger{} }

var _ ports.StreamSource = (*Engine)(nil)
