package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/vidfeed/pkg/ports"
)

// Runner drives an Engine from its own pacing goroutine and hands events to
// the consumer through a capacity-1 mailbox, making backpressure explicit:
// with DeliverAll the pacing goroutine blocks until the consumer takes the
// frame; with DropToLatest the mailbox is overwritten and the drop counted.
type Runner struct {
	engine *Engine
	log    ports.Logger
	tick   time.Duration

	events  chan ports.FrameEvent
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
	dropped uint64
}

// NewRunner wraps engine in a background pacing task polling every tick.
// A zero tick defaults to a quarter of the engine's frame interval once
// playback starts, bounding delivery jitter to well under one frame.
func NewRunner(engine *Engine, tick time.Duration) *Runner {
	return &Runner{
		engine: engine,
		log:    engine.log.WithComponent("runner"),
		tick:   tick,
		events: make(chan ports.FrameEvent, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start starts the engine and the pacing goroutine.
func (r *Runner) Start() error {
	if err := r.engine.Start(); err != nil {
		return err
	}
	tick := r.tick
	if tick <= 0 {
		tick = r.engine.Info().FrameInterval / 4
		if tick <= 0 {
			tick = defaultInterval / 4
		}
	}
	r.started.Store(true)
	go r.loop(tick)
	return nil
}

func (r *Runner) loop(tick time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		// Drain every event due this tick so DeliverAll catches up without
		// waiting a tick per frame.
		for {
			ev := r.engine.Poll()
			if ev.Kind == ports.EventNotDue {
				break
			}
			if !r.publish(ev) {
				return
			}
			if ev.Kind == ports.EventEndOfStream || ev.Kind == ports.EventError {
				return
			}
		}
	}
}

// publish places an event in the mailbox. Returns false when the runner was
// stopped while waiting for the consumer.
func (r *Runner) publish(ev ports.FrameEvent) bool {
	if r.engine.opts.Backlog == DeliverAll || ev.Kind != ports.EventFrame {
		select {
		case r.events <- ev:
			return true
		case <-r.stop:
			return false
		}
	}

	// DropToLatest: overwrite an unconsumed frame instead of waiting.
	for {
		select {
		case r.events <- ev:
			return true
		default:
		}
		select {
		case <-r.events:
			atomic.AddUint64(&r.dropped, 1)
		default:
		}
	}
}

// Next blocks until an event is available or ctx is done.
func (r *Runner) Next(ctx context.Context) (ports.FrameEvent, error) {
	select {
	case ev := <-r.events:
		return ev, nil
	case <-ctx.Done():
		return ports.FrameEvent{}, ctx.Err()
	}
}

// TryNext returns an event without blocking; ok is false when none is ready.
func (r *Runner) TryNext() (ports.FrameEvent, bool) {
	select {
	case ev := <-r.events:
		return ev, true
	default:
		return ports.FrameEvent{}, false
	}
}

// Pause pauses the engine. Serialized with the pacing step by the engine
// mutex, so it takes effect between decode steps, never mid-frame.
func (r *Runner) Pause() error {
	return r.engine.Pause()
}

// Resume resumes the engine.
func (r *Runner) Resume() error {
	return r.engine.Resume()
}

// Seek repositions playback, honoring the context deadline. A seek that
// cannot win the engine lock in time reports ErrSeekTimeout; the engine is
// left in a consistent state either way.
func (r *Runner) Seek(ctx context.Context, target time.Duration) error {
	result := make(chan error, 1)
	go func() {
		result <- r.engine.Seek(target)
	}()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("seek to %s: %w", target, ports.ErrSeekTimeout)
	}
}

// Stop terminates the pacing goroutine and stops the engine. Safe to call at
// any time, including while a decode step is in flight, before Start, or
// after a failed Start, and idempotent.
func (r *Runner) Stop() error {
	r.once.Do(func() {
		close(r.stop)
	})
	// The done channel is closed by the pacing goroutine; waiting for it
	// when Start never launched one would block forever.
	if r.started.Load() {
		<-r.done
	}
	return r.engine.Stop()
}

// Dropped reports how many frames were overwritten in the mailbox before the
// consumer took them. Always 0 under DeliverAll.
func (r *Runner) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}
