// Package feed fans playback events out to any number of downstream
// consumers. Every subscriber owns a single-slot mailbox: publishing
// overwrites an unconsumed event and counts the drop, so one slow consumer
// can never stall the producer or grow an unbounded queue.
package feed

import (
	"context"
	"sync"

	"github.com/user/vidfeed/pkg/playback"
	"github.com/user/vidfeed/pkg/ports"
)

// SubscriberStats is a snapshot of one subscriber's mailbox.
type SubscriberStats struct {
	// Delivered counts events the subscriber actually consumed.
	Delivered uint64

	// Drops counts events overwritten before the subscriber read them.
	Drops uint64
}

// Stats is a snapshot of the supplier's operational state.
type Stats struct {
	Subscribers map[string]SubscriberStats
}

// slot is a capacity-1 mailbox owned by one subscriber.
type slot struct {
	mu        sync.Mutex
	cond      *sync.Cond
	ev        *ports.FrameEvent
	delivered uint64
	drops     uint64
	closed    bool
}

func newSlot() *slot {
	s := &slot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *slot) put(ev ports.FrameEvent) {
	s.mu.Lock()
	if !s.closed {
		if s.ev != nil {
			s.drops++
		}
		s.ev = &ev
		s.cond.Signal()
	}
	s.mu.Unlock()
}

// take blocks until an event arrives or the slot closes.
func (s *slot) take() (ports.FrameEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.ev == nil && !s.closed {
		s.cond.Wait()
	}
	if s.ev == nil {
		return ports.FrameEvent{}, false
	}
	ev := *s.ev
	s.ev = nil
	s.delivered++
	return ev, true
}

func (s *slot) close() {
	s.mu.Lock()
	s.closed = true
	s.ev = nil
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *slot) stats() SubscriberStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SubscriberStats{Delivered: s.delivered, Drops: s.drops}
}

// Supplier distributes events to subscribers. All methods are safe for
// concurrent use; Publish never blocks.
type Supplier struct {
	mu     sync.Mutex
	slots  map[string]*slot
	closed bool
}

// New creates an empty Supplier.
func New() *Supplier {
	return &Supplier{slots: make(map[string]*slot)}
}

// Publish offers an event to every current subscriber. Non-blocking; a
// subscriber that has not consumed its previous event loses it.
func (s *Supplier) Publish(ev ports.FrameEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	targets := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		targets = append(targets, sl)
	}
	s.mu.Unlock()

	for _, sl := range targets {
		sl.put(ev)
	}
}

// Subscribe registers a consumer and returns its blocking read function.
// The read function returns false after Unsubscribe or Close. Subscribing an
// existing id replaces the previous subscription.
func (s *Supplier) Subscribe(id string) func() (ports.FrameEvent, bool) {
	sl := newSlot()

	s.mu.Lock()
	if prev, ok := s.slots[id]; ok {
		prev.close()
	}
	if s.closed {
		sl.close()
	} else {
		s.slots[id] = sl
	}
	s.mu.Unlock()

	return sl.take
}

// Unsubscribe removes a consumer, waking it if blocked. Idempotent.
func (s *Supplier) Unsubscribe(id string) {
	s.mu.Lock()
	sl, ok := s.slots[id]
	delete(s.slots, id)
	s.mu.Unlock()
	if ok {
		sl.close()
	}
}

// Close shuts the supplier down and wakes every subscriber. Idempotent.
func (s *Supplier) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	slots := s.slots
	s.slots = make(map[string]*slot)
	s.mu.Unlock()

	for _, sl := range slots {
		sl.close()
	}
}

// Stats returns a snapshot of all subscriber mailboxes.
func (s *Supplier) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{Subscribers: make(map[string]SubscriberStats, len(s.slots))}
	for id, sl := range s.slots {
		out.Subscribers[id] = sl.stats()
	}
	return out
}

// Pump moves events from a playback runner into the supplier until the
// stream ends, playback fails, or ctx is done. The supplier is closed on
// return so subscribers observe shutdown.
func Pump(ctx context.Context, runner *playback.Runner, s *Supplier) error {
	defer s.Close()
	for {
		ev, err := runner.Next(ctx)
		if err != nil {
			return err
		}
		s.Publish(ev)
		switch ev.Kind {
		case ports.EventEndOfStream:
			return nil
		case ports.EventError:
			return ev.Err
		}
	}
}
