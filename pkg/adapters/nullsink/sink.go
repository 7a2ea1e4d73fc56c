// Package nullsink discards frames. It serves pacing-only runs where the
// delivery side effect is not needed.
package nullsink

import (
	"sync/atomic"

	"github.com/user/vidfeed/pkg/ports"
)

// Sink counts and discards frames.
type Sink struct {
	count atomic.Int64
}

// New creates a discarding sink.
func New() *Sink {
	return &Sink{}
}

// WriteFrame discards the frame.
func (s *Sink) WriteFrame(frame *ports.Frame) error {
	s.count.Add(1)
	return nil
}

// Count reports how many frames were discarded.
func (s *Sink) Count() int64 {
	return s.count.Load()
}

// Close does nothing.
func (s *Sink) Close() error {
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
