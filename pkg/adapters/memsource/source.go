// Package memsource generates synthetic frames in memory. It exists for
// tests, demos, and pipeline dry runs where real footage is not needed.
package memsource

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/user/vidfeed/pkg/ports"
)

// Config describes the synthetic clip.
type Config struct {
	// Count is the number of frames; must be > 0.
	Count int

	// Interval is the spacing between frames; defaults to 1/30s.
	Interval time.Duration

	// Width and Height default to 64x48.
	Width  int
	Height int
}

// Gen is a MediaOpener producing synthetic clips.
type Gen struct {
	cfg Config
}

// New creates a generator for the configured clip.
func New(cfg Config) *Gen {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second / 30
	}
	if cfg.Width <= 0 {
		cfg.Width = 64
	}
	if cfg.Height <= 0 {
		cfg.Height = 48
	}
	return &Gen{cfg: cfg}
}

// OpenMedia returns a fresh source positioned at frame 0.
func (g *Gen) OpenMedia() (ports.MediaSource, error) {
	if g.cfg.Count <= 0 {
		return nil, fmt.Errorf("empty synthetic clip: %w", ports.ErrSourceUnavailable)
	}
	return &source{cfg: g.cfg}, nil
}

type source struct {
	cfg    Config
	pos    int
	closed bool
}

func (s *source) Info() ports.MediaInfo {
	return ports.MediaInfo{
		FrameCount:    s.cfg.Count,
		FrameInterval: s.cfg.Interval,
		Duration:      time.Duration(s.cfg.Count) * s.cfg.Interval,
		Width:         s.cfg.Width,
		Height:        s.cfg.Height,
		Codec:         "synthetic",
	}
}

func (s *source) Next() (*ports.Frame, error) {
	if s.closed {
		return nil, fmt.Errorf("source closed: %w", ports.ErrDecode)
	}
	if s.pos >= s.cfg.Count {
		return nil, io.EOF
	}

	// A solid gray whose shade encodes the index makes frames visually
	// distinguishable and trivially assertable in tests.
	shade := uint8((s.pos * 251) % 256)
	img := image.NewRGBA(image.Rect(0, 0, s.cfg.Width, s.cfg.Height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = shade
		img.Pix[i+1] = shade
		img.Pix[i+2] = shade
		img.Pix[i+3] = 255
	}

	frame := &ports.Frame{
		Image:     img,
		Index:     s.pos,
		Timestamp: time.Duration(s.pos) * s.cfg.Interval,
		Duration:  s.cfg.Interval,
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
	}
	s.pos++
	return frame, nil
}

func (s *source) Seek(target time.Duration) (ports.FramePos, error) {
	if s.closed {
		return ports.FramePos{}, fmt.Errorf("source closed: %w", ports.ErrDecode)
	}
	index := int(target / s.cfg.Interval)
	if target < 0 {
		index = 0
	}
	if index >= s.cfg.Count {
		index = s.cfg.Count - 1
	}
	s.pos = index
	return ports.FramePos{Index: index, Timestamp: time.Duration(index) * s.cfg.Interval}, nil
}

func (s *source) Close() error {
	s.closed = true
	return nil
}

var _ ports.MediaOpener = (*Gen)(nil)
var _ ports.MediaSource = (*source)(nil)
