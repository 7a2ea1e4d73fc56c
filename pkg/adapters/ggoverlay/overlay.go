// Package ggoverlay stamps frame metadata onto the picture using the gg
// library, for visual verification of ordering and pacing.
package ggoverlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"time"

	// Decoders for frames that arrive as encoded bytes.
	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"

	"github.com/user/vidfeed/pkg/ports"
)

// Options selects what gets stamped.
type Options struct {
	// ShowIndex stamps the frame index.
	ShowIndex bool

	// ShowTimestamp stamps the presentation timestamp.
	ShowTimestamp bool

	// Margin is the distance from the bottom-left corner in pixels;
	// defaults to 8.
	Margin int
}

// Overlay is a FrameProcessor drawing an index/timestamp badge.
type Overlay struct {
	opts Options
}

// New creates an overlay processor.
func New(opts Options) *Overlay {
	if opts.Margin <= 0 {
		opts.Margin = 8
	}
	return &Overlay{opts: opts}
}

// Process draws the badge onto a copy of the frame image. Encoded bytes are
// cleared because they no longer match the picture.
func (o *Overlay) Process(frame *ports.Frame) (*ports.Frame, error) {
	if !o.opts.ShowIndex && !o.opts.ShowTimestamp {
		return frame, nil
	}

	img, err := frameImage(frame)
	if err != nil {
		return nil, err
	}

	label := o.label(frame)
	dc := gg.NewContextForImage(img)

	x := float64(o.opts.Margin)
	y := float64(dc.Height() - o.opts.Margin)
	w, h := dc.MeasureString(label)

	dc.SetColor(color.RGBA{A: 160})
	dc.DrawRectangle(x-4, y-h-4, w+8, h+8)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawStringAnchored(label, x, y-h/2, 0, 0.5)

	frame.Image = dc.Image()
	frame.Data = nil
	return frame, nil
}

func (o *Overlay) label(frame *ports.Frame) string {
	switch {
	case o.opts.ShowIndex && o.opts.ShowTimestamp:
		return fmt.Sprintf("#%05d %s", frame.Index, formatTimestamp(frame.Timestamp))
	case o.opts.ShowIndex:
		return fmt.Sprintf("#%05d", frame.Index)
	default:
		return formatTimestamp(frame.Timestamp)
	}
}

func formatTimestamp(ts time.Duration) string {
	ts = ts.Round(time.Millisecond)
	return fmt.Sprintf("%02d:%02d.%03d",
		int(ts.Minutes()), int(ts.Seconds())%60, ts.Milliseconds()%1000)
}

// frameImage returns the frame picture, decoding the raw bytes when no
// decoded image is attached.
func frameImage(frame *ports.Frame) (image.Image, error) {
	if frame.Image != nil {
		return frame.Image, nil
	}
	if len(frame.Data) == 0 {
		return nil, fmt.Errorf("frame %d has no picture: %w", frame.Index, ports.ErrDecode)
	}
	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w: %v", frame.Index, ports.ErrDecode, err)
	}
	return img, nil
}

var _ ports.FrameProcessor = (*Overlay)(nil)
