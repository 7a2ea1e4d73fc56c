// Package resize scales frames to a fixed output size.
package resize

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for frames that arrive as encoded bytes.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/user/vidfeed/pkg/ports"
)

// Scaler is a FrameProcessor that resamples every frame to width x height.
type Scaler struct {
	width  int
	height int
}

// New creates a scaler for the target size.
func New(width, height int) (*Scaler, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	return &Scaler{width: width, height: height}, nil
}

// Process resamples the frame picture. Frames already at the target size
// pass through untouched; encoded bytes are cleared when the picture
// changes.
func (s *Scaler) Process(frame *ports.Frame) (*ports.Frame, error) {
	img := frame.Image
	if img == nil {
		if len(frame.Data) == 0 {
			return nil, fmt.Errorf("frame %d has no picture: %w", frame.Index, ports.ErrDecode)
		}
		decoded, _, err := image.Decode(bytes.NewReader(frame.Data))
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w: %v", frame.Index, ports.ErrDecode, err)
		}
		img = decoded
	}

	bounds := img.Bounds()
	if bounds.Dx() == s.width && bounds.Dy() == s.height {
		frame.Image = img
		frame.Width = s.width
		frame.Height = s.height
		return frame, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	frame.Image = dst
	frame.Data = nil
	frame.Width = s.width
	frame.Height = s.height
	return frame, nil
}

var _ ports.FrameProcessor = (*Scaler)(nil)
