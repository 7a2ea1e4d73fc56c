// Package filesink writes delivered frames to numbered files in a
// directory, for inspection and downstream tooling.
package filesink

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/user/vidfeed/pkg/ports"
)

// Format selects the on-disk encoding.
type Format string

const (
	// FormatPNG encodes frames as PNG.
	FormatPNG Format = "png"

	// FormatJPEG encodes frames as JPEG.
	FormatJPEG Format = "jpeg"

	// FormatRaw writes the frame's encoded bytes untouched. Frames without
	// encoded bytes are rejected.
	FormatRaw Format = "raw"
)

// ParseFormat maps a config string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "raw":
		return FormatRaw, nil
	default:
		return "", fmt.Errorf("unknown frame format %q", s)
	}
}

// jpegQuality is the fixed encode quality for FormatJPEG.
const jpegQuality = 90

// Sink writes frames as baseDir/frame-NNNNN.ext.
type Sink struct {
	baseDir string
	format  Format
	fs      ports.FileSystem
	written int
}

// New creates a sink writing into baseDir. The directory is created on the
// first write.
func New(baseDir string, format Format, fs ports.FileSystem) *Sink {
	return &Sink{baseDir: baseDir, format: format, fs: fs}
}

// WriteFrame encodes and stores one frame.
func (s *Sink) WriteFrame(frame *ports.Frame) error {
	data, ext, err := s.encode(frame)
	if err != nil {
		return err
	}

	if s.written == 0 {
		if err := s.fs.MkdirAll(s.baseDir); err != nil {
			return fmt.Errorf("create %s: %w", s.baseDir, err)
		}
	}

	path := filepath.Join(s.baseDir, fmt.Sprintf("frame-%05d.%s", frame.Index, ext))
	if err := s.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.written++
	return nil
}

func (s *Sink) encode(frame *ports.Frame) ([]byte, string, error) {
	switch s.format {
	case FormatRaw:
		if len(frame.Data) == 0 {
			return nil, "", fmt.Errorf("frame %d carries no encoded bytes", frame.Index)
		}
		return frame.Data, "bin", nil
	case FormatJPEG:
		if frame.Image == nil {
			return nil, "", fmt.Errorf("frame %d carries no picture", frame.Index)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encode frame %d: %w", frame.Index, err)
		}
		return buf.Bytes(), "jpg", nil
	default:
		if frame.Image == nil {
			return nil, "", fmt.Errorf("frame %d carries no picture", frame.Index)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, frame.Image); err != nil {
			return nil, "", fmt.Errorf("encode frame %d: %w", frame.Index, err)
		}
		return buf.Bytes(), "png", nil
	}
}

// Written reports how many frames reached disk.
func (s *Sink) Written() int {
	return s.written
}

// Close is a no-op; every frame is flushed as it is written.
func (s *Sink) Close() error {
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
