package imgseq

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/vidfeed/pkg/ports"
)

// writePNG writes a small solid image whose red channel encodes value.
func writePNG(t *testing.T, path string, value uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: value, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestOpenMedia_EmptyDir(t *testing.T) {
	opener := New(t.TempDir(), 10, nil)

	_, err := opener.OpenMedia()
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOpenMedia_MissingDir(t *testing.T) {
	opener := New(filepath.Join(t.TempDir(), "missing"), 10, nil)

	_, err := opener.OpenMedia()
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOpenMedia_OrdersByFrameNumber(t *testing.T) {
	dir := t.TempDir()
	// Deliberately unsortable lexically: frame-10 would precede frame-2.
	writePNG(t, filepath.Join(dir, "frame-10.png"), 10)
	writePNG(t, filepath.Join(dir, "frame-2.png"), 2)
	writePNG(t, filepath.Join(dir, "frame-1.png"), 1)
	// Non-image files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	opener := New(dir, 10, nil)
	src, err := opener.OpenMedia()
	if err != nil {
		t.Fatalf("OpenMedia failed: %v", err)
	}
	defer src.Close()

	info := src.Info()
	if info.FrameCount != 3 {
		t.Fatalf("expected 3 frames, got %d", info.FrameCount)
	}
	if info.Width != 8 || info.Height != 6 {
		t.Errorf("expected 8x6, got %dx%d", info.Width, info.Height)
	}
	if info.FrameInterval != 100*time.Millisecond {
		t.Errorf("expected 100ms interval at 10fps, got %v", info.FrameInterval)
	}

	for want, red := range []uint8{1, 2, 10} {
		frame, err := src.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if frame.Index != want {
			t.Errorf("expected index %d, got %d", want, frame.Index)
		}
		r, _, _, _ := frame.Image.At(0, 0).RGBA()
		if uint8(r>>8) != red {
			t.Errorf("frame %d: expected red %d, got %d", want, red, uint8(r>>8))
		}
	}

	if _, err := src.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSource_SeekClampsToBounds(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writePNG(t, filepath.Join(dir, "f"+string(rune('0'+i))+".png"), uint8(i))
	}

	opener := New(dir, 10, nil)
	src, err := opener.OpenMedia()
	if err != nil {
		t.Fatalf("OpenMedia failed: %v", err)
	}
	defer src.Close()

	pos, err := src.Seek(250 * time.Millisecond)
	if err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if pos.Index != 2 {
		t.Errorf("Seek(250ms): expected index 2, got %d", pos.Index)
	}

	pos, err = src.Seek(time.Hour)
	if err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if pos.Index != 4 {
		t.Errorf("seek past end: expected clamp to 4, got %d", pos.Index)
	}
}

func TestSource_CorruptImageReportsDecodeError(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "f0.png"), 0)
	if err := os.WriteFile(filepath.Join(dir, "f1.png"), []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	opener := New(dir, 10, nil)
	src, err := opener.OpenMedia()
	if err != nil {
		t.Fatalf("OpenMedia failed: %v", err)
	}
	defer src.Close()

	if _, err := src.Next(); err != nil {
		t.Fatalf("frame 0 should decode, got %v", err)
	}
	_, err = src.Next()
	if !errors.Is(err, ports.ErrDecode) {
		t.Fatalf("expected ErrDecode for corrupt frame, got %v", err)
	}
}

func TestFrameNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"frame-0001.png", 1, true},
		{"12.jpg", 12, true},
		{"shot_105.jpeg", 105, true},
		{"cover.png", 0, false},
	}

	for _, tt := range tests {
		got, ok := frameNumber(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("frameNumber(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
