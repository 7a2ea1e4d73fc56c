package resize

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/vidfeed/pkg/ports"
)

func TestNew_RejectsInvalidSize(t *testing.T) {
	if _, err := New(0, 100); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := New(100, -1); err == nil {
		t.Error("expected error for negative height")
	}
}

func TestScaler_ResamplesToTargetSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 50, G: 100, B: 150, A: 255})
		}
	}
	frame := &ports.Frame{Image: img, Index: 1, Width: 100, Height: 80, Data: []byte("stale")}

	scaler, err := New(50, 40)
	if err != nil {
		t.Fatal(err)
	}
	out, err := scaler.Process(frame)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	bounds := out.Image.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 40 {
		t.Errorf("expected 50x40 picture, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if out.Width != 50 || out.Height != 40 {
		t.Errorf("frame size fields not updated: %dx%d", out.Width, out.Height)
	}
	if out.Data != nil {
		t.Error("stale encoded bytes should be cleared after scaling")
	}

	r, g, b, _ := out.Image.At(25, 20).RGBA()
	if uint8(r>>8) != 50 || uint8(g>>8) != 100 || uint8(b>>8) != 150 {
		t.Errorf("interior color changed: got (%d,%d,%d)", uint8(r>>8), uint8(g>>8), uint8(b>>8))
	}
}

func TestScaler_MatchingSizePassesThrough(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	frame := &ports.Frame{Image: img, Data: []byte("encoded")}

	scaler, err := New(64, 48)
	if err != nil {
		t.Fatal(err)
	}
	out, err := scaler.Process(frame)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Image != img {
		t.Error("matching size must not reallocate the picture")
	}
	if string(out.Data) != "encoded" {
		t.Error("pass-through must keep encoded bytes")
	}
}
