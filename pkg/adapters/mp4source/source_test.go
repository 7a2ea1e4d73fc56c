package mp4source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/vidfeed/pkg/ports"
)

func TestOpenMedia_MissingFile(t *testing.T) {
	opener := New(filepath.Join(t.TempDir(), "nope.mp4"), nil)

	_, err := opener.OpenMedia()
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOpenMedia_GarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.mp4")
	if err := os.WriteFile(path, []byte("this is not an mp4 container"), 0o644); err != nil {
		t.Fatal(err)
	}

	opener := New(path, nil)
	_, err := opener.OpenMedia()
	if !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// evenSamples builds a synthetic all-intra index with n samples spaced
// interval apart.
func evenSamples(n int, interval time.Duration) []sample {
	out := make([]sample, n)
	for i := range out {
		out[i] = sample{
			data:     []byte{byte(i)},
			ts:       time.Duration(i) * interval,
			dur:      interval,
			keyframe: true,
		}
	}
	return out
}

// gopSamples is evenSamples with a sync sample only every gop frames.
func gopSamples(n int, interval time.Duration, gop int) []sample {
	out := evenSamples(n, interval)
	for i := range out {
		out[i].keyframe = i%gop == 0
	}
	return out
}

func testSource(n int, interval time.Duration) *source {
	return &source{
		samples: evenSamples(n, interval),
		info: ports.MediaInfo{
			FrameCount:    n,
			FrameInterval: interval,
			Duration:      time.Duration(n) * interval,
		},
	}
}

func TestSource_NextWalksSamplesInOrder(t *testing.T) {
	src := testSource(3, 40*time.Millisecond)

	for want := 0; want < 3; want++ {
		frame, err := src.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", want, err)
		}
		if frame.Index != want {
			t.Errorf("expected index %d, got %d", want, frame.Index)
		}
		if frame.Timestamp != time.Duration(want)*40*time.Millisecond {
			t.Errorf("frame %d: unexpected timestamp %v", want, frame.Timestamp)
		}
		if len(frame.Data) != 1 || frame.Data[0] != byte(want) {
			t.Errorf("frame %d: wrong sample data %v", want, frame.Data)
		}
	}

	if _, err := src.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after last sample, got %v", err)
	}
}

func TestSource_SeekFindsGreatestTimestampAtOrBefore(t *testing.T) {
	src := testSource(10, 100*time.Millisecond)

	tests := []struct {
		target    time.Duration
		wantIndex int
	}{
		{0, 0},
		{99 * time.Millisecond, 0},
		{100 * time.Millisecond, 1},
		{250 * time.Millisecond, 2},
		{900 * time.Millisecond, 9},
		{5 * time.Second, 9}, // clamps to last
		{-time.Second, 0},    // clamps to first
	}

	for _, tt := range tests {
		pos, err := src.Seek(tt.target)
		if err != nil {
			t.Fatalf("Seek(%v) failed: %v", tt.target, err)
		}
		if pos.Index != tt.wantIndex {
			t.Errorf("Seek(%v): expected index %d, got %d", tt.target, tt.wantIndex, pos.Index)
		}

		frame, err := src.Next()
		if err != nil {
			t.Fatalf("Next after Seek(%v) failed: %v", tt.target, err)
		}
		if frame.Index != tt.wantIndex {
			t.Errorf("Seek(%v): next frame index %d, expected %d", tt.target, frame.Index, tt.wantIndex)
		}
	}
}

func TestSource_SeekSnapsToPrecedingSyncSample(t *testing.T) {
	// Keyframes at 0, 5, 10, 15 within 20 samples of 100ms.
	src := &source{samples: gopSamples(20, 100*time.Millisecond, 5)}

	tests := []struct {
		target    time.Duration
		wantIndex int
	}{
		{0, 0},
		{500 * time.Millisecond, 5},  // lands on a keyframe directly
		{740 * time.Millisecond, 5},  // frame 7 is not sync, snaps back
		{999 * time.Millisecond, 5},  // just before the next keyframe
		{1 * time.Second, 10},        // next keyframe
		{time.Hour, 15},              // clamps to last, then snaps
		{-time.Second, 0},            // clamps to first
	}

	for _, tt := range tests {
		pos, err := src.Seek(tt.target)
		if err != nil {
			t.Fatalf("Seek(%v) failed: %v", tt.target, err)
		}
		if pos.Index != tt.wantIndex {
			t.Errorf("Seek(%v): expected index %d, got %d", tt.target, tt.wantIndex, pos.Index)
		}
		if !src.samples[pos.Index].keyframe {
			t.Errorf("Seek(%v): landed on non-sync sample %d", tt.target, pos.Index)
		}
	}
}

func TestSource_CloseInvalidatesReads(t *testing.T) {
	src := testSource(3, 40*time.Millisecond)

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := src.Next(); err == nil || err == io.EOF {
		t.Errorf("expected read error after close, got %v", err)
	}
	if _, err := src.Seek(0); err == nil {
		t.Error("expected seek error after close")
	}
}

func TestTicksToDuration(t *testing.T) {
	tests := []struct {
		ticks     uint64
		timescale uint32
		want      time.Duration
	}{
		{0, 1000, 0},
		{500, 1000, 500 * time.Millisecond},
		{90000, 90000, time.Second},
		{3000, 90000, 33333333 * time.Nanosecond},
		{100, 0, 100 * time.Millisecond}, // zero timescale falls back to 1000
	}

	for _, tt := range tests {
		if got := ticksToDuration(tt.ticks, tt.timescale); got != tt.want {
			t.Errorf("ticksToDuration(%d, %d) = %v, want %v", tt.ticks, tt.timescale, got, tt.want)
		}
	}
}
