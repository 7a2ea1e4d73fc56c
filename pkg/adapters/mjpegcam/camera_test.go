package mjpegcam

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/vidfeed/pkg/ports"
)

const boundary = "frameboundary"

// serveParts writes n MJPEG parts and returns. Payloads encode the frame
// number so tests can assert ordering.
func serveParts(w http.ResponseWriter, n int) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\njpeg-%d\r\n", boundary, i)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprintf(w, "--%s--\r\n", boundary)
}

// pollFrame polls until a frame or terminal event arrives.
func pollFrame(t *testing.T, cam *Camera) ports.FrameEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := cam.Poll()
		if ev.Kind != ports.EventNotDue {
			return ev
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no event within deadline")
	return ports.FrameEvent{}
}

func TestCamera_ReadsFramesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveParts(w, 3)
	}))
	defer srv.Close()

	cam := New(srv.URL, Options{RetryDelay: time.Millisecond})
	if err := cam.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer cam.Stop()

	for i := 0; i < 3; i++ {
		ev := pollFrame(t, cam)
		if ev.Kind != ports.EventFrame {
			t.Fatalf("frame %d: expected EventFrame, got %v (%v)", i, ev.Kind, ev.Err)
		}
		if ev.Frame.Index != i {
			t.Errorf("expected index %d, got %d", i, ev.Frame.Index)
		}
		if want := fmt.Sprintf("jpeg-%d", i); string(ev.Frame.Data) != want {
			t.Errorf("frame %d: expected payload %q, got %q", i, want, ev.Frame.Data)
		}
	}
}

func TestCamera_ReconnectsAfterStreamDrop(t *testing.T) {
	var conns int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&conns, 1)
		serveParts(w, 2)
	}))
	defer srv.Close()

	cam := New(srv.URL, Options{RetryAttempts: 5, RetryDelay: time.Millisecond})
	if err := cam.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer cam.Stop()

	// The server ends each stream after two parts; the camera must keep
	// a monotonically increasing index across reconnects.
	for i := 0; i < 5; i++ {
		ev := pollFrame(t, cam)
		if ev.Kind != ports.EventFrame {
			t.Fatalf("frame %d: expected EventFrame, got %v (%v)", i, ev.Kind, ev.Err)
		}
		if ev.Frame.Index != i {
			t.Errorf("expected index %d, got %d", i, ev.Frame.Index)
		}
	}
	if atomic.LoadInt32(&conns) < 2 {
		t.Errorf("expected at least 2 connections, got %d", conns)
	}
}

func TestCamera_FailsAfterRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveParts(w, 1)
	}))

	cam := New(srv.URL, Options{RetryAttempts: 2, RetryDelay: time.Millisecond})
	if err := cam.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer cam.Stop()

	if ev := pollFrame(t, cam); ev.Kind != ports.EventFrame {
		t.Fatalf("expected first frame, got %v (%v)", ev.Kind, ev.Err)
	}

	// No server to reconnect to.
	srv.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		ev := cam.Poll()
		if ev.Kind == ports.EventError {
			if !errors.Is(ev.Err, ports.ErrSourceUnavailable) {
				t.Fatalf("expected ErrSourceUnavailable, got %v", ev.Err)
			}
			break
		}
		if ev.Kind == ports.EventFrame {
			t.Fatalf("unexpected frame after server shutdown: %d", ev.Frame.Index)
		}
		if time.Now().After(deadline) {
			t.Fatal("camera never failed")
		}
	}

	// The failure is sticky.
	if ev := cam.Poll(); ev.Kind != ports.EventError {
		t.Errorf("expected sticky EventError, got %v", ev.Kind)
	}
}

func TestCamera_StartFailsForNonMJPEGEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>not a camera</html>")
	}))
	defer srv.Close()

	cam := New(srv.URL, Options{RetryAttempts: 1, RetryDelay: time.Millisecond})
	err := cam.Start()
	if !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestCamera_PauseSuppressesDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveParts(w, 10)
	}))
	defer srv.Close()

	cam := New(srv.URL, Options{RetryDelay: time.Millisecond})
	if err := cam.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer cam.Stop()

	if ev := pollFrame(t, cam); ev.Kind != ports.EventFrame {
		t.Fatalf("expected frame before pause, got %v", ev.Kind)
	}

	if err := cam.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if ev := cam.Poll(); ev.Kind != ports.EventNotDue {
		t.Errorf("expected NotDue while paused, got %v", ev.Kind)
	}

	if err := cam.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	ev := pollFrame(t, cam)
	if ev.Kind != ports.EventFrame || ev.Frame.Index != 1 {
		t.Errorf("expected frame 1 after resume, got %v", ev)
	}
}

func TestCamera_SeekIsInvalid(t *testing.T) {
	cam := New("http://127.0.0.1:0/stream", Options{})
	if err := cam.Seek(time.Second); !errors.Is(err, ports.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
