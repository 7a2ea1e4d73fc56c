// Package mjpegcam captures a live MJPEG-over-HTTP camera feed behind the
// same transport-control interface as the playback engine, so a recorded
// file and a real camera are interchangeable to the consumer pipeline.
package mjpegcam

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/user/vidfeed/pkg/adapters/logger"
	"github.com/user/vidfeed/pkg/ports"
)

// Options configures connection behavior.
type Options struct {
	// Timeout bounds the wait for response headers; defaults to 10s.
	Timeout time.Duration

	// RetryAttempts is the number of reconnects tolerated before the camera
	// fails; defaults to 3.
	RetryAttempts int

	// RetryDelay is the pause between connection attempts in Start;
	// defaults to 1s.
	RetryDelay time.Duration

	// Logger receives camera debug output.
	Logger ports.Logger
}

// Camera is a live ports.StreamSource over an MJPEG HTTP stream. Frames
// carry the raw JPEG part bytes; timestamps count live time since Start,
// excluding paused spans.
type Camera struct {
	mu sync.Mutex

	url    string
	opts   Options
	client *http.Client
	log    ports.Logger

	resp  *http.Response
	parts *multipart.Reader

	started    bool
	paused     bool
	stopped    bool
	failure    error
	retries    int
	seq        int
	startAt    time.Time
	pausedAt   time.Time
	pauseTotal time.Duration
}

// New creates a camera for the MJPEG stream at url.
func New(url string, opts Options) *Camera {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Camera{
		url:  url,
		opts: opts,
		log:  log.WithComponent("mjpegcam"),
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: opts.Timeout},
		},
	}
}

// Start connects to the camera, retrying up to RetryAttempts times.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started && !c.stopped {
		return fmt.Errorf("start while capturing: %w", ports.ErrInvalidTransition)
	}

	var err error
	for attempt := 1; attempt <= c.opts.RetryAttempts; attempt++ {
		if err = c.connectLocked(); err == nil {
			break
		}
		c.log.Warn("connect attempt %d/%d failed: %s", attempt, c.opts.RetryAttempts, err)
		if attempt < c.opts.RetryAttempts {
			time.Sleep(c.opts.RetryDelay)
		}
	}
	if err != nil {
		return err
	}

	c.started = true
	c.stopped = false
	c.paused = false
	c.failure = nil
	c.retries = 0
	c.seq = 0
	c.startAt = time.Now()
	c.pauseTotal = 0
	c.log.Debug("capturing from %s", c.url)
	return nil
}

// connectLocked establishes the HTTP stream and multipart reader.
func (c *Camera) connectLocked() error {
	resp, err := c.client.Get(c.url)
	if err != nil {
		return fmt.Errorf("get %s: %w: %v", c.url, ports.ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("get %s: status %d: %w", c.url, resp.StatusCode, ports.ErrSourceUnavailable)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("%s is not an mjpeg stream (content-type %q): %w",
			c.url, resp.Header.Get("Content-Type"), ports.ErrUnsupportedFormat)
	}

	c.closeStreamLocked()
	c.resp = resp
	c.parts = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

// Pause halts delivery. The connection stays up; frames read after Resume
// continue from the live position.
func (c *Camera) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.stopped || c.paused || c.failure != nil {
		return fmt.Errorf("pause: %w", ports.ErrInvalidTransition)
	}
	c.paused = true
	c.pausedAt = time.Now()
	return nil
}

// Resume continues delivery after Pause.
func (c *Camera) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused || c.stopped {
		return fmt.Errorf("resume: %w", ports.ErrInvalidTransition)
	}
	c.pauseTotal += time.Since(c.pausedAt)
	c.paused = false
	return nil
}

// Seek is not possible on a live feed.
func (c *Camera) Seek(target time.Duration) error {
	return fmt.Errorf("live capture cannot seek: %w", ports.ErrInvalidTransition)
}

// Stop closes the stream. Idempotent.
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.closeStreamLocked()
	c.stopped = true
	c.paused = false
	c.log.Debug("stopped after %d frames", c.seq)
	return nil
}

// Poll reads the next JPEG part from the stream. A broken connection is
// re-established transparently up to RetryAttempts times; past that the
// camera reports a sticky error.
func (c *Camera) Poll() ports.FrameEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failure != nil {
		return ports.FrameEvent{Kind: ports.EventError, Err: c.failure}
	}
	if !c.started || c.stopped || c.paused {
		return ports.FrameEvent{Kind: ports.EventNotDue}
	}

	if c.parts == nil {
		if err := c.connectLocked(); err != nil {
			return c.disconnectedLocked(err)
		}
		c.retries = 0
	}

	part, err := c.parts.NextPart()
	if err != nil {
		// Dropped stream; reconnect on a later poll.
		c.closeStreamLocked()
		return c.disconnectedLocked(fmt.Errorf("read stream: %w: %v", ports.ErrSourceUnavailable, err))
	}
	data, err := io.ReadAll(part)
	part.Close()
	if err != nil {
		c.closeStreamLocked()
		return c.disconnectedLocked(fmt.Errorf("read frame: %w: %v", ports.ErrSourceUnavailable, err))
	}

	frame := &ports.Frame{
		Data:      data,
		Index:     c.seq,
		Timestamp: time.Since(c.startAt) - c.pauseTotal,
	}
	c.seq++
	return ports.FrameEvent{Kind: ports.EventFrame, Frame: frame}
}

// disconnectedLocked accounts a failed connection. Within the retry budget
// the camera stays up and reports NotDue; beyond it the error sticks.
func (c *Camera) disconnectedLocked(err error) ports.FrameEvent {
	c.retries++
	if c.retries > c.opts.RetryAttempts {
		c.failure = err
		c.log.Error("capture failed: %s", err)
		return ports.FrameEvent{Kind: ports.EventError, Err: c.failure}
	}
	c.log.Warn("stream interrupted (attempt %d/%d): %s", c.retries, c.opts.RetryAttempts, err)
	return ports.FrameEvent{Kind: ports.EventNotDue}
}

func (c *Camera) closeStreamLocked() {
	if c.resp != nil {
		c.resp.Body.Close()
		c.resp = nil
	}
	c.parts = nil
}

var _ ports.StreamSource = (*Camera)(nil)
