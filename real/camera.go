package real

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	"github.com/sirupsen/logrus"
)

// ErrStreamEnded is returned by StartPreview once the input is exhausted.
var ErrStreamEnded = errors.New("raw video stream ended")

// Sleeper provides an abstraction over time.Sleep for deterministic testing.
type Sleeper interface {
	// Sleep pauses execution for the specified duration.
	Sleep(d time.Duration)
}

// DefaultSleeper implements Sleeper using the standard library time.Sleep.
type DefaultSleeper struct{}

// Sleep pauses execution for the specified duration using time.Sleep.
func (DefaultSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

// RawVideoCamera delivers raw frames read from a stream.
type RawVideoCamera struct {
	reader   io.Reader
	params   interfaces.SourceParams
	size     int
	interval time.Duration

	mu      sync.Mutex
	wake    *sync.Cond
	queue   [][]byte
	preview interfaces.PreviewCallback
	onError interfaces.ErrorCallback
	started bool
	running bool
	closed  bool
	ended   bool
	sleeper Sleeper
	scratch []byte

	done chan struct{}

	frames  atomic.Uint64
	skipped atomic.Uint64
}

// NewRawVideoCamera creates a camera reading frames of the given geometry
// from r. A positive fps paces delivery; zero reads as fast as the stream
// allows.
//
// Frames are read back to back with no header, each exactly
// frame.BufferSize(width, height, format) bytes, which matches the output of
// "ffmpeg -f rawvideo -pix_fmt nv21". Pacing sleeps for 1/fps after each
// frame and does not subtract the read time, so a slow stream runs below
// the requested rate rather than bursting to catch up.
func NewRawVideoCamera(r io.Reader, params interfaces.SourceParams, fps int) (*RawVideoCamera, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	size, err := frame.BufferSize(params.Width, params.Height, params.Format)
	if err != nil {
		return nil, err
	}

	var interval time.Duration
	if fps > 0 {
		interval = time.Second / time.Duration(fps)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewRawVideoCamera",
		"width":    params.Width,
		"height":   params.Height,
		"format":   params.Format.String(),
		"fps":      fps,
	}).Info("Creating raw video camera")

	c := &RawVideoCamera{
		reader:   r,
		params:   params,
		size:     size,
		interval: interval,
		sleeper:  DefaultSleeper{},
		done:     make(chan struct{}),
	}
	c.wake = sync.NewCond(&c.mu)
	return c, nil
}

// SetSleeper sets a custom Sleeper implementation (primarily for testing).
func (c *RawVideoCamera) SetSleeper(s Sleeper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeper = s
}

func (c *RawVideoCamera) Parameters() interfaces.SourceParams {
	return c.params
}

// AddCallbackBuffer queues buf for the next frame.
func (c *RawVideoCamera) AddCallbackBuffer(buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, buf)
}

// SetPreviewCallback installs the frame callback. nil clears the buffer queue.
func (c *RawVideoCamera) SetPreviewCallback(cb interfaces.PreviewCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preview = cb
	if cb == nil {
		c.queue = nil
	}
}

// SetErrorCallback installs the error callback.
func (c *RawVideoCamera) SetErrorCallback(cb interfaces.ErrorCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = cb
}

// StartPreview starts or resumes delivery. The reader goroutine is started
// on first use and is the only goroutine that reads the stream.
func (c *RawVideoCamera) StartPreview() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended || c.closed {
		return ErrStreamEnded
	}
	c.running = true
	if !c.started {
		c.started = true
		go c.loop()
	}
	c.wake.Broadcast()

	logrus.WithFields(logrus.Fields{
		"function": "RawVideoCamera.StartPreview",
	}).Info("Raw video capture started")
	return nil
}

// StopPreview pauses delivery. A read already in progress completes and its
// frame is discarded.
func (c *RawVideoCamera) StopPreview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// Close stops delivery for good and releases the reader goroutine once its
// current read returns.
func (c *RawVideoCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.running = false
	c.wake.Broadcast()
	if !c.started && !c.ended {
		c.ended = true
		close(c.done)
	}
	return nil
}

// Done is closed when the stream ends, fails or the camera is closed.
func (c *RawVideoCamera) Done() <-chan struct{} {
	return c.done
}

// Frames returns how many frames were delivered.
func (c *RawVideoCamera) Frames() uint64 {
	return c.frames.Load()
}

// Skipped returns how many frames were read while no buffer was queued.
func (c *RawVideoCamera) Skipped() uint64 {
	return c.skipped.Load()
}

func (c *RawVideoCamera) loop() {
	for {
		c.mu.Lock()
		for !c.running && !c.closed {
			c.wake.Wait()
		}
		closed := c.closed
		sleeper := c.sleeper
		c.mu.Unlock()

		if closed {
			c.finish(nil)
			return
		}

		if err := c.readFrame(); err != nil {
			c.finish(err)
			return
		}

		if c.interval > 0 {
			sleeper.Sleep(c.interval)
		}
	}
}

// readFrame reads one frame into a queued buffer, or into scratch when none
// is queued, and delivers it.
func (c *RawVideoCamera) readFrame() error {
	c.mu.Lock()
	var buf []byte
	if len(c.queue) > 0 {
		buf = c.queue[0]
		c.queue = c.queue[1:]
	}
	short := buf != nil && len(buf) < c.size
	if (buf == nil || short) && len(c.scratch) < c.size {
		c.scratch = make([]byte, c.size)
	}
	dst := buf
	if buf == nil || short {
		dst = c.scratch
	}
	c.mu.Unlock()

	if _, err := io.ReadFull(c.reader, dst[:c.size]); err != nil {
		if buf != nil && !short {
			c.requeue(buf)
		}
		return err
	}

	c.mu.Lock()
	cb := c.preview
	running := c.running
	c.mu.Unlock()

	switch {
	case !running || cb == nil:
		if buf != nil && !short {
			c.requeue(buf)
		}
	case buf == nil:
		c.skipped.Add(1)
	case short:
		// the buffer cannot hold a frame and is dropped
		cb(nil)
	default:
		c.frames.Add(1)
		cb(buf)
	}
	return nil
}

func (c *RawVideoCamera) requeue(buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview != nil {
		c.queue = append([][]byte{buf}, c.queue...)
	}
}

// finish marks the stream ended. A nil err means the camera was closed.
func (c *RawVideoCamera) finish(err error) {
	c.mu.Lock()
	c.ended = true
	c.running = false
	onError := c.onError
	c.mu.Unlock()

	close(c.done)

	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		logrus.WithFields(logrus.Fields{
			"function": "RawVideoCamera.loop",
			"frames":   c.frames.Load(),
			"skipped":  c.skipped.Load(),
		}).Info("Raw video stream ended")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "RawVideoCamera.loop",
		"error":    err.Error(),
	}).Error("Raw video read failed")
	if onError != nil {
		onError(err)
	}
}
