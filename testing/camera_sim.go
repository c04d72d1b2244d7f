package testing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	"github.com/sirupsen/logrus"
)

// ErrNotStarted is returned by Run before StartPreview.
var ErrNotStarted = errors.New("preview not started")

// SimulatedCamera is an in-memory camera producing synthetic frames.
type SimulatedCamera struct {
	mu       sync.Mutex
	params   interfaces.SourceParams
	queue    [][]byte
	preview  interfaces.PreviewCallback
	onError  interfaces.ErrorCallback
	running  bool
	startErr error
	index    int

	// loans maps the first byte of each lent buffer to the lend state;
	// true while the buffer is held by the callback's consumer
	loans map[*byte]bool

	delivered  int
	recycled   int
	duplicates int
	skipped    int
	discarded  int
}

// NewSimulatedCamera creates a camera delivering frames of the given geometry.
func NewSimulatedCamera(width, height int, format frame.Format) *SimulatedCamera {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedCamera",
		"width":    width,
		"height":   height,
		"format":   format.String(),
	}).Info("Creating simulated camera")

	return &SimulatedCamera{
		params: interfaces.SourceParams{Width: width, Height: height, Format: format},
		loans:  make(map[*byte]bool),
	}
}

// Parameters returns the preview geometry.
func (c *SimulatedCamera) Parameters() interfaces.SourceParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SetParameters reconfigures the preview geometry, as a camera does after a
// resolution change. Callers normally re-attach the camera afterwards.
func (c *SimulatedCamera) SetParameters(params interfaces.SourceParams) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = params
}

// AddCallbackBuffer queues buf for the next frame. Returning a buffer that is
// not on loan is recorded as a duplicate recycle and ignored.
func (c *SimulatedCamera) AddCallbackBuffer(buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(buf) == 0 {
		return
	}
	key := &buf[0]
	if lent, known := c.loans[key]; known {
		if !lent {
			c.duplicates++
			logrus.WithFields(logrus.Fields{
				"function": "SimulatedCamera.AddCallbackBuffer",
				"size":     len(buf),
			}).Warn("Buffer recycled twice")
			return
		}
		c.loans[key] = false
		c.recycled++
	}
	c.queue = append(c.queue, buf)
}

// SetPreviewCallback installs the frame callback. nil clears the buffer queue.
func (c *SimulatedCamera) SetPreviewCallback(cb interfaces.PreviewCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preview = cb
	if cb == nil {
		c.queue = nil
	}
}

// SetErrorCallback installs the error callback.
func (c *SimulatedCamera) SetErrorCallback(cb interfaces.ErrorCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = cb
}

// SetStartError makes the next StartPreview calls fail with err.
func (c *SimulatedCamera) SetStartError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startErr = err
}

// StartPreview starts frame delivery.
func (c *SimulatedCamera) StartPreview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.running = true
	return nil
}

// StopPreview stops frame delivery.
func (c *SimulatedCamera) StopPreview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// Running reports whether the preview is started.
func (c *SimulatedCamera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// DeliverFrame fills the oldest queued buffer with the next synthetic frame
// and passes it to the preview callback on the calling goroutine. It returns
// false when the preview is stopped or no buffer is queued, in which case
// the frame is skipped. A queued buffer too small for a frame is discarded
// and reported to the callback as nil.
func (c *SimulatedCamera) DeliverFrame() bool {
	c.mu.Lock()
	if !c.running || c.preview == nil || len(c.queue) == 0 {
		c.skipped++
		c.mu.Unlock()
		return false
	}

	buf := c.queue[0]
	c.queue = c.queue[1:]
	cb := c.preview

	size, err := frame.BufferSize(c.params.Width, c.params.Height, c.params.Format)
	if err != nil || len(buf) < size {
		c.discarded++
		c.mu.Unlock()
		cb(nil)
		return true
	}

	fillPattern(buf[:size], c.params.Width, c.params.Height, c.index)
	c.index++
	c.loans[&buf[0]] = true
	c.delivered++
	c.mu.Unlock()

	cb(buf)
	return true
}

// DeliverUndersized reports a back-pressured frame to the callback.
func (c *SimulatedCamera) DeliverUndersized() {
	c.mu.Lock()
	cb := c.preview
	c.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
}

// TriggerError reports err through the error callback.
func (c *SimulatedCamera) TriggerError(err error) {
	c.mu.Lock()
	cb := c.onError
	c.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Run delivers frames at fps until ctx is done. Frames without a queued
// buffer are skipped.
func (c *SimulatedCamera) Run(ctx context.Context, fps int) error {
	if !c.Running() {
		return ErrNotStarted
	}
	if fps < 1 {
		fps = 1
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !c.Running() {
				return nil
			}
			c.DeliverFrame()
		}
	}
}

// Outstanding returns how many delivered buffers have not been recycled.
func (c *SimulatedCamera) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, lent := range c.loans {
		if lent {
			n++
		}
	}
	return n
}

// Delivered returns how many frames were delivered with bytes.
func (c *SimulatedCamera) Delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered
}

// Recycled returns how many delivered buffers came back.
func (c *SimulatedCamera) Recycled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recycled
}

// DuplicateRecycles returns how many buffers were returned while not on loan.
func (c *SimulatedCamera) DuplicateRecycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duplicates
}

// Skipped returns how many frames were skipped for lack of a buffer.
func (c *SimulatedCamera) Skipped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipped
}

// Queued returns how many buffers are waiting for a frame.
func (c *SimulatedCamera) Queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// fillPattern writes a moving diagonal luma ramp with a chroma tint that
// changes per frame. Every format is written as a Y plane followed by
// chroma bytes, which is exact for NV21 and YV12 and a valid byte pattern
// for packed formats.
func fillPattern(buf []byte, width, height, index int) {
	luma := width * height
	if luma > len(buf) {
		luma = len(buf)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if i >= luma {
				break
			}
			buf[i] = byte(x + y + index*4)
		}
	}
	for i := luma; i < len(buf); i++ {
		buf[i] = byte(128 + (index%16)*4 - 32)
	}
}
