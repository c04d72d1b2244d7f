package source

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	"github.com/opd-ai/retrocam/limits"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNilCamera is returned by NewAdapter for a nil camera.
	ErrNilCamera = errors.New("camera cannot be nil")

	// ErrNilCallback is returned by Attach for a nil frame callback.
	ErrNilCallback = errors.New("frame callback cannot be nil")
)

// BufferCount returns how many raw buffers to prime a camera with on a host
// with the given number of cores: one, or two on multi-core hosts. More
// buffers add queue depth, not throughput.
func BufferCount(cores int) int {
	if cores > 1 {
		return limits.MaxPrimedBuffers
	}
	return 1
}

// Adapter wraps one camera attachment.
type Adapter struct {
	camera     interfaces.Camera
	info       interfaces.SourceInfo
	params     interfaces.SourceParams
	id         string
	bufferSize int

	primed    atomic.Uint64
	delivered atomic.Uint64
	recycled  atomic.Uint64
	errors    atomic.Uint64
}

// NewAdapter reads the camera's preview parameters and validates them.
func NewAdapter(camera interfaces.Camera, info interfaces.SourceInfo) (*Adapter, error) {
	if camera == nil {
		return nil, ErrNilCamera
	}

	params := camera.Parameters()
	if err := limits.ValidateFrameSize(params.Width, params.Height); err != nil {
		return nil, err
	}
	size, err := frame.BufferSize(params.Width, params.Height, params.Format)
	if err != nil {
		return nil, err
	}
	if err := limits.ValidateBufferSize(size); err != nil {
		return nil, err
	}

	a := &Adapter{
		camera:     camera,
		info:       info,
		params:     params,
		id:         uuid.NewString(),
		bufferSize: size,
	}

	logrus.WithFields(logrus.Fields{
		"function":    "source.NewAdapter",
		"source_id":   a.id,
		"width":       params.Width,
		"height":      params.Height,
		"format":      params.Format.String(),
		"facing":      info.Facing.String(),
		"orientation": info.Orientation,
		"buffer_size": size,
	}).Debug("Created source adapter")

	return a, nil
}

// Attach replaces the camera's callbacks, primes it with count fresh
// buffers and routes every delivered frame to onFrame. A delivery shorter
// than one frame reaches onFrame as nil.
func (a *Adapter) Attach(onFrame func(data []byte), count int) error {
	if onFrame == nil {
		return ErrNilCallback
	}
	if count < 1 || count > limits.MaxPrimedBuffers {
		return fmt.Errorf("buffer count %d outside [1, %d]", count, limits.MaxPrimedBuffers)
	}

	// clearing the callback also drops buffers queued by a previous owner
	a.camera.SetPreviewCallback(nil)
	for i := 0; i < count; i++ {
		a.camera.AddCallbackBuffer(make([]byte, a.bufferSize))
		a.primed.Add(1)
	}
	a.camera.SetErrorCallback(a.onError)
	a.camera.SetPreviewCallback(func(data []byte) {
		if data != nil && len(data) < a.bufferSize {
			logrus.WithFields(logrus.Fields{
				"function":  "Adapter.Attach",
				"source_id": a.id,
				"got":       len(data),
				"want":      a.bufferSize,
			}).Warn("Camera delivered a short buffer")
			data = nil
		}
		if data != nil {
			a.delivered.Add(1)
		}
		onFrame(data)
	})

	logrus.WithFields(logrus.Fields{
		"function":  "Adapter.Attach",
		"source_id": a.id,
		"buffers":   count,
	}).Info("Source attached")

	return nil
}

func (a *Adapter) onError(err error) {
	a.errors.Add(1)
	logrus.WithFields(logrus.Fields{
		"function":  "Adapter.onError",
		"source_id": a.id,
		"error":     err,
	}).Error("Camera reported an error")
}

// Start begins frame capture.
func (a *Adapter) Start() error {
	return a.camera.StartPreview()
}

// Recycle returns a delivered buffer to the camera.
func (a *Adapter) Recycle(data []byte) {
	if data == nil {
		return
	}
	a.recycled.Add(1)
	a.camera.AddCallbackBuffer(data)
}

// Detach removes the callbacks and stops capture. Buffers still held by
// workers may be recycled afterwards; the camera keeps them for its next
// owner to clear.
func (a *Adapter) Detach() error {
	a.camera.SetPreviewCallback(nil)
	a.camera.SetErrorCallback(nil)
	err := a.camera.StopPreview()

	logrus.WithFields(logrus.Fields{
		"function":  "Adapter.Detach",
		"source_id": a.id,
		"delivered": a.delivered.Load(),
		"recycled":  a.recycled.Load(),
		"errors":    a.errors.Load(),
	}).Info("Source detached")

	return err
}

// ID returns the attachment's unique identifier.
func (a *Adapter) ID() string {
	return a.id
}

// Camera returns the wrapped camera.
func (a *Adapter) Camera() interfaces.Camera {
	return a.camera
}

// Info returns the camera's mounting description.
func (a *Adapter) Info() interfaces.SourceInfo {
	return a.info
}

// Params returns the preview parameters read at construction.
func (a *Adapter) Params() interfaces.SourceParams {
	return a.params
}

// BufferSize returns the size in bytes of one raw frame.
func (a *Adapter) BufferSize() int {
	return a.bufferSize
}

// Primed returns how many buffers Attach has handed to the camera.
func (a *Adapter) Primed() uint64 {
	return a.primed.Load()
}

// Delivered returns how many full frames the camera delivered.
func (a *Adapter) Delivered() uint64 {
	return a.delivered.Load()
}

// Recycled returns how many buffers were returned to the camera.
func (a *Adapter) Recycled() uint64 {
	return a.recycled.Load()
}

// Errors returns how many errors the camera reported.
func (a *Adapter) Errors() uint64 {
	return a.errors.Load()
}
