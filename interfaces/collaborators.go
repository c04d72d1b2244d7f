package interfaces

import (
	"image/draw"

	"github.com/opd-ai/retrocam/frame"
)

// PreviewCallback receives one raw frame, or nil when the queued buffer was
// too small to hold it.
type PreviewCallback func(data []byte)

// ErrorCallback receives non-fatal camera errors.
type ErrorCallback func(err error)

// Facing is the direction a camera points relative to the display.
type Facing int

const (
	// FacingBack points away from the viewer.
	FacingBack Facing = iota
	// FacingFront points at the viewer; its preview is mirrored.
	FacingFront
)

// String returns the facing name.
func (f Facing) String() string {
	if f == FacingFront {
		return "front"
	}
	return "back"
}

// SourceInfo describes how a camera is mounted.
type SourceInfo struct {
	// Facing is the camera direction
	Facing Facing
	// Orientation is the clockwise rotation in degrees (0, 90, 180, 270)
	// needed to show the sensor image upright in the device's natural orientation
	Orientation int
}

// SourceParams describes the preview frames a camera delivers.
type SourceParams struct {
	Width  int
	Height int
	Format frame.Format
}

// Camera is a frame producer driven through the callback-buffer protocol.
type Camera interface {
	// Parameters returns the current preview geometry and format
	Parameters() SourceParams

	// AddCallbackBuffer queues a raw buffer for the next captured frame
	AddCallbackBuffer(buf []byte)

	// SetPreviewCallback installs the frame callback; nil removes it and
	// clears the buffer queue
	SetPreviewCallback(cb PreviewCallback)

	// SetErrorCallback installs the error callback; nil removes it
	SetErrorCallback(cb ErrorCallback)

	// StartPreview begins frame capture
	StartPreview() error

	// StopPreview ends frame capture
	StopPreview() error
}

// Surface is a lockable, possibly multi-buffered display target.
type Surface interface {
	// LockCanvas returns the next drawable canvas, or nil if unavailable
	LockCanvas() draw.Image

	// UnlockCanvasAndPost publishes a canvas returned by LockCanvas
	UnlockCanvasAndPost(canvas draw.Image) error

	// Size returns the surface geometry in pixels
	Size() (width, height int)

	// Rotation returns the display rotation in degrees (0, 90, 180, 270)
	Rotation() int
}
