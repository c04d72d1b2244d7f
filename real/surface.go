package real

import (
	"errors"
	"image"
	"image/draw"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ErrForeignCanvas is returned when posting a canvas the surface did not lock.
var ErrForeignCanvas = errors.New("canvas was not locked from this surface")

// Presenter receives each posted frame. The image is only valid for the
// duration of the call.
type Presenter func(img *image.RGBA)

// ImageSurface is a multi-buffered in-memory surface.
type ImageSurface struct {
	sem chan struct{}

	mu        sync.Mutex
	width     int
	height    int
	rotation  int
	buffers   []*image.RGBA
	next      int
	locked    *image.RGBA
	front     *image.RGBA
	presenter Presenter

	posted atomic.Uint64
}

// NewImageSurface creates a surface with count back buffers. presenter may
// be nil.
func NewImageSurface(width, height, count int, presenter Presenter) *ImageSurface {
	if count < 1 {
		count = 1
	}
	s := &ImageSurface{
		sem:       make(chan struct{}, 1),
		width:     width,
		height:    height,
		buffers:   make([]*image.RGBA, count),
		presenter: presenter,
	}
	for i := range s.buffers {
		s.buffers[i] = image.NewRGBA(image.Rect(0, 0, width, height))
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewImageSurface",
		"width":    width,
		"height":   height,
		"buffers":  count,
	}).Info("Creating image surface")

	return s
}

// LockCanvas returns the next back buffer, blocking while another canvas is
// locked.
func (s *ImageSurface) LockCanvas() draw.Image {
	s.sem <- struct{}{}

	s.mu.Lock()
	defer s.mu.Unlock()
	canvas := s.buffers[s.next]
	s.next = (s.next + 1) % len(s.buffers)
	s.locked = canvas
	return canvas
}

// UnlockCanvasAndPost presents the canvas and makes it the front buffer.
func (s *ImageSurface) UnlockCanvasAndPost(canvas draw.Image) error {
	s.mu.Lock()
	rgba, ok := canvas.(*image.RGBA)
	if !ok || s.locked == nil || rgba != s.locked {
		s.mu.Unlock()
		return ErrForeignCanvas
	}
	s.locked = nil
	s.front = rgba
	presenter := s.presenter
	s.mu.Unlock()

	if presenter != nil {
		presenter(rgba)
	}
	s.posted.Add(1)

	<-s.sem
	return nil
}

// Size returns the surface geometry.
func (s *ImageSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Rotation returns the display rotation in degrees.
func (s *ImageSurface) Rotation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation
}

// SetRotation sets the display rotation reported to the pipeline.
func (s *ImageSurface) SetRotation(degrees int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = degrees
}

// Front returns a copy of the last posted frame, or nil before the first post.
func (s *ImageSurface) Front() *image.RGBA {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.front == nil {
		return nil
	}
	img := image.NewRGBA(s.front.Rect)
	copy(img.Pix, s.front.Pix)
	return img
}

// Posted returns how many frames were posted.
func (s *ImageSurface) Posted() uint64 {
	return s.posted.Load()
}

// WriterPresenter returns a presenter that streams raw RGBA frames to w.
// Write errors are logged once and further frames are discarded.
func WriterPresenter(w io.Writer) Presenter {
	var failed atomic.Bool
	return func(img *image.RGBA) {
		if failed.Load() {
			return
		}
		width := img.Rect.Dx() * 4
		for y := 0; y < img.Rect.Dy(); y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+width]
			if _, err := w.Write(row); err != nil {
				failed.Store(true)
				logrus.WithFields(logrus.Fields{
					"function": "WriterPresenter",
					"error":    err.Error(),
				}).Error("Failed to write frame")
				return
			}
		}
	}
}
