package display

import (
	"errors"
	"image"
	"image/color"
	"sync/atomic"

	"github.com/opd-ai/retrocam/interfaces"
	"github.com/opd-ai/retrocam/transform"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	// ErrNilSurface is returned by NewSink for a nil surface.
	ErrNilSurface = errors.New("surface cannot be nil")

	// ErrNilCanvas is returned when posting a nil canvas.
	ErrNilCanvas = errors.New("canvas cannot be nil")
)

// Neutral is the color surfaces are cleared to.
var Neutral = color.RGBA{A: 0xff}

var overlayColor = color.RGBA{R: 0xff, G: 0xff, A: 0xff}

// Sink draws filtered bitmaps onto a surface.
type Sink struct {
	surface interfaces.Surface
	scaler  draw.Transformer

	overlay atomic.Pointer[func() string]

	posted      atomic.Uint64
	unavailable atomic.Uint64
}

// NewSink wraps surface. Bitmaps are blitted with bilinear filtering.
func NewSink(surface interfaces.Surface) (*Sink, error) {
	if surface == nil {
		return nil, ErrNilSurface
	}
	return &Sink{
		surface: surface,
		scaler:  draw.BiLinear,
	}, nil
}

// SetScaler replaces the interpolator used by Draw. It must be called before
// the sink is shared with workers.
func (s *Sink) SetScaler(scaler draw.Transformer) {
	if scaler != nil {
		s.scaler = scaler
	}
}

// SetOverlay installs a function whose text is stamped at the top-left of
// every drawn frame. nil removes the overlay.
func (s *Sink) SetOverlay(text func() string) {
	if text == nil {
		s.overlay.Store(nil)
		return
	}
	s.overlay.Store(&text)
}

// Lock returns the next canvas, or nil when the surface is unavailable.
// It blocks while another canvas is locked.
func (s *Sink) Lock() draw.Image {
	canvas := s.surface.LockCanvas()
	if canvas == nil {
		s.unavailable.Add(1)
	}
	return canvas
}

// Draw fills canvas with the neutral color and blits bitmap through tr.
func (s *Sink) Draw(canvas draw.Image, bitmap image.Image, tr *transform.Transform) {
	bounds := canvas.Bounds()
	draw.Draw(canvas, bounds, image.NewUniform(Neutral), image.Point{}, draw.Src)

	if bitmap != nil && tr != nil {
		s.scaler.Transform(canvas, tr.Matrix, bitmap, bitmap.Bounds(), draw.Src, nil)
	}

	if text := s.overlay.Load(); text != nil {
		d := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(overlayColor),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(bounds.Min.X+4, bounds.Min.Y+14),
		}
		d.DrawString((*text)())
	}
}

// Post publishes a canvas returned by Lock.
func (s *Sink) Post(canvas draw.Image) error {
	if canvas == nil {
		return ErrNilCanvas
	}
	if err := s.surface.UnlockCanvasAndPost(canvas); err != nil {
		return err
	}
	s.posted.Add(1)
	return nil
}

// Clear fills the surface with c, passes times, and returns how many passes
// reached the surface.
func (s *Sink) Clear(c color.Color, passes int) int {
	cleared := 0
	for i := 0; i < passes; i++ {
		canvas := s.Lock()
		if canvas == nil {
			continue
		}
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
		if err := s.surface.UnlockCanvasAndPost(canvas); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Sink.Clear",
				"pass":     i,
				"error":    err.Error(),
			}).Warn("Failed to post cleared canvas")
			continue
		}
		cleared++
	}
	return cleared
}

// Size returns the surface geometry.
func (s *Sink) Size() (int, int) {
	return s.surface.Size()
}

// Rotation returns the surface's display rotation in degrees.
func (s *Sink) Rotation() int {
	return s.surface.Rotation()
}

// Posted returns how many frames were posted through Post.
func (s *Sink) Posted() uint64 {
	return s.posted.Load()
}

// Unavailable returns how many Lock calls found no canvas.
func (s *Sink) Unavailable() uint64 {
	return s.unavailable.Load()
}
