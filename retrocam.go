package retrocam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/retrocam/display"
	"github.com/opd-ai/retrocam/factory"
	"github.com/opd-ai/retrocam/filter"
	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	"github.com/opd-ai/retrocam/pipeline"
	"github.com/opd-ai/retrocam/real"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNilOptions is returned by New for nil options.
	ErrNilOptions = errors.New("options cannot be nil")

	// ErrUnknownFilter is returned by FilterByName for an unrecognised name.
	ErrUnknownFilter = errors.New("unknown filter")
)

// FilterNames lists the names accepted by FilterByName.
var FilterNames = []string{"yuv", "gameboy", "pixelate", "grayscale", "punchy"}

// Options configures a Preview.
type Options struct {
	// Camera geometry and input.
	CameraWidth  int
	CameraHeight int
	Format       frame.Format
	Input        io.Reader
	FPS          int

	// Facing and Orientation describe how the camera is mounted.
	Facing      interfaces.Facing
	Orientation int

	// Display geometry and output.
	DisplayWidth  int
	DisplayHeight int
	Presenter     real.Presenter

	// ShowFPS draws the measured framerate over the preview.
	ShowFPS bool

	// Config overrides the factory configuration when non-nil.
	Config *interfaces.PipelineConfig
}

// NewOptions returns options for a 640x480 NV21 camera shown on a 960x720
// display.
func NewOptions() *Options {
	return &Options{
		CameraWidth:   640,
		CameraHeight:  480,
		Format:        frame.FormatNV21,
		FPS:           30,
		Facing:        interfaces.FacingBack,
		DisplayWidth:  960,
		DisplayHeight: 720,
	}
}

// Preview connects a camera, a filter and a display through a pipeline.
type Preview struct {
	options *Options
	factory *factory.PreviewFactory

	surface  interfaces.Surface
	sink     *display.Sink
	pipeline *pipeline.Pipeline

	mu     sync.Mutex
	camera interfaces.Camera

	fps atomic.Uint64
}

// New creates a preview using a factory configured from the environment.
func New(options *Options) (*Preview, error) {
	return NewWithFactory(options, factory.NewPreviewFactory())
}

// NewWithFactory creates a preview whose collaborators come from f.
func NewWithFactory(options *Options, f *factory.PreviewFactory) (*Preview, error) {
	if options == nil {
		return nil, ErrNilOptions
	}
	if options.Config != nil {
		if err := f.UpdateConfig(options.Config); err != nil {
			return nil, err
		}
	}
	config := f.GetConfig()

	camera, err := f.CreateCamera(factory.CameraOptions{
		Width:  options.CameraWidth,
		Height: options.CameraHeight,
		Format: options.Format,
		Input:  options.Input,
		FPS:    options.FPS,
	})
	if err != nil {
		return nil, err
	}

	surface := f.CreateSurface(factory.SurfaceOptions{
		Width:     options.DisplayWidth,
		Height:    options.DisplayHeight,
		Presenter: options.Presenter,
	})
	sink, err := display.NewSink(surface)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(sink, config)
	if err != nil {
		return nil, err
	}

	pv := &Preview{
		options:  options,
		factory:  f,
		surface:  surface,
		sink:     sink,
		pipeline: p,
		camera:   camera,
	}
	p.OnFramerate(pv.recordFramerate)
	if options.ShowFPS {
		sink.SetOverlay(pv.overlay)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "retrocam.New",
		"camera_width":   options.CameraWidth,
		"camera_height":  options.CameraHeight,
		"display_width":  options.DisplayWidth,
		"display_height": options.DisplayHeight,
		"simulation":     config.UseSimulation,
	}).Info("Created preview")

	return pv, nil
}

func (pv *Preview) recordFramerate(fps float64) {
	pv.fps.Store(math.Float64bits(fps))
	logrus.WithFields(logrus.Fields{
		"function": "Preview.recordFramerate",
		"fps":      fps,
	}).Debug("Framerate sample")
}

func (pv *Preview) overlay() string {
	return fmt.Sprintf("%.1f fps", pv.FPS())
}

// Start attaches the configured camera and starts its preview.
func (pv *Preview) Start() error {
	pv.mu.Lock()
	camera := pv.camera
	pv.mu.Unlock()

	info := &interfaces.SourceInfo{Facing: pv.options.Facing, Orientation: pv.options.Orientation}
	return pv.pipeline.SetSource(camera, info)
}

// SwitchCamera replaces the active camera. The previous camera is detached
// and closed when it implements io.Closer.
func (pv *Preview) SwitchCamera(camera interfaces.Camera, info interfaces.SourceInfo) error {
	pv.mu.Lock()
	defer pv.mu.Unlock()

	if err := pv.pipeline.SetSource(camera, &info); err != nil {
		return err
	}
	closeCamera(pv.camera)
	pv.camera = camera
	return nil
}

// SetFilter replaces the active filter.
func (pv *Preview) SetFilter(f frame.Filter) error {
	return pv.pipeline.SetFilter(f)
}

// Resize reports a new display geometry.
func (pv *Preview) Resize(width, height int) error {
	return pv.pipeline.OnDisplayGeometryChanged(width, height)
}

// Camera returns the active camera.
func (pv *Preview) Camera() interfaces.Camera {
	pv.mu.Lock()
	defer pv.mu.Unlock()
	return pv.camera
}

// Surface returns the display surface.
func (pv *Preview) Surface() interfaces.Surface {
	return pv.surface
}

// Pipeline returns the underlying pipeline.
func (pv *Preview) Pipeline() *pipeline.Pipeline {
	return pv.pipeline
}

// Stats returns a snapshot of the pipeline counters.
func (pv *Preview) Stats() pipeline.Stats {
	return pv.pipeline.Stats()
}

// FPS returns the last measured framerate.
func (pv *Preview) FPS() float64 {
	return math.Float64frombits(pv.fps.Load())
}

// Close stops the preview, closes the camera and waits for in-flight frames
// until ctx ends.
func (pv *Preview) Close(ctx context.Context) error {
	err := pv.pipeline.Close(ctx)

	pv.mu.Lock()
	closeCamera(pv.camera)
	pv.mu.Unlock()

	return err
}

func closeCamera(camera interfaces.Camera) {
	closer, ok := camera.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "closeCamera",
			"error":    err.Error(),
		}).Warn("Failed to close camera")
	}
}

// FilterByName builds one of the named filters listed in FilterNames.
func FilterByName(name string) (frame.Filter, error) {
	switch strings.ToLower(name) {
	case "", "yuv":
		return filter.NewDefaultYUVFilter(), nil
	case "gameboy":
		return filter.NewChain(nil, filter.NewGameBoyEffect()), nil
	case "pixelate":
		return filter.NewChain(nil, filter.NewPixelateEffect(6)), nil
	case "grayscale":
		return filter.NewChain(nil, filter.NewGrayscaleEffect()), nil
	case "punchy":
		return filter.NewChain(nil, filter.NewContrastEffect(1.3), filter.NewBrightnessEffect(10)), nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFilter, name, strings.Join(FilterNames, ", "))
	}
}
