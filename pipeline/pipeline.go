package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/retrocam/display"
	"github.com/opd-ai/retrocam/filter"
	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	"github.com/opd-ai/retrocam/source"
	"github.com/opd-ai/retrocam/taskpool"
	"github.com/opd-ai/retrocam/transform"
	"github.com/opd-ai/retrocam/workpool"
	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned by operations on a closed pipeline.
	ErrClosed = errors.New("pipeline closed")

	// ErrInvalidSourceParams is returned by SetSource when the camera's
	// preview parameters cannot be served.
	ErrInvalidSourceParams = errors.New("invalid source parameters")

	// ErrStartPreview is returned by SetSource when the camera fails to start.
	ErrStartPreview = errors.New("failed to start preview")

	// ErrNilSink is returned by New for a nil display sink.
	ErrNilSink = errors.New("display sink cannot be nil")

	// ErrNilFilter is returned by SetFilter for a nil filter.
	ErrNilFilter = errors.New("filter cannot be nil")

	// ErrFilterPanic wraps a panic raised inside a filter.
	ErrFilterPanic = errors.New("filter panicked")
)

// DefaultConfig returns the default pipeline configuration.
//
// Default Value Rationale:
//   - BufferCount: 0 - Sized at attach time from runtime.NumCPU, so every
//     worker can hold a frame while the camera fills the next one
//   - FramerateWindow: 25 - About one report per second at a typical 25-30fps
//     preview, smoothing out single slow frames
//   - ClearPasses: 3 - Covers a triple buffered surface, so no back buffer
//     still shows the previous camera's last frame
//   - WorkerIdleTimeout: 60s - Keeps workers warm across short pauses such as
//     a camera switch
//   - MaxPooledTasks: 0 - Lets the task pool grow to the peak in-flight count,
//     which is bounded by the buffer count anyway
func DefaultConfig() *interfaces.PipelineConfig {
	return &interfaces.PipelineConfig{
		BufferCount:       0,
		FramerateWindow:   25,
		ClearPasses:       3,
		WorkerIdleTimeout: 60 * time.Second,
		MaxPooledTasks:    0,
	}
}

// sourceHandle identifies one source attachment. Handles are compared by
// generation, which strictly increases with every SetSource.
type sourceHandle struct {
	generation uint64
	adapter    *source.Adapter
}

// filterSlot is the unit of filter publication. A new slot is created for
// every SetFilter, even when the same filter value is set again.
type filterSlot struct {
	filter frame.Filter
	name   string
}

// task carries one frame from ingest to display and is recycled through the
// task pool together with its pixel planes.
type task struct {
	buf    *frame.Buffer
	data   []byte
	handle *sourceHandle
	filter *filterSlot
	seq    uint64
	exec   func()
}

// Pipeline is the preview pipeline coordinator.
type Pipeline struct {
	sink    *display.Sink
	config  interfaces.PipelineConfig
	workers *workpool.Pool
	tasks   *taskpool.Pool[*task]

	// control serializes SetSource, SetFilter, OnDisplayGeometryChanged and Close
	control       sync.Mutex
	displayWidth  int
	displayHeight int

	// mu is the ordering lock
	mu         sync.Mutex
	current    *sourceHandle
	lastPosted int64

	closed     atomic.Bool
	generation atomic.Uint64
	nextSeq    atomic.Uint64
	filter     atomic.Pointer[filterSlot]
	transform  atomic.Pointer[transform.Transform]

	stats counters
	rate  *framerate

	onFramerate atomic.Pointer[func(fps float64)]
	onPosted    atomic.Pointer[func(seq uint64)]
	onDropped   atomic.Pointer[func(seq uint64, reason DropReason)]
}

// New creates a pipeline drawing onto sink. A nil config selects
// DefaultConfig. The default filter decodes YUV frames at 480x360.
func New(sink *display.Sink, config *interfaces.PipelineConfig) (*Pipeline, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		sink:       sink,
		config:     *config,
		workers:    workpool.New("filter", config.WorkerIdleTimeout),
		tasks:      taskpool.New[*task](config.MaxPooledTasks),
		lastPosted: -1,
		rate:       newFramerate(config.FramerateWindow, nil),
	}
	p.displayWidth, p.displayHeight = sink.Size()

	def := filter.NewDefaultYUVFilter()
	p.filter.Store(&filterSlot{filter: def, name: def.GetName()})

	logrus.WithFields(logrus.Fields{
		"function":         "pipeline.New",
		"buffer_count":     config.BufferCount,
		"framerate_window": config.FramerateWindow,
		"clear_passes":     config.ClearPasses,
		"max_pooled_tasks": config.MaxPooledTasks,
		"display_width":    p.displayWidth,
		"display_height":   p.displayHeight,
	}).Info("Pipeline created")

	return p, nil
}

// SetTimeProvider sets the clock used by framerate telemetry.
func (p *Pipeline) SetTimeProvider(tp TimeProvider) {
	p.rate.setClock(tp)
}

// OnFramerate registers a callback invoked with the measured framerate once
// per framerate window. nil removes it.
func (p *Pipeline) OnFramerate(cb func(fps float64)) {
	if cb == nil {
		p.onFramerate.Store(nil)
		return
	}
	p.onFramerate.Store(&cb)
}

// OnFramePosted registers a callback invoked on the worker after each post,
// in post order. nil removes it.
func (p *Pipeline) OnFramePosted(cb func(seq uint64)) {
	if cb == nil {
		p.onPosted.Store(nil)
		return
	}
	p.onPosted.Store(&cb)
}

// OnFrameDropped registers a callback invoked on the worker for each dropped
// frame. nil removes it.
func (p *Pipeline) OnFrameDropped(cb func(seq uint64, reason DropReason)) {
	if cb == nil {
		p.onDropped.Store(nil)
		return
	}
	p.onDropped.Store(&cb)
}

// SetSource replaces the current source. A nil camera detaches the current
// source; detaching when nothing is attached does nothing. A nil info is
// treated as a back-facing camera with orientation 0.
//
// Replacing a live source detaches it, clears the display, recomputes the
// transform, primes the new camera with raw buffers and starts its preview.
// Frames still in flight from the old source are dropped.
func (p *Pipeline) SetSource(camera interfaces.Camera, info *interfaces.SourceInfo) error {
	p.control.Lock()
	defer p.control.Unlock()

	if camera != nil && p.closed.Load() {
		return ErrClosed
	}
	return p.setSourceLocked(camera, info)
}

func (p *Pipeline) setSourceLocked(camera interfaces.Camera, info *interfaces.SourceInfo) error {
	p.mu.Lock()
	old := p.current
	p.mu.Unlock()

	if camera == nil && old == nil {
		return nil
	}

	var adapter *source.Adapter
	if camera != nil {
		if info == nil {
			info = &interfaces.SourceInfo{}
		}
		var err error
		adapter, err = source.NewAdapter(camera, *info)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSourceParams, err)
		}
	}

	if old != nil {
		if err := old.adapter.Detach(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Pipeline.SetSource",
				"source_id": old.adapter.ID(),
				"error":     err.Error(),
			}).Warn("Failed to stop previous source")
		}
	}

	generation := p.generation.Add(1)
	var handle *sourceHandle
	if adapter != nil {
		handle = &sourceHandle{generation: generation, adapter: adapter}
	}

	p.mu.Lock()
	p.current = handle
	p.mu.Unlock()

	if handle == nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Pipeline.SetSource",
			"generation": generation,
		}).Info("Source cleared")
		return nil
	}

	if old != nil {
		p.sink.Clear(display.Neutral, p.config.ClearPasses)
	}

	if err := p.recomputeTransform(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Pipeline.SetSource",
			"generation": generation,
			"error":      err.Error(),
		}).Warn("Failed to compute display transform")
	}

	count := p.config.BufferCount
	if count == 0 {
		count = source.BufferCount(runtime.NumCPU())
	}
	if err := adapter.Attach(func(data []byte) { p.onFrame(handle, data) }, count); err != nil {
		p.abandon(handle, err)
		return err
	}
	p.rate.reset()

	if err := adapter.Start(); err != nil {
		p.abandon(handle, err)
		return fmt.Errorf("%w: %w", ErrStartPreview, err)
	}

	params := adapter.Params()
	logrus.WithFields(logrus.Fields{
		"function":   "Pipeline.SetSource",
		"source_id":  adapter.ID(),
		"generation": generation,
		"width":      params.Width,
		"height":     params.Height,
		"format":     params.Format.String(),
		"buffers":    count,
	}).Info("Preview started")

	return nil
}

// abandon retires a handle whose camera could not be attached or started.
// The previous source was already detached, so the pipeline is left with no
// source and the next SetSource issues no clears. Frames the camera managed
// to deliver fail the generation check and are dropped as stale.
func (p *Pipeline) abandon(handle *sourceHandle, cause error) {
	if err := handle.adapter.Detach(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Pipeline.SetSource",
			"source_id": handle.adapter.ID(),
			"error":     err.Error(),
		}).Warn("Failed to stop abandoned source")
	}

	p.mu.Lock()
	if p.current == handle {
		p.current = nil
	}
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "Pipeline.SetSource",
		"source_id":  handle.adapter.ID(),
		"generation": handle.generation,
		"error":      cause.Error(),
	}).Error("Source failed to start and was removed")
}

// SetFilter replaces the active filter. Frames ingested afterwards use the
// new filter; frames already in flight with the old one are dropped.
func (p *Pipeline) SetFilter(f frame.Filter) error {
	if f == nil {
		return ErrNilFilter
	}

	p.control.Lock()
	defer p.control.Unlock()

	slot := &filterSlot{filter: f, name: filterName(f)}
	p.filter.Store(slot)

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.SetFilter",
		"filter":   slot.name,
	}).Info("Filter changed")

	return p.recomputeTransform()
}

// OnDisplayGeometryChanged records new display dimensions and recomputes the
// transform. Non-positive dimensions are read from the surface instead.
func (p *Pipeline) OnDisplayGeometryChanged(width, height int) error {
	p.control.Lock()
	defer p.control.Unlock()

	if width <= 0 || height <= 0 {
		width, height = p.sink.Size()
	}
	p.displayWidth, p.displayHeight = width, height

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.OnDisplayGeometryChanged",
		"width":    width,
		"height":   height,
	}).Debug("Display geometry changed")

	return p.recomputeTransform()
}

// recomputeTransform publishes the transform for the current source, filter
// and display. It must be called with control held.
func (p *Pipeline) recomputeTransform() error {
	p.mu.Lock()
	handle := p.current
	p.mu.Unlock()

	if handle == nil {
		return nil
	}

	params := handle.adapter.Params()
	info := handle.adapter.Info()
	width, height := p.filter.Load().filter.EffectiveSize(params.Width, params.Height)

	tr, err := transform.New(transform.Params{
		SrcWidth:        width,
		SrcHeight:       height,
		Orientation:     info.Orientation,
		Mirror:          info.Facing == interfaces.FacingFront,
		DisplayRotation: p.sink.Rotation(),
		DstWidth:        p.displayWidth,
		DstHeight:       p.displayHeight,
		Enlarge:         true,
	})
	if err != nil {
		return err
	}
	p.transform.Store(tr)

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.recomputeTransform",
		"rotation": tr.Rotation,
		"scale":    tr.Scale,
		"mirror":   tr.Mirror,
	}).Debug("Display transform updated")

	return nil
}

// onFrame ingests one delivery from the source identified by handle. It runs
// on the camera goroutine and never blocks.
func (p *Pipeline) onFrame(handle *sourceHandle, data []byte) {
	if data == nil {
		p.stats.undersized.Add(1)
		return
	}
	p.stats.ingested.Add(1)

	if p.closed.Load() {
		p.recycle(handle, data)
		return
	}

	t, ok := p.tasks.Poll()
	if !ok {
		t = &task{buf: &frame.Buffer{}}
		t.exec = func() { p.run(t) }
		p.stats.tasksAllocated.Add(1)
	}
	t.data = data
	t.handle = handle
	t.filter = p.filter.Load()
	t.seq = p.nextSeq.Add(1) - 1

	p.stats.enter()
	if err := p.workers.Submit(t.exec); err != nil {
		p.recycle(handle, data)
		p.release(t)
	}
}

// run is the worker body for one task.
func (p *Pipeline) run(t *task) {
	params := t.handle.adapter.Params()
	hadImage := t.buf.Image != nil
	if t.buf.Reset(params.Width, params.Height, params.Format) && hadImage {
		p.stats.imageReallocations.Add(1)
		logrus.WithFields(logrus.Fields{
			"function": "Pipeline.run",
			"sequence": t.seq,
			"width":    params.Width,
			"height":   params.Height,
		}).Debug("Reallocated task image")
	}
	t.buf.Data = t.data
	t.buf.Seq = t.seq

	if err := applyFilter(t); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Pipeline.run",
			"sequence": t.seq,
			"filter":   t.filter.name,
			"error":    err.Error(),
		}).Error("Filter failed")
		p.recycle(t.handle, t.data)
		p.drop(t, DropFilterError)
		return
	}

	p.mu.Lock()
	if reason, stale := p.checkLocked(t); stale {
		p.recycle(t.handle, t.data)
		p.mu.Unlock()
		p.drop(t, reason)
		return
	}
	p.lastPosted = int64(t.seq)
	canvas := p.sink.Lock()
	p.recycle(t.handle, t.data)
	tr := p.transform.Load()
	p.mu.Unlock()

	if canvas == nil {
		p.drop(t, DropNoCanvas)
		return
	}

	p.sink.Draw(canvas, t.buf.Bitmap, tr)
	if err := p.sink.Post(canvas); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Pipeline.run",
			"sequence": t.seq,
			"error":    err.Error(),
		}).Warn("Failed to post canvas")
		p.drop(t, DropPostFailed)
		return
	}

	p.stats.posted.Add(1)
	if cb := p.onPosted.Load(); cb != nil {
		(*cb)(t.seq)
	}
	if fps, ok := p.rate.tick(); ok {
		logrus.WithFields(logrus.Fields{
			"function": "Pipeline.run",
			"fps":      fps,
		}).Debug("Framerate")
		if cb := p.onFramerate.Load(); cb != nil {
			(*cb)(fps)
		}
	}
	p.release(t)
}

// checkLocked applies the ordering rules. It must be called with mu held.
func (p *Pipeline) checkLocked(t *task) (DropReason, bool) {
	switch {
	case p.current == nil || p.current.generation != t.handle.generation:
		return DropStaleSource, true
	case p.filter.Load() != t.filter:
		return DropStaleFilter, true
	case int64(t.seq) <= p.lastPosted:
		return DropOutOfOrder, true
	default:
		return 0, false
	}
}

// applyFilter runs the task's filter, converting a panic into an error.
func applyFilter(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFilterPanic, r)
		}
	}()
	return t.filter.filter.Accept(t.buf)
}

// recycle returns a raw buffer to the source that delivered it.
func (p *Pipeline) recycle(handle *sourceHandle, data []byte) {
	handle.adapter.Recycle(data)
	p.stats.recycled.Add(1)
}

func (p *Pipeline) drop(t *task, reason DropReason) {
	p.stats.dropped[reason].Add(1)
	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.drop",
		"sequence": t.seq,
		"reason":   reason.String(),
	}).Trace("Frame dropped")
	if cb := p.onDropped.Load(); cb != nil {
		(*cb)(t.seq, reason)
	}
	p.release(t)
}

// release returns a task to the pool. The raw buffer must already be
// recycled.
func (p *Pipeline) release(t *task) {
	t.data = nil
	t.buf.Data = nil
	t.handle = nil
	t.filter = nil
	p.tasks.Offer(t)
	p.stats.leave()
}

// Close detaches the current source, refuses further frames and waits for
// workers to drain or ctx to end. Close is idempotent.
func (p *Pipeline) Close(ctx context.Context) error {
	p.control.Lock()
	defer p.control.Unlock()

	if p.closed.Swap(true) {
		return nil
	}

	if err := p.setSourceLocked(nil, nil); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Pipeline.Close",
			"error":    err.Error(),
		}).Warn("Failed to detach source")
	}

	p.workers.Close()
	err := p.workers.Wait(ctx)

	logrus.WithFields(logrus.Fields{
		"function":  "Pipeline.Close",
		"posted":    p.stats.posted.Load(),
		"in_flight": p.stats.inFlight.Load(),
	}).Info("Pipeline closed")

	return err
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Ingested:           p.stats.ingested.Load(),
		Posted:             p.stats.posted.Load(),
		Undersized:         p.stats.undersized.Load(),
		Recycled:           p.stats.recycled.Load(),
		DroppedOutOfOrder:  p.stats.dropped[DropOutOfOrder].Load(),
		DroppedStaleSource: p.stats.dropped[DropStaleSource].Load(),
		DroppedStaleFilter: p.stats.dropped[DropStaleFilter].Load(),
		DroppedFilterError: p.stats.dropped[DropFilterError].Load(),
		DroppedNoCanvas:    p.stats.dropped[DropNoCanvas].Load(),
		DroppedPostFailed:  p.stats.dropped[DropPostFailed].Load(),
		TasksAllocated:     p.stats.tasksAllocated.Load(),
		ImageReallocations: p.stats.imageReallocations.Load(),
		InFlight:           p.stats.inFlight.Load(),
		PeakInFlight:       p.stats.peakInFlight.Load(),
		PooledTasks:        p.tasks.Len(),
		Workers:            p.workers.Workers(),
		PeakWorkers:        p.workers.PeakWorkers(),
		FPS:                p.rate.last(),
		Generation:         p.generation.Load(),
	}

	p.mu.Lock()
	if p.current != nil {
		s.SourceID = p.current.adapter.ID()
	}
	p.mu.Unlock()

	return s
}

// Transform returns the current display transform, or nil before a source
// has been attached.
func (p *Pipeline) Transform() *transform.Transform {
	return p.transform.Load()
}

// FilterName returns the name of the active filter.
func (p *Pipeline) FilterName() string {
	return p.filter.Load().name
}

// Closed reports whether Close has been called.
func (p *Pipeline) Closed() bool {
	return p.closed.Load()
}

func filterName(f frame.Filter) string {
	if named, ok := f.(interface{ GetName() string }); ok {
		return named.GetName()
	}
	return fmt.Sprintf("%T", f)
}
