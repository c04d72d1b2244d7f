package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opd-ai/retrocam/display"
	"github.com/opd-ai/retrocam/filter"
	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	simtest "github.com/opd-ai/retrocam/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrNilSink)

	sink, err := display.NewSink(simtest.NewRecordingSurface(8, 8))
	require.NoError(t, err)

	bad := DefaultConfig()
	bad.ClearPasses = 0
	_, err = New(sink, bad)
	assert.ErrorIs(t, err, interfaces.ErrInvalidConfig)

	p, err := New(sink, nil)
	require.NoError(t, err)
	defer p.Close(context.Background())

	assert.Equal(t, filter.NewDefaultYUVFilter().GetName(), p.FilterName())
	assert.Nil(t, p.Transform(), "no transform before a source is attached")
	assert.Equal(t, uint64(0), p.Stats().Generation)
}

// TestBasicFlow delivers five frames in order with an instant filter.
func TestBasicFlow(t *testing.T) {
	h := newHarness(t, 640, 480, nil)
	require.NoError(t, h.p.SetFilter(newGatedFilter(0)))

	cam := simtest.NewSimulatedCamera(640, 480, frame.FormatNV21)
	h.attach(t, cam)
	assert.Equal(t, 2, cam.Queued(), "primed with two buffers")

	for seq := uint64(0); seq < 5; seq++ {
		require.True(t, cam.DeliverFrame())
		h.waitPosted(t, seq)
	}
	h.waitIdle(t)

	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, h.surface.seqs())
	assert.Len(t, h.surface.Posts(), 5)
	assert.Equal(t, 5, cam.Recycled())
	assert.Equal(t, 0, cam.Outstanding())

	stats := h.p.Stats()
	assert.Equal(t, uint64(5), stats.Ingested)
	assert.Equal(t, uint64(5), stats.Posted)
	assert.Equal(t, uint64(5), stats.Recycled)
	assert.Equal(t, uint64(0), stats.Dropped())
	assert.NotEmpty(t, stats.SourceID)
}

// TestOutOfOrderCompletion finishes frame 0 after frames 1 and 2 were posted.
func TestOutOfOrderCompletion(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	g := newGatedFilter(0)
	require.NoError(t, h.p.SetFilter(g))

	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, cam)

	release0 := g.hold(0)
	release1 := g.hold(1)
	release2 := g.hold(2)

	require.True(t, cam.DeliverFrame())
	require.True(t, cam.DeliverFrame())
	release1()
	h.waitPosted(t, 1)

	require.True(t, cam.DeliverFrame(), "frame 1's buffer was recycled")
	release2()
	h.waitPosted(t, 2)

	release0()
	h.waitDropped(t, 0, DropOutOfOrder)
	h.waitIdle(t)

	assert.Equal(t, []uint64{1, 2}, h.surface.seqs())
	assert.Equal(t, 3, cam.Recycled())
	assert.Equal(t, 0, cam.Outstanding())
	assert.Equal(t, uint64(1), h.p.Stats().DroppedOutOfOrder)
}

// TestSourceSwapMidFlight retires a source while its frame is being filtered.
func TestSourceSwapMidFlight(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	g := newGatedFilter(0)
	require.NoError(t, h.p.SetFilter(g))

	oldCam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, oldCam)

	release0 := g.hold(0)
	require.True(t, oldCam.DeliverFrame())

	newCam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, newCam)
	assert.False(t, oldCam.Running())
	assert.Equal(t, uint64(2), h.p.Stats().Generation)

	require.True(t, newCam.DeliverFrame())
	h.waitPosted(t, 1)

	release0()
	h.waitDropped(t, 0, DropStaleSource)
	h.waitIdle(t)

	assert.Equal(t, []uint64{1}, h.surface.seqs())
	assert.Equal(t, 1, oldCam.Recycled(), "stale buffer goes back to the camera that lent it")
	assert.Equal(t, 0, oldCam.Outstanding())
	assert.Equal(t, 1, newCam.Recycled())
	assert.Equal(t, 0, newCam.Outstanding())
	// three neutral clears plus the new source's frame
	assert.Len(t, h.surface.Posts(), 4)
}

func TestUndersizedDelivery(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, cam)

	cam.DeliverUndersized()

	stats := h.p.Stats()
	assert.Equal(t, uint64(1), stats.Undersized)
	assert.Equal(t, uint64(0), stats.Ingested)
	assert.Equal(t, uint64(0), stats.Recycled)
	assert.Equal(t, uint64(0), stats.TasksAllocated)
	assert.Equal(t, int64(0), stats.InFlight)
	assert.Empty(t, h.surface.Posts())
}

func TestFilterFailure(t *testing.T) {
	tests := []struct {
		name string
		arm  func(g *gatedFilter)
	}{
		{"error", func(g *gatedFilter) { g.failOn(0, errors.New("bad frame")) }},
		{"panic", func(g *gatedFilter) { g.panicOn(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 16, 16, nil)
			g := newGatedFilter(0)
			tt.arm(g)
			require.NoError(t, h.p.SetFilter(g))

			cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
			h.attach(t, cam)

			require.True(t, cam.DeliverFrame())
			h.waitDropped(t, 0, DropFilterError)
			assert.Equal(t, 1, cam.Recycled())
			assert.Empty(t, h.surface.seqs())

			require.True(t, cam.DeliverFrame())
			h.waitPosted(t, 1)
			h.waitIdle(t)

			assert.Equal(t, []uint64{1}, h.surface.seqs())
			assert.Equal(t, 0, cam.Outstanding())
			assert.Equal(t, uint64(1), h.p.Stats().DroppedFilterError)
		})
	}
}

// TestResolutionChange reconfigures the camera and checks that the recycled
// task reallocates its image plane once.
func TestResolutionChange(t *testing.T) {
	h := newHarness(t, 640, 480, nil)
	require.NoError(t, h.p.SetFilter(newGatedFilter(0)))

	cam := simtest.NewSimulatedCamera(640, 480, frame.FormatNV21)
	h.attach(t, cam)
	require.True(t, cam.DeliverFrame())
	h.waitPosted(t, 0)
	h.waitIdle(t)

	cam.SetParameters(interfaces.SourceParams{Width: 320, Height: 240, Format: frame.FormatNV21})
	h.attach(t, cam)
	require.True(t, cam.DeliverFrame())
	h.waitPosted(t, 1)
	h.waitIdle(t)

	stats := h.p.Stats()
	assert.Equal(t, uint64(1), stats.TasksAllocated)
	assert.Equal(t, uint64(1), stats.ImageReallocations)
	assert.Equal(t, uint64(2), stats.Posted)
	assert.Equal(t, 1, stats.PooledTasks)
	assert.Equal(t, []uint64{0, 1}, h.surface.seqs())

	require.True(t, cam.DeliverFrame())
	h.waitPosted(t, 2)
	h.waitIdle(t)
	assert.Equal(t, uint64(1), h.p.Stats().ImageReallocations, "same geometry reuses the plane")
}

func TestNoCanvas(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	require.NoError(t, h.p.SetFilter(newGatedFilter(0)))
	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, cam)

	h.surface.FailNextLocks(1)
	require.True(t, cam.DeliverFrame())
	h.waitDropped(t, 0, DropNoCanvas)

	require.True(t, cam.DeliverFrame())
	h.waitPosted(t, 1)
	h.waitIdle(t)

	assert.Equal(t, 2, cam.Recycled())
	assert.Equal(t, uint64(1), h.p.Stats().DroppedNoCanvas)
}

func TestSetSourceErrors(t *testing.T) {
	h := newHarness(t, 16, 16, nil)

	bad := simtest.NewSimulatedCamera(16, 16, frame.FormatUnknown)
	err := h.p.SetSource(bad, nil)
	assert.ErrorIs(t, err, ErrInvalidSourceParams)
	assert.ErrorIs(t, err, frame.ErrUnsupportedFormat)
	assert.Equal(t, uint64(0), h.p.Stats().Generation)

	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	cam.SetStartError(errors.New("camera busy"))
	assert.ErrorIs(t, h.p.SetSource(cam, nil), ErrStartPreview)

	// the camera that failed to start is not left installed
	assert.Empty(t, h.p.Stats().SourceID)
	assert.Zero(t, cam.Queued(), "primed buffers are withdrawn")
	assert.False(t, cam.DeliverFrame())

	good := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, good)
	assert.Empty(t, h.surface.Posts(), "no clears after a failed attach")
	sourceID := h.p.Stats().SourceID
	assert.NotEmpty(t, sourceID)

	odd := simtest.NewSimulatedCamera(15, 9, frame.FormatNV21)
	err = h.p.SetSource(odd, nil)
	assert.ErrorIs(t, err, ErrInvalidSourceParams)
	assert.ErrorIs(t, err, frame.ErrInvalidDimensions)
	assert.Equal(t, sourceID, h.p.Stats().SourceID, "a rejected camera leaves the current one attached")
	assert.True(t, good.Running())
}

func TestSourceErrorsAreNotFatal(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	require.NoError(t, h.p.SetFilter(newGatedFilter(0)))
	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, cam)

	cam.TriggerError(errors.New("driver hiccup"))
	require.True(t, cam.DeliverFrame())
	h.waitPosted(t, 0)
}

func TestSetFilterNil(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	assert.ErrorIs(t, h.p.SetFilter(nil), ErrNilFilter)
}

func TestTransformFollowsFilterAndDisplay(t *testing.T) {
	h := newHarness(t, 960, 720, nil)
	cam := simtest.NewSimulatedCamera(640, 480, frame.FormatNV21)
	require.NoError(t, h.p.SetSource(cam, &interfaces.SourceInfo{Orientation: 90}))

	// default 480x360 bitmap rotated to 360x480, fitted into 960x720
	tr := h.p.Transform()
	require.NotNil(t, tr)
	assert.Equal(t, 90, tr.Rotation)
	assert.Equal(t, 1.5, tr.Scale)

	require.NoError(t, h.p.SetFilter(filter.NewYUVFilter(240, 180)))
	assert.Equal(t, 3.0, h.p.Transform().Scale)

	require.NoError(t, h.p.OnDisplayGeometryChanged(360, 240))
	assert.Equal(t, 1.0, h.p.Transform().Scale)

	h.surface.SetRotation(90)
	require.NoError(t, h.p.OnDisplayGeometryChanged(0, 0))
	assert.Equal(t, 0, h.p.Transform().Rotation)
}

func TestFrontCameraIsMirrored(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	require.NoError(t, h.p.SetSource(cam, &interfaces.SourceInfo{Facing: interfaces.FacingFront, Orientation: 270}))

	tr := h.p.Transform()
	require.NotNil(t, tr)
	assert.True(t, tr.Mirror)
	assert.Equal(t, 270, tr.Rotation)
}

func TestClose(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	g := newGatedFilter(0)
	require.NoError(t, h.p.SetFilter(g))
	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, cam)

	release := g.hold(0)
	require.True(t, cam.DeliverFrame())

	done := make(chan error, 1)
	go func() { done <- h.p.Close(context.Background()) }()

	require.Eventually(t, func() bool { return !cam.Running() }, waitTimeout, time.Millisecond)
	release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Close did not drain")
	}

	assert.True(t, h.p.Closed())
	assert.Equal(t, 0, cam.Outstanding())
	assert.Equal(t, uint64(1), h.p.Stats().DroppedStaleSource)
	assert.Equal(t, 0, h.p.Stats().Workers)
	assert.ErrorIs(t, h.p.SetSource(cam, nil), ErrClosed)
	assert.NoError(t, h.p.SetSource(nil, nil))
	assert.NoError(t, h.p.Close(context.Background()))
}

func TestCloseTimeout(t *testing.T) {
	h := newHarness(t, 16, 16, nil)
	g := newGatedFilter(0)
	require.NoError(t, h.p.SetFilter(g))
	cam := simtest.NewSimulatedCamera(16, 16, frame.FormatNV21)
	h.attach(t, cam)

	release := g.hold(0)
	defer release()
	require.True(t, cam.DeliverFrame())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.p.Close(ctx), context.DeadlineExceeded)
}

func TestDropReasonString(t *testing.T) {
	tests := map[DropReason]string{
		DropOutOfOrder:  "out_of_order",
		DropStaleSource: "stale_source",
		DropStaleFilter: "stale_filter",
		DropFilterError: "filter_error",
		DropNoCanvas:    "no_canvas",
		DropPostFailed:  "post_failed",
		DropReason(99):  "unknown",
	}
	for reason, want := range tests {
		assert.Equal(t, want, reason.String())
	}
}
