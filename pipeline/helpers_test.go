package pipeline

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/retrocam/display"
	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	simtest "github.com/opd-ai/retrocam/testing"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

const waitTimeout = 2 * time.Second

// seqColor encodes a sequence number into an opaque color. The blue channel
// marks frame content; neutral clears have zero blue.
func seqColor(seq uint64, tag uint8) color.RGBA {
	return color.RGBA{R: uint8(seq), G: uint8(seq >> 8), B: 0x80 | tag, A: 0xff}
}

// gatedFilter paints each frame a solid color encoding its sequence number.
// Frames with an armed gate block in Accept until the gate is released.
type gatedFilter struct {
	mu     sync.Mutex
	tag    uint8
	gates  map[uint64]chan struct{}
	fails  map[uint64]error
	panics map[uint64]bool
	delay  func(seq uint64) time.Duration
}

func newGatedFilter(tag uint8) *gatedFilter {
	return &gatedFilter{
		tag:    tag,
		gates:  make(map[uint64]chan struct{}),
		fails:  make(map[uint64]error),
		panics: make(map[uint64]bool),
	}
}

// hold arms a gate for seq and returns its release function.
func (g *gatedFilter) hold(seq uint64) func() {
	ch := make(chan struct{})
	g.mu.Lock()
	g.gates[seq] = ch
	g.mu.Unlock()
	return func() { close(ch) }
}

func (g *gatedFilter) failOn(seq uint64, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fails[seq] = err
}

func (g *gatedFilter) panicOn(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.panics[seq] = true
}

func (g *gatedFilter) Accept(buf *frame.Buffer) error {
	g.mu.Lock()
	gate := g.gates[buf.Seq]
	err := g.fails[buf.Seq]
	panics := g.panics[buf.Seq]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if g.delay != nil {
		time.Sleep(g.delay(buf.Seq))
	}
	if panics {
		panic("filter exploded")
	}
	if err != nil {
		return err
	}

	img := buf.EnsureBitmap(buf.Width, buf.Height)
	draw.Draw(img, img.Bounds(), image.NewUniform(seqColor(buf.Seq, g.tag)), image.Point{}, draw.Src)
	return nil
}

func (g *gatedFilter) EffectiveSize(frameWidth, frameHeight int) (int, int) {
	return frameWidth, frameHeight
}

func (g *gatedFilter) GetName() string {
	return "gated"
}

// seqSurface decodes the frame color at the canvas center on every post.
type seqSurface struct {
	*simtest.RecordingSurface

	mu     sync.Mutex
	frames []color.RGBA
}

func (s *seqSurface) UnlockCanvasAndPost(canvas draw.Image) error {
	b := canvas.Bounds()
	c := color.RGBAModel.Convert(canvas.At(b.Dx()/2, b.Dy()/2)).(color.RGBA)
	if c.B&0x80 != 0 {
		s.mu.Lock()
		s.frames = append(s.frames, c)
		s.mu.Unlock()
	}
	return s.RecordingSurface.UnlockCanvasAndPost(canvas)
}

// tags returns the filter tag of every posted frame in post order.
func (s *seqSurface) tags() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint8, len(s.frames))
	for i, c := range s.frames {
		out[i] = c.B &^ 0x80
	}
	return out
}

// seqs returns the sequence numbers of the posted frames in post order.
func (s *seqSurface) seqs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.frames))
	for i, c := range s.frames {
		out[i] = uint64(c.R) | uint64(c.G)<<8
	}
	return out
}

type dropEvent struct {
	seq    uint64
	reason DropReason
}

// harness bundles a pipeline with simulated collaborators and event streams.
type harness struct {
	p       *Pipeline
	surface *seqSurface
	posted  chan uint64
	dropped chan dropEvent
}

func testConfig() *interfaces.PipelineConfig {
	cfg := DefaultConfig()
	cfg.BufferCount = 2
	cfg.WorkerIdleTimeout = time.Second
	return cfg
}

func newHarness(t *testing.T, width, height int, cfg *interfaces.PipelineConfig) *harness {
	t.Helper()

	surface := &seqSurface{RecordingSurface: simtest.NewRecordingSurface(width, height)}
	sink, err := display.NewSink(surface)
	require.NoError(t, err)
	sink.SetScaler(draw.NearestNeighbor)

	if cfg == nil {
		cfg = testConfig()
	}
	p, err := New(sink, cfg)
	require.NoError(t, err)

	h := &harness{
		p:       p,
		surface: surface,
		posted:  make(chan uint64, 1024),
		dropped: make(chan dropEvent, 1024),
	}
	p.OnFramePosted(func(seq uint64) { h.posted <- seq })
	p.OnFrameDropped(func(seq uint64, reason DropReason) { h.dropped <- dropEvent{seq, reason} })

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = p.Close(ctx)
	})
	return h
}

func (h *harness) attach(t *testing.T, cam *simtest.SimulatedCamera) {
	t.Helper()
	require.NoError(t, h.p.SetSource(cam, &interfaces.SourceInfo{}))
}

func (h *harness) waitPosted(t *testing.T, want uint64) {
	t.Helper()
	select {
	case got := <-h.posted:
		require.Equal(t, want, got, "unexpected posted sequence")
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for post of sequence %d", want)
	}
}

func (h *harness) waitDropped(t *testing.T, want uint64, reason DropReason) {
	t.Helper()
	select {
	case got := <-h.dropped:
		require.Equal(t, dropEvent{want, reason}, got, "unexpected drop")
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for drop of sequence %d (%s)", want, reason)
	}
}

// waitIdle waits until no task is in flight.
func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return h.p.Stats().InFlight == 0 }, waitTimeout, time.Millisecond)
}
