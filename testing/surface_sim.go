package testing

import (
	"errors"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// ErrCanvasNotLocked is returned when posting a canvas that is not locked.
var ErrCanvasNotLocked = errors.New("canvas is not locked")

// surfaceBuffers is the number of canvases a RecordingSurface rotates through.
const surfaceBuffers = 2

// PostRecord describes one posted canvas.
type PostRecord struct {
	Index     int
	Digest    [blake2b.Size256]byte
	Timestamp time.Time
}

// RecordingSurface is a double-buffered in-memory surface that records a
// digest of every posted canvas.
type RecordingSurface struct {
	// sem holds a token while a canvas is locked
	sem chan struct{}

	mu        sync.Mutex
	width     int
	height    int
	rotation  int
	canvases  [surfaceBuffers]*image.RGBA
	next      int
	locked    *image.RGBA
	failLocks int
	posts     []PostRecord
	last      *image.RGBA
}

// NewRecordingSurface creates a surface of the given size.
func NewRecordingSurface(width, height int) *RecordingSurface {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewRecordingSurface",
		"width":    width,
		"height":   height,
	}).Info("Creating recording surface")

	s := &RecordingSurface{
		sem:    make(chan struct{}, 1),
		width:  width,
		height: height,
	}
	s.allocate()
	return s
}

func (s *RecordingSurface) allocate() {
	for i := range s.canvases {
		s.canvases[i] = image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	}
}

// LockCanvas returns the next back buffer, blocking while another canvas is
// locked. It returns nil while failures requested by FailNextLocks remain.
func (s *RecordingSurface) LockCanvas() draw.Image {
	s.mu.Lock()
	if s.failLocks > 0 {
		s.failLocks--
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.sem <- struct{}{}

	s.mu.Lock()
	defer s.mu.Unlock()
	canvas := s.canvases[s.next]
	s.next = (s.next + 1) % surfaceBuffers
	s.locked = canvas
	return canvas
}

// UnlockCanvasAndPost records and publishes the locked canvas.
func (s *RecordingSurface) UnlockCanvasAndPost(canvas draw.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rgba, ok := canvas.(*image.RGBA)
	if !ok || s.locked == nil || rgba != s.locked {
		return ErrCanvasNotLocked
	}

	s.posts = append(s.posts, PostRecord{
		Index:     len(s.posts),
		Digest:    blake2b.Sum256(rgba.Pix),
		Timestamp: time.Now(),
	})
	if s.last == nil || !s.last.Rect.Eq(rgba.Rect) {
		s.last = image.NewRGBA(rgba.Rect)
	}
	copy(s.last.Pix, rgba.Pix)
	s.locked = nil

	<-s.sem
	return nil
}

// Size returns the surface geometry.
func (s *RecordingSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Rotation returns the display rotation.
func (s *RecordingSurface) Rotation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation
}

// SetRotation changes the display rotation reported to the pipeline.
func (s *RecordingSurface) SetRotation(degrees int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = degrees
}

// Resize replaces the canvases with ones of the new size. It must not be
// called while a canvas is locked.
func (s *RecordingSurface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	s.allocate()
}

// FailNextLocks makes the next n LockCanvas calls return nil.
func (s *RecordingSurface) FailNextLocks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocks = n
}

// Posts returns a copy of the post records.
func (s *RecordingSurface) Posts() []PostRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PostRecord(nil), s.posts...)
}

// Digests returns the digest of every post in order.
func (s *RecordingSurface) Digests() [][blake2b.Size256]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	digests := make([][blake2b.Size256]byte, len(s.posts))
	for i, p := range s.posts {
		digests[i] = p.Digest
	}
	return digests
}

// Last returns a copy of the most recently posted canvas, or nil.
func (s *RecordingSurface) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	img := image.NewRGBA(s.last.Rect)
	copy(img.Pix, s.last.Pix)
	return img
}
