package frame

import (
	"fmt"
	"image"
)

// scratchRows is the number of extra rows appended to the Image scratch plane.
const scratchRows = 4

// Buffer is the unit of work passed through a Filter.
//
// Image and Bitmap belong to the pipeline and are reused across frames of the
// same geometry; Data is on loan from the frame source for a single frame.
type Buffer struct {
	Data   []byte      // Raw frame bytes, on loan from the source
	Image  []int32     // Scratch plane, width*height + width*4 words
	Bitmap *image.RGBA // Display-ready output
	Width  int         // Frame width in pixels
	Height int         // Frame height in pixels
	Format Format      // Layout of Data
	Seq    uint64      // Ingest sequence number
}

// NewBuffer allocates the pipeline-owned planes for frames of the given geometry.
func NewBuffer(width, height int, format Format) *Buffer {
	return &Buffer{
		Image:  make([]int32, width*height+width*scratchRows),
		Bitmap: image.NewRGBA(image.Rect(0, 0, width, height)),
		Width:  width,
		Height: height,
		Format: format,
	}
}

// Reset prepares the buffer for a frame of the given geometry. The Image
// plane is reallocated if and only if the dimensions differ from the ones it
// was allocated for; Reset reports whether that happened. The bitmap is left
// to the filter, which resizes it through EnsureBitmap.
func (b *Buffer) Reset(width, height int, format Format) bool {
	b.Format = format
	if b.Image != nil && b.Matches(width, height) {
		return false
	}
	b.Image = make([]int32, width*height+width*scratchRows)
	b.Width = width
	b.Height = height
	return true
}

// Matches reports whether the buffer's planes were allocated for width x height.
func (b *Buffer) Matches(width, height int) bool {
	return b.Width == width && b.Height == height
}

// EnsureBitmap returns an RGBA bitmap of exactly width x height, reusing the
// current one when its bounds already match.
func (b *Buffer) EnsureBitmap(width, height int) *image.RGBA {
	if b.Bitmap == nil || b.Bitmap.Rect.Dx() != width || b.Bitmap.Rect.Dy() != height {
		b.Bitmap = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	return b.Bitmap
}

// Scratch returns at least n words of scratch space, backed by Image when it
// is large enough.
func (b *Buffer) Scratch(n int) []int32 {
	if n <= len(b.Image) {
		return b.Image[:n]
	}
	return make([]int32, n)
}

// Validate checks that Data holds a complete frame for the buffer's geometry.
func (b *Buffer) Validate() error {
	size, err := BufferSize(b.Width, b.Height, b.Format)
	if err != nil {
		return err
	}
	if len(b.Data) < size {
		return fmt.Errorf("%w: got %d bytes, need %d for %dx%d %s",
			ErrBufferTooSmall, len(b.Data), size, b.Width, b.Height, b.Format)
	}
	return nil
}

// Filter turns a raw frame into a display-ready bitmap.
//
// Accept is called concurrently from many goroutines, each with its own
// Buffer. EffectiveSize reports the bitmap dimensions Accept produces for a
// frame of the given size; the display transform is derived from it.
type Filter interface {
	Accept(buf *Buffer) error
	EffectiveSize(frameWidth, frameHeight int) (width, height int)
}

// FilterFunc adapts a plain function to the Filter interface. The effective
// size equals the frame size.
type FilterFunc func(buf *Buffer) error

// Accept calls f(buf).
func (f FilterFunc) Accept(buf *Buffer) error {
	return f(buf)
}

// EffectiveSize returns the frame size unchanged.
func (f FilterFunc) EffectiveSize(frameWidth, frameHeight int) (int, int) {
	return frameWidth, frameHeight
}
