package filter

import (
	"fmt"
	"image/color"

	"github.com/opd-ai/retrocam/frame"
)

const (
	// DefaultOutputWidth is the default decoded bitmap width.
	DefaultOutputWidth = 480
	// DefaultOutputHeight is the default decoded bitmap height.
	DefaultOutputHeight = 360
)

// sampler reads one pixel's Y, Cb and Cr values from raw frame bytes.
type sampler func(data []byte, width, height, x, y int) (yy, cb, cr uint8)

// YUVFilter decodes raw YUV preview frames into RGBA bitmaps.
//
// The output is scaled with nearest-neighbour sampling to fit inside the
// configured output box while keeping the frame's aspect ratio.
type YUVFilter struct {
	width  int
	height int
}

// NewYUVFilter creates a decoder producing bitmaps that fit within width x height.
func NewYUVFilter(width, height int) *YUVFilter {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &YUVFilter{width: width, height: height}
}

// NewDefaultYUVFilter creates the default 480x360 decoder.
func NewDefaultYUVFilter() *YUVFilter {
	return NewYUVFilter(DefaultOutputWidth, DefaultOutputHeight)
}

// Accept decodes buf.Data into buf.Bitmap.
func (f *YUVFilter) Accept(buf *frame.Buffer) error {
	if buf == nil {
		return fmt.Errorf("input buffer cannot be nil")
	}
	if err := buf.Validate(); err != nil {
		return err
	}

	sample, err := samplerFor(buf.Format)
	if err != nil {
		return err
	}

	outW, outH := f.EffectiveSize(buf.Width, buf.Height)
	img := buf.EnsureBitmap(outW, outH)

	for y := 0; y < outH; y++ {
		srcY := y * buf.Height / outH
		row := img.Pix[y*img.Stride : y*img.Stride+outW*4]
		for x := 0; x < outW; x++ {
			srcX := x * buf.Width / outW
			yy, cb, cr := sample(buf.Data, buf.Width, buf.Height, srcX, srcY)
			r, g, b := color.YCbCrToRGB(yy, cb, cr)
			i := x * 4
			row[i] = r
			row[i+1] = g
			row[i+2] = b
			row[i+3] = 0xff
		}
	}

	return nil
}

// EffectiveSize returns the largest size with the frame's aspect ratio that
// fits inside the filter's output box.
func (f *YUVFilter) EffectiveSize(frameWidth, frameHeight int) (int, int) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return f.width, f.height
	}
	if frameWidth*f.height > frameHeight*f.width {
		return f.width, maxInt(1, frameHeight*f.width/frameWidth)
	}
	return maxInt(1, frameWidth*f.height/frameHeight), f.height
}

// GetName returns the filter name.
func (f *YUVFilter) GetName() string {
	return fmt.Sprintf("YUV(%dx%d)", f.width, f.height)
}

func samplerFor(format frame.Format) (sampler, error) {
	switch format {
	case frame.FormatNV21:
		return sampleNV21, nil
	case frame.FormatYV12:
		return sampleYV12, nil
	case frame.FormatYUY2:
		return sampleYUY2, nil
	default:
		return nil, fmt.Errorf("%w: %s", frame.ErrUnsupportedFormat, format)
	}
}

// sampleNV21 reads a full Y plane followed by interleaved V/U pairs.
func sampleNV21(data []byte, width, height, x, y int) (uint8, uint8, uint8) {
	c := width*height + (y/2)*width + (x/2)*2
	return data[y*width+x], data[c+1], data[c]
}

// sampleYV12 reads a Y plane followed by quarter-size V and U planes.
func sampleYV12(data []byte, width, height, x, y int) (uint8, uint8, uint8) {
	cw, ch := width/2, height/2
	off := (y/2)*cw + x/2
	v := width*height + off
	u := width*height + cw*ch + off
	return data[y*width+x], data[u], data[v]
}

// sampleYUY2 reads packed Y0 U Y1 V macropixels.
func sampleYUY2(data []byte, width, _ int, x, y int) (uint8, uint8, uint8) {
	pair := y*width*2 + (x/2)*4
	return data[pair+(x&1)*2], data[pair+1], data[pair+3]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
