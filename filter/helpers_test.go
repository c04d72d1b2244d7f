package filter

import (
	"github.com/opd-ai/retrocam/frame"
)

// createTestBuffer builds an NV21 frame with a horizontal luminance ramp and
// neutral chroma.
func createTestBuffer(width, height int) *frame.Buffer {
	buf := frame.NewBuffer(width, height, frame.FormatNV21)
	buf.Data = make([]byte, width*height*3/2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.Data[y*width+x] = byte(x * 255 / maxInt(1, width-1))
		}
	}
	for i := width * height; i < len(buf.Data); i++ {
		buf.Data[i] = 128
	}
	return buf
}

// fillBitmap paints the whole bitmap one opaque color.
func fillBitmap(buf *frame.Buffer, r, g, b uint8) {
	img := buf.Bitmap
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 255
	}
}
