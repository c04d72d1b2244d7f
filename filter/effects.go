package filter

import (
	"fmt"
	"strings"

	"github.com/opd-ai/retrocam/frame"
)

// Effect post-processes the decoded bitmap of a frame in place.
type Effect interface {
	// Apply modifies buf.Bitmap; buf.Image may be used as scratch
	Apply(buf *frame.Buffer) error
	// GetName returns the effect name for identification
	GetName() string
}

// Chain applies a sequence of effects after a base filter.
//
// A Chain is immutable once built, so one instance can serve every worker.
type Chain struct {
	base    frame.Filter
	effects []Effect
}

// NewChain creates a filter that runs base and then each effect in order.
// A nil base defaults to the 480x360 YUV decoder.
func NewChain(base frame.Filter, effects ...Effect) *Chain {
	if base == nil {
		base = NewDefaultYUVFilter()
	}
	return &Chain{
		base:    base,
		effects: append([]Effect(nil), effects...),
	}
}

// Accept runs the base filter and then every effect on the result.
func (c *Chain) Accept(buf *frame.Buffer) error {
	if buf == nil {
		return fmt.Errorf("input buffer cannot be nil")
	}

	if err := c.base.Accept(buf); err != nil {
		return err
	}

	for i, effect := range c.effects {
		if err := effect.Apply(buf); err != nil {
			return fmt.Errorf("effect %d (%s) failed: %w", i, effect.GetName(), err)
		}
	}

	return nil
}

// EffectiveSize delegates to the base filter; effects never resize.
func (c *Chain) EffectiveSize(frameWidth, frameHeight int) (int, int) {
	return c.base.EffectiveSize(frameWidth, frameHeight)
}

// GetEffectCount returns the number of effects in the chain.
func (c *Chain) GetEffectCount() int {
	return len(c.effects)
}

// GetName joins the effect names.
func (c *Chain) GetName() string {
	names := make([]string, 0, len(c.effects)+1)
	if named, ok := c.base.(interface{ GetName() string }); ok {
		names = append(names, named.GetName())
	}
	for _, effect := range c.effects {
		names = append(names, effect.GetName())
	}
	return strings.Join(names, "+")
}

// BrightnessEffect adjusts the brightness of the bitmap.
type BrightnessEffect struct {
	adjustment int // -255 to +255
}

// NewBrightnessEffect creates a brightness adjustment effect.
// adjustment: -255 (darkest) to +255 (brightest), 0 = no change
func NewBrightnessEffect(adjustment int) *BrightnessEffect {
	if adjustment < -255 {
		adjustment = -255
	}
	if adjustment > 255 {
		adjustment = 255
	}

	return &BrightnessEffect{
		adjustment: adjustment,
	}
}

// Apply shifts every color channel by the adjustment.
func (be *BrightnessEffect) Apply(buf *frame.Buffer) error {
	if err := checkBitmap(buf); err != nil {
		return err
	}

	forEachPixel(buf, func(px []uint8) {
		px[0] = clamp(int(px[0]) + be.adjustment)
		px[1] = clamp(int(px[1]) + be.adjustment)
		px[2] = clamp(int(px[2]) + be.adjustment)
	})

	return nil
}

// GetName returns the effect name.
func (be *BrightnessEffect) GetName() string {
	return fmt.Sprintf("Brightness(%+d)", be.adjustment)
}

// ContrastEffect adjusts the contrast of the bitmap.
type ContrastEffect struct {
	factor float64 // 0.0 = gray, 1.0 = normal, 2.0 = high contrast
}

// NewContrastEffect creates a contrast adjustment effect.
// factor: 0.0 (no contrast/gray) to 3.0 (high contrast), 1.0 = no change
func NewContrastEffect(factor float64) *ContrastEffect {
	if factor < 0.0 {
		factor = 0.0
	}
	if factor > 3.0 {
		factor = 3.0
	}

	return &ContrastEffect{
		factor: factor,
	}
}

// Apply scales every channel around the midpoint.
func (ce *ContrastEffect) Apply(buf *frame.Buffer) error {
	if err := checkBitmap(buf); err != nil {
		return err
	}

	const midpoint = 128.0

	forEachPixel(buf, func(px []uint8) {
		for c := 0; c < 3; c++ {
			v := midpoint + (float64(px[c])-midpoint)*ce.factor
			px[c] = clamp(int(v + 0.5))
		}
	})

	return nil
}

// GetName returns the effect name.
func (ce *ContrastEffect) GetName() string {
	return fmt.Sprintf("Contrast(%.2f)", ce.factor)
}

// GrayscaleEffect replaces every pixel with its luminance.
type GrayscaleEffect struct{}

// NewGrayscaleEffect creates a grayscale conversion effect.
func NewGrayscaleEffect() *GrayscaleEffect {
	return &GrayscaleEffect{}
}

// Apply converts the bitmap to grayscale.
func (ge *GrayscaleEffect) Apply(buf *frame.Buffer) error {
	if err := checkBitmap(buf); err != nil {
		return err
	}

	forEachPixel(buf, func(px []uint8) {
		l := luma(px)
		px[0], px[1], px[2] = l, l, l
	})

	return nil
}

// GetName returns the effect name.
func (ge *GrayscaleEffect) GetName() string {
	return "Grayscale"
}

// PixelateEffect averages square blocks of pixels for a low-resolution look.
type PixelateEffect struct {
	block int // Block edge in pixels (1-64)
}

// NewPixelateEffect creates a pixelation effect.
// block: 1 (no change) to 64 pixels per block edge
func NewPixelateEffect(block int) *PixelateEffect {
	if block < 1 {
		block = 1
	}
	if block > 64 {
		block = 64
	}

	return &PixelateEffect{
		block: block,
	}
}

// Apply replaces every block with its average color.
func (pe *PixelateEffect) Apply(buf *frame.Buffer) error {
	if err := checkBitmap(buf); err != nil {
		return err
	}
	if pe.block == 1 {
		return nil
	}

	img := buf.Bitmap
	width, height := img.Rect.Dx(), img.Rect.Dy()

	for by := 0; by < height; by += pe.block {
		for bx := 0; bx < width; bx += pe.block {
			ey := minInt(by+pe.block, height)
			ex := minInt(bx+pe.block, width)

			var sum [3]int
			count := 0
			for y := by; y < ey; y++ {
				for x := bx; x < ex; x++ {
					i := y*img.Stride + x*4
					sum[0] += int(img.Pix[i])
					sum[1] += int(img.Pix[i+1])
					sum[2] += int(img.Pix[i+2])
					count++
				}
			}

			r, g, b := uint8(sum[0]/count), uint8(sum[1]/count), uint8(sum[2]/count)
			for y := by; y < ey; y++ {
				for x := bx; x < ex; x++ {
					i := y*img.Stride + x*4
					img.Pix[i], img.Pix[i+1], img.Pix[i+2] = r, g, b
				}
			}
		}
	}

	return nil
}

// GetName returns the effect name.
func (pe *PixelateEffect) GetName() string {
	return fmt.Sprintf("Pixelate(%d)", pe.block)
}

func checkBitmap(buf *frame.Buffer) error {
	if buf == nil || buf.Bitmap == nil {
		return fmt.Errorf("input bitmap cannot be nil")
	}
	return nil
}

// forEachPixel calls fn with the RGBA bytes of every pixel in the bitmap.
func forEachPixel(buf *frame.Buffer, fn func(px []uint8)) {
	img := buf.Bitmap
	width, height := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for i := 0; i < len(row); i += 4 {
			fn(row[i : i+4])
		}
	}
}

// luma returns the BT.601 luminance of an RGBA pixel.
func luma(px []uint8) uint8 {
	return uint8((299*int(px[0]) + 587*int(px[1]) + 114*int(px[2])) / 1000)
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
