package filter

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/opd-ai/retrocam/frame"
)

// Dither selects how PaletteEffect distributes quantization error.
type Dither int

const (
	// DitherNone maps every pixel to its nearest shade.
	DitherNone Dither = iota
	// DitherFloydSteinberg diffuses error to neighbouring pixels.
	DitherFloydSteinberg
	// DitherOrdered applies a 4x4 Bayer threshold matrix.
	DitherOrdered
)

// String returns the dither mode name.
func (d Dither) String() string {
	switch d {
	case DitherNone:
		return "none"
	case DitherFloydSteinberg:
		return "floyd-steinberg"
	case DitherOrdered:
		return "ordered"
	default:
		return fmt.Sprintf("Dither(%d)", int(d))
	}
}

// GameBoyPalette is the four-shade green palette of the original handheld,
// darkest first.
var GameBoyPalette = []color.RGBA{
	{R: 15, G: 56, B: 15, A: 255},
	{R: 48, G: 98, B: 48, A: 255},
	{R: 139, G: 172, B: 15, A: 255},
	{R: 155, G: 188, B: 15, A: 255},
}

// bayer4 holds the 4x4 ordered dither thresholds in sixteenths.
var bayer4 = [4][4]int{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// PaletteEffect quantizes the bitmap's luminance onto a small palette.
//
// Shades are assigned to evenly spaced luminance levels in the order of
// their own luminance, so any palette renders as a tone ramp.
type PaletteEffect struct {
	shades []color.RGBA
	dither Dither
}

// NewPaletteEffect creates a palette quantization effect. Palettes with fewer
// than two colors fall back to GameBoyPalette.
func NewPaletteEffect(palette []color.RGBA, dither Dither) *PaletteEffect {
	if len(palette) < 2 {
		palette = GameBoyPalette
	}

	shades := append([]color.RGBA(nil), palette...)
	sort.SliceStable(shades, func(i, j int) bool {
		return rgbaLuma(shades[i]) < rgbaLuma(shades[j])
	})

	return &PaletteEffect{
		shades: shades,
		dither: dither,
	}
}

// NewGameBoyEffect creates the four-shade Floyd-Steinberg look.
func NewGameBoyEffect() *PaletteEffect {
	return NewPaletteEffect(GameBoyPalette, DitherFloydSteinberg)
}

// Apply quantizes the bitmap in place.
func (pe *PaletteEffect) Apply(buf *frame.Buffer) error {
	if err := checkBitmap(buf); err != nil {
		return err
	}

	switch pe.dither {
	case DitherFloydSteinberg:
		pe.applyFloydSteinberg(buf)
	case DitherOrdered:
		pe.applyOrdered(buf)
	default:
		forEachPixel(buf, func(px []uint8) {
			pe.paint(px, pe.level(int(luma(px))))
		})
	}

	return nil
}

// GetName returns the effect name.
func (pe *PaletteEffect) GetName() string {
	return fmt.Sprintf("Palette(%d,%s)", len(pe.shades), pe.dither)
}

// applyFloydSteinberg diffuses error across two rolling rows kept in the
// buffer's scratch plane. Errors are stored in sixteenths.
func (pe *PaletteEffect) applyFloydSteinberg(buf *frame.Buffer) {
	img := buf.Bitmap
	width, height := img.Rect.Dx(), img.Rect.Dy()

	rows := buf.Scratch(2 * (width + 2))
	for i := range rows {
		rows[i] = 0
	}
	cur, next := rows[:width+2], rows[width+2:]

	for y := 0; y < height; y++ {
		for i := range next {
			next[i] = 0
		}
		for x := 0; x < width; x++ {
			px := img.Pix[y*img.Stride+x*4:]
			want := int(luma(px)) + int(cur[x+1])/16
			if want < 0 {
				want = 0
			} else if want > 255 {
				want = 255
			}

			level := pe.level(want)
			e := int32(want - pe.levelValue(level))
			pe.paint(px, level)

			cur[x+2] += e * 7
			next[x] += e * 3
			next[x+1] += e * 5
			next[x+2] += e
		}
		cur, next = next, cur
	}
}

func (pe *PaletteEffect) applyOrdered(buf *frame.Buffer) {
	img := buf.Bitmap
	width, height := img.Rect.Dx(), img.Rect.Dy()
	step := 255 / (len(pe.shades) - 1)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := img.Pix[y*img.Stride+x*4:]
			bias := (bayer4[y&3][x&3]*2 - 15) * step / 32
			pe.paint(px, pe.level(int(luma(px))+bias))
		}
	}
}

// level returns the index of the shade nearest to luminance v.
func (pe *PaletteEffect) level(v int) int {
	n := len(pe.shades) - 1
	idx := (v*n + 127) / 255
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

// levelValue returns the luminance a shade index stands for.
func (pe *PaletteEffect) levelValue(level int) int {
	return level * 255 / (len(pe.shades) - 1)
}

func (pe *PaletteEffect) paint(px []uint8, level int) {
	c := pe.shades[level]
	px[0], px[1], px[2], px[3] = c.R, c.G, c.B, 0xff
}

func rgbaLuma(c color.RGBA) int {
	return 299*int(c.R) + 587*int(c.G) + 114*int(c.B)
}
