package filter

import (
	"image/color"
	"testing"

	"github.com/opd-ai/retrocam/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isPaletteColor(px []uint8, palette []color.RGBA) bool {
	for _, c := range palette {
		if px[0] == c.R && px[1] == c.G && px[2] == c.B {
			return true
		}
	}
	return false
}

func TestPaletteEffect_AllModesUsePaletteColors(t *testing.T) {
	for _, dither := range []Dither{DitherNone, DitherFloydSteinberg, DitherOrdered} {
		t.Run(dither.String(), func(t *testing.T) {
			buf := createTestBuffer(32, 16)
			require.NoError(t, NewYUVFilter(32, 16).Accept(buf))

			effect := NewPaletteEffect(GameBoyPalette, dither)
			require.NoError(t, effect.Apply(buf))

			img := buf.Bitmap
			for i := 0; i < len(img.Pix); i += 4 {
				require.True(t, isPaletteColor(img.Pix[i:i+4], GameBoyPalette), "pixel %d not in palette", i/4)
			}
		})
	}
}

func TestPaletteEffect_Extremes(t *testing.T) {
	buf := frame.NewBuffer(4, 4, frame.FormatNV21)
	fillBitmap(buf, 0, 0, 0)
	require.NoError(t, NewGameBoyEffect().Apply(buf))
	darkest := GameBoyPalette[0]
	assert.Equal(t, []uint8{darkest.R, darkest.G, darkest.B, 255}, buf.Bitmap.Pix[0:4])

	fillBitmap(buf, 255, 255, 255)
	require.NoError(t, NewGameBoyEffect().Apply(buf))
	lightest := GameBoyPalette[3]
	assert.Equal(t, []uint8{lightest.R, lightest.G, lightest.B, 255}, buf.Bitmap.Pix[0:4])
}

func TestPaletteEffect_SortsShadesByLuminance(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}

	effect := NewPaletteEffect([]color.RGBA{white, black}, DitherNone)
	buf := frame.NewBuffer(1, 1, frame.FormatNV21)
	fillBitmap(buf, 10, 10, 10)

	require.NoError(t, effect.Apply(buf))
	assert.Equal(t, uint8(0), buf.Bitmap.Pix[0])
	assert.Equal(t, "Palette(2,none)", effect.GetName())
}

func TestPaletteEffect_FallbackPalette(t *testing.T) {
	effect := NewPaletteEffect(nil, DitherOrdered)
	assert.Equal(t, "Palette(4,ordered)", effect.GetName())
	assert.Equal(t, "Dither(9)", Dither(9).String())
}

func TestPaletteEffect_FloydSteinbergMixesShades(t *testing.T) {
	buf := frame.NewBuffer(16, 16, frame.FormatNV21)
	// Luminance halfway between two shades must dither into both.
	fillBitmap(buf, 128, 128, 128)

	require.NoError(t, NewGameBoyEffect().Apply(buf))

	seen := map[uint8]bool{}
	for i := 0; i < len(buf.Bitmap.Pix); i += 4 {
		seen[buf.Bitmap.Pix[i]] = true
	}
	assert.GreaterOrEqual(t, len(seen), 2)
}
