package filter

import (
	"testing"

	"github.com/opd-ai/retrocam/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYUVFilter_EffectiveSize(t *testing.T) {
	tests := []struct {
		name           string
		outW, outH     int
		frameW, frameH int
		expectW        int
		expectH        int
	}{
		{name: "same_aspect", outW: 480, outH: 360, frameW: 640, frameH: 480, expectW: 480, expectH: 360},
		{name: "wide_frame", outW: 480, outH: 360, frameW: 1280, frameH: 720, expectW: 480, expectH: 270},
		{name: "tall_frame", outW: 480, outH: 360, frameW: 480, frameH: 640, expectW: 270, expectH: 360},
		{name: "upscale", outW: 480, outH: 360, frameW: 160, frameH: 120, expectW: 480, expectH: 360},
		{name: "invalid_frame", outW: 480, outH: 360, frameW: 0, frameH: 0, expectW: 480, expectH: 360},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewYUVFilter(tt.outW, tt.outH)
			w, h := f.EffectiveSize(tt.frameW, tt.frameH)
			assert.Equal(t, tt.expectW, w)
			assert.Equal(t, tt.expectH, h)
		})
	}
}

func TestYUVFilter_AcceptNV21(t *testing.T) {
	f := NewYUVFilter(8, 6)
	buf := createTestBuffer(16, 12)

	require.NoError(t, f.Accept(buf))
	require.Equal(t, 8, buf.Bitmap.Rect.Dx())
	require.Equal(t, 6, buf.Bitmap.Rect.Dy())

	// Neutral chroma decodes to gray equal to the sampled luminance.
	for x := 0; x < 8; x++ {
		srcX := x * 16 / 8
		want := buf.Data[srcX]
		i := x * 4
		assert.Equal(t, want, buf.Bitmap.Pix[i], "red at x=%d", x)
		assert.Equal(t, want, buf.Bitmap.Pix[i+1], "green at x=%d", x)
		assert.Equal(t, want, buf.Bitmap.Pix[i+2], "blue at x=%d", x)
		assert.Equal(t, uint8(255), buf.Bitmap.Pix[i+3])
	}
}

func TestYUVFilter_AcceptFormats(t *testing.T) {
	const w, h = 4, 4
	tests := []struct {
		name   string
		format frame.Format
		data   func() []byte
	}{
		{
			name:   "yv12",
			format: frame.FormatYV12,
			data: func() []byte {
				d := make([]byte, w*h*3/2)
				for i := 0; i < w*h; i++ {
					d[i] = 100
				}
				for i := w * h; i < len(d); i++ {
					d[i] = 128
				}
				return d
			},
		},
		{
			name:   "yuy2",
			format: frame.FormatYUY2,
			data: func() []byte {
				d := make([]byte, w*h*2)
				for i := 0; i < len(d); i += 4 {
					d[i], d[i+1], d[i+2], d[i+3] = 100, 128, 100, 128
				}
				return d
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := frame.NewBuffer(w, h, tt.format)
			buf.Data = tt.data()

			require.NoError(t, NewYUVFilter(w, h).Accept(buf))
			for i := 0; i < len(buf.Bitmap.Pix); i += 4 {
				assert.Equal(t, uint8(100), buf.Bitmap.Pix[i])
				assert.Equal(t, uint8(100), buf.Bitmap.Pix[i+1])
				assert.Equal(t, uint8(100), buf.Bitmap.Pix[i+2])
			}
		})
	}
}

func TestYUVFilter_Errors(t *testing.T) {
	f := NewDefaultYUVFilter()

	assert.Error(t, f.Accept(nil))

	buf := createTestBuffer(16, 12)
	buf.Data = buf.Data[:10]
	assert.ErrorIs(t, f.Accept(buf), frame.ErrBufferTooSmall)

	buf = createTestBuffer(16, 12)
	buf.Format = frame.FormatUnknown
	assert.ErrorIs(t, f.Accept(buf), frame.ErrUnsupportedFormat)

	// odd geometry has no whole chroma row and must fail without indexing
	// past the data
	buf = frame.NewBuffer(15, 9, frame.FormatNV21)
	buf.Data = make([]byte, 15*9*3/2)
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, f.Accept(buf), frame.ErrInvalidDimensions)
	})
}

func TestYUVFilter_GetName(t *testing.T) {
	assert.Equal(t, "YUV(480x360)", NewDefaultYUVFilter().GetName())
	assert.Equal(t, "YUV(1x1)", NewYUVFilter(0, -5).GetName())
}
