package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferSize(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		height    int
		format    Format
		expected  int
		expectErr error
	}{
		{name: "vga_nv21", width: 640, height: 480, format: FormatNV21, expected: 460800},
		{name: "qvga_yv12", width: 320, height: 240, format: FormatYV12, expected: 115200},
		{name: "vga_yuy2", width: 640, height: 480, format: FormatYUY2, expected: 614400},
		{name: "zero_width", width: 0, height: 480, format: FormatNV21, expectErr: ErrInvalidDimensions},
		{name: "negative_height", width: 640, height: -1, format: FormatNV21, expectErr: ErrInvalidDimensions},
		{name: "unknown_format", width: 640, height: 480, format: FormatUnknown, expectErr: ErrUnsupportedFormat},
		{name: "odd_width_nv21", width: 15, height: 8, format: FormatNV21, expectErr: ErrInvalidDimensions},
		{name: "odd_height_nv21", width: 16, height: 9, format: FormatNV21, expectErr: ErrInvalidDimensions},
		{name: "odd_both_yv12", width: 15, height: 9, format: FormatYV12, expectErr: ErrInvalidDimensions},
		{name: "odd_width_yuy2", width: 15, height: 8, format: FormatYUY2, expectErr: ErrInvalidDimensions},
		{name: "odd_height_yuy2", width: 16, height: 9, format: FormatYUY2, expected: 288},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := BufferSize(tt.width, tt.height, tt.format)
			if tt.expectErr != nil {
				assert.True(t, errors.Is(err, tt.expectErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, size)
		})
	}
}

func TestFormatAlignment(t *testing.T) {
	tests := []struct {
		format Format
		x, y   int
	}{
		{FormatNV21, 2, 2},
		{FormatYV12, 2, 2},
		{FormatYUY2, 2, 1},
		{FormatUnknown, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			x, y := tt.format.Alignment()
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatNV21, FormatYV12, FormatYUY2} {
		parsed, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	_, err := ParseFormat("RGB565")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "Format(42)", Format(42).String())
}
