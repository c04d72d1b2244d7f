package frame

import (
	"errors"
	"fmt"
)

// Sentinel errors for frame geometry and format handling.
var (
	// ErrUnsupportedFormat indicates a pixel format with no known bit depth.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrInvalidDimensions indicates a zero or negative frame dimension.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrBufferTooSmall indicates raw bytes shorter than the frame requires.
	ErrBufferTooSmall = errors.New("frame buffer too small")
)

// Format identifies the layout of raw preview bytes delivered by a camera.
type Format int

const (
	// FormatUnknown is the zero value and never valid.
	FormatUnknown Format = iota
	// FormatNV21 is YCrCb 4:2:0 semi-planar: a full Y plane followed by
	// interleaved V/U samples. It is the default camera preview format.
	FormatNV21
	// FormatYV12 is YCrCb 4:2:0 planar: Y plane, then V plane, then U plane.
	FormatYV12
	// FormatYUY2 is packed YCbCr 4:2:2: Y0 U Y1 V per pixel pair.
	FormatYUY2
)

// BitsPerPixel returns the average number of bits a pixel occupies in the
// raw buffer, or -1 for unknown formats.
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatNV21, FormatYV12:
		return 12
	case FormatYUY2:
		return 16
	default:
		return -1
	}
}

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatNV21:
		return "NV21"
	case FormatYV12:
		return "YV12"
	case FormatYUY2:
		return "YUY2"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a format name (as printed by String) back to a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "NV21", "nv21":
		return FormatNV21, nil
	case "YV12", "yv12":
		return FormatYV12, nil
	case "YUY2", "yuy2", "YUYV", "yuyv":
		return FormatYUY2, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Alignment returns the horizontal and vertical pixel multiples a frame
// dimension must be for the format's chroma subsampling, or 0, 0 for unknown
// formats.
func (f Format) Alignment() (int, int) {
	switch f {
	case FormatNV21, FormatYV12:
		return 2, 2
	case FormatYUY2:
		return 2, 1
	default:
		return 0, 0
	}
}

// BufferSize returns the exact number of raw bytes one frame occupies:
// width * height * bitsPerPixel / 8.
//
// Subsampled formats share one chroma sample between neighbouring pixels,
// so a dimension that is not a multiple of the format's Alignment has no
// exact byte size and is rejected with ErrInvalidDimensions.
func BufferSize(width, height int, format Format) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	bits := format.BitsPerPixel()
	if bits <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	ax, ay := format.Alignment()
	if width%ax != 0 || height%ay != 0 {
		return 0, fmt.Errorf("%w: %dx%d is not a multiple of %dx%d for %s",
			ErrInvalidDimensions, width, height, ax, ay, format)
	}
	return width * height * bits / 8, nil
}
