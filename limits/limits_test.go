package limits

import (
	"errors"
	"testing"
)

func TestValidateFrameSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		expectErr     error
	}{
		{"vga", 640, 480, nil},
		{"minimum", MinFrameDimension, MinFrameDimension, nil},
		{"maximum", MaxFrameDimension, MaxFrameDimension, nil},
		{"too_narrow", 1, 480, ErrFrameTooSmall},
		{"zero_height", 640, 0, ErrFrameTooSmall},
		{"too_wide", MaxFrameDimension + 1, 480, ErrFrameTooLarge},
		{"too_tall", 640, MaxFrameDimension + 1, ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrameSize(tt.width, tt.height)
			if tt.expectErr == nil {
				if err != nil {
					t.Errorf("ValidateFrameSize(%d, %d) unexpected error: %v", tt.width, tt.height, err)
				}
				return
			}
			if !errors.Is(err, tt.expectErr) {
				t.Errorf("ValidateFrameSize(%d, %d) = %v, want %v", tt.width, tt.height, err, tt.expectErr)
			}
		})
	}
}

func TestValidateBufferSize(t *testing.T) {
	if err := ValidateBufferSize(640 * 480 * 3 / 2); err != nil {
		t.Errorf("VGA NV21 buffer rejected: %v", err)
	}
	if err := ValidateBufferSize(0); !errors.Is(err, ErrFrameTooSmall) {
		t.Errorf("ValidateBufferSize(0) = %v, want ErrFrameTooSmall", err)
	}
	if err := ValidateBufferSize(MaxRawBuffer + 1); !errors.Is(err, ErrBufferTooLarge) {
		t.Errorf("ValidateBufferSize(max+1) = %v, want ErrBufferTooLarge", err)
	}
}

// TestMaxFrameFitsRawBuffer verifies that the largest accepted 16 bpp frame
// stays within MaxRawBuffer.
func TestMaxFrameFitsRawBuffer(t *testing.T) {
	largest := MaxFrameDimension * MaxFrameDimension * 16 / 8
	if largest > MaxRawBuffer {
		t.Errorf("MaxFrameDimension^2 at 16 bpp = %d exceeds MaxRawBuffer %d", largest, MaxRawBuffer)
	}
}
