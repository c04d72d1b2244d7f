package limits

import (
	"errors"
	"fmt"
)

const (
	// MinFrameDimension is the smallest accepted frame width or height.
	MinFrameDimension = 2

	// MaxFrameDimension is the largest accepted frame width or height.
	MaxFrameDimension = 8192

	// MaxRawBuffer is the absolute maximum size of one raw frame buffer (128 MiB).
	MaxRawBuffer = 128 * 1024 * 1024

	// MaxPrimedBuffers is the most raw buffers worth priming a source with.
	// Buffers size throughput parallelism, not queue depth.
	MaxPrimedBuffers = 2
)

var (
	// ErrFrameTooSmall indicates a frame dimension below MinFrameDimension
	ErrFrameTooSmall = errors.New("frame too small")

	// ErrFrameTooLarge indicates a frame dimension above MaxFrameDimension
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrBufferTooLarge indicates a raw buffer above MaxRawBuffer
	ErrBufferTooLarge = errors.New("raw buffer too large")
)

// ValidateFrameSize checks width and height against the dimension limits.
func ValidateFrameSize(width, height int) error {
	if width < MinFrameDimension || height < MinFrameDimension {
		return fmt.Errorf("%w: %dx%d below minimum %d", ErrFrameTooSmall, width, height, MinFrameDimension)
	}
	if width > MaxFrameDimension || height > MaxFrameDimension {
		return fmt.Errorf("%w: %dx%d exceeds limit %d", ErrFrameTooLarge, width, height, MaxFrameDimension)
	}
	return nil
}

// ValidateBufferSize checks a raw buffer size against MaxRawBuffer.
func ValidateBufferSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d", ErrFrameTooSmall, size)
	}
	if size > MaxRawBuffer {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrBufferTooLarge, size, MaxRawBuffer)
	}
	return nil
}
