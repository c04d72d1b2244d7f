// Package limits provides centralized frame size constants and validation
// functions for the preview pipeline. Every frame source is checked against
// these limits before its buffers are allocated, so a misreported preview
// size cannot make the pipeline allocate unbounded memory.
//
// # Size Hierarchy
//
//   - MinFrameDimension (2 px): 4:2:0 chroma subsampling needs at least one
//     full 2x2 macropixel.
//
//   - MaxFrameDimension (8192 px): the largest width or height accepted from
//     any source.
//
//   - MaxRawBuffer (128 MiB): the absolute maximum for a single raw frame
//     buffer. With at most two primed buffers this caps raw memory on loan to
//     the camera.
//
// # Validation Functions
//
//	if err := limits.ValidateFrameSize(width, height); err != nil {
//	    return err
//	}
//	if err := limits.ValidateBufferSize(size); err != nil {
//	    return err
//	}
//
// Errors wrap ErrFrameTooSmall, ErrFrameTooLarge or ErrBufferTooLarge and can
// be classified with errors.Is.
package limits
