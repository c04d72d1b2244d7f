// Package filter provides the image filters that turn raw camera frames into
// stylized preview bitmaps.
//
// The processing chain for one frame:
//
//	Raw YUV bytes → YUVFilter (decode + downscale) → Effects → RGBA bitmap
//
// [YUVFilter] is the default filter: it decodes NV21, YV12 or YUY2 preview
// data into an RGBA bitmap at a requested output resolution, preserving the
// frame's aspect ratio. A [Chain] wraps a base filter and applies a sequence
// of [Effect] values (brightness, contrast, grayscale, pixelation, palette
// quantization with dithering) to the decoded bitmap.
//
// All filters are immutable after construction and safe to share across the
// pipeline's worker goroutines.
package filter
