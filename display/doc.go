// Package display adapts a lockable surface into the pipeline's display sink.
//
// A Sink locks a canvas, blits a filtered bitmap through the current
// transform with bilinear filtering, optionally stamps a text overlay, and
// posts the canvas. Clear fills the surface with a neutral color several times
// so every buffer of a multi-buffered surface is flushed.
package display
