// Package pipeline coordinates the concurrent preview pipeline.
//
// A Pipeline ingests raw frames from the current camera, numbers them in
// ingest order, filters them in parallel on a cached worker pool and posts
// the results to the display sink strictly in sequence order. Frames that
// finish after a newer frame was posted, frames from a retired source and
// frames produced by a replaced filter are dropped rather than queued.
//
// # Buffer Ownership
//
// Each raw buffer delivered by the camera is returned to that camera exactly
// once, by the worker that took the frame, whether the frame is posted or
// dropped. On the posting path the display canvas is locked before the raw
// buffer is returned, both under the ordering lock; returning the buffer
// first lets the camera re-enter faster than the display drains, and memory
// grows without bound.
//
// # Usage
//
//	sink, _ := display.NewSink(surface)
//	p, err := pipeline.New(sink, pipeline.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer p.Close(context.Background())
//
//	if err := p.SetSource(camera, &interfaces.SourceInfo{Orientation: 90}); err != nil {
//	    return err
//	}
//	p.SetFilter(filter.NewChain(nil, filter.NewGameBoyEffect()))
//
// # Thread Safety
//
// SetSource, SetFilter, OnDisplayGeometryChanged and Close are serialized
// against each other and may be called from any goroutine. Frame delivery
// runs on the camera's goroutine; filtering and posting run on workers.
package pipeline
