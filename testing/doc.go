// Package testing provides simulated preview collaborators for deterministic
// testing of the retrocam pipeline.
//
// # Overview
//
// SimulatedCamera implements interfaces.Camera entirely in memory. Frames are
// produced on demand with DeliverFrame, or at a fixed rate with Run, and the
// camera tracks every buffer it lends out so tests can verify that each
// delivered buffer comes back exactly once.
//
// RecordingSurface implements interfaces.Surface over a pair of in-memory
// canvases. Only one canvas can be locked at a time, and every post is
// recorded with a BLAKE2b-256 digest of its pixels so tests can compare
// displayed output bit for bit.
//
// # Simulation vs Real Implementation
//
//   - Simulation (this package): synthetic frames and recorded posts, used by
//     unit and integration tests and by the CLI's --simulate mode.
//
//   - Real (real package): raw video frames read from a stream and an image
//     surface that hands posted frames to a presenter.
//
// Both satisfy the interfaces package contracts and are selected by the
// factory package.
//
// # Usage
//
//	camera := testing.NewSimulatedCamera(640, 480, frame.FormatNV21)
//	surface := testing.NewRecordingSurface(320, 240)
//
//	// ... attach to a pipeline ...
//	camera.DeliverFrame()
//
//	if camera.Outstanding() != 0 || camera.DuplicateRecycles() != 0 {
//	    t.Fatal("raw buffers leaked or recycled twice")
//	}
//
// Note: the package is named testing like the standard library package;
// import it under an alias such as simtest.
package testing
