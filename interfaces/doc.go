// Package interfaces defines the collaborator contracts of the preview
// pipeline: the camera that produces raw frames and the surface that
// presents finished ones.
//
// The pipeline core never talks to a device framework directly. It drives a
// [Camera] through an explicit buffer-loan protocol and draws onto a
// [Surface] through a lock/post protocol, so the same core runs against the
// simulated collaborators in the testing package, the raw-video reader in the
// real package, or a platform binding.
//
// # Camera Buffer Protocol
//
// The pipeline primes the camera with one or two raw buffers of exactly
// width*height*bitsPerPixel/8 bytes. For every captured frame the camera
// takes a queued buffer, fills it and passes it to the preview callback. The
// pipeline returns each delivered buffer exactly once with AddCallbackBuffer.
// When no buffer is queued the camera skips the frame; when a queued buffer is
// too small the camera calls the callback with nil and discards the buffer.
//
//	camera.SetPreviewCallback(nil)         // clears queued buffers
//	camera.AddCallbackBuffer(make([]byte, size))
//	camera.SetPreviewCallback(onFrame)
//	camera.StartPreview()
//
// # Surface Protocol
//
// LockCanvas blocks while another canvas of the same surface is locked and
// returns nil when the surface is temporarily unavailable. Every non-nil
// canvas must be handed back with UnlockCanvasAndPost, which publishes it.
//
// # Configuration
//
// [PipelineConfig] holds pipeline tuning values:
//
//	config := &interfaces.PipelineConfig{
//	    BufferCount:       0, // auto: 1, or 2 on multi-core hosts
//	    FramerateWindow:   25,
//	    ClearPasses:       3,
//	    WorkerIdleTimeout: 60 * time.Second,
//	}
//	if err := config.Validate(); err != nil {
//	    log.Fatalf("invalid config: %v", err)
//	}
//
// # Thread Safety
//
// A Camera's AddCallbackBuffer is called from pipeline worker goroutines
// while the camera's own goroutine delivers frames; implementations must
// synchronize it. Surface methods are called from worker goroutines and from
// the control goroutine.
package interfaces
