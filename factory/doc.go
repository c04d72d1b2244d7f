// Package factory builds pipeline configuration and selects preview
// collaborators.
//
// The factory decouples the pipeline from concrete cameras and surfaces:
// the same calling code runs against the simulated collaborators of the
// testing package or the production ones of the real package, chosen by
// the UseSimulation switch.
//
// # Configuration
//
// Defaults come from pipeline.DefaultConfig. A YAML file may override them
// and environment variables override both:
//   - RETRO_BUFFER_COUNT: primed raw buffers, 0 (auto) to 2
//   - RETRO_FRAMERATE_WINDOW: posted frames per framerate sample
//   - RETRO_CLEAR_PASSES: neutral clears on a source swap, 1 to 8
//   - RETRO_WORKER_IDLE_TIMEOUT: idle worker lifetime, e.g. "30s"
//   - RETRO_MAX_POOLED_TASKS: recycled task cap, 0 for unbounded
//   - RETRO_USE_SIMULATION: "true" or "false"
//
// Values that fail to parse or fall outside their bounds are logged and
// ignored.
//
// # Usage
//
//	f, err := factory.NewPreviewFactoryFromFile("retrocam.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	camera, err := f.CreateCamera(factory.CameraOptions{
//	    Width: 640, Height: 480, Format: frame.FormatNV21, Input: os.Stdin,
//	})
//	surface := f.CreateSurface(factory.SurfaceOptions{Width: 960, Height: 720})
package factory
