// Package retrocam renders a live camera preview through retro image
// filters.
//
// Raw YUV frames from a camera are decoded and stylised on a pool of worker
// goroutines and drawn onto a display surface in capture order. Frames that
// finish late, come from a camera that has since been replaced, or were
// processed by a filter that has since been swapped are dropped rather than
// shown.
//
// # Getting Started
//
//	options := retrocam.NewOptions()
//	options.Input = os.Stdin // raw NV21 frames, e.g. from ffmpeg
//	options.Presenter = real.WriterPresenter(os.Stdout)
//
//	preview, err := retrocam.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer preview.Close(context.Background())
//
//	gameboy, _ := retrocam.FilterByName("gameboy")
//	preview.SetFilter(gameboy)
//
//	if err := preview.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Packages
//
//   - pipeline: the coordinator that orders, drops and posts frames
//   - filter: the YUV decoder and retro effects
//   - source, display, transform: camera and surface adapters and the
//     source-to-display mapping
//   - workpool, taskpool: goroutine and task recycling
//   - factory: configuration and collaborator selection
//   - real, testing: production and simulated cameras and surfaces
//
// # Simulation
//
// Setting RETRO_USE_SIMULATION=true (or Config.UseSimulation) swaps in a
// synthetic camera and a recording surface, so the full pipeline can be
// exercised without capture hardware.
package retrocam
