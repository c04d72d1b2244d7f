// Package real provides production preview collaborators.
//
// RawVideoCamera reads raw YUV frames from any io.Reader, typically the
// standard output of a capture tool:
//
//	ffmpeg -f v4l2 -video_size 640x480 -i /dev/video0 \
//	    -f rawvideo -pix_fmt nv21 - | retrocam run --input -
//
// It honours the camera buffer protocol: a frame read while no callback
// buffer is queued is consumed into scratch space and skipped, so a slow
// pipeline drops frames at the source instead of queueing them.
//
// ImageSurface is a multi-buffered in-memory surface that hands every posted
// canvas to a presenter function, for example one that streams raw RGBA
// frames to a viewer:
//
//	surface := real.NewImageSurface(960, 720, 2, real.WriterPresenter(os.Stdout))
//
// Both types satisfy the interfaces package contracts and are selected by
// the factory package when simulation is disabled.
package real
