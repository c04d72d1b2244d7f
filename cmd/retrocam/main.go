// Command retrocam renders a camera preview through retro filters.
//
// Raw frames are read from a file or standard input (or synthesised with
// --simulate), filtered, and written to --output as raw RGBA frames:
//
//	ffmpeg -f v4l2 -video_size 640x480 -i /dev/video0 -f rawvideo -pix_fmt nv21 - |
//	    retrocam run --input - --filter gameboy --output - |
//	    ffplay -f rawvideo -pixel_format rgba -video_size 960x720 -
package main

func main() {
	Execute()
}
