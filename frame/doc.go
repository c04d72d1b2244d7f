// Package frame defines the data contract for a single camera frame as it
// moves through the preview pipeline, and the filter interface that turns
// raw sensor bytes into a display-ready bitmap.
//
// A [Buffer] carries four things:
//
//   - Data: the raw frame bytes. The frame source owns them; the pipeline
//     only borrows them and must hand them back exactly once.
//   - Image: a scratch plane owned by the pipeline, sized
//     width*height + width*4 so filters have room for error-diffusion rows.
//   - Bitmap: the display-ready RGBA output owned by the pipeline.
//   - Width, Height and Seq: frame geometry and the ingest sequence number.
//
// Raw frame sizes follow the camera contract:
//
//	size := width * height * format.BitsPerPixel() / 8
//
// # Filters
//
// A [Filter] reads Buffer.Data and writes Buffer.Bitmap (and may use
// Buffer.Image as scratch). Filters run concurrently on many goroutines
// and must not touch process-wide mutable state:
//
//	type invert struct{}
//
//	func (invert) Accept(buf *frame.Buffer) error {
//	    img := buf.EnsureBitmap(buf.Width, buf.Height)
//	    for i := range buf.Data[:buf.Width*buf.Height] {
//	        v := 255 - buf.Data[i]
//	        img.Pix[i*4], img.Pix[i*4+1], img.Pix[i*4+2], img.Pix[i*4+3] = v, v, v, 255
//	    }
//	    return nil
//	}
//
//	func (invert) EffectiveSize(w, h int) (int, int) { return w, h }
package frame
