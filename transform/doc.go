// Package transform derives the 2D affine that maps a filtered bitmap onto
// the display surface.
//
// The transform corrects for the camera's mounting orientation, the display
// rotation and front-camera mirroring, then scales the rotated bitmap to fit
// the display while preserving its aspect ratio and centers it:
//
//	tr, err := transform.New(transform.Params{
//	    SrcWidth: 480, SrcHeight: 360,
//	    Orientation: 90, DisplayRotation: 0,
//	    DstWidth: 1080, DstHeight: 1920,
//	    Enlarge: true,
//	})
//	x, y := tr.Apply(0, 0) // top-left of the bitmap lands top-right
//
// A Transform is immutable. The pipeline publishes a new one through an
// atomic pointer whenever the source, filter or display geometry changes.
package transform
