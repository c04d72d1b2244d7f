package transform

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f64"
)

var (
	// ErrInvalidGeometry indicates a zero or negative source or display size.
	ErrInvalidGeometry = errors.New("invalid transform geometry")

	// ErrInvalidRotation indicates an angle that is not a multiple of 90 degrees.
	ErrInvalidRotation = errors.New("rotation must be a multiple of 90 degrees")
)

// Params holds everything the display transform depends on.
type Params struct {
	SrcWidth        int  // Bitmap width produced by the filter
	SrcHeight       int  // Bitmap height produced by the filter
	Orientation     int  // Camera mounting orientation in degrees
	Mirror          bool // Mirror horizontally (front-facing camera)
	DisplayRotation int  // Display rotation in degrees
	DstWidth        int  // Display width
	DstHeight       int  // Display height
	Enlarge         bool // Allow scaling above 1:1
}

// Transform is an immutable source-to-display affine.
type Transform struct {
	// Matrix maps bitmap coordinates to display coordinates
	Matrix f64.Aff3
	// Rotation is the clockwise rotation applied, in degrees
	Rotation int
	// Scale is the uniform scale factor applied after rotation
	Scale float64
	// Mirror reports whether the bitmap is flipped horizontally
	Mirror bool

	params Params
}

// quarter turns clockwise: cos, sin. Exact values keep 0/90/180/270 blits
// free of rounding drift.
var quarterTurns = [4][2]float64{
	{1, 0},
	{0, 1},
	{-1, 0},
	{0, -1},
}

// normalize folds any multiple of 90 into [0, 360).
func normalize(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRotation, degrees)
	}
	return ((degrees % 360) + 360) % 360, nil
}

// Rotation returns the clockwise rotation needed to show a camera image
// upright on a display rotated by displayRotation. Front-facing cameras
// rotate the other way because their image is mirrored.
func Rotation(orientation, displayRotation int, mirror bool) (int, error) {
	o, err := normalize(orientation)
	if err != nil {
		return 0, err
	}
	d, err := normalize(displayRotation)
	if err != nil {
		return 0, err
	}
	if mirror {
		return (o + d) % 360, nil
	}
	return (o - d + 360) % 360, nil
}

// New builds the transform for the given parameters.
//
// The bitmap is centered on the origin, mirrored when requested, rotated
// clockwise, scaled uniformly to fit inside the display and moved to the
// display center. Without Enlarge the scale never exceeds 1.
func New(p Params) (*Transform, error) {
	if p.SrcWidth <= 0 || p.SrcHeight <= 0 || p.DstWidth <= 0 || p.DstHeight <= 0 {
		return nil, fmt.Errorf("%w: source %dx%d, display %dx%d",
			ErrInvalidGeometry, p.SrcWidth, p.SrcHeight, p.DstWidth, p.DstHeight)
	}

	rotation, err := Rotation(p.Orientation, p.DisplayRotation, p.Mirror)
	if err != nil {
		return nil, err
	}

	rotatedW, rotatedH := float64(p.SrcWidth), float64(p.SrcHeight)
	if rotation == 90 || rotation == 270 {
		rotatedW, rotatedH = rotatedH, rotatedW
	}

	scale := float64(p.DstWidth) / rotatedW
	if s := float64(p.DstHeight) / rotatedH; s < scale {
		scale = s
	}
	if !p.Enlarge && scale > 1 {
		scale = 1
	}

	cos, sin := quarterTurns[rotation/90][0], quarterTurns[rotation/90][1]
	flip := 1.0
	if p.Mirror {
		flip = -1
	}

	a := scale * cos * flip
	b := -scale * sin
	d := scale * sin * flip
	e := scale * cos
	halfW, halfH := float64(p.SrcWidth)/2, float64(p.SrcHeight)/2

	return &Transform{
		Matrix: f64.Aff3{
			a, b, float64(p.DstWidth)/2 - a*halfW - b*halfH,
			d, e, float64(p.DstHeight)/2 - d*halfW - e*halfH,
		},
		Rotation: rotation,
		Scale:    scale,
		Mirror:   p.Mirror,
		params:   p,
	}, nil
}

// Params returns the parameters the transform was built from.
func (t *Transform) Params() Params {
	return t.params
}

// Apply maps a bitmap point to display coordinates.
func (t *Transform) Apply(x, y float64) (float64, float64) {
	m := t.Matrix
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Equal reports whether two transforms map every point identically.
func (t *Transform) Equal(other *Transform) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Matrix == other.Matrix
}
