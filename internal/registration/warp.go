package registration

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"iris-caller/pkg/geometry"
)

// Warp resamples src through the transform onto a width x height canvas.
// Every channel of a registered cycle is warped by its cycle's transform.
func Warp(src gocv.Mat, t geometry.AffineTransform, width, height int) gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, t.A)
	m.SetDoubleAt(0, 1, t.B)
	m.SetDoubleAt(0, 2, t.TX)
	m.SetDoubleAt(1, 0, t.C)
	m.SetDoubleAt(1, 1, t.D)
	m.SetDoubleAt(1, 2, t.TY)
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, m, image.Point{X: width, Y: height},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst
}
