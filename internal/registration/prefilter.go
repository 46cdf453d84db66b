package registration

import (
	"image"

	"gocv.io/x/gocv"
)

// normalizeIntensity rescales target intensities by mean(ref)/mean(target) so
// exposure differences between cycles do not shift the detected features.
// Returns a new Mat owned by the caller.
func normalizeIntensity(ref, target gocv.Mat) gocv.Mat {
	refMean := ref.Mean().Val1
	tgtMean := target.Mean().Val1

	scale := 1.0
	if tgtMean > 0 {
		scale = refMean / tgtMean
	}

	dst := gocv.NewMat()
	gocv.ConvertScaleAbs(target, &dst, scale, 0)
	return dst
}

// exposeBlobEdges suppresses noise-scale texture and leaves coherent blob
// edges as the principal features: a small Gaussian blur followed by a
// morphological gradient (dilation minus erosion) under a cross-shaped
// structuring element, applied for several iterations.
// Returns a new Mat owned by the caller.
func exposeBlobEdges(src gocv.Mat, opts Options) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred,
		image.Pt(opts.BlurKernel, opts.BlurKernel), 0, 0, gocv.BorderDefault)

	kernel := gocv.GetStructuringElement(gocv.MorphCross,
		image.Pt(opts.GradientKernel, opts.GradientKernel))
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.MorphologyExWithParams(blurred, &dst, gocv.MorphGradient, kernel,
		opts.GradientIterations, gocv.BorderConstant)
	return dst
}
