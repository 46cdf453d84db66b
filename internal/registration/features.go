package registration

import (
	"gocv.io/x/gocv"
)

// detectAndDescribe locates keypoints on a pre-filtered image and computes
// their binary descriptors. The returned descriptor Mat is owned by the
// caller.
func detectAndDescribe(img gocv.Mat, method Method) ([]gocv.KeyPoint, gocv.Mat) {
	mask := gocv.NewMat()
	defer mask.Close()

	switch method {
	case MethodORB:
		orb := gocv.NewORB()
		defer orb.Close()
		return orb.DetectAndCompute(img, mask)
	default:
		brisk := gocv.NewBRISK()
		defer brisk.Close()
		return brisk.DetectAndCompute(img, mask)
	}
}
