// Package registration aligns cycle images onto a common pixel frame.
//
// Registration runs in three stages: keypoint detection and description on
// pre-filtered images, brute-force descriptor matching with a cross-check
// constraint, and iterative outlier rejection around a robust rigid-transform
// estimator. The result is a rotation + translation mapping target pixel
// coordinates onto the reference frame; zoom and shear are fixed to identity.
package registration

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"iris-caller/pkg/geometry"
)

// Method selects the keypoint detection algorithm.
type Method int

const (
	// MethodBRISK is the default. It finds denser keypoints on fluorescence
	// imagery than ORB, which often starves the matcher and fails the
	// registration outright.
	MethodBRISK Method = iota
	MethodORB
)

// String returns the method name.
func (m Method) String() string {
	if m == MethodORB {
		return "ORB"
	}
	return "BRISK"
}

// ParseMethod maps a configuration string to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "brisk", "BRISK":
		return MethodBRISK, nil
	case "orb", "ORB":
		return MethodORB, nil
	}
	return MethodBRISK, fmt.Errorf("unknown detection method %q (want brisk or orb)", s)
}

// Registration failure sentinels. Callers receive the identity transform
// alongside any of these and must treat it as non-authoritative.
var (
	ErrInsufficientFeatures = errors.New("registration: no keypoints detected")
	ErrInsufficientMatches  = errors.New("registration: not enough matched features")
	ErrDegenerateGeometry   = errors.New("registration: degenerate point configuration")
)

// Options tunes the registration pipeline.
type Options struct {
	Method             Method
	BlurKernel         int     // Gaussian pre-blur kernel size (odd)
	GradientKernel     int     // cross structuring element size
	GradientIterations int     // morphological gradient passes
	RANSACIterations   int     // robust estimator sampling rounds
	InlierThreshold    float64 // max re-projection distance in pixels
}

// DefaultOptions returns the tuned defaults for fluorescence cycle images.
func DefaultOptions() Options {
	return Options{
		Method:             MethodBRISK,
		BlurKernel:         3,
		GradientKernel:     15,
		GradientIterations: 3,
		RANSACIterations:   2000,
		InlierThreshold:    3.0,
	}
}

// Register computes the rigid transform mapping target pixel coordinates onto
// the reference frame. On failure it returns the identity transform together
// with a sentinel error; the pipeline logs the failure and continues with the
// unaligned image.
func Register(ref, target gocv.Mat, opts Options) (geometry.AffineTransform, error) {
	// Exposure drifts between cycles; rescale the target so both images sit
	// on the same intensity footing before detection.
	normalized := normalizeIntensity(ref, target)
	defer normalized.Close()

	refFiltered := exposeBlobEdges(ref, opts)
	defer refFiltered.Close()
	tgtFiltered := exposeBlobEdges(normalized, opts)
	defer tgtFiltered.Close()

	refKps, refDesc := detectAndDescribe(refFiltered, opts.Method)
	defer refDesc.Close()
	tgtKps, tgtDesc := detectAndDescribe(tgtFiltered, opts.Method)
	defer tgtDesc.Close()

	if len(refKps) == 0 || len(tgtKps) == 0 {
		return geometry.Identity(), fmt.Errorf("%w (ref=%d target=%d)",
			ErrInsufficientFeatures, len(refKps), len(tgtKps))
	}

	matches := matchDescriptors(refDesc, tgtDesc, refKps, tgtKps)

	kept, err := RefineMatches(matches, opts.RANSACIterations, opts.InlierThreshold)
	if err != nil {
		return geometry.Identity(), err
	}

	if len(kept) < 4 {
		return geometry.Identity(), fmt.Errorf("%w (%d after filtering)",
			ErrInsufficientMatches, len(kept))
	}

	transform, _, err := EstimateRigid(kept, opts.RANSACIterations, opts.InlierThreshold)
	if err != nil {
		return geometry.Identity(), err
	}

	return transform, nil
}
