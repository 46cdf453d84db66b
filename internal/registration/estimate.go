package registration

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"iris-caller/pkg/geometry"
)

// EstimateRigid fits a rigid transform (rotation + translation, unit scale)
// mapping target points onto reference points using RANSAC, then refits over
// the consensus set with an SVD-based least-squares solve. The returned slice
// marks which matches were inliers of the best candidate.
func EstimateRigid(matches []Match, iterations int, threshold float64) (geometry.AffineTransform, []bool, error) {
	if len(matches) < 2 {
		return geometry.Identity(), nil,
			fmt.Errorf("%w: need at least 2 matches, got %d", ErrInsufficientMatches, len(matches))
	}

	n := len(matches)
	bestCount := 0
	var bestInliers []bool

	for iter := 0; iter < iterations; iter++ {
		idx := rand.Perm(n)[:2]

		candidate, err := rigidFromPair(matches[idx[0]], matches[idx[1]])
		if err != nil {
			continue
		}

		inliers := make([]bool, n)
		count := 0
		for i, m := range matches {
			if candidate.Apply(m.Tgt).Distance(m.Ref) < threshold {
				inliers[i] = true
				count++
			}
		}

		if count > bestCount {
			bestCount = count
			bestInliers = inliers
		}
	}

	if bestCount < 2 {
		return geometry.Identity(), nil,
			fmt.Errorf("%w: no consensus among %d matches", ErrDegenerateGeometry, n)
	}

	src := make([]geometry.Point2D, 0, bestCount)
	dst := make([]geometry.Point2D, 0, bestCount)
	for i, m := range matches {
		if bestInliers[i] {
			src = append(src, m.Tgt)
			dst = append(dst, m.Ref)
		}
	}

	transform, err := rigidLeastSquares(src, dst)
	if err != nil {
		return geometry.Identity(), nil, err
	}

	return transform, bestInliers, nil
}

// RefineMatches iteratively rejects geometric outliers: fit a rigid candidate
// over the kept matches, discard the outliers, and repeat until a round
// discards none. The kept count is non-increasing and bounded below, so the
// loop always terminates.
func RefineMatches(matches []Match, iterations int, threshold float64) ([]Match, error) {
	kept := matches

	for len(kept) >= 2 {
		_, inliers, err := EstimateRigid(kept, iterations, threshold)
		if err != nil {
			return nil, err
		}

		next := make([]Match, 0, len(kept))
		for i, m := range kept {
			if inliers[i] {
				next = append(next, m)
			}
		}

		outliers := len(kept) - len(next)
		kept = next
		if outliers == 0 {
			break
		}
	}

	return kept, nil
}

// ReprojectionError returns the mean distance between reference points and
// transformed target points.
func ReprojectionError(matches []Match, t geometry.AffineTransform) float64 {
	if len(matches) == 0 {
		return math.Inf(1)
	}

	var total float64
	for _, m := range matches {
		total += t.Apply(m.Tgt).Distance(m.Ref)
	}
	return total / float64(len(matches))
}

// rigidFromPair computes a rigid transform from two point correspondences.
func rigidFromPair(m0, m1 Match) (geometry.AffineTransform, error) {
	sx, sy := m1.Tgt.X-m0.Tgt.X, m1.Tgt.Y-m0.Tgt.Y
	dx, dy := m1.Ref.X-m0.Ref.X, m1.Ref.Y-m0.Ref.Y

	srcLen := math.Sqrt(sx*sx + sy*sy)
	dstLen := math.Sqrt(dx*dx + dy*dy)
	if srcLen < 0.001 || dstLen < 0.001 {
		return geometry.AffineTransform{}, fmt.Errorf("%w: coincident sample points", ErrDegenerateGeometry)
	}

	theta := math.Atan2(dy, dx) - math.Atan2(sy, sx)
	cosT := math.Cos(theta)
	sinT := math.Sin(theta)

	// m0.Ref = R * m0.Tgt + t  =>  t = m0.Ref - R * m0.Tgt
	tx := m0.Ref.X - (cosT*m0.Tgt.X - sinT*m0.Tgt.Y)
	ty := m0.Ref.Y - (sinT*m0.Tgt.X + cosT*m0.Tgt.Y)

	return geometry.AffineTransform{
		A: cosT, B: -sinT, TX: tx,
		C: sinT, D: cosT, TY: ty,
	}, nil
}

// rigidLeastSquares computes the best rigid transform from N point pairs via
// the Kabsch method: SVD of the 2x2 cross-covariance of the centered point
// sets, with a determinant correction so the result is a proper rotation.
func rigidLeastSquares(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	if len(src) < 2 || len(src) != len(dst) {
		return geometry.AffineTransform{}, fmt.Errorf("%w: invalid point sets", ErrDegenerateGeometry)
	}

	srcC := geometry.Centroid(src)
	dstC := geometry.Centroid(dst)

	h := mat.NewDense(2, 2, nil)
	for i := range src {
		sx, sy := src[i].X-srcC.X, src[i].Y-srcC.Y
		dx, dy := dst[i].X-dstC.X, dst[i].Y-dstC.Y
		h.Set(0, 0, h.At(0, 0)+sx*dx)
		h.Set(0, 1, h.At(0, 1)+sx*dy)
		h.Set(1, 0, h.At(1, 0)+sy*dx)
		h.Set(1, 1, h.At(1, 1)+sy*dy)
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return geometry.AffineTransform{}, fmt.Errorf("%w: SVD failed", ErrDegenerateGeometry)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&v, u.T())
	if mat.Det(&r) < 0 {
		// Reflection case: flip the sign of V's second column.
		v.Set(0, 1, -v.At(0, 1))
		v.Set(1, 1, -v.At(1, 1))
		r.Mul(&v, u.T())
	}

	cosT := r.At(0, 0)
	sinT := r.At(1, 0)

	tx := dstC.X - (cosT*srcC.X - sinT*srcC.Y)
	ty := dstC.Y - (sinT*srcC.X + cosT*srcC.Y)

	return geometry.AffineTransform{
		A: cosT, B: -sinT, TX: tx,
		C: sinT, D: cosT, TY: ty,
	}, nil
}
