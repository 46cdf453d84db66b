package registration

import (
	"sort"

	"gocv.io/x/gocv"

	"iris-caller/pkg/geometry"
)

// Match pairs a reference keypoint location with a target keypoint location,
// along with the Hamming distance of their descriptors.
type Match struct {
	Ref      geometry.Point2D
	Tgt      geometry.Point2D
	Distance float64
}

// matchDescriptors nearest-neighbor matches every target descriptor against
// the reference set under a mutual-consistency (cross-check) constraint, one
// best match per target keypoint. Results are sorted by ascending descriptor
// distance so downstream processing is deterministic.
func matchDescriptors(refDesc, tgtDesc gocv.Mat, refKps, tgtKps []gocv.KeyPoint) []Match {
	matcher := gocv.NewBFMatcherWithParams(gocv.NormHamming, true)
	defer matcher.Close()

	candidates := matcher.KnnMatch(tgtDesc, refDesc, 1)

	matches := make([]Match, 0, len(candidates))
	for _, best := range candidates {
		if len(best) == 0 {
			continue
		}
		m := best[0]
		matches = append(matches, Match{
			Ref:      geometry.NewPoint2D(refKps[m.TrainIdx].X, refKps[m.TrainIdx].Y),
			Tgt:      geometry.NewPoint2D(tgtKps[m.QueryIdx].X, tgtKps[m.QueryIdx].Y),
			Distance: m.Distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	return matches
}
