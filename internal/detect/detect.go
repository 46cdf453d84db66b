// Package detect provides the default blob/base detector. Detection
// thresholds are a replaceable collaborator of the consensus core: anything
// satisfying Detector can feed the pipeline.
package detect

import (
	"math"

	"gocv.io/x/gocv"

	"iris-caller/internal/barcode"
)

// Detector produces one cycle's call map from its registered base channels
// (A, T, C, G order).
type Detector interface {
	DetectCycle(channels []gocv.Mat) (barcode.CallMap, error)
}

var channelBases = [4]byte{barcode.BaseA, barcode.BaseT, barcode.BaseC, barcode.BaseG}

// BlobDetector calls bases from fluorescence blobs: a blob detected on any
// channel becomes a lattice coordinate, the channel with the highest
// intensity at that coordinate names the base, and the intensity share of the
// other channels sets the error rate.
type BlobDetector struct {
	params gocv.SimpleBlobDetectorParams
}

// NewBlobDetector returns a detector tuned for small bright spots.
func NewBlobDetector() *BlobDetector {
	params := gocv.NewSimpleBlobDetectorParams()
	params.SetFilterByArea(true)
	params.SetMinArea(1)
	params.SetMaxArea(100)
	params.SetFilterByColor(true)
	params.SetBlobColor(255)
	params.SetFilterByCircularity(false)
	params.SetFilterByConvexity(false)
	params.SetFilterByInertia(false)
	params.SetMinThreshold(16)
	params.SetMaxThreshold(240)

	return &BlobDetector{params: params}
}

// DetectCycle scans every base channel for blobs and merges the per-channel
// candidates into one call map. When two channels report the same lattice
// coordinate, the call with the lower error rate wins.
func (d *BlobDetector) DetectCycle(channels []gocv.Mat) (barcode.CallMap, error) {
	detector := gocv.NewSimpleBlobDetectorWithParams(d.params)
	defer detector.Close()

	calls := make(barcode.CallMap)

	for _, channel := range channels {
		if channel.Empty() {
			continue
		}

		for _, kp := range detector.Detect(channel) {
			coord := barcode.Coord{
				Row: int(math.Round(kp.Y)),
				Col: int(math.Round(kp.X)),
			}
			if coord.Row < 0 || coord.Row >= channel.Rows() ||
				coord.Col < 0 || coord.Col >= channel.Cols() {
				continue
			}

			call := callAt(channels, coord)
			if prev, ok := calls[coord]; !ok || call.ErrorRate < prev.ErrorRate {
				calls[coord] = call
			}
		}
	}

	return calls, nil
}

// callAt reads the four channel intensities at a coordinate and converts the
// dominant channel into a call. A dark pixel on all channels is a no-call.
func callAt(channels []gocv.Mat, coord barcode.Coord) barcode.Call {
	var sum, best float64
	bestIdx := -1

	for i, channel := range channels {
		v := float64(channel.GetUCharAt(coord.Row, coord.Col))
		sum += v
		if v > best {
			best = v
			bestIdx = i
		}
	}

	if bestIdx < 0 || sum == 0 {
		return barcode.Call{Base: barcode.BaseN, ErrorRate: 1}
	}

	return barcode.Call{
		Base:      channelBases[bestIdx],
		ErrorRate: 1 - best/sum,
	}
}
