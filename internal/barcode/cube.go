package barcode

import (
	"fmt"
	"math"
	"os"
	"sort"
)

// Cube accumulates per-cycle call maps and derives the consensus barcode
// calls. It owns the candidate coordinate set and the ordered list of cycle
// call maps; Adjusted is rebuilt by Adjust and only read elsewhere.
type Cube struct {
	candidates map[Coord]struct{}
	cycles     []CallMap

	// Adjusted maps cycle index -> consensus coordinate -> best call.
	Adjusted []CallMap
}

// NewCube returns an empty consensus cube.
func NewCube() *Cube {
	return &Cube{candidates: make(map[Coord]struct{})}
}

// Collect appends one cycle's call map and unions its called (non-N)
// coordinates into the candidate set. The map is kept by reference and must
// not be mutated by the caller afterward.
func (b *Cube) Collect(calls CallMap) {
	for coord, call := range calls {
		if call.Base != BaseN {
			b.candidates[coord] = struct{}{}
		}
	}
	b.cycles = append(b.cycles, calls)
}

// CycleCount returns how many cycles have been collected.
func (b *Cube) CycleCount() int {
	return len(b.cycles)
}

// Candidates returns the current candidate coordinates in row-major order.
func (b *Cube) Candidates() []Coord {
	coords := make([]Coord, 0, len(b.candidates))
	for coord := range b.candidates {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// Dedupe merges spatially adjacent candidates into single consensus
// coordinates. Every candidate stamps a footprint x footprint square on a
// canvas of the background image shape; touching footprints (8-connectivity)
// form one connected component, which is replaced by the centroid of its
// pixels truncated to a lattice position. The candidate set is
// replaced wholesale, so nearby calls from different cycles collapse to one
// physical location. Never grows the set; idempotent on its own output.
func (b *Cube) Dedupe(width, height, footprint int) {
	if width <= 0 || height <= 0 || len(b.candidates) == 0 {
		return
	}

	mask := make([]bool, width*height)
	for coord := range b.candidates {
		for r := coord.Row; r < coord.Row+footprint; r++ {
			if r < 0 || r >= height {
				continue
			}
			for c := coord.Col; c < coord.Col+footprint; c++ {
				if c < 0 || c >= width {
					continue
				}
				mask[r*width+c] = true
			}
		}
	}

	merged := make(map[Coord]struct{})
	visited := make([]bool, width*height)
	var stack []int

	for start := 0; start < len(mask); start++ {
		if !mask[start] || visited[start] {
			continue
		}

		// Flood fill one component, accumulating its pixel moment.
		var sumR, sumC, count int
		stack = append(stack[:0], start)
		visited[start] = true

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			r, c := idx/width, idx%width
			sumR += r
			sumC += c
			count++

			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					nr, nc := r+dr, c+dc
					if nr < 0 || nr >= height || nc < 0 || nc >= width {
						continue
					}
					nidx := nr*width + nc
					if mask[nidx] && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
		}

		// Truncation (not rounding) keeps dedup idempotent: an isolated
		// footprint's centroid sits half a pixel off its origin, and
		// truncating maps it back to the same lattice position every time.
		merged[Coord{
			Row: sumR / count,
			Col: sumC / count,
		}] = struct{}{}
	}

	b.candidates = merged
}

// Window bounds for Adjust: rows [r-windowLow, r+windowHigh) by columns
// [c-windowLow, c+windowHigh). The asymmetry (5 below, 6 above) is part of
// the calling contract; see the tests that pin it.
const (
	WindowLow  = 5
	WindowHigh = 7
)

// Adjust builds the adjusted call cube: for every cycle and every consensus
// coordinate, the raw call in the neighborhood window with the lowest
// distance-penalized error rate wins. The penalty for a raw call at distance
// D is sqrt((err*D)^2 + err^2) clamped to 1, so an adjusted rate never beats
// the raw measurement. An empty window yields a no-call at maximal
// uncertainty.
func (b *Cube) Adjust(windowLow, windowHigh int) {
	if len(b.cycles) == 0 {
		return
	}
	if len(b.cycles) == 1 {
		fmt.Fprintln(os.Stderr, "only one cycle collected; cross-cycle barcode connection is not meaningful")
	}

	b.Adjusted = make([]CallMap, len(b.cycles))

	for cycleID, calls := range b.cycles {
		adjusted := make(CallMap, len(b.candidates))

		for coord := range b.candidates {
			best := Call{Base: BaseN, ErrorRate: 1.0}

			for row := coord.Row - windowLow; row < coord.Row+windowHigh; row++ {
				for col := coord.Col - windowLow; col < coord.Col+windowHigh; col++ {
					raw, ok := calls[Coord{Row: row, Col: col}]
					if !ok {
						continue
					}

					d := coord.Distance(Coord{Row: row, Col: col})
					adj := math.Sqrt((raw.ErrorRate*d)*(raw.ErrorRate*d) + raw.ErrorRate*raw.ErrorRate)
					if adj > 1 {
						adj = 1
					}

					// Strict less-than: the first window cell (row-major)
					// reaching the minimum wins.
					if adj < best.ErrorRate {
						best = Call{Base: raw.Base, ErrorRate: adj}
					}
				}
			}

			adjusted[coord] = best
		}

		b.Adjusted[cycleID] = adjusted
	}
}
