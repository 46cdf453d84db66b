package barcode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSkipsNoCalls(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{
		{Row: 10, Col: 10}: {Base: BaseA, ErrorRate: 0.2},
		{Row: 20, Col: 20}: {Base: BaseN, ErrorRate: 1.0},
	})

	assert.Equal(t, []Coord{{Row: 10, Col: 10}}, cube.Candidates())
	assert.Equal(t, 1, cube.CycleCount())
}

func TestCollectGrowsMonotonically(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{{Row: 1, Col: 1}: {Base: BaseA, ErrorRate: 0.1}})
	cube.Collect(CallMap{{Row: 5, Col: 5}: {Base: BaseT, ErrorRate: 0.1}})
	cube.Collect(CallMap{{Row: 1, Col: 1}: {Base: BaseC, ErrorRate: 0.3}})

	assert.Len(t, cube.Candidates(), 2)
	assert.Equal(t, 3, cube.CycleCount())
}

func TestDedupeMergesTouchingFootprints(t *testing.T) {
	// 2x2 footprints at columns 100 and 102 touch at columns 101/102 and
	// collapse to one consensus coordinate.
	cube := NewCube()
	cube.Collect(CallMap{{Row: 100, Col: 100}: {Base: BaseA, ErrorRate: 0.1}})
	cube.Collect(CallMap{{Row: 100, Col: 102}: {Base: BaseT, ErrorRate: 0.05}})

	cube.Dedupe(200, 200, 2)

	// Component pixels: rows 100-101, columns 100-103. Centroid
	// (100.5, 101.5) truncates to (100, 101).
	assert.Equal(t, []Coord{{Row: 100, Col: 101}}, cube.Candidates())
}

func TestDedupeKeepsSeparatedFootprints(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{
		{Row: 10, Col: 10}: {Base: BaseA, ErrorRate: 0.1},
		{Row: 10, Col: 40}: {Base: BaseG, ErrorRate: 0.1},
	})

	cube.Dedupe(100, 100, 2)

	assert.Equal(t, []Coord{{Row: 10, Col: 10}, {Row: 10, Col: 40}}, cube.Candidates())
}

func TestDedupeIdempotent(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{
		{Row: 100, Col: 100}: {Base: BaseA, ErrorRate: 0.1},
		{Row: 100, Col: 102}: {Base: BaseT, ErrorRate: 0.05},
		{Row: 150, Col: 30}:  {Base: BaseG, ErrorRate: 0.2},
		{Row: 151, Col: 31}:  {Base: BaseC, ErrorRate: 0.2},
	})

	cube.Dedupe(200, 200, 2)
	first := cube.Candidates()

	cube.Dedupe(200, 200, 2)
	assert.Equal(t, first, cube.Candidates(), "re-running dedup must not merge or move anything")
}

func TestDedupeNeverIncreasesCount(t *testing.T) {
	cube := NewCube()
	calls := make(CallMap)
	for r := 0; r < 50; r += 3 {
		for c := 0; c < 50; c += 2 {
			calls[Coord{Row: r, Col: c}] = Call{Base: BaseA, ErrorRate: 0.1}
		}
	}
	cube.Collect(calls)
	before := len(cube.Candidates())

	cube.Dedupe(60, 60, 2)
	assert.LessOrEqual(t, len(cube.Candidates()), before)
}

func TestDedupeClipsCanvas(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{{Row: 99, Col: 99}: {Base: BaseA, ErrorRate: 0.1}})

	// Footprint extends past the 100x100 canvas; only the in-bounds pixel
	// counts.
	cube.Dedupe(100, 100, 2)
	assert.Equal(t, []Coord{{Row: 99, Col: 99}}, cube.Candidates())
}

func TestAdjustSelectsLowestPenalizedCall(t *testing.T) {
	// Two cycles, calls three columns apart merging to one consensus
	// coordinate. The T call sits closer to the centroid and carries a lower
	// raw error, so it wins its cycle outright.
	cube := NewCube()
	cube.Collect(CallMap{{Row: 100, Col: 100}: {Base: BaseA, ErrorRate: 0.1}})
	cube.Collect(CallMap{{Row: 100, Col: 102}: {Base: BaseT, ErrorRate: 0.05}})

	cube.Dedupe(200, 200, 2)
	require.Equal(t, []Coord{{Row: 100, Col: 101}}, cube.Candidates())

	cube.Adjust(WindowLow, WindowHigh)
	require.Len(t, cube.Adjusted, 2)

	consensus := Coord{Row: 100, Col: 101}

	// Cycle 0: A at distance 1 -> sqrt((0.1*1)^2 + 0.1^2).
	got0 := cube.Adjusted[0][consensus]
	assert.Equal(t, BaseA, got0.Base)
	assert.InDelta(t, math.Sqrt(0.02), got0.ErrorRate, 1e-12)
	assert.GreaterOrEqual(t, got0.ErrorRate, 0.1, "penalty never improves on the raw rate")

	// Cycle 1: T at distance 1 -> sqrt((0.05*1)^2 + 0.05^2), still below
	// cycle 0's raw 0.1.
	got1 := cube.Adjusted[1][consensus]
	assert.Equal(t, BaseT, got1.Base)
	assert.InDelta(t, math.Sqrt(0.005), got1.ErrorRate, 1e-12)
	assert.Less(t, got1.ErrorRate, 0.1)
}

func TestAdjustEmptyWindowIsNoCall(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{{Row: 10, Col: 10}: {Base: BaseA, ErrorRate: 0.1}})
	cube.Collect(CallMap{{Row: 90, Col: 90}: {Base: BaseT, ErrorRate: 0.1}})

	cube.Adjust(WindowLow, WindowHigh)

	// Cycle 1 has no call anywhere near (10, 10).
	got := cube.Adjusted[1][Coord{Row: 10, Col: 10}]
	assert.Equal(t, BaseN, got.Base)
	assert.Equal(t, 1.0, got.ErrorRate)
}

func TestAdjustWindowBoundsAsymmetry(t *testing.T) {
	// The search window is [r-5, r+7) x [c-5, c+7): five units below, six
	// above. The asymmetry is part of the contract, pinned here.
	cases := []struct {
		name     string
		dr, dc   int
		included bool
	}{
		{"row upper inside", 6, 0, true},
		{"row upper outside", 7, 0, false},
		{"row lower inside", -5, 0, true},
		{"row lower outside", -6, 0, false},
		{"col upper inside", 0, 6, true},
		{"col upper outside", 0, 7, false},
		{"col lower inside", 0, -5, true},
		{"col lower outside", 0, -6, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cube := NewCube()
			cube.Collect(CallMap{{Row: 50, Col: 50}: {Base: BaseA, ErrorRate: 0.9}})
			cube.Collect(CallMap{{Row: 50 + tc.dr, Col: 50 + tc.dc}: {Base: BaseT, ErrorRate: 0.01}})

			cube.Adjust(WindowLow, WindowHigh)

			got := cube.Adjusted[1][Coord{Row: 50, Col: 50}]
			if tc.included {
				assert.Equal(t, BaseT, got.Base)
			} else {
				assert.Equal(t, BaseN, got.Base)
				assert.Equal(t, 1.0, got.ErrorRate)
			}
		})
	}
}

func TestAdjustRatesStayInRange(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{
		{Row: 30, Col: 30}: {Base: BaseA, ErrorRate: 0.95},
		{Row: 33, Col: 35}: {Base: BaseC, ErrorRate: 0.4},
	})
	cube.Collect(CallMap{
		{Row: 31, Col: 31}: {Base: BaseG, ErrorRate: 0.0},
	})

	cube.Adjust(WindowLow, WindowHigh)

	for cycleID := range cube.Adjusted {
		for coord, call := range cube.Adjusted[cycleID] {
			assert.GreaterOrEqual(t, call.ErrorRate, 0.0, "cycle %d %v", cycleID, coord)
			assert.LessOrEqual(t, call.ErrorRate, 1.0, "cycle %d %v", cycleID, coord)
		}
	}
}

func TestAdjustClampsPenaltyToOne(t *testing.T) {
	// High raw error at distance: the raw formula exceeds 1 and must clamp,
	// and a clamped 1.0 never beats the no-call default.
	cube := NewCube()
	cube.Collect(CallMap{{Row: 20, Col: 20}: {Base: BaseA, ErrorRate: 0.9}})
	cube.Collect(CallMap{{Row: 24, Col: 24}: {Base: BaseT, ErrorRate: 0.9}})

	cube.Adjust(WindowLow, WindowHigh)

	// Cycle 1 seen from consensus (20, 20): D = sqrt(32) ~ 5.66, adjusted
	// sqrt((0.9*5.66)^2 + 0.81) > 1.
	got := cube.Adjusted[1][Coord{Row: 20, Col: 20}]
	assert.Equal(t, BaseN, got.Base)
	assert.Equal(t, 1.0, got.ErrorRate)
}

func TestAdjustSingleCycleStillProceeds(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{{Row: 5, Col: 5}: {Base: BaseG, ErrorRate: 0.2}})

	cube.Adjust(WindowLow, WindowHigh)

	require.Len(t, cube.Adjusted, 1)
	got := cube.Adjusted[0][Coord{Row: 5, Col: 5}]
	assert.Equal(t, BaseG, got.Base)
	assert.InDelta(t, 0.2, got.ErrorRate, 1e-12, "zero distance leaves sqrt(0 + err^2) = err")
}

func TestAdjustZeroDistanceKeepsRawRate(t *testing.T) {
	cube := NewCube()
	cube.Collect(CallMap{{Row: 7, Col: 7}: {Base: BaseC, ErrorRate: 0.33}})
	cube.Collect(CallMap{{Row: 7, Col: 7}: {Base: BaseA, ErrorRate: 0.12}})

	cube.Adjust(WindowLow, WindowHigh)

	assert.InDelta(t, 0.33, cube.Adjusted[0][Coord{Row: 7, Col: 7}].ErrorRate, 1e-12)
	assert.InDelta(t, 0.12, cube.Adjusted[1][Coord{Row: 7, Col: 7}].ErrorRate, 1e-12)
}

func TestCoordStringAndOrdering(t *testing.T) {
	assert.Equal(t, "r00012c00345", Coord{Row: 12, Col: 345}.String())

	a := Coord{Row: 1, Col: 9}
	b := Coord{Row: 2, Col: 0}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, Coord{Row: 2, Col: 0}.Less(Coord{Row: 2, Col: 1}))
}

func TestCoordDistance(t *testing.T) {
	assert.InDelta(t, 5, Coord{Row: 0, Col: 0}.Distance(Coord{Row: 3, Col: 4}), 1e-12)
}
