// Package barcode turns per-cycle base calls into cross-cycle consensus
// barcodes with distance-adjusted error rates.
package barcode

import (
	"fmt"
	"math"
)

// Coord is an integer pixel location used as the canonical key in all call
// maps. Coordinates are unique within any single cycle's call map.
type Coord struct {
	Row int
	Col int
}

// String formats the coordinate in the fixed-width rNNNNNcNNNNN form used by
// the report writer.
func (c Coord) String() string {
	return fmt.Sprintf("r%05dc%05d", c.Row, c.Col)
}

// Less orders coordinates row-major.
func (c Coord) Less(other Coord) bool {
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

// Distance returns the Euclidean pixel distance to another coordinate.
func (c Coord) Distance(other Coord) float64 {
	dr := float64(c.Row - other.Row)
	dc := float64(c.Col - other.Col)
	return math.Sqrt(dr*dr + dc*dc)
}
