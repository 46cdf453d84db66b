// Package report serializes the adjusted call cube into a read report. The
// format is not part of the consensus core's contract; this writer emits a
// deterministic TSV sorted by consensus coordinate.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"iris-caller/internal/barcode"
)

// WriteReads writes one line per consensus coordinate: the coordinate key,
// the barcode string (one base per cycle) and the per-cycle adjusted error
// rates.
func WriteReads(w io.Writer, cube *barcode.Cube) error {
	if len(cube.Adjusted) == 0 {
		return fmt.Errorf("report: no adjusted calls (run Adjust first)")
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "#coordinate\tbarcode\terror_rates\n"); err != nil {
		return err
	}

	coords := make([]barcode.Coord, 0, len(cube.Adjusted[0]))
	for coord := range cube.Adjusted[0] {
		coords = append(coords, coord)
	}
	sortCoords(coords)

	var bases strings.Builder
	var rates strings.Builder

	for _, coord := range coords {
		bases.Reset()
		rates.Reset()

		for cycleID := range cube.Adjusted {
			call := cube.Adjusted[cycleID][coord]
			bases.WriteByte(call.Base)
			if cycleID > 0 {
				rates.WriteByte(',')
			}
			fmt.Fprintf(&rates, "%.4f", call.ErrorRate)
		}

		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", coord, bases.String(), rates.String()); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteReadsFile writes the read report to a file path.
func WriteReadsFile(path string, cube *barcode.Cube) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := WriteReads(f, cube); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// sortCoords puts coordinates in row-major order so the report is stable
// across runs.
func sortCoords(coords []barcode.Coord) {
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
}
