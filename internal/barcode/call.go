package barcode

// Base symbols. BaseN marks a no-call.
const (
	BaseA byte = 'A'
	BaseT byte = 'T'
	BaseC byte = 'C'
	BaseG byte = 'G'
	BaseN byte = 'N'
)

// Call is a called base with its error rate in [0, 1]; lower is better.
type Call struct {
	Base      byte
	ErrorRate float64
}

// CallMap maps lattice coordinates to calls for one cycle. A cycle's map is
// produced once by the detector and never mutated afterward.
type CallMap map[Coord]Call
