package world

import "fmt"

// Map holds the complete hex grid world state.
type Map struct {
	Hexes  map[HexCoord]*Hex `json:"-"` // All hexes keyed by coordinate
	Radius int               `json:"radius"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int) *Map {
	return &Map{
		Hexes:  make(map[HexCoord]*Hex),
		Radius: radius,
	}
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Hex {
	return m.Hexes[coord]
}

// Set places a hex at the given coordinate.
func (m *Map) Set(hex *Hex) {
	m.Hexes[hex.Coord] = hex
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	q := coord.Q
	r := coord.R
	s := coord.S()
	if q < 0 {
		q = -q
	}
	if r < 0 {
		r = -r
	}
	if s < 0 {
		s = -s
	}
	max := q
	if r > max {
		max = r
	}
	if s > max {
		max = s
	}
	return max <= m.Radius
}

// HexCount returns the total number of hexes in the map.
func (m *Map) HexCount() int {
	return len(m.Hexes)
}

// NearestResourceHex finds the hex closest to origin that still holds the
// given resource, scanning outward by hex distance. Returns false if no hex
// within maxRange has any of it left. Ties at equal distance are broken by
// (q, r) order so the result is stable across runs.
func (m *Map) NearestResourceHex(origin HexCoord, res ResourceType, maxRange int) (HexCoord, bool) {
	best := HexCoord{}
	bestDist := maxRange + 1
	found := false

	for coord, hex := range m.Hexes {
		if hex.Resources[res] <= 0 {
			continue
		}
		d := Distance(origin, coord)
		if d > maxRange {
			continue
		}
		if !found || d < bestDist ||
			(d == bestDist && (coord.Q < best.Q || (coord.Q == best.Q && coord.R < best.R))) {
			best = coord
			bestDist = d
			found = true
		}
	}
	return best, found
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, hexes=%d)", m.Radius, m.HexCount())
}
