// Settlement placement — scores land hexes and seeds the starting towns.
package world

import (
	"math"
	"math/rand"
	"sort"
)

// SettlementSeed holds the parameters for an initial settlement placement.
type SettlementSeed struct {
	Coord HexCoord
	Score float64 // Desirability score
	Name  string
}

// PlaceSettlements finds the count most desirable locations on the map,
// enforcing a minimum pairwise distance. Candidate order is fully determined
// by score then coordinate, so the same map and seed always yield the same
// towns in the same order.
func PlaceSettlements(m *Map, seed int64, count, minDist int) []SettlementSeed {
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored

	for q := -m.Radius; q <= m.Radius; q++ {
		for r := -m.Radius; r <= m.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			hex := m.Get(coord)
			if hex == nil || hex.Terrain == TerrainOcean {
				continue
			}
			if s := settlementScore(m, coord, hex); s > 0 {
				candidates = append(candidates, scored{coord, s})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].coord.Q != candidates[j].coord.Q {
			return candidates[i].coord.Q < candidates[j].coord.Q
		}
		return candidates[i].coord.R < candidates[j].coord.R
	})

	var seeds []SettlementSeed
	for _, c := range candidates {
		if len(seeds) >= count {
			break
		}
		if tooClose(c.coord, seeds, minDist) {
			continue
		}
		seeds = append(seeds, SettlementSeed{Coord: c.coord, Score: c.score})
	}

	names := generateNames(rng, len(seeds))
	for i := range seeds {
		seeds[i].Name = names[i]
	}

	return seeds
}

// settlementScore evaluates how desirable a hex is for a settlement.
// Prefers coast (trade), rivers, fertile plains, and resource-rich ground.
func settlementScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 0.0

	switch hex.Terrain {
	case TerrainPlains:
		score += 3.0
	case TerrainCoast:
		score += 4.0 // Harbors are prime locations
	case TerrainRiver:
		score += 3.5
	case TerrainForest:
		score += 1.5
	case TerrainDesert, TerrainSwamp, TerrainTundra:
		score += 0.5
	case TerrainMountain:
		score += 0.3
	default:
		return 0
	}

	// Bonus for nearby terrain diversity.
	terrainTypes := make(map[Terrain]bool)
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh != nil && nh.Terrain != TerrainOcean {
			terrainTypes[nh.Terrain] = true
		}
	}
	score += float64(len(terrainTypes)) * 0.3

	// Bonus for water access.
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh == nil {
			continue
		}
		if nh.Terrain == TerrainRiver || nh.Terrain == TerrainCoast {
			score += 0.5
			break
		}
	}

	// Bonus for resources on the hex itself.
	totalRes := 0
	for _, v := range hex.Resources {
		totalRes += v
	}
	score += math.Log1p(float64(totalRes)) * 0.2

	return score
}

func tooClose(coord HexCoord, existing []SettlementSeed, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural settlement names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "High", "Low", "Old", "New",
		"Far", "Deep", "Long", "Broad", "Gold", "Frost", "Elm",
		"Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "well", "brook", "moor", "ridge", "reach",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)

	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}

	return names
}
