// Movement cost model for the pathfinding engine.
// Costs are per destination hex and configurable per terrain, with one hard
// rule: ocean can never be crossed on foot, whatever the configuration says.
package world

// ImpassableCost is the sentinel above which a hex is treated as untraversable.
const ImpassableCost = 1e9

// CostTable maps terrain to movement cost. Values at or above ImpassableCost
// block traversal entirely.
type CostTable map[Terrain]float64

// DefaultCosts returns the baseline movement cost table.
func DefaultCosts() CostTable {
	return CostTable{
		TerrainPlains:   1.0,
		TerrainForest:   1.5,
		TerrainMountain: 3.0,
		TerrainCoast:    1.0,
		TerrainRiver:    2.0,
		TerrainDesert:   2.0,
		TerrainSwamp:    2.5,
		TerrainTundra:   1.5,
		TerrainOcean:    ImpassableCost,
	}
}

// Cost returns the movement cost for entering a hex of the given terrain.
// Ocean is always impassable, even when a configuration override supplies a
// finite value for it. Terrains missing from the table default to 1.0.
func (c CostTable) Cost(t Terrain) float64 {
	if t == TerrainOcean {
		return ImpassableCost
	}
	v, ok := c[t]
	if !ok {
		return 1.0
	}
	if v >= ImpassableCost {
		return ImpassableCost
	}
	return v
}

// Passable reports whether a hex of the given terrain can be entered.
func (c CostTable) Passable(t Terrain) bool {
	return c.Cost(t) < ImpassableCost
}

// TerrainByName resolves a lowercase terrain name from configuration.
func TerrainByName(name string) (Terrain, bool) {
	switch name {
	case "plains":
		return TerrainPlains, true
	case "forest":
		return TerrainForest, true
	case "mountain":
		return TerrainMountain, true
	case "coast":
		return TerrainCoast, true
	case "river":
		return TerrainRiver, true
	case "desert":
		return TerrainDesert, true
	case "swamp":
		return TerrainSwamp, true
	case "tundra":
		return TerrainTundra, true
	case "ocean":
		return TerrainOcean, true
	default:
		return 0, false
	}
}

// AverageCost returns the mean cost across passable terrains. The dispatcher
// uses it to weight raw hex distance when scoring job bids.
func (c CostTable) AverageCost() float64 {
	total := 0.0
	n := 0
	for t := Terrain(0); t < NumTerrains; t++ {
		cost := c.Cost(t)
		if cost >= ImpassableCost {
			continue
		}
		total += cost
		n++
	}
	if n == 0 {
		return 1.0
	}
	return total / float64(n)
}
