package path

import (
	"testing"

	"github.com/talgya/freehold/internal/world"
)

// flatMap builds a map of the given radius where every hex is the same terrain.
func flatMap(radius int, t world.Terrain) *world.Map {
	m := world.NewMap(radius)
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			coord := world.HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}
			m.Set(&world.Hex{Coord: coord, Terrain: t, Resources: map[world.ResourceType]int{}})
		}
	}
	return m
}

func TestFindStartEqualsGoal(t *testing.T) {
	m := flatMap(3, world.TerrainPlains)
	route, ok := Find(m, world.DefaultCosts(), world.HexCoord{}, world.HexCoord{}, 0)
	if !ok {
		t.Fatal("expected success for start == goal")
	}
	if route == nil {
		t.Fatal("expected non-nil empty path")
	}
	if len(route) != 0 {
		t.Fatalf("expected empty path, got %v", route)
	}
}

func TestFindAdjacentCells(t *testing.T) {
	m := flatMap(3, world.TerrainPlains)
	start := world.HexCoord{Q: 0, R: 0}
	for _, goal := range start.Neighbors() {
		route, ok := Find(m, world.DefaultCosts(), start, goal, 0)
		if !ok {
			t.Fatalf("expected path to adjacent hex %v", goal)
		}
		if len(route) != 1 || route[0] != goal {
			t.Fatalf("expected single-element path to %v, got %v", goal, route)
		}
	}
}

func TestFindImpassableDestination(t *testing.T) {
	m := flatMap(3, world.TerrainPlains)
	goal := world.HexCoord{Q: 2, R: 0}
	m.Get(goal).Terrain = world.TerrainOcean

	route, ok := Find(m, world.DefaultCosts(), world.HexCoord{}, goal, 0)
	if ok || route != nil {
		t.Fatalf("expected immediate failure for impassable destination, got %v", route)
	}
}

func TestFindMissingDestination(t *testing.T) {
	m := flatMap(2, world.TerrainPlains)
	_, ok := Find(m, world.DefaultCosts(), world.HexCoord{}, world.HexCoord{Q: 50, R: 50}, 0)
	if ok {
		t.Fatal("expected failure for off-map destination")
	}
}

func TestFindRoutesAroundWater(t *testing.T) {
	m := flatMap(4, world.TerrainPlains)
	// Wall of ocean across q == 1 except one gap at r == 3.
	for r := -4; r <= 4; r++ {
		coord := world.HexCoord{Q: 1, R: r}
		if hex := m.Get(coord); hex != nil && r != 3 {
			hex.Terrain = world.TerrainOcean
		}
	}

	start := world.HexCoord{Q: 0, R: 0}
	goal := world.HexCoord{Q: 3, R: 0}
	route, ok := Find(m, world.DefaultCosts(), start, goal, 0)
	if !ok {
		t.Fatal("expected path through the gap")
	}
	for _, c := range route {
		if m.Get(c).Terrain == world.TerrainOcean {
			t.Fatalf("route crosses ocean at %v", c)
		}
	}
	if route[len(route)-1] != goal {
		t.Fatalf("route does not end at goal: %v", route)
	}
}

func TestFindOceanImpassableDespiteOverride(t *testing.T) {
	m := flatMap(3, world.TerrainPlains)
	mid := world.HexCoord{Q: 1, R: 0}
	m.Get(mid).Terrain = world.TerrainOcean

	// A misconfigured table that claims ocean is cheap.
	costs := world.DefaultCosts()
	costs[world.TerrainOcean] = 0.5

	route, ok := Find(m, costs, world.HexCoord{}, world.HexCoord{Q: 2, R: 0}, 0)
	if !ok {
		t.Fatal("expected detour path")
	}
	for _, c := range route {
		if c == mid {
			t.Fatal("path crossed ocean despite hard impassability rule")
		}
	}
}

func TestFindIterationCeiling(t *testing.T) {
	m := flatMap(8, world.TerrainPlains)
	start := world.HexCoord{Q: -8, R: 0}
	goal := world.HexCoord{Q: 8, R: 0}

	if _, ok := Find(m, world.DefaultCosts(), start, goal, 0); !ok {
		t.Fatal("sanity: target reachable with default budget")
	}
	if _, ok := Find(m, world.DefaultCosts(), start, goal, 3); ok {
		t.Fatal("expected failure when search budget is exhausted")
	}
}

func TestFindPrefersCheapTerrain(t *testing.T) {
	m := flatMap(4, world.TerrainPlains)
	// Make the direct corridor expensive.
	for q := 1; q <= 2; q++ {
		m.Get(world.HexCoord{Q: q, R: 0}).Terrain = world.TerrainMountain
	}

	route, ok := Find(m, world.DefaultCosts(), world.HexCoord{}, world.HexCoord{Q: 3, R: 0}, 0)
	if !ok {
		t.Fatal("expected path")
	}
	for _, c := range route {
		if m.Get(c).Terrain == world.TerrainMountain {
			t.Fatalf("route should detour around mountains, went through %v", c)
		}
	}
}
