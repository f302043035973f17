// Package path provides the shared pathfinding engine: A* over the hex grid
// with a run-scoped result cache used by every mobile worker in a simulation.
package path

import (
	"container/heap"

	"github.com/talgya/freehold/internal/world"
)

// DefaultMaxIterations bounds a single search. A reachable target beyond the
// ceiling is reported as unreachable — a throughput guard, not a correctness
// feature.
const DefaultMaxIterations = 4096

// Find runs A* from start to goal over the map using the given cost table.
// The returned path excludes the start hex. start == goal yields an empty,
// non-nil path. An impassable or missing goal hex fails immediately without
// searching. maxIter <= 0 falls back to DefaultMaxIterations.
func Find(m *world.Map, costs world.CostTable, start, goal world.HexCoord, maxIter int) ([]world.HexCoord, bool) {
	if start == goal {
		return []world.HexCoord{}, true
	}

	goalHex := m.Get(goal)
	if goalHex == nil || !costs.Passable(goalHex.Terrain) {
		return nil, false
	}
	if m.Get(start) == nil {
		return nil, false
	}

	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &node{coord: start, g: 0, f: float64(world.Distance(start, goal))})

	gScore := map[world.HexCoord]float64{start: 0}
	cameFrom := make(map[world.HexCoord]world.HexCoord)
	closed := make(map[world.HexCoord]bool)

	for iter := 0; open.Len() > 0; iter++ {
		if iter >= maxIter {
			return nil, false // Search budget exceeded — treated as unreachable
		}

		current := heap.Pop(open).(*node)
		if current.coord == goal {
			return reconstruct(cameFrom, start, goal), true
		}
		if closed[current.coord] {
			continue
		}
		closed[current.coord] = true

		for _, nc := range current.coord.Neighbors() {
			if closed[nc] {
				continue
			}
			nh := m.Get(nc)
			if nh == nil {
				continue
			}
			stepCost := costs.Cost(nh.Terrain)
			if stepCost >= world.ImpassableCost {
				continue
			}

			tentative := current.g + stepCost
			if prev, seen := gScore[nc]; seen && tentative >= prev {
				continue
			}
			gScore[nc] = tentative
			cameFrom[nc] = current.coord
			heap.Push(open, &node{
				coord: nc,
				g:     tentative,
				f:     tentative + float64(world.Distance(nc, goal)),
			})
		}
	}

	return nil, false
}

// reconstruct walks cameFrom links backward from goal and returns the route
// in travel order, excluding the start hex.
func reconstruct(cameFrom map[world.HexCoord]world.HexCoord, start, goal world.HexCoord) []world.HexCoord {
	var rev []world.HexCoord
	for c := goal; c != start; c = cameFrom[c] {
		rev = append(rev, c)
	}
	out := make([]world.HexCoord, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}

// node is an open-set entry. seq preserves insertion order so that equal-f
// ties resolve first-discovered-wins.
type node struct {
	coord world.HexCoord
	g     float64
	f     float64
	seq   int
	index int
}

type nodeHeap struct {
	nodes   []*node
	nextSeq int
}

func (h *nodeHeap) Len() int { return len(h.nodes) }

func (h *nodeHeap) Less(i, j int) bool {
	if h.nodes[i].f != h.nodes[j].f {
		return h.nodes[i].f < h.nodes[j].f
	}
	return h.nodes[i].seq < h.nodes[j].seq
}

func (h *nodeHeap) Swap(i, j int) {
	h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i]
	h.nodes[i].index = i
	h.nodes[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*node)
	n.seq = h.nextSeq
	h.nextSeq++
	n.index = len(h.nodes)
	h.nodes = append(h.nodes, n)
}

func (h *nodeHeap) Pop() any {
	old := h.nodes
	n := old[len(old)-1]
	old[len(old)-1] = nil
	h.nodes = old[:len(old)-1]
	return n
}
