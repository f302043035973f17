package path

import "github.com/talgya/freehold/internal/world"

// Cache stores successful path results keyed by (start, end) only — terrain
// and movement costs are deliberately not part of the key. The cache is
// therefore valid only while the map and cost table stay fixed, i.e. within a
// single evaluation run, and it is shared across factions and worker kinds so
// popular routes are searched once. Callers own it explicitly: construct one
// per simulation instance and Clear it at the start of each run. Keying on a
// terrain fingerprint was considered and rejected to keep the observed
// staleness behavior reproducible (see DESIGN.md).
type Cache struct {
	routes map[pairKey][]world.HexCoord
	hits   uint64
	misses uint64
}

type pairKey struct {
	from world.HexCoord
	to   world.HexCoord
}

// NewCache creates an empty path cache.
func NewCache() *Cache {
	return &Cache{routes: make(map[pairKey][]world.HexCoord)}
}

// Clear drops all cached routes and resets counters.
func (c *Cache) Clear() {
	c.routes = make(map[pairKey][]world.HexCoord)
	c.hits = 0
	c.misses = 0
}

// Len returns the number of cached routes.
func (c *Cache) Len() int {
	return len(c.routes)
}

// Stats returns cumulative hit and miss counts since the last Clear.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}

// Find returns a route from start to goal, consulting the cache first.
// Successful searches are cached; failures never are, so a transiently
// blocked route does not poison later attempts. The returned slice is an
// independent copy — callers may mutate it freely.
func (c *Cache) Find(m *world.Map, costs world.CostTable, start, goal world.HexCoord, maxIter int) ([]world.HexCoord, bool) {
	key := pairKey{from: start, to: goal}
	if cached, ok := c.routes[key]; ok {
		c.hits++
		return copyRoute(cached), true
	}
	c.misses++

	route, ok := Find(m, costs, start, goal, maxIter)
	if !ok {
		return nil, false
	}
	c.routes[key] = copyRoute(route)
	return route, true
}

func copyRoute(route []world.HexCoord) []world.HexCoord {
	out := make([]world.HexCoord, len(route))
	copy(out, route)
	return out
}
