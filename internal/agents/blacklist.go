package agents

import "github.com/talgya/freehold/internal/world"

// Blacklist is the time-boxed exclusion of unreachable hexes, tracked per
// settlement. After a pathing failure the target is blocked for a fixed
// number of ticks so workers stop burning their turns on futile dispatches.
type Blacklist struct {
	entries map[uint64]map[world.HexCoord]uint64 // settlement → hex → expiry tick
}

// NewBlacklist creates an empty blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{entries: make(map[uint64]map[world.HexCoord]uint64)}
}

// Add blocks a hex for a settlement until the given tick.
func (b *Blacklist) Add(settlement uint64, hex world.HexCoord, until uint64) {
	m := b.entries[settlement]
	if m == nil {
		m = make(map[world.HexCoord]uint64)
		b.entries[settlement] = m
	}
	if until > m[hex] {
		m[hex] = until
	}
}

// Blocked reports whether a hex is currently excluded for a settlement.
func (b *Blacklist) Blocked(settlement uint64, hex world.HexCoord, now uint64) bool {
	return b.entries[settlement][hex] > now
}

// Sweep drops expired entries. Called on the planning cadence to keep the
// maps from accumulating stale exclusions.
func (b *Blacklist) Sweep(now uint64) {
	for settlement, m := range b.entries {
		for hex, until := range m {
			if until <= now {
				delete(m, hex)
			}
		}
		if len(m) == 0 {
			delete(b.entries, settlement)
		}
	}
}
