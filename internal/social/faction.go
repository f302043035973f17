package social

import "github.com/talgya/freehold/internal/jobs"

// Faction is a competing polity. Each faction owns exactly one job pool;
// tickets never cross faction boundaries. Factions may independently post
// jobs against the same physical hex — contention resolves by whichever
// faction's worker reaches it first.
type Faction struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`

	// Bid weight exponents, tuned offline per faction.
	Weights jobs.Weights `json:"weights"`

	Pool *jobs.Pool `json:"-"`
}

// NewFaction creates a faction with its own empty job pool.
func NewFaction(id uint64, name string, w jobs.Weights) *Faction {
	return &Faction{
		ID:      id,
		Name:    name,
		Weights: w,
		Pool:    jobs.NewPool(id),
	}
}

// SeedFactions creates the default competing factions.
func SeedFactions() []*Faction {
	w := jobs.DefaultWeights()
	return []*Faction{
		NewFaction(1, "The Crown", w),
		NewFaction(2, "Merchant's Compact", w),
	}
}
