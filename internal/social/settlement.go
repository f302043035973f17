// Package social provides factions and settlements: who owns the job pools,
// where stockpiles live, and the minimal desire emission that closes the
// demand loop. Strategic stance evaluation stays outside this core.
package social

import (
	"github.com/talgya/freehold/internal/jobs"
	"github.com/talgya/freehold/internal/world"
)

// Stockpile holds per-resource quantities, indexed by world.ResourceType.
// Fixed-size array — inline in the struct, zero heap allocation.
type Stockpile [world.NumResources]int

// Total returns the summed quantity across all resources.
func (s Stockpile) Total() int {
	sum := 0
	for _, qty := range s {
		sum += qty
	}
	return sum
}

// Settlement is a population center that emits desires and receives goods.
type Settlement struct {
	ID        uint64         `json:"id"`
	Name      string         `json:"name"`
	Position  world.HexCoord `json:"position"`
	FactionID uint64         `json:"faction_id"`

	Population uint32 `json:"population"`

	// Stock is the current warehouse; StockGoal is the level the governor
	// wants maintained per resource. Deficits against the goal drive
	// REPLENISH desires.
	Stock     Stockpile `json:"stock"`
	StockGoal Stockpile `json:"stock_goal"`

	// WorkerTarget is how many workers the settlement wants hosted.
	WorkerTarget int `json:"worker_target"`
}

// Deposit adds delivered goods to the warehouse.
func (s *Settlement) Deposit(res world.ResourceType, qty int) {
	if qty > 0 {
		s.Stock[res] += qty
	}
}

// Withdraw removes up to qty of a resource and returns the amount taken.
func (s *Settlement) Withdraw(res world.ResourceType, qty int) int {
	if qty <= 0 {
		return 0
	}
	if s.Stock[res] < qty {
		qty = s.Stock[res]
	}
	s.Stock[res] -= qty
	return qty
}

// Desires emits this settlement's current wants: one REPLENISH per resource
// whose stock sits below its goal, scored by relative scarcity, plus a
// RECRUIT_VILLAGER desire while the hosted workforce is under target and the
// granary can feed a newcomer. Output order is fixed (resource order, then
// recruit) so planning is replayable.
func (s *Settlement) Desires(hostedWorkers int) []jobs.Desire {
	var out []jobs.Desire

	for r := 0; r < world.NumResources; r++ {
		res := world.ResourceType(r)
		goal := s.StockGoal[res]
		if goal <= 0 || s.Stock[res] >= goal {
			continue
		}
		score := 1.0 - float64(s.Stock[res])/float64(goal)
		out = append(out, jobs.Desire{
			SettlementID: s.ID,
			Kind:         jobs.DesireReplenish,
			Score:        score,
			Resource:     &res,
			TargetLevel:  goal,
		})
	}

	if hostedWorkers < s.WorkerTarget && s.Stock[world.ResourceGrain] >= 20 {
		out = append(out, jobs.Desire{
			SettlementID: s.ID,
			Kind:         jobs.DesireRecruitVillager,
			Score:        0.4,
		})
	}

	return out
}
