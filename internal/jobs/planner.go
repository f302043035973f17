// Demand planner — turns a faction's abstract settlement desires into
// concrete job tickets. Resource demand is aggregated per (settlement,
// resource) so competing strategic concerns collapse onto one COLLECT ticket
// whose priority reflects their combined urgency, instead of racing each
// other with duplicate jobs.
package jobs

import (
	"sort"

	"github.com/talgya/freehold/internal/world"
)

// DesireKind enumerates the abstract wants a settlement governor can emit.
type DesireKind uint8

const (
	DesireUpgrade         DesireKind = iota // Improve settlement infrastructure
	DesireSettler                           // Found a new settlement
	DesireRecruitVillager                   // Grow the workforce
	DesireReplenish                         // Restore a stock to a target level
	DesireTradeCaravan                      // One-shot trade run to a counterpart
	DesireRequestFreight                    // Pull goods from a surplus settlement
	DesireBuildHouse
	DesireBuildStorehouse
	DesireBuildRoad
)

// Desire is one abstract, settlement-scoped want. Scores arrive in 0..1;
// combined ticket priorities may exceed 1 through summation.
type Desire struct {
	SettlementID uint64
	Kind         DesireKind
	Score        float64
	Resource     *world.ResourceType // REPLENISH / REQUEST_FREIGHT
	TargetLevel  int                 // Absolute stock target for stock-level desires
	Counterpart  *uint64             // TRADE_CARAVAN destination settlement
}

// SettlementView is the read-only world access the planner needs. The
// settlement registry lives outside this package; the planner never mutates
// stockpiles.
type SettlementView interface {
	Stock(settlement uint64, res world.ResourceType) int
	StockGoal(settlement uint64, res world.ResourceType) int
	Position(settlement uint64) (world.HexCoord, bool)
	SettlementIDs() []uint64 // ascending order
}

// PlanConfig holds the planner's tunable knobs.
type PlanConfig struct {
	// A freight donor must hold more than FreightSurplusFactor × its own goal
	// of a resource before any of it is shipped away.
	FreightSurplusFactor float64 `yaml:"freight_surplus_factor"`
	// TradeVolume sizes one-shot TRADE tickets.
	TradeVolume int `yaml:"trade_volume"`
}

// DefaultPlanConfig returns the baseline planner configuration.
func DefaultPlanConfig() PlanConfig {
	return PlanConfig{FreightSurplusFactor: 1.5, TradeVolume: 10}
}

// requirement is one resource need contributed by a desire. Stock-level
// requirements are absolute targets that take the max across overlapping
// desires; ordinary requirements are consumption costs that sum.
type requirement struct {
	res        world.ResourceType
	amount     int
	stockLevel bool
}

// costResolver maps a desire to its resource requirements. Adding a desire
// kind means adding a table entry, not extending a conditional chain.
type costResolver func(d Desire) []requirement

func fixedCost(reqs ...requirement) costResolver {
	return func(Desire) []requirement { return reqs }
}

var desireCosts = map[DesireKind]costResolver{
	DesireUpgrade: fixedCost(
		requirement{res: world.ResourceTimber, amount: 40},
		requirement{res: world.ResourceStone, amount: 30},
	),
	DesireSettler: fixedCost(
		requirement{res: world.ResourceGrain, amount: 50},
		requirement{res: world.ResourceTimber, amount: 30},
	),
	DesireRecruitVillager: fixedCost(
		requirement{res: world.ResourceGrain, amount: 20},
	),
	DesireReplenish: func(d Desire) []requirement {
		if d.Resource == nil {
			return nil
		}
		return []requirement{{res: *d.Resource, amount: d.TargetLevel, stockLevel: true}}
	},
	DesireBuildHouse: fixedCost(
		requirement{res: world.ResourceTimber, amount: 20},
	),
	DesireBuildStorehouse: fixedCost(
		requirement{res: world.ResourceTimber, amount: 35},
		requirement{res: world.ResourceStone, amount: 20},
	),
	DesireBuildRoad: fixedCost(
		requirement{res: world.ResourceStone, amount: 25},
	),
}

// workSpec describes the work-type ticket a desire posts alongside (or
// instead of) its resource requirements.
type workSpec struct {
	kind   Kind
	volume int
}

var desireWork = map[DesireKind]workSpec{
	DesireSettler:         {kind: KindExpand, volume: 1},
	DesireRecruitVillager: {kind: KindRecruit, volume: 1},
	DesireBuildHouse:      {kind: KindBuild, volume: 30},
	DesireBuildStorehouse: {kind: KindBuild, volume: 50},
	DesireBuildRoad:       {kind: KindBuild, volume: 40},
}

// Plan consumes one faction's desire list and posts/refreshes tickets into
// its pool. Aggregation rules: ordinary requirements sum, stock-level
// requirements take the max of overlapping targets, priorities always sum.
// One COLLECT ticket is posted per (settlement, resource) with positive
// deficit. TRADE_CARAVAN and REQUEST_FREIGHT name a counterpart settlement
// rather than a resource amount and bypass the aggregation pass. TRADE and
// TRANSFER tickets the cycle does not re-derive are retired; cleanup of
// completed tickets runs at the end of every cycle.
func Plan(pool *Pool, desires []Desire, view SettlementView, cfg PlanConfig) {
	if pool == nil {
		return
	}

	type aggKey struct {
		settlement uint64
		res        world.ResourceType
	}
	type aggEntry struct {
		sum      int
		maxLevel int
		priority float64
	}
	demand := make(map[aggKey]*aggEntry)

	work := make(map[string]*Ticket)

	for _, d := range desires {
		switch d.Kind {
		case DesireTradeCaravan:
			planTrade(pool, work, d, view, cfg)
			continue
		case DesireRequestFreight:
			planFreight(pool, work, d, view, cfg)
			continue
		}

		if resolve, ok := desireCosts[d.Kind]; ok {
			for _, req := range resolve(d) {
				key := aggKey{settlement: d.SettlementID, res: req.res}
				entry := demand[key]
				if entry == nil {
					entry = &aggEntry{}
					demand[key] = entry
				}
				if req.stockLevel {
					if req.amount > entry.maxLevel {
						entry.maxLevel = req.amount
					}
				} else {
					entry.sum += req.amount
				}
				entry.priority += d.Score
			}
		}

		if spec, ok := desireWork[d.Kind]; ok {
			key := TicketKey(pool.FactionID, d.SettlementID, spec.kind, nil)
			t := work[key]
			if t == nil {
				t = &Ticket{
					Key:          key,
					FactionID:    pool.FactionID,
					SettlementID: d.SettlementID,
					Kind:         spec.kind,
				}
				if pos, ok := view.Position(d.SettlementID); ok {
					p := pos
					t.Target = &p
				}
				work[key] = t
			}
			t.Priority += d.Score
			t.TargetVolume += spec.volume
		}
	}

	// Post aggregated COLLECT tickets, sorted for replayable posting order.
	keys := make([]aggKey, 0, len(demand))
	for k := range demand {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].settlement != keys[j].settlement {
			return keys[i].settlement < keys[j].settlement
		}
		return keys[i].res < keys[j].res
	})

	for _, k := range keys {
		entry := demand[k]
		required := entry.sum + entry.maxLevel
		deficit := required - view.Stock(k.settlement, k.res)
		if deficit <= 0 {
			continue
		}

		res := k.res
		t := &Ticket{
			Key:          TicketKey(pool.FactionID, k.settlement, KindCollect, &res),
			FactionID:    pool.FactionID,
			SettlementID: k.settlement,
			Kind:         KindCollect,
			Priority:     entry.priority,
			Urgency:      UrgencyFor(entry.priority),
			Resource:     &res,
			TargetVolume: deficit,
		}
		if pos, ok := view.Position(k.settlement); ok {
			p := pos
			t.Target = &p
		}
		pool.Add(t)
	}

	// Post work-type tickets.
	workKeys := make([]string, 0, len(work))
	for k := range work {
		workKeys = append(workKeys, k)
	}
	sort.Strings(workKeys)
	for _, k := range workKeys {
		t := work[k]
		t.Urgency = UrgencyFor(t.Priority)
		pool.Add(t)
	}

	// Logistics tickets live only as long as the desire behind them. A TRADE
	// or TRANSFER ticket this cycle did not re-derive is retired outright, so
	// a shipment the world no longer needs cannot be claimed again. A caravan
	// mid-mission on a retired ticket aborts when it next consults the pool.
	for key, t := range pool.tickets {
		if (t.Kind == KindTrade || t.Kind == KindTransfer) && work[key] == nil {
			delete(pool.tickets, key)
		}
	}

	pool.Cleanup()
}

// planTrade posts a one-shot TRADE ticket toward the desire's counterpart.
func planTrade(pool *Pool, work map[string]*Ticket, d Desire, view SettlementView, cfg PlanConfig) {
	if d.Counterpart == nil {
		return
	}
	key := TicketKey(pool.FactionID, d.SettlementID, KindTrade, nil)
	t := work[key]
	if t == nil {
		t = &Ticket{
			Key:          key,
			FactionID:    pool.FactionID,
			SettlementID: d.SettlementID,
			Kind:         KindTrade,
			Counterpart:  d.Counterpart,
			TargetVolume: cfg.TradeVolume,
		}
		if pos, ok := view.Position(*d.Counterpart); ok {
			p := pos
			t.Target = &p
		}
		work[key] = t
	}
	t.Priority += d.Score
}

// planFreight posts a TRANSFER ticket pulling the desired resource from the
// richest donor settlement holding surplus above the configured multiple of
// its own goal. The shipment is sized to the smaller of donor surplus and
// recipient deficit.
func planFreight(pool *Pool, work map[string]*Ticket, d Desire, view SettlementView, cfg PlanConfig) {
	if d.Resource == nil {
		return
	}
	res := *d.Resource

	deficit := d.TargetLevel - view.Stock(d.SettlementID, res)
	if deficit <= 0 {
		return
	}

	var donor uint64
	bestSurplus := 0
	for _, sid := range view.SettlementIDs() {
		if sid == d.SettlementID {
			continue
		}
		threshold := int(cfg.FreightSurplusFactor * float64(view.StockGoal(sid, res)))
		surplus := view.Stock(sid, res) - threshold
		if surplus > bestSurplus {
			bestSurplus = surplus
			donor = sid
		}
	}
	if bestSurplus <= 0 {
		return
	}

	volume := bestSurplus
	if deficit < volume {
		volume = deficit
	}

	key := TicketKey(pool.FactionID, d.SettlementID, KindTransfer, &res)
	t := work[key]
	if t == nil {
		donorID := donor
		t = &Ticket{
			Key:          key,
			FactionID:    pool.FactionID,
			SettlementID: d.SettlementID,
			Kind:         KindTransfer,
			Resource:     &res,
			Counterpart:  &donorID,
			TargetVolume: volume,
		}
		if pos, ok := view.Position(donor); ok {
			p := pos
			t.Target = &p
		}
		work[key] = t
	}
	t.Priority += d.Score
}
