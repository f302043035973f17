// Blackboard dispatcher — the stateless scoring/claim/release protocol
// workers run against a faction's job pool. Discovery never mutates state;
// the authoritative OPEN check happens at claim time, so when two workers
// score the same snapshot within a tick the first claim wins and the second
// fails cleanly.
package jobs

import (
	"math"
	"sort"

	"github.com/talgya/freehold/internal/world"
)

// Weights are the externally configured bid exponents for one faction,
// tuned offline by the evolutionary harness.
type Weights struct {
	Saturation  float64 `yaml:"saturation_weight"`
	Distance    float64 `yaml:"distance_weight"`
	Fulfillment float64 `yaml:"fulfillment_weight"`
}

// DefaultWeights returns a neutral starting point for tuning.
func DefaultWeights() Weights {
	return Weights{Saturation: 1.0, Distance: 1.0, Fulfillment: 1.0}
}

// Bidder is the view of a worker the dispatcher scores with.
type Bidder struct {
	Position world.HexCoord
	Capacity int
	Kinds    KindSet // Job kinds this worker can execute
}

// KindSet is a bitmask of job kinds.
type KindSet uint8

// KindsOf builds a KindSet from individual kinds.
func KindsOf(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether the set contains a kind.
func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

// BidContext carries the configuration a bid computation needs.
type BidContext struct {
	Weights        Weights
	MoveCostWeight float64 // Scales raw hex distance; typically the mean terrain cost
}

// Bid scores a ticket for a bidder:
//
//	priority × saturationFactor × distanceFactor × fulfillmentFactor
//
// A fully claimed ticket scores zero through the saturation factor, so a
// would-be bidder is excluded without re-checking status. Closer tickets and
// tickets the bidder can fill near its carrying capacity score higher.
func Bid(b Bidder, t *Ticket, ctx BidContext) float64 {
	if t.TargetVolume <= 0 || b.Capacity <= 0 {
		return 0
	}

	claimed := float64(t.AssignedVolume) / float64(t.TargetVolume)
	if claimed > 1 {
		claimed = 1
	}
	saturation := math.Pow(1-claimed, ctx.Weights.Saturation)

	dist := 0.0
	if t.Target != nil {
		dist = float64(world.Distance(b.Position, *t.Target))
	}
	weighted := dist * ctx.MoveCostWeight
	if weighted < 1 {
		weighted = 1
	}
	distance := math.Pow(1/weighted, ctx.Weights.Distance)

	haul := float64(t.RemainingVolume())
	if capacity := float64(b.Capacity); haul > capacity {
		haul = capacity
	}
	fulfillment := math.Pow(haul/float64(b.Capacity), ctx.Weights.Fulfillment)

	return t.Priority * saturation * distance * fulfillment
}

// TopAvailableJobs returns up to limit OPEN tickets the bidder can execute,
// highest bid first. Ties resolve by ticket key so ordering is deterministic.
// A nil pool yields nil — factions can disappear between decision and action.
func TopAvailableJobs(p *Pool, b Bidder, ctx BidContext, limit int) []*Ticket {
	if p == nil || limit <= 0 {
		return nil
	}

	type scored struct {
		ticket *Ticket
		bid    float64
	}
	var candidates []scored
	for _, t := range p.Tickets() {
		if t.Status != StatusOpen || !b.Kinds.Has(t.Kind) {
			continue
		}
		bid := Bid(b, t, ctx)
		if bid <= 0 {
			continue
		}
		candidates = append(candidates, scored{ticket: t, bid: bid})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].bid != candidates[j].bid {
			return candidates[i].bid > candidates[j].bid
		}
		return candidates[i].ticket.Key < candidates[j].ticket.Key
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]*Ticket, len(candidates))
	for i, c := range candidates {
		out[i] = c.ticket
	}
	return out
}

// Claim attempts to reserve amount units of a ticket. It re-fetches the live
// ticket rather than trusting the caller's scored snapshot: the status check
// at claim time is what gives first-claimer-wins semantics within a tick.
func Claim(p *Pool, key string, amount int) bool {
	if p == nil || amount <= 0 {
		return false
	}
	t := p.Get(key)
	if t == nil || t.Status != StatusOpen {
		return false
	}
	return p.Assign(key, amount)
}

// ReportProgress credits completed work: assigned volume drops by amountDone
// (freeing the worker's slot) and, for work-type tickets, target volume drops
// by the same amount. A work-type ticket whose target reaches zero becomes
// COMPLETED; otherwise the ticket reopens if no longer fully claimed.
func ReportProgress(p *Pool, key string, amountDone int) bool {
	if p == nil || amountDone <= 0 {
		return false
	}
	t := p.Get(key)
	if t == nil {
		return false
	}

	t.AssignedVolume -= amountDone
	if t.AssignedVolume < 0 {
		t.AssignedVolume = 0
	}
	if t.IsWorkType() {
		t.TargetVolume -= amountDone
		if t.TargetVolume <= 0 {
			t.TargetVolume = 0
			t.Status = StatusCompleted
			return true
		}
	}
	t.refreshStatus()
	return true
}

// ReportDelivery records goods handed over against a logistics ticket
// (TRADE/TRANSFER). Unlike ReportProgress, delivered volume consumes the
// target directly: a fully shipped ticket holds no remaining volume and
// cannot be claimed again, while a partial shipment leaves the balance
// open for another run.
func ReportDelivery(p *Pool, key string, amountDelivered int) bool {
	if p == nil || amountDelivered <= 0 {
		return false
	}
	t := p.Get(key)
	if t == nil {
		return false
	}

	t.TargetVolume -= amountDelivered
	if t.TargetVolume < 0 {
		t.TargetVolume = 0
	}
	t.AssignedVolume -= amountDelivered
	if t.AssignedVolume < 0 {
		t.AssignedVolume = 0
	}
	t.refreshStatus()
	return true
}

// Release returns claimed capacity without crediting any work — the abort
// path for a worker that never reached the site. Target volume is untouched;
// the ticket reopens from SATURATED if no longer fully claimed.
func Release(p *Pool, key string, amount int) bool {
	if p == nil || amount <= 0 {
		return false
	}
	t := p.Get(key)
	if t == nil {
		return false
	}

	t.AssignedVolume -= amount
	if t.AssignedVolume < 0 {
		t.AssignedVolume = 0
	}
	t.refreshStatus()
	return true
}
