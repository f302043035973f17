package jobs

import "sort"

// Pool holds all open, saturated, and completed tickets for one faction.
// It is the only authoritative store of ticket state; the dispatcher and the
// planner both mutate tickets exclusively through it. Safe without locks
// under the single-threaded tick discipline.
type Pool struct {
	FactionID uint64
	tickets   map[string]*Ticket
}

// NewPool creates an empty job pool for a faction.
func NewPool(factionID uint64) *Pool {
	return &Pool{
		FactionID: factionID,
		tickets:   make(map[string]*Ticket),
	}
}

// Add inserts a ticket, or merges it onto an existing one with the same key.
// Merging updates priority, urgency, target volume, resource, and target hex
// while preserving assigned volume and status — the planner re-derives the
// same ticket every cycle and must not reset in-flight claims. Saturation is
// re-evaluated after the merge.
func (p *Pool) Add(t *Ticket) {
	existing, ok := p.tickets[t.Key]
	if !ok {
		t.refreshStatus()
		p.tickets[t.Key] = t
		return
	}

	existing.Priority = t.Priority
	existing.Urgency = t.Urgency
	existing.TargetVolume = t.TargetVolume
	existing.Resource = t.Resource
	existing.Target = t.Target
	existing.Counterpart = t.Counterpart
	existing.refreshStatus()
}

// Get returns the ticket for a key, or nil if absent.
func (p *Pool) Get(key string) *Ticket {
	return p.tickets[key]
}

// Assign adds amount to a ticket's assigned volume. It succeeds only if the
// ticket exists and is OPEN; callers must check the return value. Saturation
// is re-evaluated after a successful assign.
func (p *Pool) Assign(key string, amount int) bool {
	t := p.tickets[key]
	if t == nil || t.Status != StatusOpen {
		return false
	}
	t.AssignedVolume += amount
	t.refreshStatus()
	return true
}

// Cleanup removes all COMPLETED tickets. Called once per planning cycle
// after the planner finishes posting.
func (p *Pool) Cleanup() int {
	removed := 0
	for key, t := range p.tickets {
		if t.Status == StatusCompleted {
			delete(p.tickets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tickets currently in the pool.
func (p *Pool) Len() int {
	return len(p.tickets)
}

// Tickets returns all tickets sorted by key. Iteration over the underlying
// map is order-unstable; every consumer that cares about ordering goes
// through here so runs stay replayable.
func (p *Pool) Tickets() []*Ticket {
	out := make([]*Ticket, 0, len(p.tickets))
	for _, t := range p.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
