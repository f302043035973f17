// Package jobs provides the per-faction job market: posted work tickets, the
// demand planner that turns settlement desires into tickets, and the bidding
// protocol workers use to claim them.
package jobs

import (
	"fmt"

	"github.com/talgya/freehold/internal/world"
)

// Kind enumerates the kinds of work a faction can post.
type Kind uint8

const (
	KindCollect  Kind = iota // Gather a resource for a settlement
	KindBuild                // Construction work at a site
	KindRecruit              // Settlement wants a new worker
	KindExpand               // Found a new settlement
	KindTrade                // One-shot caravan run to a counterpart settlement
	KindTransfer             // Freight goods from a donor to a recipient
)

// KindName returns a human-readable name for a job kind.
func KindName(k Kind) string {
	switch k {
	case KindCollect:
		return "COLLECT"
	case KindBuild:
		return "BUILD"
	case KindRecruit:
		return "RECRUIT"
	case KindExpand:
		return "EXPAND"
	case KindTrade:
		return "TRADE"
	case KindTransfer:
		return "TRANSFER"
	default:
		return "UNKNOWN"
	}
}

// Urgency is the coarse tier derived from a ticket's combined priority.
type Urgency uint8

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
)

// UrgencyFor maps a combined priority to its tier.
func UrgencyFor(priority float64) Urgency {
	switch {
	case priority > 0.8:
		return UrgencyHigh
	case priority > 0.5:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Status tracks a ticket through its lifecycle. Completed is terminal and
// only reachable by work-type tickets (COLLECT/BUILD) whose target volume
// reaches zero through progress reports.
type Status uint8

const (
	StatusOpen Status = iota
	StatusSaturated
	StatusCompleted
)

// Ticket is one unit of posted demand. Tickets are owned exclusively by one
// faction's Pool; the planner re-derives the same key every cycle so
// re-posting updates in place instead of duplicating.
type Ticket struct {
	Key          string
	FactionID    uint64
	SettlementID uint64
	Kind         Kind
	Urgency      Urgency
	Priority     float64 // Summed across contributing desires

	Resource    *world.ResourceType // Set for COLLECT/TRANSFER
	Target      *world.HexCoord     // Where the work happens, if known
	Counterpart *uint64             // TRADE destination / TRANSFER donor settlement

	TargetVolume   int // Total work remaining
	AssignedVolume int // Work currently claimed by workers in flight
	Status         Status
}

// TicketKey derives the deterministic pool key for a ticket. Tickets sharing
// (faction, settlement, kind, resource) collapse onto one key.
func TicketKey(faction, settlement uint64, kind Kind, res *world.ResourceType) string {
	resName := "-"
	if res != nil {
		resName = world.ResourceName(*res)
	}
	return fmt.Sprintf("%d/%d/%s/%s", faction, settlement, KindName(kind), resName)
}

// IsWorkType reports whether progress on this ticket shrinks its target
// volume (and can therefore complete it).
func (t *Ticket) IsWorkType() bool {
	return t.Kind == KindCollect || t.Kind == KindBuild
}

// RemainingVolume returns target minus assigned, floored at zero.
func (t *Ticket) RemainingVolume() int {
	rem := t.TargetVolume - t.AssignedVolume
	if rem < 0 {
		return 0
	}
	return rem
}

// refreshStatus re-derives OPEN/SATURATED from the volume counters.
// Completed tickets never change status again.
func (t *Ticket) refreshStatus() {
	if t.Status == StatusCompleted {
		return
	}
	if t.AssignedVolume >= t.TargetVolume {
		t.Status = StatusSaturated
	} else {
		t.Status = StatusOpen
	}
}
