package jobs

import (
	"testing"

	"github.com/talgya/freehold/internal/world"
)

func collectTicket(target int) *Ticket {
	res := world.ResourceTimber
	return &Ticket{
		Key:          TicketKey(1, 1, KindCollect, &res),
		FactionID:    1,
		SettlementID: 1,
		Kind:         KindCollect,
		Priority:     0.6,
		Urgency:      UrgencyFor(0.6),
		Resource:     &res,
		TargetVolume: target,
	}
}

func TestAssignGatedOnOpen(t *testing.T) {
	pool := NewPool(1)
	ticket := collectTicket(10)
	pool.Add(ticket)

	if !pool.Assign(ticket.Key, 10) {
		t.Fatal("first assign should succeed")
	}
	if ticket.Status != StatusSaturated {
		t.Fatalf("expected SATURATED, got %v", ticket.Status)
	}
	// Second claim against the saturated ticket must fail and leave the
	// assigned volume untouched — at-most-fulfillment.
	if pool.Assign(ticket.Key, 10) {
		t.Fatal("assign on saturated ticket should fail")
	}
	if ticket.AssignedVolume != 10 {
		t.Fatalf("assigned volume drifted: %d", ticket.AssignedVolume)
	}
}

func TestAssignMissingTicket(t *testing.T) {
	pool := NewPool(1)
	if pool.Assign("nope", 5) {
		t.Fatal("assign on missing ticket should fail silently")
	}
}

func TestSaturateReleaseReopens(t *testing.T) {
	pool := NewPool(1)
	ticket := collectTicket(10)
	pool.Add(ticket)

	pool.Assign(ticket.Key, 10)
	if ticket.Status != StatusSaturated {
		t.Fatal("expected SATURATED after full assign")
	}

	Release(pool, ticket.Key, 10)
	if ticket.Status != StatusOpen {
		t.Fatal("expected OPEN after full release")
	}
	if ticket.AssignedVolume != 0 {
		t.Fatalf("expected assigned volume 0, got %d", ticket.AssignedVolume)
	}
	if ticket.TargetVolume != 10 {
		t.Fatalf("release must not touch target volume, got %d", ticket.TargetVolume)
	}
}

func TestAddMergePreservesAssignments(t *testing.T) {
	pool := NewPool(1)
	ticket := collectTicket(50)
	pool.Add(ticket)
	pool.Assign(ticket.Key, 20)

	// The planner re-derives the same ticket next cycle with fresh priority
	// and target; in-flight assignments must survive the merge.
	refreshed := collectTicket(60)
	refreshed.Priority = 1.1
	refreshed.Urgency = UrgencyFor(1.1)
	pool.Add(refreshed)

	live := pool.Get(ticket.Key)
	if live != ticket {
		t.Fatal("merge must update in place, not replace the ticket")
	}
	if live.AssignedVolume != 20 {
		t.Fatalf("merge reset assigned volume: %d", live.AssignedVolume)
	}
	if live.TargetVolume != 60 || live.Priority != 1.1 {
		t.Fatalf("merge did not update target/priority: %d / %f", live.TargetVolume, live.Priority)
	}
	if live.Status != StatusOpen {
		t.Fatalf("expected OPEN after merge, got %v", live.Status)
	}
}

func TestAddMergeReevaluatesSaturation(t *testing.T) {
	pool := NewPool(1)
	ticket := collectTicket(50)
	pool.Add(ticket)
	pool.Assign(ticket.Key, 50)

	// The re-posted ticket shrinks the target below what is already claimed;
	// the merge must leave it saturated.
	smaller := collectTicket(30)
	pool.Add(smaller)
	if pool.Get(ticket.Key).Status != StatusSaturated {
		t.Fatal("expected SATURATED after target shrank below assigned")
	}
}

func TestCleanupRemovesCompletedOnly(t *testing.T) {
	pool := NewPool(1)
	done := collectTicket(10)
	pool.Add(done)
	pool.Assign(done.Key, 10)
	ReportProgress(pool, done.Key, 10)
	if done.Status != StatusCompleted {
		t.Fatal("expected COMPLETED")
	}

	open := &Ticket{
		Key:          TicketKey(1, 2, KindBuild, nil),
		FactionID:    1,
		SettlementID: 2,
		Kind:         KindBuild,
		TargetVolume: 30,
	}
	pool.Add(open)

	if removed := pool.Cleanup(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if pool.Get(done.Key) != nil {
		t.Fatal("completed ticket survived cleanup")
	}
	if pool.Get(open.Key) == nil {
		t.Fatal("open ticket removed by cleanup")
	}
}

func TestTicketsSortedByKey(t *testing.T) {
	pool := NewPool(1)
	grain := world.ResourceGrain
	timber := world.ResourceTimber
	for _, res := range []*world.ResourceType{&timber, &grain} {
		pool.Add(&Ticket{
			Key:          TicketKey(1, 1, KindCollect, res),
			FactionID:    1,
			SettlementID: 1,
			Kind:         KindCollect,
			Resource:     res,
			TargetVolume: 5,
		})
	}
	list := pool.Tickets()
	if len(list) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(list))
	}
	if list[0].Key > list[1].Key {
		t.Fatal("tickets not sorted by key")
	}
}
