package jobs

import (
	"testing"

	"github.com/talgya/freehold/internal/world"
)

func bidCtx() BidContext {
	return BidContext{Weights: DefaultWeights(), MoveCostWeight: 1.0}
}

func openCollect(settlement uint64, target world.HexCoord, priority float64, volume int) *Ticket {
	res := world.ResourceTimber
	pos := target
	return &Ticket{
		Key:          TicketKey(1, settlement, KindCollect, &res),
		FactionID:    1,
		SettlementID: settlement,
		Kind:         KindCollect,
		Priority:     priority,
		Urgency:      UrgencyFor(priority),
		Resource:     &res,
		Target:       &pos,
		TargetVolume: volume,
	}
}

func TestBidCloserJobScoresHigher(t *testing.T) {
	b := Bidder{Position: world.HexCoord{}, Capacity: 10, Kinds: KindsOf(KindCollect)}
	near := openCollect(1, world.HexCoord{Q: 2, R: 0}, 0.6, 20)
	far := openCollect(2, world.HexCoord{Q: 8, R: 0}, 0.6, 20)

	if Bid(b, near, bidCtx()) <= Bid(b, far, bidCtx()) {
		t.Fatal("closer job must outscore the farther one")
	}
}

func TestBidHigherPriorityScoresHigher(t *testing.T) {
	b := Bidder{Position: world.HexCoord{}, Capacity: 10, Kinds: KindsOf(KindCollect)}
	at := world.HexCoord{Q: 3, R: 0}
	low := openCollect(1, at, 0.4, 20)
	high := openCollect(2, at, 0.8, 20)

	if Bid(b, high, bidCtx()) <= Bid(b, low, bidCtx()) {
		t.Fatal("higher priority must outscore at equal distance")
	}
}

func TestBidSaturatedScoresZero(t *testing.T) {
	b := Bidder{Position: world.HexCoord{}, Capacity: 10, Kinds: KindsOf(KindCollect)}
	ticket := openCollect(1, world.HexCoord{Q: 1, R: 0}, 0.9, 20)
	ticket.AssignedVolume = 20

	if bid := Bid(b, ticket, bidCtx()); bid != 0 {
		t.Fatalf("fully claimed ticket must score zero, got %f", bid)
	}
}

func TestBidFulfillmentPenalizesScraps(t *testing.T) {
	b := Bidder{Position: world.HexCoord{}, Capacity: 10, Kinds: KindsOf(KindCollect)}
	at := world.HexCoord{Q: 2, R: 0}

	// Plenty of remaining volume saturates the fulfillment factor at 1; a
	// nearly finished ticket leaves the worker hauling mostly empty.
	plenty := openCollect(1, at, 0.6, 100)
	scraps := openCollect(2, at, 0.6, 100)
	scraps.AssignedVolume = 98

	exact := openCollect(3, at, 0.6, 10)

	if Bid(b, plenty, bidCtx()) != Bid(b, exact, bidCtx()) {
		t.Fatal("over-capacity and exact-capacity remainders should score alike")
	}
	if Bid(b, scraps, bidCtx()) >= Bid(b, plenty, bidCtx()) {
		t.Fatal("nearly finished ticket should score lower")
	}
}

func TestTopAvailableJobsOrderingAndFiltering(t *testing.T) {
	pool := NewPool(1)
	b := Bidder{Position: world.HexCoord{}, Capacity: 10, Kinds: KindsOf(KindCollect, KindBuild)}

	near := openCollect(1, world.HexCoord{Q: 1, R: 0}, 0.6, 20)
	far := openCollect(2, world.HexCoord{Q: 6, R: 0}, 0.6, 20)
	saturated := openCollect(3, world.HexCoord{Q: 2, R: 0}, 0.9, 20)
	pool.Add(near)
	pool.Add(far)
	pool.Add(saturated)
	pool.Assign(saturated.Key, 20)

	// A TRADE ticket the bidder cannot execute.
	trade := &Ticket{
		Key:          TicketKey(1, 4, KindTrade, nil),
		FactionID:    1,
		SettlementID: 4,
		Kind:         KindTrade,
		Priority:     2.0,
		TargetVolume: 10,
		Target:       &world.HexCoord{Q: 1, R: 1},
	}
	pool.Add(trade)

	top := TopAvailableJobs(pool, b, bidCtx(), 10)
	if len(top) != 2 {
		t.Fatalf("expected 2 claimable tickets, got %d", len(top))
	}
	if top[0] != near || top[1] != far {
		t.Fatalf("wrong ordering: %s then %s", top[0].Key, top[1].Key)
	}

	if limited := TopAvailableJobs(pool, b, bidCtx(), 1); len(limited) != 1 || limited[0] != near {
		t.Fatal("limit not honored")
	}

	if TopAvailableJobs(nil, b, bidCtx(), 5) != nil {
		t.Fatal("nil pool must yield nil, not panic")
	}
}

func TestClaimFirstWinsSecondFails(t *testing.T) {
	pool := NewPool(1)
	ticket := openCollect(1, world.HexCoord{Q: 1, R: 0}, 0.6, 10)
	pool.Add(ticket)

	// Two workers scored the same snapshot this tick; only one claim wins.
	if !Claim(pool, ticket.Key, 10) {
		t.Fatal("first claim should succeed")
	}
	if Claim(pool, ticket.Key, 10) {
		t.Fatal("second claim should lose the race")
	}
	if ticket.AssignedVolume != 10 {
		t.Fatalf("assigned volume must stay 10, got %d", ticket.AssignedVolume)
	}
}

func TestClaimAbsentIsNoOp(t *testing.T) {
	pool := NewPool(1)
	if Claim(pool, "gone", 5) {
		t.Fatal("claim on absent ticket should return false")
	}
	if Claim(nil, "gone", 5) {
		t.Fatal("claim against nil pool should return false")
	}
}

func TestProgressVersusReleaseDistinction(t *testing.T) {
	res := world.ResourceTimber

	mk := func() (*Pool, *Ticket) {
		pool := NewPool(1)
		ticket := &Ticket{
			Key:            TicketKey(1, 1, KindCollect, &res),
			FactionID:      1,
			SettlementID:   1,
			Kind:           KindCollect,
			Resource:       &res,
			TargetVolume:   50,
			AssignedVolume: 20,
		}
		pool.Add(ticket)
		return pool, ticket
	}

	// Progress credits work: both counters shrink.
	pool, ticket := mk()
	ReportProgress(pool, ticket.Key, 20)
	if ticket.TargetVolume != 30 || ticket.AssignedVolume != 0 || ticket.Status != StatusOpen {
		t.Fatalf("progress: got target=%d assigned=%d status=%v",
			ticket.TargetVolume, ticket.AssignedVolume, ticket.Status)
	}

	// Release only returns capacity: target untouched.
	pool, ticket = mk()
	Release(pool, ticket.Key, 20)
	if ticket.TargetVolume != 50 || ticket.AssignedVolume != 0 {
		t.Fatalf("release: got target=%d assigned=%d",
			ticket.TargetVolume, ticket.AssignedVolume)
	}
}

func TestProgressCompletesWorkTicket(t *testing.T) {
	pool := NewPool(1)
	ticket := openCollect(1, world.HexCoord{Q: 1, R: 0}, 0.6, 10)
	pool.Add(ticket)
	pool.Assign(ticket.Key, 10)

	ReportProgress(pool, ticket.Key, 10)
	if ticket.Status != StatusCompleted || ticket.TargetVolume != 0 {
		t.Fatalf("expected COMPLETED, got status=%v target=%d", ticket.Status, ticket.TargetVolume)
	}

	// Completed is terminal: neither assigns nor releases change it.
	if pool.Assign(ticket.Key, 1) {
		t.Fatal("assign on completed ticket should fail")
	}
	Release(pool, ticket.Key, 1)
	if ticket.Status != StatusCompleted {
		t.Fatal("release must not reopen a completed ticket")
	}
}

func TestProgressNeverCompletesTradeTicket(t *testing.T) {
	pool := NewPool(1)
	dest := uint64(2)
	ticket := &Ticket{
		Key:          TicketKey(1, 1, KindTrade, nil),
		FactionID:    1,
		SettlementID: 1,
		Kind:         KindTrade,
		Counterpart:  &dest,
		TargetVolume: 10,
	}
	pool.Add(ticket)
	pool.Assign(ticket.Key, 10)

	ReportProgress(pool, ticket.Key, 10)
	if ticket.Status == StatusCompleted {
		t.Fatal("TRADE tickets must not complete through progress")
	}
	if ticket.TargetVolume != 10 {
		t.Fatalf("TRADE target volume must not shrink, got %d", ticket.TargetVolume)
	}
	if ticket.Status != StatusOpen {
		t.Fatal("TRADE ticket should reopen once the claim is returned")
	}
}

func TestDeliveryConsumesLogisticsTarget(t *testing.T) {
	pool := NewPool(1)
	grain := world.ResourceGrain
	donor := uint64(2)
	ticket := &Ticket{
		Key:          TicketKey(1, 1, KindTransfer, &grain),
		FactionID:    1,
		SettlementID: 1,
		Kind:         KindTransfer,
		Resource:     &grain,
		Counterpart:  &donor,
		TargetVolume: 25,
	}
	pool.Add(ticket)
	pool.Assign(ticket.Key, 25)

	ReportDelivery(pool, ticket.Key, 25)
	if ticket.TargetVolume != 0 || ticket.AssignedVolume != 0 {
		t.Fatalf("delivery should zero both counters, got target=%d assigned=%d", ticket.TargetVolume, ticket.AssignedVolume)
	}
	if ticket.Status == StatusOpen {
		t.Fatal("shipped ticket must not be claimable again")
	}

	// A partial shipment leaves the balance open for another run.
	partial := &Ticket{
		Key:          TicketKey(1, 3, KindTransfer, &grain),
		FactionID:    1,
		SettlementID: 3,
		Kind:         KindTransfer,
		Resource:     &grain,
		Counterpart:  &donor,
		TargetVolume: 25,
	}
	pool.Add(partial)
	pool.Assign(partial.Key, 10)
	ReportDelivery(pool, partial.Key, 10)
	if partial.TargetVolume != 15 || partial.AssignedVolume != 0 {
		t.Fatalf("partial delivery bookkeeping wrong: target=%d assigned=%d", partial.TargetVolume, partial.AssignedVolume)
	}
	if partial.Status != StatusOpen {
		t.Fatalf("balance should stay claimable, got %v", partial.Status)
	}
}
