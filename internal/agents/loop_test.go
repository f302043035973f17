package agents

import (
	"testing"

	"github.com/talgya/freehold/internal/jobs"
	"github.com/talgya/freehold/internal/path"
	"github.com/talgya/freehold/internal/social"
	"github.com/talgya/freehold/internal/world"
)

// testEnv builds a flat plains world with one faction and one settlement at
// the origin.
func testEnv(radius int) (*Env, *social.Faction, *social.Settlement) {
	m := world.NewMap(radius)
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			coord := world.HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}
			m.Set(&world.Hex{Coord: coord, Terrain: world.TerrainPlains, Resources: map[world.ResourceType]int{}})
		}
	}

	faction := social.NewFaction(1, "The Crown", jobs.DefaultWeights())
	sett := &social.Settlement{ID: 1, Name: "Herewick", FactionID: 1, Position: world.HexCoord{}}

	env := &Env{
		Map:            m,
		Costs:          world.DefaultCosts(),
		Cache:          path.NewCache(),
		Factions:       map[uint64]*social.Faction{1: faction},
		Settlements:    map[uint64]*social.Settlement{1: sett},
		Blacklist:      NewBlacklist(),
		MaxSearchIter:  0,
		GatherPerTick:  5,
		BuildPerTick:   5,
		GatherRange:    10,
		BlacklistTicks: 20,
		MoveCostWeight: 1.0,
		PollLimit:      3,
	}
	return env, faction, sett
}

func postCollect(pool *jobs.Pool, sett *social.Settlement, res world.ResourceType, volume int) *jobs.Ticket {
	r := res
	pos := sett.Position
	t := &jobs.Ticket{
		Key:          jobs.TicketKey(pool.FactionID, sett.ID, jobs.KindCollect, &r),
		FactionID:    pool.FactionID,
		SettlementID: sett.ID,
		Kind:         jobs.KindCollect,
		Priority:     0.7,
		Urgency:      jobs.UrgencyFor(0.7),
		Resource:     &r,
		Target:       &pos,
		TargetVolume: volume,
	}
	pool.Add(t)
	return t
}

func runTicks(env *Env, w *Worker, n int) {
	for i := 0; i < n; i++ {
		env.Tick++
		w.Tick(env)
	}
}

func TestWorkerCollectRoundTrip(t *testing.T) {
	env, faction, sett := testEnv(4)
	// Timber two hexes east of the settlement.
	site := world.HexCoord{Q: 2, R: 0}
	env.Map.Get(site).Resources[world.ResourceTimber] = 50

	ticket := postCollect(faction.Pool, sett, world.ResourceTimber, 10)

	w := NewWorker(1, "Aldric", RoleVillager, 1, 1, sett.Position, 10)
	env.Tick = 1
	w.Tick(env)

	if w.State() != StateBusy || w.JobKey() != ticket.Key {
		t.Fatalf("expected claim on tick 1, state=%v job=%q", w.State(), w.JobKey())
	}
	if ticket.AssignedVolume != 10 || ticket.Status != jobs.StatusSaturated {
		t.Fatalf("claim bookkeeping wrong: assigned=%d status=%v", ticket.AssignedVolume, ticket.Status)
	}

	// 2 ticks out, 2 ticks gathering (5/tick), 2 ticks home, 1 tick deposit.
	runTicks(env, w, 10)

	if w.State() != StateIdle {
		t.Fatalf("expected round trip to finish, state=%v activity=%v", w.State(), w.Activity())
	}
	if sett.Stock[world.ResourceTimber] != 10 {
		t.Fatalf("expected 10 timber deposited, got %d", sett.Stock[world.ResourceTimber])
	}
	if ticket.TargetVolume != 0 || ticket.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed ticket, target=%d status=%v", ticket.TargetVolume, ticket.Status)
	}
	if env.Map.Get(site).Resources[world.ResourceTimber] != 40 {
		t.Fatalf("ground stock should drop to 40, got %d", env.Map.Get(site).Resources[world.ResourceTimber])
	}
}

func TestWorkerStaysIdleWithoutJobs(t *testing.T) {
	env, _, sett := testEnv(3)
	w := NewWorker(1, "Aldric", RoleVillager, 1, 1, sett.Position, 10)

	runTicks(env, w, 5)
	if w.State() != StateIdle {
		t.Fatal("worker must stay idle when the board is empty")
	}
}

func TestWorkerBlacklistsUnreachableSite(t *testing.T) {
	env, faction, sett := testEnv(4)

	// Timber on an island: resource hex ringed by ocean.
	site := world.HexCoord{Q: 3, R: 0}
	env.Map.Get(site).Resources[world.ResourceTimber] = 50
	for _, n := range site.Neighbors() {
		if hex := env.Map.Get(n); hex != nil {
			hex.Terrain = world.TerrainOcean
		}
	}

	ticket := postCollect(faction.Pool, sett, world.ResourceTimber, 10)

	w := NewWorker(1, "Aldric", RoleVillager, 1, 1, sett.Position, 10)
	env.Tick = 1
	w.Tick(env)

	if w.State() != StateIdle {
		t.Fatalf("expected worker to stay idle after pathing failure, state=%v", w.State())
	}
	// The failed claim must have been released in full.
	if ticket.AssignedVolume != 0 || ticket.Status != jobs.StatusOpen {
		t.Fatalf("claim not released: assigned=%d status=%v", ticket.AssignedVolume, ticket.Status)
	}
	if !env.Blacklist.Blocked(sett.ID, site, env.Tick) {
		t.Fatal("unreachable site should be blacklisted")
	}

	// While blacklisted, the worker must not retry the same site.
	env.Tick = 2
	w.Tick(env)
	if w.State() != StateIdle || ticket.AssignedVolume != 0 {
		t.Fatal("worker retried a blacklisted site")
	}
}

func TestWorkerPartialGatherReleasesSlack(t *testing.T) {
	env, faction, sett := testEnv(4)
	site := world.HexCoord{Q: 1, R: 0}
	env.Map.Get(site).Resources[world.ResourceTimber] = 4 // Less than the claim

	ticket := postCollect(faction.Pool, sett, world.ResourceTimber, 10)

	w := NewWorker(1, "Aldric", RoleVillager, 1, 1, sett.Position, 10)
	runTicks(env, w, 8)

	if sett.Stock[world.ResourceTimber] != 4 {
		t.Fatalf("expected 4 timber delivered, got %d", sett.Stock[world.ResourceTimber])
	}
	// 10 claimed, 6 released as slack, 4 reported: target 10-4=6, nothing in flight.
	if ticket.TargetVolume != 6 || ticket.AssignedVolume != 0 {
		t.Fatalf("bookkeeping wrong: target=%d assigned=%d", ticket.TargetVolume, ticket.AssignedVolume)
	}
	if ticket.Status != jobs.StatusOpen {
		t.Fatalf("ticket should reopen for the remainder, got %v", ticket.Status)
	}
}

func TestCaravanTransferMission(t *testing.T) {
	env, faction, recipient := testEnv(6)
	donor := &social.Settlement{ID: 2, Name: "Eastport", FactionID: 1, Position: world.HexCoord{Q: 3, R: 0}}
	donor.Stock[world.ResourceGrain] = 40
	env.Settlements[2] = donor

	grain := world.ResourceGrain
	donorID := uint64(2)
	donorPos := donor.Position
	ticket := &jobs.Ticket{
		Key:          jobs.TicketKey(1, recipient.ID, jobs.KindTransfer, &grain),
		FactionID:    1,
		SettlementID: recipient.ID,
		Kind:         jobs.KindTransfer,
		Priority:     0.6,
		Resource:     &grain,
		Counterpart:  &donorID,
		Target:       &donorPos,
		TargetVolume: 25,
	}
	faction.Pool.Add(ticket)

	// 1 claim + 3 out + 1 load + 3 back + 1 deposit; the remaining ticks prove
	// the shipped ticket cannot be claimed a second time.
	caravan := NewWorker(2, "Eastbound", RoleCaravan, 1, 1, recipient.Position, 25)
	runTicks(env, caravan, 40)

	if recipient.Stock[world.ResourceGrain] != 25 {
		t.Fatalf("expected 25 grain transferred, got %d", recipient.Stock[world.ResourceGrain])
	}
	if donor.Stock[world.ResourceGrain] != 15 {
		t.Fatalf("expected donor left with 15, got %d", donor.Stock[world.ResourceGrain])
	}
	if caravan.State() != StateIdle {
		t.Fatalf("caravan should be home and idle, state=%v", caravan.State())
	}
	// Delivery consumed the target: nothing left to claim, nothing in flight.
	if ticket.TargetVolume != 0 || ticket.AssignedVolume != 0 {
		t.Fatalf("transfer bookkeeping wrong: target=%d assigned=%d", ticket.TargetVolume, ticket.AssignedVolume)
	}
	if ticket.Status != jobs.StatusSaturated {
		t.Fatalf("shipped ticket must not reopen, got %v", ticket.Status)
	}
}

func TestCaravanTransferShipsAtMostTarget(t *testing.T) {
	env, faction, recipient := testEnv(6)
	donor := &social.Settlement{ID: 2, Name: "Eastport", FactionID: 1, Position: world.HexCoord{Q: 3, R: 0}}
	donor.Stock[world.ResourceGrain] = 100
	env.Settlements[2] = donor

	grain := world.ResourceGrain
	donorID := uint64(2)
	donorPos := donor.Position
	faction.Pool.Add(&jobs.Ticket{
		Key:          jobs.TicketKey(1, recipient.ID, jobs.KindTransfer, &grain),
		FactionID:    1,
		SettlementID: recipient.ID,
		Kind:         jobs.KindTransfer,
		Priority:     0.6,
		Resource:     &grain,
		Counterpart:  &donorID,
		Target:       &donorPos,
		TargetVolume: 25,
	})

	// Capacity 40 exceeds the shipment size; however long the caravan runs, a
	// 25-unit transfer moves exactly 25 units.
	caravan := NewWorker(2, "Eastbound", RoleCaravan, 1, 1, recipient.Position, 40)
	runTicks(env, caravan, 40)

	if recipient.Stock[world.ResourceGrain] != 25 {
		t.Fatalf("expected exactly 25 grain transferred, got %d", recipient.Stock[world.ResourceGrain])
	}
	if donor.Stock[world.ResourceGrain] != 75 {
		t.Fatalf("expected donor left with 75, got %d", donor.Stock[world.ResourceGrain])
	}
	if caravan.State() != StateIdle {
		t.Fatalf("caravan should be home and idle, state=%v", caravan.State())
	}
}

func TestVillagerIgnoresCaravanJobs(t *testing.T) {
	env, faction, sett := testEnv(4)
	dest := uint64(2)
	env.Settlements[2] = &social.Settlement{ID: 2, Position: world.HexCoord{Q: 2, R: 0}, FactionID: 1}

	faction.Pool.Add(&jobs.Ticket{
		Key:          jobs.TicketKey(1, sett.ID, jobs.KindTrade, nil),
		FactionID:    1,
		SettlementID: sett.ID,
		Kind:         jobs.KindTrade,
		Priority:     1.0,
		Counterpart:  &dest,
		TargetVolume: 10,
	})

	w := NewWorker(1, "Aldric", RoleVillager, 1, 1, sett.Position, 10)
	runTicks(env, w, 3)
	if w.State() != StateIdle {
		t.Fatal("villager must not claim TRADE tickets")
	}
}
