// The per-tick execution loop. Workers are processed in a fixed order by the
// engine; everything here completes synchronously within the worker's turn.
package agents

import (
	"github.com/talgya/freehold/internal/jobs"
	"github.com/talgya/freehold/internal/path"
	"github.com/talgya/freehold/internal/social"
	"github.com/talgya/freehold/internal/world"
)

// Env bundles the shared structures one worker turn touches. The engine
// builds it once per tick and hands it to every worker in iteration order.
type Env struct {
	Tick  uint64
	Map   *world.Map
	Costs world.CostTable
	Cache *path.Cache

	Factions    map[uint64]*social.Faction
	Settlements map[uint64]*social.Settlement
	Blacklist   *Blacklist

	MaxSearchIter  int
	GatherPerTick  int
	BuildPerTick   int
	GatherRange    int
	BlacklistTicks uint64
	MoveCostWeight float64
	PollLimit      int // How many top jobs an idle worker considers
}

// pool returns the worker's faction pool, or nil if the faction is gone.
func (e *Env) pool(factionID uint64) *jobs.Pool {
	f := e.Factions[factionID]
	if f == nil {
		return nil
	}
	return f.Pool
}

// Tick runs one turn of the worker state machine.
func (w *Worker) Tick(env *Env) {
	switch w.state {
	case StateIdle:
		w.tickIdle(env)
	case StateBusy:
		w.tickBusy(env)
	case StateReturning:
		if w.step() {
			w.settle()
		}
	}
}

// tickIdle polls the blackboard and tries to claim the best workable job.
// No jobs, or nothing workable, leaves the worker idle until next cycle —
// it is never forced into non-productive work.
func (w *Worker) tickIdle(env *Env) {
	pool := env.pool(w.FactionID)
	if pool == nil {
		return
	}

	ctx := jobs.BidContext{MoveCostWeight: env.MoveCostWeight}
	if f := env.Factions[w.FactionID]; f != nil {
		ctx.Weights = f.Weights
	}

	for _, t := range jobs.TopAvailableJobs(pool, w.bidder(), ctx, env.PollLimit) {
		if w.tryStart(env, pool, t) {
			return
		}
	}
}

// tryStart claims a ticket and routes toward its first leg. Claim happens
// before pathing; a pathing failure releases the claim and blacklists the
// target for the ticket's settlement.
func (w *Worker) tryStart(env *Env, pool *jobs.Pool, t *jobs.Ticket) bool {
	site, dropID, ok := w.missionSite(env, t)
	if !ok {
		return false
	}
	if env.Blacklist.Blocked(t.SettlementID, site, env.Tick) {
		return false
	}

	amount := t.RemainingVolume()
	if amount > w.Capacity {
		amount = w.Capacity
	}
	if amount <= 0 {
		return false
	}

	if !jobs.Claim(pool, t.Key, amount) {
		return false // Lost the race within this tick
	}

	route, found := env.Cache.Find(env.Map, env.Costs, w.Position, site, env.MaxSearchIter)
	if !found {
		jobs.Release(pool, t.Key, amount)
		env.Blacklist.Add(t.SettlementID, site, env.Tick+env.BlacklistTicks)
		return false
	}

	w.startJob(t, amount, route, dropID)
	return true
}

// missionSite resolves where the first leg of a ticket's mission goes and
// which settlement ultimately receives the result.
func (w *Worker) missionSite(env *Env, t *jobs.Ticket) (world.HexCoord, uint64, bool) {
	switch t.Kind {
	case jobs.KindCollect:
		if t.Resource == nil {
			return world.HexCoord{}, 0, false
		}
		origin := w.Position
		if sett := env.Settlements[t.SettlementID]; sett != nil {
			origin = sett.Position
		}
		site, found := env.Map.NearestResourceHex(origin, *t.Resource, env.GatherRange)
		if !found {
			return world.HexCoord{}, 0, false
		}
		return site, t.SettlementID, true

	case jobs.KindBuild:
		if t.Target == nil {
			return world.HexCoord{}, 0, false
		}
		return *t.Target, t.SettlementID, true

	case jobs.KindTrade:
		// Load at the posting settlement, deliver to the counterpart.
		if t.Counterpart == nil {
			return world.HexCoord{}, 0, false
		}
		sett := env.Settlements[t.SettlementID]
		if sett == nil || env.Settlements[*t.Counterpart] == nil {
			return world.HexCoord{}, 0, false
		}
		return sett.Position, *t.Counterpart, true

	case jobs.KindTransfer:
		// Load at the donor, deliver to the posting settlement.
		if t.Counterpart == nil {
			return world.HexCoord{}, 0, false
		}
		donor := env.Settlements[*t.Counterpart]
		if donor == nil || env.Settlements[t.SettlementID] == nil {
			return world.HexCoord{}, 0, false
		}
		return donor.Position, t.SettlementID, true
	}
	return world.HexCoord{}, 0, false
}

func (w *Worker) tickBusy(env *Env) {
	switch w.activity {
	case ActivityTraveling:
		if !w.step() {
			return
		}
		if w.leg == legDeliver {
			w.deliver(env)
			return
		}
		w.beginWork()
	case ActivityGathering:
		w.gather(env)
	case ActivityBuilding:
		w.build(env)
	case ActivityLoading:
		w.load(env)
	}
}

// gather pulls the claimed resource off the ground under the worker.
func (w *Worker) gather(env *Env) {
	pool := env.pool(w.FactionID)
	t := ticketFor(pool, w.jobKey)
	if t == nil || t.Resource == nil {
		// Ticket vanished mid-mission (cleanup, faction gone) — go home.
		w.abort(env, pool)
		return
	}
	res := *t.Resource

	hex := env.Map.Get(w.Position)
	remaining := 0
	if hex != nil {
		remaining = hex.Resources[res]
	}

	take := env.GatherPerTick
	if want := w.claimed - w.Cargo; take > want {
		take = want
	}
	if take > remaining {
		take = remaining
	}
	if take > 0 {
		hex.Resources[res] -= take
		w.Cargo += take
		w.CargoRes = res
	}

	if w.Cargo >= w.claimed || remaining-take <= 0 {
		// Free the slack we claimed but cannot gather here.
		if w.Cargo < w.claimed {
			jobs.Release(pool, w.jobKey, w.claimed-w.Cargo)
			w.claimed = w.Cargo
		}
		if w.Cargo == 0 {
			w.abort(env, pool)
			return
		}
		w.headFor(env, pool, w.dropID)
	}
}

// build performs construction work at the site, reporting the whole claim
// once it is worked off.
func (w *Worker) build(env *Env) {
	pool := env.pool(w.FactionID)
	if ticketFor(pool, w.jobKey) == nil {
		w.abort(env, pool)
		return
	}

	w.worked += env.BuildPerTick
	if w.worked < w.claimed {
		return
	}
	jobs.ReportProgress(pool, w.jobKey, w.claimed)
	w.goHome(env)
}

// load withdraws cargo at a pickup settlement for TRADE/TRANSFER missions.
func (w *Worker) load(env *Env) {
	pool := env.pool(w.FactionID)
	t := ticketFor(pool, w.jobKey)
	if t == nil {
		w.abort(env, pool)
		return
	}

	var source *social.Settlement
	res := world.ResourceGrain
	switch t.Kind {
	case jobs.KindTransfer:
		if t.Resource == nil || t.Counterpart == nil {
			w.abort(env, pool)
			return
		}
		res = *t.Resource
		source = env.Settlements[*t.Counterpart]
	case jobs.KindTrade:
		source = env.Settlements[t.SettlementID]
		if source != nil {
			res = richestResource(source)
		}
	}
	if source == nil {
		w.abort(env, pool)
		return
	}

	got := source.Withdraw(res, w.claimed)
	if got < w.claimed {
		jobs.Release(pool, w.jobKey, w.claimed-got)
		w.claimed = got
	}
	if got == 0 {
		w.abort(env, pool)
		return
	}
	w.Cargo = got
	w.CargoRes = res
	w.headFor(env, pool, w.dropID)
}

// deliver deposits cargo at the drop settlement, credits the work, and heads
// home if not already there. Caravan deliveries consume the ticket's target
// so a sized shipment executes exactly once; gathered cargo goes through the
// normal progress report.
func (w *Worker) deliver(env *Env) {
	pool := env.pool(w.FactionID)
	if sett := env.Settlements[w.dropID]; sett != nil && w.Cargo > 0 {
		sett.Deposit(w.CargoRes, w.Cargo)
	}
	if w.Cargo > 0 {
		switch w.jobKind {
		case jobs.KindTrade, jobs.KindTransfer:
			jobs.ReportDelivery(pool, w.jobKey, w.Cargo)
		default:
			jobs.ReportProgress(pool, w.jobKey, w.Cargo)
		}
	}
	w.Cargo = 0
	w.goHome(env)
}

// headFor routes the worker toward a settlement for the delivery leg. An
// unreachable drop degrades to an abort — never fatal to the tick loop.
func (w *Worker) headFor(env *Env, pool *jobs.Pool, settID uint64) {
	sett := env.Settlements[settID]
	if sett == nil {
		w.abort(env, pool)
		return
	}
	route, found := env.Cache.Find(env.Map, env.Costs, w.Position, sett.Position, env.MaxSearchIter)
	if !found {
		env.Blacklist.Add(settID, sett.Position, env.Tick+env.BlacklistTicks)
		w.abort(env, pool)
		return
	}
	w.startDeliver(route)
}

// goHome transitions into Returning, or straight to Idle when already home.
func (w *Worker) goHome(env *Env) {
	home := env.Settlements[w.HomeSettID]
	if home == nil || home.Position == w.Position {
		w.settle()
		return
	}
	route, found := env.Cache.Find(env.Map, env.Costs, w.Position, home.Position, env.MaxSearchIter)
	if !found {
		// Stranded: wait in place, idle. Next cycle may find a new job here.
		w.settle()
		return
	}
	w.startReturn(route)
}

// abort releases any outstanding claim, drops cargo, and returns home.
func (w *Worker) abort(env *Env, pool *jobs.Pool) {
	if w.claimed > 0 {
		jobs.Release(pool, w.jobKey, w.claimed)
	}
	w.Cargo = 0
	w.goHome(env)
}

func ticketFor(pool *jobs.Pool, key string) *jobs.Ticket {
	if pool == nil || key == "" {
		return nil
	}
	return pool.Get(key)
}

// richestResource picks the settlement's most plentiful resource, for trade
// cargo selection. Ties resolve to the lowest resource id.
func richestResource(s *social.Settlement) world.ResourceType {
	best := world.ResourceType(0)
	bestQty := s.Stock[0]
	for r := 1; r < world.NumResources; r++ {
		if s.Stock[r] > bestQty {
			best = world.ResourceType(r)
			bestQty = s.Stock[r]
		}
	}
	return best
}
