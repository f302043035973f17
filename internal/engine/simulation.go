// Simulation ties together all world systems and runs them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/freehold/internal/agents"
	"github.com/talgya/freehold/internal/config"
	"github.com/talgya/freehold/internal/jobs"
	"github.com/talgya/freehold/internal/path"
	"github.com/talgya/freehold/internal/social"
	"github.com/talgya/freehold/internal/world"
)

// Simulation holds the complete world state and wires systems together.
// All mutation happens on the engine goroutine; the struct carries no locks.
type Simulation struct {
	Cfg      config.Config
	WorldMap *world.Map
	Costs    world.CostTable

	Factions     []*social.Faction
	FactionIndex map[uint64]*social.Faction

	Settlements     []*social.Settlement
	SettlementIndex map[uint64]*social.Settlement

	// Workers in spawn order. Per-tick processing walks this slice as-is,
	// which keeps replays identical across runs.
	Workers []*agents.Worker

	PathCache *path.Cache
	Blacklist *agents.Blacklist

	LastTick uint64
	Stats    SimStats
	Events   []Event

	nextWorkerID     uint64
	nextSettlementID uint64
	moveCostWeight   float64
}

// Event is a notable occurrence in the world.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "jobs", "recruit", "expand", "freight"
}

// SimStats tracks aggregate world statistics.
type SimStats struct {
	TotalStock    int    `json:"total_stock"`
	OpenTickets   int    `json:"open_tickets"`
	JobsCompleted int    `json:"jobs_completed"` // Cumulative across the run
	IdleWorkers   int    `json:"idle_workers"`
	BusyWorkers   int    `json:"busy_workers"`
	CacheHits     uint64 `json:"cache_hits"`
	CacheMisses   uint64 `json:"cache_misses"`
}

// NewSimulation creates a Simulation from generated components. The path
// cache starts empty and is never invalidated during the run: stale routes
// are tolerated and corrected by the blacklist when they stop working.
func NewSimulation(cfg config.Config, m *world.Map, factions []*social.Faction, setts []*social.Settlement) (*Simulation, error) {
	costs, err := cfg.CostTable()
	if err != nil {
		return nil, err
	}

	fIndex := make(map[uint64]*social.Faction, len(factions))
	for _, f := range factions {
		fIndex[f.ID] = f
	}
	sIndex := make(map[uint64]*social.Settlement, len(setts))
	var maxSettID uint64
	for _, s := range setts {
		sIndex[s.ID] = s
		if s.ID > maxSettID {
			maxSettID = s.ID
		}
	}

	sim := &Simulation{
		Cfg:              cfg,
		WorldMap:         m,
		Costs:            costs,
		Factions:         factions,
		FactionIndex:     fIndex,
		Settlements:      setts,
		SettlementIndex:  sIndex,
		PathCache:        path.NewCache(),
		Blacklist:        agents.NewBlacklist(),
		nextSettlementID: maxSettID + 1,
	}
	sim.moveCostWeight = costs.AverageCost()
	return sim, nil
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// SpawnWorker adds a worker homed at the given settlement and returns it.
func (s *Simulation) SpawnWorker(name string, role agents.Role, sett *social.Settlement) *agents.Worker {
	s.nextWorkerID++
	capacity := s.Cfg.Agents.VillagerCapacity
	if role == agents.RoleCaravan {
		capacity = s.Cfg.Agents.CaravanCapacity
	}
	w := agents.NewWorker(s.nextWorkerID, name, role, sett.FactionID, sett.ID, sett.Position, capacity)
	s.Workers = append(s.Workers, w)
	return w
}

// TickStep advances one tick: plan on cadence, then give every worker one
// turn in spawn order.
func (s *Simulation) TickStep(tick uint64) {
	s.LastTick = tick

	cadence := s.Cfg.Planner.CadenceTicks
	if cadence == 0 {
		cadence = 1
	}
	if (tick-1)%cadence == 0 {
		s.runPlanning(tick)
	}

	env := s.env(tick)
	for _, w := range s.Workers {
		w.Tick(env)
	}
}

// TickDay emits the daily report.
func (s *Simulation) TickDay(tick uint64) {
	s.updateStats()
	slog.Info("daily report",
		"tick", tick,
		"time", SimTime(tick),
		"workers_idle", s.Stats.IdleWorkers,
		"workers_busy", s.Stats.BusyWorkers,
		"open_tickets", s.Stats.OpenTickets,
		"jobs_completed", s.Stats.JobsCompleted,
		"total_stock", s.Stats.TotalStock,
		"cache_hits", s.Stats.CacheHits,
		"cache_misses", s.Stats.CacheMisses,
	)
}

// env builds the shared per-tick worker environment.
func (s *Simulation) env(tick uint64) *agents.Env {
	return &agents.Env{
		Tick:           tick,
		Map:            s.WorldMap,
		Costs:          s.Costs,
		Cache:          s.PathCache,
		Factions:       s.FactionIndex,
		Settlements:    s.SettlementIndex,
		Blacklist:      s.Blacklist,
		MaxSearchIter:  s.Cfg.Path.MaxIterations,
		GatherPerTick:  s.Cfg.Agents.GatherPerTick,
		BuildPerTick:   s.Cfg.Agents.BuildPerTick,
		GatherRange:    s.Cfg.Agents.GatherRange,
		BlacklistTicks: s.Cfg.Planner.BlacklistTicks,
		MoveCostWeight: s.moveCostWeight,
		PollLimit:      s.Cfg.Agents.PollLimit,
	}
}

// runPlanning is the per-cadence demand cycle: gather desires per faction,
// convert them into the job pool, then settle any population tickets the
// settlements can afford.
func (s *Simulation) runPlanning(tick uint64) {
	s.Blacklist.Sweep(tick)

	view := settView{index: s.SettlementIndex}
	planCfg := s.Cfg.PlanConfig()

	for _, f := range s.Factions {
		// Count and sweep finished work before posting the new cycle, since
		// Plan's own trailing sweep would hide it from the tally.
		s.Stats.JobsCompleted += f.Pool.Cleanup()

		var desires []jobs.Desire
		for _, sett := range s.Settlements {
			if sett.FactionID != f.ID {
				continue
			}
			desires = append(desires, sett.Desires(s.hostedVillagers(sett.ID))...)
			desires = append(desires, s.strategicDesires(sett)...)
		}
		jobs.Plan(f.Pool, desires, view, planCfg)
		s.resolvePopulation(tick, f)
		s.Stats.JobsCompleted += f.Pool.Cleanup()
	}
}

// hostedVillagers counts the villagers homed at a settlement.
func (s *Simulation) hostedVillagers(settlementID uint64) int {
	n := 0
	for _, w := range s.Workers {
		if w.HomeSettID == settlementID && w.Role == agents.RoleVillager {
			n++
		}
	}
	return n
}

// strategicDesires emits the wants a settlement's governor cannot see on
// its own warehouse ledger: freight requests against richer neighbors, and
// a settler push once the settlement is prosperous enough to split.
func (s *Simulation) strategicDesires(sett *social.Settlement) []jobs.Desire {
	var out []jobs.Desire

	for r := 0; r < world.NumResources; r++ {
		res := world.ResourceType(r)
		goal := sett.StockGoal[res]
		if goal <= 0 || sett.Stock[res] >= goal {
			continue
		}
		// Freight only helps for deep deficits; shallow ones are cheaper to
		// collect locally.
		if float64(sett.Stock[res]) > 0.5*float64(goal) {
			continue
		}
		out = append(out, jobs.Desire{
			SettlementID: sett.ID,
			Kind:         jobs.DesireRequestFreight,
			Score:        0.8 * (1.0 - float64(sett.Stock[res])/float64(goal)),
			Resource:     &res,
			TargetLevel:  goal,
		})
	}

	if sett.Stock[world.ResourceGrain] >= 80 && sett.Stock[world.ResourceTimber] >= 50 {
		out = append(out, jobs.Desire{
			SettlementID: sett.ID,
			Kind:         jobs.DesireSettler,
			Score:        0.6,
		})
	}

	return out
}

// resolvePopulation consumes RECRUIT and EXPAND tickets. These are not
// field work — no worker travels for them — so the engine settles them
// directly during planning, paying their cost out of the posting
// settlement's stock.
func (s *Simulation) resolvePopulation(tick uint64, f *social.Faction) {
	for _, t := range f.Pool.Tickets() {
		if t.Status == jobs.StatusCompleted || t.RemainingVolume() <= 0 {
			continue
		}
		sett := s.SettlementIndex[t.SettlementID]
		if sett == nil {
			continue
		}
		switch t.Kind {
		case jobs.KindRecruit:
			s.resolveRecruit(tick, t, sett)
		case jobs.KindExpand:
			s.resolveExpand(tick, t, sett)
		}
	}
}

func (s *Simulation) resolveRecruit(tick uint64, t *jobs.Ticket, sett *social.Settlement) {
	for t.TargetVolume > 0 && sett.Stock[world.ResourceGrain] >= 20 {
		sett.Withdraw(world.ResourceGrain, 20)
		w := s.SpawnWorker(fmt.Sprintf("villager-%d", s.nextWorkerID+1), agents.RoleVillager, sett)
		sett.Population++
		t.TargetVolume--
		s.record(tick, "recruit", fmt.Sprintf("%s joins %s", w.Name, sett.Name))
	}
	if t.TargetVolume <= 0 {
		t.Status = jobs.StatusCompleted
	}
}

func (s *Simulation) resolveExpand(tick uint64, t *jobs.Ticket, sett *social.Settlement) {
	if sett.Stock[world.ResourceGrain] < 50 || sett.Stock[world.ResourceTimber] < 30 {
		return
	}
	site, ok := s.findExpansionSite(sett.Position)
	if !ok {
		return
	}
	sett.Withdraw(world.ResourceGrain, 50)
	sett.Withdraw(world.ResourceTimber, 30)

	s.nextSettlementID++
	colony := &social.Settlement{
		ID:           s.nextSettlementID,
		Name:         fmt.Sprintf("%s Colony", sett.Name),
		Position:     site,
		FactionID:    sett.FactionID,
		Population:   1,
		StockGoal:    sett.StockGoal,
		WorkerTarget: sett.WorkerTarget,
	}
	colony.Stock[world.ResourceGrain] = 20
	s.Settlements = append(s.Settlements, colony)
	s.SettlementIndex[colony.ID] = colony
	if hex := s.WorldMap.Get(site); hex != nil {
		hex.SettlementID = &colony.ID
	}

	t.TargetVolume--
	if t.TargetVolume <= 0 {
		t.Status = jobs.StatusCompleted
	}
	s.record(tick, "expand", fmt.Sprintf("%s founded at (%d,%d)", colony.Name, site.Q, site.R))
}

// findExpansionSite scans outward for the nearest passable, unclaimed hex
// at least minColonyDistance from every existing settlement. Scan order is
// ring radius then (q, r), so the choice is stable across runs.
const minColonyDistance = 5

func (s *Simulation) findExpansionSite(origin world.HexCoord) (world.HexCoord, bool) {
	for radius := minColonyDistance; radius <= s.WorldMap.Radius*2; radius++ {
		var best *world.HexCoord
		for q := origin.Q - radius; q <= origin.Q+radius; q++ {
			for r := origin.R - radius; r <= origin.R+radius; r++ {
				c := world.HexCoord{Q: q, R: r}
				if world.Distance(origin, c) != radius {
					continue
				}
				hex := s.WorldMap.Get(c)
				if hex == nil || hex.SettlementID != nil || !s.Costs.Passable(hex.Terrain) {
					continue
				}
				if s.tooCloseToSettlement(c) {
					continue
				}
				if best == nil || c.Q < best.Q || (c.Q == best.Q && c.R < best.R) {
					cc := c
					best = &cc
				}
			}
		}
		if best != nil {
			return *best, true
		}
	}
	return world.HexCoord{}, false
}

func (s *Simulation) tooCloseToSettlement(c world.HexCoord) bool {
	for _, sett := range s.Settlements {
		if world.Distance(sett.Position, c) < minColonyDistance {
			return true
		}
	}
	return false
}

func (s *Simulation) record(tick uint64, category, desc string) {
	s.Events = append(s.Events, Event{Tick: tick, Description: desc, Category: category})
	// Keep the buffer bounded.
	if len(s.Events) > 1000 {
		s.Events = s.Events[len(s.Events)-1000:]
	}
}

func (s *Simulation) updateStats() {
	idle, busy := 0, 0
	for _, w := range s.Workers {
		if w.State() == agents.StateIdle {
			idle++
		} else {
			busy++
		}
	}

	open := 0
	for _, f := range s.Factions {
		for _, t := range f.Pool.Tickets() {
			if t.Status != jobs.StatusCompleted {
				open++
			}
		}
	}

	stock := 0
	for _, sett := range s.Settlements {
		stock += sett.Stock.Total()
	}

	hits, misses := s.PathCache.Stats()
	s.Stats.IdleWorkers = idle
	s.Stats.BusyWorkers = busy
	s.Stats.OpenTickets = open
	s.Stats.TotalStock = stock
	s.Stats.CacheHits = hits
	s.Stats.CacheMisses = misses
}

// settView adapts the settlement index to the planner's read-only view.
type settView struct {
	index map[uint64]*social.Settlement
}

func (v settView) Stock(settlement uint64, res world.ResourceType) int {
	if s := v.index[settlement]; s != nil {
		return s.Stock[res]
	}
	return 0
}

func (v settView) StockGoal(settlement uint64, res world.ResourceType) int {
	if s := v.index[settlement]; s != nil {
		return s.StockGoal[res]
	}
	return 0
}

func (v settView) Position(settlement uint64) (world.HexCoord, bool) {
	if s := v.index[settlement]; s != nil {
		return s.Position, true
	}
	return world.HexCoord{}, false
}

func (v settView) SettlementIDs() []uint64 {
	ids := make([]uint64, 0, len(v.index))
	for id := range v.index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
