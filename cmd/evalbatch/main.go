// Command evalbatch runs many seeded simulations and records their results
// for offline comparison of tuning configurations. Instances share nothing —
// each gets its own map, pools, and path cache — so runs execute in parallel
// while each one stays tick-for-tick deterministic.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/freehold/internal/agents"
	"github.com/talgya/freehold/internal/config"
	"github.com/talgya/freehold/internal/engine"
	"github.com/talgya/freehold/internal/persistence"
	"github.com/talgya/freehold/internal/social"
	"github.com/talgya/freehold/internal/world"
)

func main() {
	var (
		firstSeed = flag.Int64("seed", 1, "first seed; runs use seed, seed+1, ...")
		runs      = flag.Int("runs", 8, "number of seeded runs")
		ticks     = flag.Uint64("ticks", 2880, "ticks per run")
		parallel  = flag.Int("parallel", 4, "runs executing at once")
		cfgPath   = flag.String("config", "", "YAML tuning file (defaults built in)")
		dataDir   = flag.String("data", "data", "directory for the results database")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn, // Per-run chatter off; results go to the database
	}))
	slog.SetDefault(logger)

	baseCfg := config.Default()
	if *cfgPath != "" {
		var err error
		baseCfg, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	os.MkdirAll(*dataDir, 0o755)
	db, err := persistence.Open(filepath.Join(*dataDir, "evalbatch.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	sem := make(chan struct{}, *parallel)
	results := make(chan persistence.RunRecord, *runs)
	var wg sync.WaitGroup

	for i := 0; i < *runs; i++ {
		seed := *firstSeed + int64(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- evaluate(baseCfg, seed, *ticks)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single writer: SQLite likes one connection doing the inserts.
	saved := 0
	for rec := range results {
		if err := db.SaveRun(rec); err != nil {
			fmt.Fprintf(os.Stderr, "save run %s: %v\n", rec.ID, err)
			continue
		}
		saved++
		fmt.Printf("seed %4d  ticks %6d  jobs %4d  stock %6d  cache %d/%d\n",
			rec.Seed, rec.Ticks, rec.JobsCompleted, rec.TotalStock,
			rec.CacheHits, rec.CacheMisses)
	}

	fmt.Printf("%d/%d runs recorded in %s\n", saved, *runs, filepath.Join(*dataDir, "evalbatch.db"))
}

// evaluate runs one isolated instance to completion and summarizes it.
func evaluate(cfg config.Config, seed int64, ticks uint64) persistence.RunRecord {
	cfg.World.Seed = seed

	genCfg := world.DefaultGenConfig()
	genCfg.Radius = cfg.World.Radius
	genCfg.Seed = seed
	genCfg.SeaLevel = cfg.World.SeaLevel
	genCfg.MountainLvl = cfg.World.MountainLvl
	worldMap := world.Generate(genCfg)

	factions := social.SeedFactions()
	for _, f := range factions {
		f.Weights = cfg.Weights()
	}

	seeds := world.PlaceSettlements(worldMap, seed, 4, 6)
	var setts []*social.Settlement
	for i, ss := range seeds {
		sid := uint64(i + 1)
		sett := &social.Settlement{
			ID:           sid,
			Name:         ss.Name,
			Position:     ss.Coord,
			FactionID:    factions[i%len(factions)].ID,
			Population:   3,
			WorkerTarget: 4,
		}
		sett.Stock[world.ResourceGrain] = 60
		sett.StockGoal[world.ResourceGrain] = 80
		sett.StockGoal[world.ResourceTimber] = 60
		sett.StockGoal[world.ResourceStone] = 40
		setts = append(setts, sett)
		if hex := worldMap.Get(ss.Coord); hex != nil {
			s := sid
			hex.SettlementID = &s
		}
	}

	sim, err := engine.NewSimulation(cfg, worldMap, factions, setts)
	if err != nil {
		// A bad cost table is a configuration error; surface it as an empty run.
		fmt.Fprintf(os.Stderr, "seed %d: %v\n", seed, err)
		return persistence.RunRecord{ID: uuid.NewString(), Seed: seed}
	}
	for _, sett := range setts {
		for i := 0; i < 2; i++ {
			sim.SpawnWorker(fmt.Sprintf("%s villager %d", sett.Name, i+1), agents.RoleVillager, sett)
		}
		sim.SpawnWorker(fmt.Sprintf("%s caravan", sett.Name), agents.RoleCaravan, sett)
	}

	eng := engine.NewEngine()
	eng.OnTick = sim.TickStep
	eng.OnDay = sim.TickDay
	eng.RunTicks(ticks)

	stock := 0
	for _, s := range sim.Settlements {
		stock += s.Stock.Total()
	}
	hits, misses := sim.PathCache.Stats()
	return persistence.RunRecord{
		ID:            uuid.NewString(),
		Seed:          seed,
		Ticks:         ticks,
		Settlements:   len(sim.Settlements),
		Workers:       len(sim.Workers),
		JobsCompleted: sim.Stats.JobsCompleted,
		TotalStock:    stock,
		CacheHits:     hits,
		CacheMisses:   misses,
	}
}
