// Command freeholdsim runs the Freehold autonomous settlement simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

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
		seed     = flag.Int64("seed", 42, "world generation seed")
		ticks    = flag.Uint64("ticks", 0, "run this many ticks in batch mode, then exit (0 = real-time)")
		cfgPath  = flag.String("config", "", "YAML tuning file (defaults built in)")
		dataDir  = flag.String("data", "data", "directory for the run database and snapshots")
		numSetts = flag.Int("settlements", 4, "settlements to found at start")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Freehold — settlement job market simulation", "seed", *seed)

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			slog.Error("failed to load config", "path", *cfgPath, "error", err)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", *cfgPath)
	}
	cfg.World.Seed = *seed

	os.MkdirAll(*dataDir, 0o755)
	db, err := persistence.Open(filepath.Join(*dataDir, "freehold.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sim, err := buildWorld(cfg, *numSetts)
	if err != nil {
		slog.Error("world setup failed", "error", err)
		os.Exit(1)
	}

	runID := uuid.NewString()
	slog.Info("world ready",
		"run_id", runID,
		"hexes", sim.WorldMap.HexCount(),
		"settlements", len(sim.Settlements),
		"workers", len(sim.Workers),
	)

	eng := engine.NewEngine()
	eng.OnTick = sim.TickStep
	eng.OnDay = func(tick uint64) {
		sim.TickDay(tick)
		if err := db.SaveWorldState(runID, sim); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}

	if *ticks > 0 {
		eng.RunTicks(*ticks)
	} else {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig)
			eng.Stop()
		}()
		fmt.Println("Starting simulation... (Ctrl+C to stop)")
		eng.Run()
	}

	if err := db.SaveWorldState(runID, sim); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if err := db.SaveRun(runRecord(runID, *seed, eng.Tick, sim)); err != nil {
		slog.Error("run record save failed", "error", err)
	}

	snapPath := filepath.Join(*dataDir, "snapshots", runID+".snap.zst")
	if err := persistence.WriteSnapshot(snapPath, persistence.BuildSnapshot(runID, *seed, sim)); err != nil {
		slog.Error("snapshot write failed", "error", err)
	} else {
		slog.Info("snapshot written", "path", snapPath)
	}

	fmt.Printf("Simulation stopped at tick %d (%s). World state saved.\n",
		eng.Tick, engine.SimTime(eng.Tick))
}

// buildWorld generates terrain, founds the starting settlements alternating
// between the factions, and staffs each with villagers and a caravan.
func buildWorld(cfg config.Config, numSetts int) (*engine.Simulation, error) {
	genCfg := world.DefaultGenConfig()
	genCfg.Radius = cfg.World.Radius
	genCfg.Seed = cfg.World.Seed
	genCfg.SeaLevel = cfg.World.SeaLevel
	genCfg.MountainLvl = cfg.World.MountainLvl
	worldMap := world.Generate(genCfg)

	// Fixed terrain order keeps the startup log identical across runs.
	counts := world.TerrainCounts(worldMap)
	for t := world.Terrain(0); t < world.NumTerrains; t++ {
		if c := counts[t]; c > 0 {
			slog.Info("terrain", "type", world.TerrainName(t), "count", c)
		}
	}

	factions := social.SeedFactions()
	for _, f := range factions {
		f.Weights = cfg.Weights()
	}

	seeds := world.PlaceSettlements(worldMap, cfg.World.Seed, numSetts, 6)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no habitable settlement sites on map radius %d", cfg.World.Radius)
	}

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
		return nil, err
	}

	for _, sett := range setts {
		for i := 0; i < 2; i++ {
			sim.SpawnWorker(fmt.Sprintf("%s villager %d", sett.Name, i+1), agents.RoleVillager, sett)
		}
		sim.SpawnWorker(fmt.Sprintf("%s caravan", sett.Name), agents.RoleCaravan, sett)
	}

	return sim, nil
}

func runRecord(runID string, seed int64, ticks uint64, sim *engine.Simulation) persistence.RunRecord {
	stock := 0
	for _, s := range sim.Settlements {
		stock += s.Stock.Total()
	}
	hits, misses := sim.PathCache.Stats()
	return persistence.RunRecord{
		ID:            runID,
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
