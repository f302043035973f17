// Package config loads the named numeric knobs the simulation consumes:
// terrain movement costs, bidding weights, agent capacities, search budget,
// and planner cadence. The evolutionary harness rewrites this file between
// evaluation runs, so every tunable lives here rather than in code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/freehold/internal/jobs"
	"github.com/talgya/freehold/internal/world"
)

// Config is the full set of simulation knobs.
type Config struct {
	World WorldConfig `yaml:"world"`

	// Movement cost per terrain, keyed by lowercase terrain name. Ocean is
	// impassable no matter what this says.
	MovementCosts map[string]float64 `yaml:"movement_costs"`

	Bidding BiddingConfig `yaml:"bidding"`
	Agents  AgentsConfig  `yaml:"agents"`
	Planner PlannerConfig `yaml:"planner"`
	Path    PathConfig    `yaml:"path"`
}

type WorldConfig struct {
	Radius      int     `yaml:"radius"`
	Seed        int64   `yaml:"seed"`
	SeaLevel    float64 `yaml:"sea_level"`
	MountainLvl float64 `yaml:"mountain_level"`
}

type BiddingConfig struct {
	DistanceWeight    float64 `yaml:"distance_weight"`
	SaturationWeight  float64 `yaml:"saturation_weight"`
	FulfillmentWeight float64 `yaml:"fulfillment_weight"`
}

type AgentsConfig struct {
	VillagerCapacity int `yaml:"villager_capacity"`
	CaravanCapacity  int `yaml:"caravan_capacity"`
	GatherPerTick    int `yaml:"gather_per_tick"`
	BuildPerTick     int `yaml:"build_per_tick"`
	GatherRange      int `yaml:"gather_range"`
	PollLimit        int `yaml:"poll_limit"`
}

type PlannerConfig struct {
	CadenceTicks         uint64  `yaml:"cadence_ticks"`
	FreightSurplusFactor float64 `yaml:"freight_surplus_factor"`
	TradeVolume          int     `yaml:"trade_volume"`
	BlacklistTicks       uint64  `yaml:"blacklist_ticks"`
}

type PathConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

// Default returns a complete working configuration.
func Default() Config {
	return Config{
		World: WorldConfig{
			Radius:      22,
			Seed:        1,
			SeaLevel:    0.25,
			MountainLvl: 0.72,
		},
		MovementCosts: map[string]float64{
			"plains":   1.0,
			"forest":   1.5,
			"mountain": 3.0,
			"coast":    1.0,
			"river":    2.0,
			"desert":   2.0,
			"swamp":    2.5,
			"tundra":   1.5,
		},
		Bidding: BiddingConfig{
			DistanceWeight:    1.0,
			SaturationWeight:  1.0,
			FulfillmentWeight: 1.0,
		},
		Agents: AgentsConfig{
			VillagerCapacity: 10,
			CaravanCapacity:  25,
			GatherPerTick:    5,
			BuildPerTick:     5,
			GatherRange:      12,
			PollLimit:        3,
		},
		Planner: PlannerConfig{
			CadenceTicks:         20,
			FreightSurplusFactor: 1.5,
			TradeVolume:          10,
			BlacklistTicks:       60,
		},
		Path: PathConfig{
			MaxIterations: 4096,
		},
	}
}

// Load reads a YAML config from disk, filling gaps with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// CostTable materializes the movement cost table from the named entries.
// Unknown terrain names are rejected so a typo doesn't silently fall back
// to the default cost.
func (c Config) CostTable() (world.CostTable, error) {
	table := world.DefaultCosts()
	for name, cost := range c.MovementCosts {
		terrain, ok := world.TerrainByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown terrain %q in movement_costs", name)
		}
		table[terrain] = cost
	}
	return table, nil
}

// Weights materializes the dispatcher bid exponents.
func (c Config) Weights() jobs.Weights {
	return jobs.Weights{
		Saturation:  c.Bidding.SaturationWeight,
		Distance:    c.Bidding.DistanceWeight,
		Fulfillment: c.Bidding.FulfillmentWeight,
	}
}

// PlanConfig materializes the planner's knobs.
func (c Config) PlanConfig() jobs.PlanConfig {
	return jobs.PlanConfig{
		FreightSurplusFactor: c.Planner.FreightSurplusFactor,
		TradeVolume:          c.Planner.TradeVolume,
	}
}
