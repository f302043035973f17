package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/freehold/internal/config"
	"github.com/talgya/freehold/internal/engine"
	"github.com/talgya/freehold/internal/jobs"
	"github.com/talgya/freehold/internal/social"
	"github.com/talgya/freehold/internal/world"
)

// SnapshotVersion bumps when the on-disk layout changes incompatibly.
const SnapshotVersion = 1

// Header identifies a snapshot file without decoding the body.
type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    uint64 `json:"tick"`
}

// HexV1 is one map cell in the snapshot.
type HexV1 struct {
	Q         int                        `json:"q"`
	R         int                        `json:"r"`
	Terrain   world.Terrain              `json:"terrain"`
	Resources map[world.ResourceType]int `json:"resources,omitempty"`
}

// WorkerV1 captures a worker's persistent identity. In-flight jobs are not
// carried across a restore: their claims are re-posted by the next planning
// cycle, so restored workers start idle at their last position.
type WorkerV1 struct {
	ID         uint64         `json:"id"`
	Name       string         `json:"name"`
	Role       uint8          `json:"role"`
	FactionID  uint64         `json:"faction_id"`
	HomeSettID uint64         `json:"home_settlement_id"`
	Position   world.HexCoord `json:"position"`
	Capacity   int            `json:"capacity"`
}

// SnapshotV1 is the complete world state of one run.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed   int64         `json:"seed"`
	Radius int           `json:"radius"`
	Cfg    config.Config `json:"config"`

	Hexes       []HexV1              `json:"hexes"`
	Factions    []*social.Faction    `json:"factions"`
	Tickets     []*jobs.Ticket       `json:"tickets"`
	Settlements []*social.Settlement `json:"settlements"`
	Workers     []WorkerV1           `json:"workers"`
}

// BuildSnapshot captures a simulation into its serializable form.
func BuildSnapshot(runID string, seed int64, sim *engine.Simulation) SnapshotV1 {
	snap := SnapshotV1{
		Header: Header{Version: SnapshotVersion, RunID: runID, Tick: sim.CurrentTick()},
		Seed:   seed,
		Radius: sim.WorldMap.Radius,
		Cfg:    sim.Cfg,
	}

	snap.Hexes = make([]HexV1, 0, sim.WorldMap.HexCount())
	for _, hex := range sim.WorldMap.Hexes {
		snap.Hexes = append(snap.Hexes, HexV1{
			Q: hex.Coord.Q, R: hex.Coord.R,
			Terrain:   hex.Terrain,
			Resources: hex.Resources,
		})
	}
	// Stable hex order so identical runs produce identical files.
	sort.Slice(snap.Hexes, func(i, j int) bool {
		if snap.Hexes[i].Q != snap.Hexes[j].Q {
			return snap.Hexes[i].Q < snap.Hexes[j].Q
		}
		return snap.Hexes[i].R < snap.Hexes[j].R
	})

	snap.Factions = sim.Factions
	for _, f := range sim.Factions {
		snap.Tickets = append(snap.Tickets, f.Pool.Tickets()...)
	}
	snap.Settlements = sim.Settlements

	snap.Workers = make([]WorkerV1, 0, len(sim.Workers))
	for _, w := range sim.Workers {
		snap.Workers = append(snap.Workers, WorkerV1{
			ID: w.ID, Name: w.Name, Role: uint8(w.Role),
			FactionID: w.FactionID, HomeSettID: w.HomeSettID,
			Position: w.Position, Capacity: w.Capacity,
		})
	}
	return snap
}

// WriteSnapshot writes a zstd-compressed snapshot: one JSON header line
// followed by the JSON body, so tooling can sniff the header cheaply.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	// Flush and close explicitly: a write error surfacing at flush or close
	// means a truncated snapshot, which must not be reported as success.
	write := func() error {
		hb, _ := json.Marshal(snap.Header)
		if _, err := bw.Write(hb); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		if err := json.NewEncoder(bw).Encode(&snap); err != nil {
			return fmt.Errorf("snapshot encode: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		return enc.Close()
	}
	if err := write(); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the body repeats it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}

	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("snapshot decode: %w", err)
	}
	if snap.Header.Version != SnapshotVersion {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// RestoreMap rebuilds the hex map from a snapshot.
func RestoreMap(snap SnapshotV1) *world.Map {
	m := world.NewMap(snap.Radius)
	for _, h := range snap.Hexes {
		m.Set(&world.Hex{
			Coord:     world.HexCoord{Q: h.Q, R: h.R},
			Terrain:   h.Terrain,
			Resources: h.Resources,
		})
	}
	return m
}
