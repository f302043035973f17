// Package persistence provides SQLite-based storage for run results and
// world state, plus compressed full-world snapshots.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/freehold/internal/engine"
	"github.com/talgya/freehold/internal/jobs"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		ticks INTEGER NOT NULL,
		settlements INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		jobs_completed INTEGER NOT NULL,
		total_stock INTEGER NOT NULL,
		cache_hits INTEGER NOT NULL,
		cache_misses INTEGER NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settlements (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		faction_id INTEGER NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		population INTEGER NOT NULL,
		stock_json TEXT NOT NULL,
		stock_goal_json TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS workers (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		role INTEGER NOT NULL,
		faction_id INTEGER NOT NULL,
		home_settlement_id INTEGER NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		capacity INTEGER NOT NULL,
		cargo INTEGER NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS tickets (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		faction_id INTEGER NOT NULL,
		settlement_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		priority REAL NOT NULL,
		target_volume INTEGER NOT NULL,
		assigned_volume INTEGER NOT NULL,
		status INTEGER NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_workers_settlement ON workers(run_id, home_settlement_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRecord summarizes one completed simulation run.
type RunRecord struct {
	ID            string `db:"id"` // UUID assigned by the caller
	Seed          int64  `db:"seed"`
	Ticks         uint64 `db:"ticks"`
	Settlements   int    `db:"settlements"`
	Workers       int    `db:"workers"`
	JobsCompleted int    `db:"jobs_completed"`
	TotalStock    int    `db:"total_stock"`
	CacheHits     uint64 `db:"cache_hits"`
	CacheMisses   uint64 `db:"cache_misses"`
	FinishedAt    string `db:"finished_at"`
}

// SaveRun records one run's result row.
func (db *DB) SaveRun(r RunRecord) error {
	if r.FinishedAt == "" {
		r.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO runs
		(id, seed, ticks, settlements, workers, jobs_completed, total_stock,
		 cache_hits, cache_misses, finished_at)
		VALUES (:id, :seed, :ticks, :settlements, :workers, :jobs_completed,
		 :total_stock, :cache_hits, :cache_misses, :finished_at)`, r)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// Runs returns all recorded runs, newest first.
func (db *DB) Runs() ([]RunRecord, error) {
	var out []RunRecord
	err := db.conn.Select(&out, `SELECT * FROM runs ORDER BY finished_at DESC, id`)
	return out, err
}

// SaveWorldState performs a full save of one run's end state.
func (db *DB) SaveWorldState(runID string, sim *engine.Simulation) error {
	slog.Info("saving world state",
		"run_id", runID,
		"settlements", len(sim.Settlements),
		"workers", len(sim.Workers),
	)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range sim.Settlements {
		stockJSON, _ := json.Marshal(s.Stock)
		goalJSON, _ := json.Marshal(s.StockGoal)
		_, err := tx.Exec(`INSERT OR REPLACE INTO settlements
			(run_id, id, name, faction_id, pos_q, pos_r, population, stock_json, stock_goal_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, s.ID, s.Name, s.FactionID, s.Position.Q, s.Position.R,
			s.Population, string(stockJSON), string(goalJSON),
		)
		if err != nil {
			return fmt.Errorf("insert settlement %d: %w", s.ID, err)
		}
	}

	for _, w := range sim.Workers {
		_, err := tx.Exec(`INSERT OR REPLACE INTO workers
			(run_id, id, name, role, faction_id, home_settlement_id, pos_q, pos_r, capacity, cargo)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, w.ID, w.Name, w.Role, w.FactionID, w.HomeSettID,
			w.Position.Q, w.Position.R, w.Capacity, w.Cargo,
		)
		if err != nil {
			return fmt.Errorf("insert worker %d: %w", w.ID, err)
		}
	}

	for _, f := range sim.Factions {
		for _, t := range f.Pool.Tickets() {
			_, err := tx.Exec(`INSERT OR REPLACE INTO tickets
				(run_id, key, faction_id, settlement_id, kind, priority,
				 target_volume, assigned_volume, status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, t.Key, t.FactionID, t.SettlementID, jobs.KindName(t.Kind),
				t.Priority, t.TargetVolume, t.AssignedVolume, t.Status,
			)
			if err != nil {
				return fmt.Errorf("insert ticket %s: %w", t.Key, err)
			}
		}
	}

	// Events carry no stable key, so the run's log is rewritten wholesale.
	// Saves happen daily and at shutdown; re-inserting on top of the previous
	// save would duplicate every event still in the ring buffer.
	if _, err := tx.Exec("DELETE FROM events WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	for _, e := range sim.Events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("world state saved", "run_id", runID)
	return nil
}

// RecentEvents returns the most recent N events of a run.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}
