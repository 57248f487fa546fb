// Package persistence provides the SQLite telemetry store: one row per run,
// per-guard frames with compressed world states, path failures and events.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/talgya/warden/internal/agents"
	"github.com/talgya/warden/internal/engine"
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/nav"
)

// ErrNoRun is returned when the store holds no run to read from.
var ErrNoRun = errors.New("persistence: no run recorded")

// DB wraps a SQLite connection for telemetry.
type DB struct {
	conn *sqlx.DB
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer keeps SQLite from reporting SQLITE_BUSY under WAL.
	conn.SetMaxOpenConns(1)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		conn.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}

	db := &DB{conn: conn, enc: enc, dec: dec}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.dec.Close()
	db.enc.Close()
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		last_tick INTEGER NOT NULL DEFAULT 0,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		state TEXT NOT NULL,
		goal TEXT NOT NULL,
		action TEXT NOT NULL,
		plan_json TEXT NOT NULL,
		health REAL NOT NULL,
		pos_x REAL NOT NULL,
		pos_z REAL NOT NULL,
		world_state BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS path_failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		grid TEXT NOT NULL,
		reason TEXT NOT NULL,
		from_x REAL NOT NULL,
		from_z REAL NOT NULL,
		to_x REAL NOT NULL,
		to_z REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		category TEXT NOT NULL,
		agent_id INTEGER NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_frames_agent ON frames(run_id, agent_id, tick);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_failures_run ON path_failures(run_id, reason);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run describes one simulation run.
type Run struct {
	ID        string `db:"id" json:"id"`
	Seed      int64  `db:"seed" json:"seed"`
	StartedAt string `db:"started_at" json:"started_at"`
	LastTick  uint64 `db:"last_tick" json:"last_tick"`
}

// StartRun records a new run and makes it the latest. cfg is stored as JSON
// for later inspection.
func (db *DB) StartRun(seed int64, cfg any) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode run config: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, seed, started_at, config_json) VALUES (?, ?, ?, ?)",
		id, seed, time.Now().UTC().Format(time.RFC3339), string(cfgJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	if err := db.SaveMeta("last_run", id); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}
	return id, nil
}

// LastRun returns the most recently started run.
func (db *DB) LastRun() (Run, error) {
	id, err := db.GetMeta("last_run")
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRun
	}
	if err != nil {
		return Run{}, err
	}
	var r Run
	err = db.conn.Get(&r, "SELECT id, seed, started_at, last_tick FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRun
	}
	return r, err
}

// SaveFrames writes one frame per guard. World states are stored as
// zstd-compressed JSON. It returns the compressed byte count.
func (db *DB) SaveFrames(runID string, tick uint64, guards []agents.Snapshot) (int, error) {
	if len(guards) == 0 {
		return 0, nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO frames
		(run_id, tick, agent_id, state, goal, action, plan_json, health, pos_x, pos_z, world_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var written int
	for _, g := range guards {
		planJSON, _ := json.Marshal(g.Plan)
		wsJSON, err := json.Marshal(g.WorldState)
		if err != nil {
			return 0, fmt.Errorf("encode world state of guard %d: %w", g.ID, err)
		}
		blob := db.enc.EncodeAll(wsJSON, nil)
		written += len(blob)

		_, err = stmt.Exec(
			runID, tick, g.ID, g.State.String(), g.Goal, g.Action, string(planJSON),
			g.Health, g.Position.X, g.Position.Z, blob,
		)
		if err != nil {
			return 0, fmt.Errorf("insert frame for guard %d: %w", g.ID, err)
		}
	}
	if _, err := tx.Exec("UPDATE runs SET last_tick = ? WHERE id = ?", tick, runID); err != nil {
		return 0, fmt.Errorf("update run: %w", err)
	}
	return written, tx.Commit()
}

// Frame is one stored guard frame with its world state decompressed.
type Frame struct {
	Tick       uint64          `db:"tick" json:"tick"`
	AgentID    agents.AgentID  `db:"agent_id" json:"agent_id"`
	State      string          `db:"state" json:"state"`
	Goal       string          `db:"goal" json:"goal"`
	Action     string          `db:"action" json:"action"`
	PlanJSON   string          `db:"plan_json" json:"-"`
	Plan       []string        `db:"-" json:"plan"`
	Health     float64         `db:"health" json:"health"`
	PosX       float64         `db:"pos_x" json:"x"`
	PosZ       float64         `db:"pos_z" json:"z"`
	Blob       []byte          `db:"world_state" json:"-"`
	WorldState goap.WorldState `db:"-" json:"world_state"`
}

// RecentFrames returns up to limit of a guard's latest frames in a run,
// newest first.
func (db *DB) RecentFrames(runID string, agent agents.AgentID, limit int) ([]Frame, error) {
	var frames []Frame
	err := db.conn.Select(&frames, `SELECT tick, agent_id, state, goal, action, plan_json,
		health, pos_x, pos_z, world_state
		FROM frames WHERE run_id = ? AND agent_id = ? ORDER BY tick DESC LIMIT ?`,
		runID, agent, limit,
	)
	if err != nil {
		return nil, err
	}
	for i := range frames {
		f := &frames[i]
		raw, err := db.dec.DecodeAll(f.Blob, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress frame at tick %d: %w", f.Tick, err)
		}
		if err := json.Unmarshal(raw, &f.WorldState); err != nil {
			return nil, fmt.Errorf("decode frame at tick %d: %w", f.Tick, err)
		}
		if err := json.Unmarshal([]byte(f.PlanJSON), &f.Plan); err != nil {
			return nil, fmt.Errorf("decode plan at tick %d: %w", f.Tick, err)
		}
		f.Blob = nil
	}
	return frames, nil
}

// SaveFailures appends path failures observed up to tick.
func (db *DB) SaveFailures(runID string, tick uint64, failures []nav.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range failures {
		_, err := tx.Exec(`INSERT INTO path_failures
			(run_id, tick, grid, reason, from_x, from_z, to_x, to_z)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, tick, f.Grid, f.Reason, f.From.X, f.From.Z, f.To.X, f.To.Z,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FailureCounts tallies a run's path failures by reason.
func (db *DB) FailureCounts(runID string) (map[string]int, error) {
	var rows []struct {
		Reason string `db:"reason"`
		N      int    `db:"n"`
	}
	err := db.conn.Select(&rows,
		"SELECT reason, COUNT(*) AS n FROM path_failures WHERE run_id = ? GROUP BY reason", runID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Reason] = r.N
	}
	return counts, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, seq, tick, category, agent_id, description) VALUES (?, ?, ?, ?, ?, ?)",
			runID, e.Seq, e.Tick, e.Category, e.Agent, e.Description,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns a run's most recent N events, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT seq, tick, category, agent_id AS agent, description
		FROM events WHERE run_id = ? ORDER BY seq DESC LIMIT ?`,
		runID, limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
