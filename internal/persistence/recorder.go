package persistence

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/warden/internal/engine"
)

// Recorder flushes a running simulation into one run of the store. It
// remembers which events it has already written.
type Recorder struct {
	db      *DB
	runID   string
	lastSeq uint64
	log     *slog.Logger
	bytes   uint64
}

// NewRecorder starts a run for sim and returns its recorder.
func NewRecorder(db *DB, sim *engine.Simulation, cfg any, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id, err := db.StartRun(sim.Seed(), cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("telemetry run started", "run", id, "seed", sim.Seed())
	return &Recorder{db: db, runID: id, log: logger}, nil
}

// RunID is the id of the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// Flush writes the current guard frames, new events and pending path
// failures. It is meant to be used as the engine's OnFlush callback.
func (r *Recorder) Flush(sim *engine.Simulation) error {
	snap := sim.Snapshot()

	n, err := r.db.SaveFrames(r.runID, snap.Tick, snap.Guards)
	if err != nil {
		return fmt.Errorf("save frames: %w", err)
	}
	r.bytes += uint64(n)

	events := sim.EventsSince(r.lastSeq)
	if err := r.db.SaveEvents(r.runID, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if len(events) > 0 {
		r.lastSeq = events[len(events)-1].Seq
	}

	failures := sim.DrainFailures()
	if err := r.db.SaveFailures(r.runID, snap.Tick, failures); err != nil {
		return fmt.Errorf("save path failures: %w", err)
	}

	r.log.Debug("telemetry flushed",
		"tick", snap.Tick,
		"frames", len(snap.Guards),
		"events", len(events),
		"failures", len(failures),
		"compressed", humanize.Bytes(r.bytes),
	)
	return nil
}
