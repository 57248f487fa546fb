package persistence

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/warden/internal/engine"
	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/nav"
	"github.com/talgya/warden/internal/sensing"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "warden.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSim(t *testing.T) *engine.Simulation {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Seed = 5
	cfg.Arena.Width, cfg.Arena.Depth = 20, 20
	cfg.Spawn.Count = 2
	cfg.Logger = quietLogger()
	sim, err := engine.NewSimulation(cfg)
	require.NoError(t, err)
	return sim
}

func TestLastRunEmpty(t *testing.T) {
	db := openTemp(t)
	_, err := db.LastRun()
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveMeta("k", "one"))
	require.NoError(t, db.SaveMeta("k", "two"))
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestRecorderFlush(t *testing.T) {
	db := openTemp(t)
	sim := newSim(t)
	rec, err := NewRecorder(db, sim, map[string]int{"guards": 2}, quietLogger())
	require.NoError(t, err)

	for tick := uint64(1); tick <= 20; tick++ {
		sim.Step(tick, 0.1)
	}
	require.NoError(t, rec.Flush(sim))

	run, err := db.LastRun()
	require.NoError(t, err)
	assert.Equal(t, rec.RunID(), run.ID)
	assert.Equal(t, int64(5), run.Seed)
	assert.Equal(t, uint64(20), run.LastTick)

	snap := sim.Snapshot()
	first := snap.Guards[0]
	frames, err := db.RecentFrames(run.ID, first.ID, 5)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, uint64(20), frames[0].Tick)
	assert.Equal(t, first.Goal, frames[0].Goal)
	assert.Equal(t, first.Plan, frames[0].Plan)
	assert.Equal(t, first.Position.X, frames[0].PosX)
	assert.Len(t, frames[0].WorldState, len(sensing.Facts))
	assert.True(t, first.WorldState.Equal(frames[0].WorldState))

	for tick := uint64(21); tick <= 30; tick++ {
		sim.Step(tick, 0.1)
	}
	require.NoError(t, rec.Flush(sim))
	frames, err = db.RecentFrames(run.ID, first.ID, 5)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, uint64(30), frames[0].Tick, "newest first")

	// Each event is written once across flushes.
	events, err := db.RecentEvents(run.ID, 5000)
	require.NoError(t, err)
	assert.Len(t, events, len(sim.Events(0)))
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i-1].Seq, events[i].Seq)
	}
}

func TestRecentFramesUnknownAgent(t *testing.T) {
	db := openTemp(t)
	frames, err := db.RecentFrames("nope", 42, 10)
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestFailureCounts(t *testing.T) {
	db := openTemp(t)
	failures := []nav.Failure{
		{Grid: "grid2d", Reason: nav.ReasonNoPath, From: geom.XZ(1, 1), To: geom.XZ(5, 5)},
		{Grid: "grid2d", Reason: nav.ReasonNoPath, From: geom.XZ(2, 2), To: geom.XZ(5, 5)},
		{Grid: "grid3d", Reason: nav.ReasonTargetUnreachable, From: geom.XZ(1, 1), To: geom.XZ(9, 9)},
	}
	require.NoError(t, db.SaveFailures("run-a", 10, failures))
	require.NoError(t, db.SaveFailures("run-b", 10, failures[:1]))
	require.NoError(t, db.SaveFailures("run-a", 11, nil))

	counts, err := db.FailureCounts("run-a")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{nav.ReasonNoPath: 2, nav.ReasonTargetUnreachable: 1}, counts)
}
