package engine

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineRunStopsAtMaxTicks(t *testing.T) {
	e := NewEngine()
	e.Logger = quietLogger()
	e.Unthrottled = true
	e.MaxTicks = 25
	e.FlushEvery = 10

	var ticks int
	var flushed []uint64
	e.OnTick = func(tick uint64, dt float64) {
		ticks++
		assert.Equal(t, uint64(ticks), tick)
		assert.InDelta(t, 0.1, dt, 1e-12)
	}
	e.OnFlush = func(tick uint64) { flushed = append(flushed, tick) }

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 25, ticks)
	assert.Equal(t, uint64(25), e.CurrentTick())
	assert.Equal(t, []uint64{10, 20, 25}, flushed, "flush on schedule and on stop")
}

func TestEngineResumesFromTick(t *testing.T) {
	e := NewEngine()
	e.Logger = quietLogger()
	e.Unthrottled = true
	e.SetTick(40)
	e.MaxTicks = 42

	var seen []uint64
	e.OnTick = func(tick uint64, _ float64) { seen = append(seen, tick) }
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []uint64{41, 42}, seen)
}

func TestEngineRunCancel(t *testing.T) {
	e := NewEngine()
	e.Logger = quietLogger()
	e.FrameRate = 200
	e.SetSpeed(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return e.CurrentTick() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
}

func TestEnginePausedStillCancels(t *testing.T) {
	e := NewEngine()
	e.Logger = quietLogger()
	e.SetSpeed(0)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, e.CurrentTick(), "paused engine produced frames")
}

func TestEngineSetSpeed(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, 1.0, e.Speed())
	e.SetSpeed(4)
	assert.Equal(t, 4.0, e.Speed())
	e.SetSpeed(-1)
	assert.Zero(t, e.Speed())
	e.SetSpeed(math.NaN())
	assert.Zero(t, e.Speed())

	e.FrameRate = 0
	assert.InDelta(t, 0.1, e.DT(), 1e-12, "zero frame rate uses the default")
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "0:00.0", SimTime(0, 10))
	assert.Equal(t, "0:01.5", SimTime(15, 0))
	assert.Equal(t, "1:00.5", SimTime(605, 10))
	assert.Equal(t, "2:30.0", SimTime(4500, 30))
}
