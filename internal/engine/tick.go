// Package engine provides the frame-stepped simulation loop and the
// simulation it drives: an arena, its navigation grid, the guards and a
// scripted player for them to hunt.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// DefaultFrameRate is the number of simulation frames per simulated second.
const DefaultFrameRate = 10

// Engine drives the simulation forward one frame at a time. Every frame
// advances simulated time by 1/FrameRate seconds; Speed only changes how
// fast frames are produced in wall-clock time.
type Engine struct {
	FrameRate float64 // Frames per simulated second
	MaxTicks  uint64  // Stop after this many ticks (0 = run until cancelled)
	// Unthrottled runs frames back to back, ignoring Speed pacing.
	Unthrottled bool
	// FlushEvery calls OnFlush every N ticks (0 = never).
	FlushEvery uint64
	Logger     *slog.Logger

	OnTick  func(tick uint64, dt float64) // Every frame
	OnFlush func(tick uint64)             // Every FlushEvery frames and on stop

	tick  atomic.Uint64
	speed atomic.Uint64 // math.Float64bits of the speed multiplier
}

// NewEngine creates an engine at real-time speed.
func NewEngine() *Engine {
	e := &Engine{FrameRate: DefaultFrameRate, Logger: slog.Default()}
	e.SetSpeed(1)
	return e
}

// Speed is the wall-clock multiplier: 1 = real time, 0 = paused.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the pace. Negative values pause.
func (e *Engine) SetSpeed(v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	e.speed.Store(math.Float64bits(v))
}

// CurrentTick returns the last completed tick.
func (e *Engine) CurrentTick() uint64 { return e.tick.Load() }

// SetTick sets the tick counter, e.g. when resuming a run.
func (e *Engine) SetTick(t uint64) { e.tick.Store(t) }

// DT is the simulated seconds per frame.
func (e *Engine) DT() float64 { return 1 / e.frameRate() }

func (e *Engine) frameRate() float64 {
	if e.FrameRate <= 0 {
		return DefaultFrameRate
	}
	return e.FrameRate
}

// Run steps until ctx is cancelled or MaxTicks is reached.
func (e *Engine) Run(ctx context.Context) error {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("simulation engine started", "tick", e.CurrentTick(), "speed", e.Speed(), "frame_rate", e.frameRate())
	defer func() {
		if e.OnFlush != nil {
			e.OnFlush(e.CurrentTick())
		}
		log.Info("simulation engine stopped", "tick", e.CurrentTick())
	}()

	interval := time.Duration(float64(time.Second) / e.frameRate())
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if e.MaxTicks > 0 && e.CurrentTick() >= e.MaxTicks {
			return nil
		}
		speed := e.Speed()
		if speed <= 0 && !e.Unthrottled {
			// Paused; check again shortly.
			if !sleep(ctx, timer, 100*time.Millisecond) {
				return nil
			}
			continue
		}

		start := time.Now()
		e.Step()
		if e.Unthrottled {
			continue
		}

		// Sleep for the remainder of the frame, adjusted for speed.
		target := time.Duration(float64(interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if !sleep(ctx, timer, target-elapsed) {
				return nil
			}
		}
	}
}

func sleep(ctx context.Context, timer *time.Timer, d time.Duration) bool {
	timer.Reset(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}

// Step advances the simulation by one frame.
func (e *Engine) Step() {
	tick := e.tick.Add(1)
	if e.OnTick != nil {
		e.OnTick(tick, e.DT())
	}
	if e.FlushEvery > 0 && tick%e.FlushEvery == 0 && e.OnFlush != nil {
		e.OnFlush(tick)
	}
}

// SimTime formats a tick as simulated minutes and seconds.
func SimTime(tick uint64, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	secs := float64(tick) / frameRate
	m := int(secs) / 60
	return fmt.Sprintf("%d:%04.1f", m, secs-float64(m*60))
}
