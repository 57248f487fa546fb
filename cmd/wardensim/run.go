package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/warden/internal/api"
	"github.com/talgya/warden/internal/engine"
	"github.com/talgya/warden/internal/persistence"
)

var (
	runTicks       uint64
	runUnthrottled bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation and serve the HTTP API",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().Uint64Var(&runTicks, "ticks", 0, "stop after this many ticks (overrides engine.max_ticks)")
	runCmd.Flags().BoolVar(&runUnthrottled, "fast", false, "step as fast as possible instead of in real time")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	simCfg, err := cfg.Simulation(logger)
	if err != nil {
		return err
	}
	sim, err := engine.NewSimulation(simCfg)
	if err != nil {
		return fmt.Errorf("build simulation: %w", err)
	}
	grid := sim.Grid()
	logger.Info("arena generated",
		"summary", sim.Arena().Summary(),
		"walkable_nodes", humanize.Comma(int64(grid.WalkableCount())),
		"guards", len(sim.Snapshot().Guards),
	)

	eng := engine.NewEngine()
	eng.FrameRate = cfg.Engine.FrameRate
	eng.SetSpeed(cfg.Engine.Speed)
	eng.MaxTicks = cfg.Engine.MaxTicks
	if runTicks > 0 {
		eng.MaxTicks = runTicks
	}
	eng.Unthrottled = runUnthrottled
	eng.Logger = logger
	eng.OnTick = sim.Step

	var (
		db    *persistence.DB
		runID string
	)
	if cfg.Telemetry.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Telemetry.DBPath), 0o755); err != nil {
			return err
		}
		db, err = persistence.Open(cfg.Telemetry.DBPath)
		if err != nil {
			return fmt.Errorf("open telemetry: %w", err)
		}
		defer db.Close()

		rec, err := persistence.NewRecorder(db, sim, cfg, logger)
		if err != nil {
			return err
		}
		runID = rec.RunID()
		eng.FlushEvery = cfg.Telemetry.FlushEveryTicks
		eng.OnFlush = func(tick uint64) {
			if err := rec.Flush(sim); err != nil {
				logger.Error("telemetry flush failed", "tick", tick, "error", err)
			}
		}
		logger.Info("telemetry enabled", "path", cfg.Telemetry.DBPath, "run", runID)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The server follows the engine down when MaxTicks is reached.
		defer cancel()
		return eng.Run(gctx)
	})
	if cfg.API.Port > 0 {
		srv := &api.Server{
			Sim:            sim,
			Eng:            eng,
			DB:             db,
			RunID:          runID,
			Port:           cfg.API.Port,
			AdminKey:       cfg.API.AdminKey,
			Logger:         logger,
			PathLimit:      cfg.API.PathLimit,
			StreamInterval: cfg.API.StreamEvery(),
		}
		g.Go(func() error { return srv.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats := sim.Stats()
	logger.Info("simulation finished",
		"tick", humanize.Comma(int64(sim.CurrentTick())),
		"sim_time", engine.SimTime(sim.CurrentTick(), cfg.Engine.FrameRate),
		"replans", stats.Replans,
		"hits", stats.Hits,
		"strikes", stats.Strikes,
		"path_failures", stats.PathFailures,
	)
	return nil
}
