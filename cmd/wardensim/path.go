package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/warden/internal/api"
	"github.com/talgya/warden/internal/nav"
	"github.com/talgya/warden/internal/world"
)

var (
	pathFrom string
	pathTo   string
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Generate the arena and draw a 2D grid path between two points",
	Example: `  wardensim path --from 2,2 --to 18,14
  wardensim path -c arena.yaml --from 0,0 --to 10,10`,
	RunE: runPath,
}

func init() {
	pathCmd.Flags().StringVar(&pathFrom, "from", "", "start point as x,z (default: arena center)")
	pathCmd.Flags().StringVar(&pathTo, "to", "", "end point as x,z")
	_ = pathCmd.MarkFlagRequired("to")
}

func runPath(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	gen := cfg.Arena
	gen.Seed = cfg.Seed
	if gen.Seed == 0 {
		gen.Seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	}
	arena := world.Generate(gen)

	gridCfg := nav.DefaultGrid2DConfig()
	gridCfg.Center = arena.Center()
	gridCfg.Size = arena.Bounds().Size()
	gridCfg.NodeRadius = cfg.Grid.NodeRadius
	gridCfg.MaxWalkableSearchRadius = cfg.Grid.MaxWalkableSearchRadius
	gridCfg.MaxOpen = cfg.Grid.MaxOpen
	gridCfg.Logger = logger
	grid, err := nav.NewGrid2D(gridCfg, arena)
	if err != nil {
		return err
	}

	from := arena.Center()
	if pathFrom != "" {
		if from, err = api.ParsePoint(pathFrom); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	to, err := api.ParsePoint(pathTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, arena.Summary())
	nx, nz := grid.Dims()
	fmt.Fprintf(out, "grid %dx%d nodes, %d walkable\n", nx, nz, grid.WalkableCount())

	cells, found := grid.FindCellPath(grid.NodeFromWorld(from), grid.NodeFromWorld(to))
	fmt.Fprint(out, grid.Render(cells))
	if !found {
		return fmt.Errorf("no path from %v to %v", from, to)
	}
	waypoints, _ := grid.FindPath(from, to, world.LayersDry)
	fmt.Fprintf(out, "path: %d cells, %d waypoints\n", len(cells), len(waypoints))
	for _, w := range waypoints {
		fmt.Fprintf(out, "  (%.2f, %.2f)\n", w.X, w.Z)
	}
	return nil
}
