package agents

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/nav"
	"github.com/talgya/warden/internal/sensing"
	"github.com/talgya/warden/internal/world"
)

const tickDT = 0.1

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// walledArena is a w×d floor arena with a wall border, so tile (x, z) is
// centered on (x+0.5, z+0.5).
func walledArena(w, d int) *world.Arena {
	cfg := world.DefaultGenConfig()
	cfg.Width, cfg.Depth = w, d
	a := world.NewArena(cfg)
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			if x == 0 || z == 0 || x == w-1 || z == d-1 {
				a.SetTile(x, z, world.TerrainWall)
			}
		}
	}
	return a
}

// countingPathfinder records how often the grid was queried.
type countingPathfinder struct {
	inner nav.Pathfinder
	calls int
}

func (c *countingPathfinder) FindPath(start, end geom.Vec3, allowed nav.LayerMask) ([]geom.Vec3, bool) {
	c.calls++
	return c.inner.FindPath(start, end, allowed)
}

// newContext builds a Context over a 2D grid covering a.
func newContext(t *testing.T, a *world.Arena) (*Context, *ManualClock, *countingPathfinder) {
	t.Helper()
	cfg := nav.DefaultGrid2DConfig()
	cfg.Center = a.Center()
	cfg.Size = a.Bounds().Size()
	cfg.Logger = quietLogger()
	grid, err := nav.NewGrid2D(cfg, a)
	require.NoError(t, err)

	clock := &ManualClock{}
	pf := &countingPathfinder{inner: grid}
	return &Context{
		Pathfinder: pf,
		Physics:    a,
		Mover:      a,
		Clock:      clock,
		Logger:     quietLogger(),
		Layers:     world.LayersDry,
	}, clock, pf
}

func newTestGuard(ctx *Context, pos geom.Vec3, patrol ...geom.Vec3) *Guard {
	return NewGuard(ctx, 1, "Test Guard", Placement{Position: pos, Home: pos, Patrol: patrol}, DefaultGuardConfig())
}

// run ticks g with the same percepts until done reports true or the tick
// budget runs out. It returns the number of ticks used.
func run(g *Guard, clock *ManualClock, p sensing.Percepts, budget int, done func() bool) int {
	for i := 1; i <= budget; i++ {
		clock.Advance(tickDT)
		g.Tick(tickDT, p)
		if done() {
			return i
		}
	}
	return budget + 1
}

func seen(pos geom.Vec3) sensing.Percepts {
	return sensing.Percepts{PlayerVisible: true, PlayerPos: pos}
}

type testBody struct{ pos geom.Vec3 }

func (b *testBody) Position() geom.Vec3     { return b.pos }
func (b *testBody) SetPosition(p geom.Vec3) { b.pos = p }

type wallMover struct{}

func (wallMover) Move(from, delta geom.Vec3) (geom.Vec3, bool) { return from, false }
