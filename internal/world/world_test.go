package world

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/nav"
)

// corridor builds a 6x3 arena: a walled border around a 4x1 strip, with
// the strip's third tile set to t.
func corridor(t Terrain) *Arena {
	cfg := DefaultGenConfig()
	cfg.Width, cfg.Depth = 6, 3
	a := NewArena(cfg)
	for z := 0; z < 3; z++ {
		for x := 0; x < 6; x++ {
			if x == 0 || z == 0 || x == 5 || z == 2 {
				a.SetTile(x, z, TerrainWall)
			}
		}
	}
	a.SetTile(3, 1, t)
	return a
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(SmallTestConfig())
	b := Generate(SmallTestConfig())
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, int64(42), a.Config().Seed)

	cfg := SmallTestConfig()
	cfg.Seed = 0
	c := Generate(cfg)
	assert.NotZero(t, c.Config().Seed, "zero seed resolves to a random one")
}

func TestGenerateBorderAndClearing(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 7
	a := Generate(cfg)
	w, d := a.Dims()
	for x := 0; x < w; x++ {
		assert.Equal(t, TerrainWall, a.Tile(x, 0))
		assert.Equal(t, TerrainWall, a.Tile(x, d-1))
	}
	for z := 0; z < d; z++ {
		assert.Equal(t, TerrainWall, a.Tile(0, z))
		assert.Equal(t, TerrainWall, a.Tile(w-1, z))
	}
	assert.Equal(t, TerrainFloor, a.TileAt(a.Center()), "center is always clear")

	counts := TerrainCounts(a)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, w*d, total)
	assert.Contains(t, a.Summary(), "seed=7")
}

func TestDeriveTerrain(t *testing.T) {
	cfg := DefaultGenConfig()
	assert.Equal(t, TerrainWall, deriveTerrain(0.9, 0.1, cfg))
	assert.Equal(t, TerrainPit, deriveTerrain(0.1, 0.9, cfg))
	assert.Equal(t, TerrainWater, deriveTerrain(0.5, 0.9, cfg))
	assert.Equal(t, TerrainMud, deriveTerrain(0.5, 0.7, cfg))
	assert.Equal(t, TerrainFloor, deriveTerrain(0.5, 0.3, cfg))
}

func TestTerrainProperties(t *testing.T) {
	assert.True(t, TerrainPit.Blocking())
	assert.False(t, TerrainPit.Opaque(), "pits block movement, not sight")
	assert.True(t, TerrainWall.Opaque())
	assert.False(t, TerrainMud.Blocking())

	l, ok := TerrainWater.Layer()
	assert.True(t, ok)
	assert.Equal(t, LayerWater, l)
	_, ok = TerrainWall.Layer()
	assert.False(t, ok)

	assert.Less(t, TerrainMud.SpeedFactor(), 1.0)
	assert.Equal(t, 1.0, TerrainFloor.SpeedFactor())
	assert.Equal(t, "water", TerrainWater.String())
}

func TestArenaTileLookup(t *testing.T) {
	a := corridor(TerrainMud)
	assert.Equal(t, TerrainWall, a.Tile(-1, 0), "outside is wall")
	assert.Equal(t, TerrainMud, a.TileAt(geom.XZ(3.2, 1.9)))
	assert.Equal(t, geom.XZ(3.5, 1.5), a.TileCenter(3, 1))
	assert.Equal(t, 0.6, a.SpeedAt(geom.XZ(3.5, 1.5)))
	assert.Equal(t, "######\n#..,.#\n######\n", a.String())

	a.SetTile(99, 99, TerrainPit)
	assert.Equal(t, "######\n#..,.#\n######\n", a.String(), "out-of-bounds write ignored")
}

func TestArenaMove(t *testing.T) {
	a := corridor(TerrainMud)
	to, ok := a.Move(geom.XZ(1.5, 1.5), geom.V(0.5, 3, 0))
	require.True(t, ok)
	assert.Equal(t, geom.XZ(2, 1.5), to, "vertical component dropped")

	to, ok = a.Move(geom.XZ(3.5, 1.5), geom.V(0.5, 0, 0))
	require.True(t, ok)
	assert.InDelta(t, 3.8, to.X, 1e-9, "mud slows the step")

	to, ok = a.Move(geom.XZ(1.5, 1.5), geom.V(0, 0, -1))
	assert.False(t, ok)
	assert.Equal(t, geom.XZ(1.5, 1.5), to)
}

func TestArenaOverlapsObstacle(t *testing.T) {
	a := corridor(TerrainPit)
	half := geom.V(0.4, 0.4, 0.4)
	assert.False(t, a.OverlapsObstacle(geom.Box{Center: geom.V(1.5, 0.5, 1.5), Half: half}))
	assert.True(t, a.OverlapsObstacle(geom.Box{Center: geom.V(3.5, 0.5, 1.5), Half: half}), "pit")
	assert.True(t, a.OverlapsObstacle(geom.Box{Center: geom.V(1.5, 0.5, 0.5), Half: half}), "wall")
	assert.True(t, a.OverlapsObstacle(geom.Box{Center: geom.V(-1, 0.5, 1), Half: half}), "outside")
	assert.False(t, a.OverlapsObstacle(geom.Box{Center: geom.V(1.5, 3, 1.5), Half: half}), "above the walls")

	// Touching a wall face is not overlapping it.
	assert.False(t, a.OverlapsObstacle(geom.Box{Center: geom.V(1.5, 0.5, 1.5), Half: geom.V(0.5, 0.5, 0.5)}))
}

func TestArenaGroundProbe(t *testing.T) {
	a := corridor(TerrainWater)
	l, ok := a.GroundProbe(geom.V(1.5, 0.5, 1.5), 0.75)
	require.True(t, ok)
	assert.Equal(t, LayerFloor, l)

	l, ok = a.GroundProbe(geom.V(3.5, 0.5, 1.5), 0.75)
	require.True(t, ok)
	assert.Equal(t, LayerWater, l)

	_, ok = a.GroundProbe(geom.V(1.5, 1.5, 1.5), 0.75)
	assert.False(t, ok, "too high above ground")
	_, ok = a.GroundProbe(geom.V(0.5, 0.5, 0.5), 0.75)
	assert.False(t, ok, "wall tile")
	_, ok = a.GroundProbe(geom.V(-3, 0.5, 1), 0.75)
	assert.False(t, ok)
}

func TestArenaRaycastAndSight(t *testing.T) {
	a := corridor(TerrainPit)
	from := geom.XZ(1.5, 1.5)
	east := geom.V(1, 0, 0)
	assert.False(t, a.Raycast(from, east, 1), "stops short of the pit")
	assert.True(t, a.Raycast(from, east, 2))
	assert.False(t, a.Raycast(from, geom.Zero, 5))

	assert.True(t, a.LineOfSight(from, geom.XZ(4.5, 1.5)), "sight passes over pits")
	assert.True(t, a.LineOfSight(from, from))

	a.SetTile(3, 1, TerrainWall)
	assert.False(t, a.LineOfSight(from, geom.XZ(4.5, 1.5)))
}

func TestArenaRandomOpen(t *testing.T) {
	a := corridor(TerrainWater)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		p, ok := a.RandomOpen(rng, LayersDry)
		require.True(t, ok)
		assert.NotEqual(t, TerrainWater, a.TileAt(p))
		assert.False(t, a.TileAt(p).Blocking())
	}

	_, ok := a.RandomOpen(rng, LayerWater)
	assert.True(t, ok)
	_, ok = a.RandomOpen(rng, nav.LayerMask(1<<7))
	assert.False(t, ok)
}

func TestGridsOverArena(t *testing.T) {
	a := corridor(TerrainPit)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg2 := nav.DefaultGrid2DConfig()
	cfg2.Center = a.Center()
	cfg2.Size = a.Bounds().Size()
	cfg2.Logger = logger
	g2, err := nav.NewGrid2D(cfg2, a)
	require.NoError(t, err)
	assert.Equal(t, 3, g2.WalkableCount())

	// The pit splits the corridor.
	_, ok := g2.FindPath(geom.XZ(1.5, 1.5), geom.XZ(4.5, 1.5), 0)
	assert.False(t, ok)

	a.SetTile(3, 1, TerrainWater)
	require.NoError(t, g2.Rebuild(a))
	path, ok := g2.FindPath(geom.XZ(1.5, 1.5), geom.XZ(4.5, 1.5), 0)
	require.True(t, ok)
	assert.Len(t, path, 3)

	cfg3 := nav.DefaultGrid3DConfig()
	cfg3.Center = a.Bounds().Center
	cfg3.Size = a.Bounds().Size()
	cfg3.Logger = logger
	g3, err := nav.NewGrid3D(cfg3, a)
	require.NoError(t, err)
	assert.Equal(t, 4, g3.WalkableCount(), "only the ground layer is supported")

	_, ok = g3.FindPath(geom.XZ(1.5, 1.5), geom.XZ(4.5, 1.5), LayersDry)
	assert.False(t, ok, "water is off limits for dry-footed agents")
	path, ok = g3.FindPath(geom.XZ(1.5, 1.5), geom.XZ(4.5, 1.5), LayersDry|LayerWater)
	require.True(t, ok)
	assert.Len(t, path, 3)
}

func TestWeatherCycle(t *testing.T) {
	wc := WeatherCycle{Seed: 3, Period: 30}
	assert.Equal(t, wc.At(0), wc.At(29.9), "constant within a period")
	assert.Equal(t, wc.At(95), WeatherCycle{Seed: 3, Period: 30}.At(91), "replays agree")

	seen := map[Condition]bool{}
	for i := 0; i < 200; i++ {
		seen[wc.At(float64(i)*30).Condition] = true
	}
	assert.Len(t, seen, 4)

	assert.Equal(t, ConditionClear, WeatherCycle{}.At(100).Condition)
	fog := ForCondition(ConditionFog)
	assert.Less(t, fog.SightScale, 1.0)
	assert.Equal(t, "fog", fog.Condition.String())
	b, err := ConditionStorm.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "storm", string(b))
}
