package world

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/nav"
)

// Arena is a rectangular tile map with its min corner at the world origin.
// Tile (x, z) covers [x*cell, (x+1)*cell) × [z*cell, (z+1)*cell). Ground is
// the y = 0 plane; blocking tiles rise to the configured height.
type Arena struct {
	cfg   GenConfig
	tiles []Terrain
}

// NewArena creates an all-floor arena.
func NewArena(cfg GenConfig) *Arena {
	if cfg.CellSize <= 0 {
		cfg.CellSize = 1
	}
	if cfg.Height <= 0 {
		cfg.Height = 2
	}
	return &Arena{cfg: cfg, tiles: make([]Terrain, cfg.Width*cfg.Depth)}
}

// Config returns the generation parameters, including the resolved seed.
func (a *Arena) Config() GenConfig { return a.cfg }

// Dims returns the tile counts along X and Z.
func (a *Arena) Dims() (int, int) { return a.cfg.Width, a.cfg.Depth }

func (a *Arena) CellSize() float64 { return a.cfg.CellSize }

// InBounds returns true if the tile coordinate is inside the arena.
func (a *Arena) InBounds(x, z int) bool {
	return x >= 0 && z >= 0 && x < a.cfg.Width && z < a.cfg.Depth
}

// Tile returns the terrain at (x, z). Outside the arena is wall.
func (a *Arena) Tile(x, z int) Terrain {
	if !a.InBounds(x, z) {
		return TerrainWall
	}
	return a.tiles[z*a.cfg.Width+x]
}

// SetTile places terrain at (x, z); out-of-bounds writes are ignored.
func (a *Arena) SetTile(x, z int, t Terrain) {
	if a.InBounds(x, z) {
		a.tiles[z*a.cfg.Width+x] = t
	}
}

// TileCoord maps a world position to its tile.
func (a *Arena) TileCoord(pos geom.Vec3) (int, int) {
	return int(math.Floor(pos.X / a.cfg.CellSize)), int(math.Floor(pos.Z / a.cfg.CellSize))
}

// TileAt returns the terrain under pos.
func (a *Arena) TileAt(pos geom.Vec3) Terrain {
	x, z := a.TileCoord(pos)
	return a.Tile(x, z)
}

// TileCenter returns the ground-level center of tile (x, z).
func (a *Arena) TileCenter(x, z int) geom.Vec3 {
	c := a.cfg.CellSize
	return geom.XZ((float64(x)+0.5)*c, (float64(z)+0.5)*c)
}

// Bounds covers every tile from the ground up to wall height.
func (a *Arena) Bounds() geom.Box {
	c := a.cfg.CellSize
	return geom.BoxFromMinMax(geom.Zero, geom.V(float64(a.cfg.Width)*c, a.cfg.Height, float64(a.cfg.Depth)*c))
}

// Center is the ground-level middle of the arena.
func (a *Arena) Center() geom.Vec3 { return a.Bounds().Center.Flat() }

// SpeedAt returns the movement multiplier for the tile under pos.
func (a *Arena) SpeedAt(pos geom.Vec3) float64 { return a.TileAt(pos).SpeedFactor() }

// Move steps from by delta across the ground, scaled by the terrain under
// from. A step that would end on a blocking tile leaves from unchanged and
// reports false.
func (a *Arena) Move(from, delta geom.Vec3) (geom.Vec3, bool) {
	if f := a.SpeedAt(from); f > 0 {
		delta = delta.Scale(f)
	}
	to := from.Add(delta.Flat())
	if a.TileAt(to).Blocking() {
		return from, false
	}
	return to, true
}

// OverlapsObstacle implements nav.Physics. Blocking tiles are solid boxes
// from the ground to wall height; everything outside the arena is solid.
func (a *Arena) OverlapsObstacle(box geom.Box) bool {
	lo, hi := box.Min(), box.Max()
	b := a.Bounds()
	if lo.X < 0 || lo.Z < 0 || hi.X > b.Max().X || hi.Z > b.Max().Z {
		return true
	}
	c := a.cfg.CellSize
	half := geom.V(c/2, a.cfg.Height/2, c/2)
	x0, z0 := a.TileCoord(lo)
	x1, z1 := a.TileCoord(hi)
	for z := z0; z <= z1; z++ {
		for x := x0; x <= x1; x++ {
			if !a.InBounds(x, z) || !a.Tile(x, z).Blocking() {
				continue
			}
			tile := geom.Box{Center: a.TileCenter(x, z).Add(geom.V(0, a.cfg.Height/2, 0)), Half: half}
			if tile.Overlaps(box) {
				return true
			}
		}
	}
	return false
}

// GroundProbe implements nav.Physics. Floor, mud and water are ground at
// y = 0; walls, pits and the outside are not.
func (a *Arena) GroundProbe(from geom.Vec3, maxDist float64) (nav.LayerMask, bool) {
	if from.Y < 0 || from.Y-maxDist > 0 {
		return 0, false
	}
	x, z := a.TileCoord(from)
	if !a.InBounds(x, z) {
		return 0, false
	}
	return a.Tile(x, z).Layer()
}

// Raycast implements nav.Physics. It marches along the flat projection of
// dir and reports the first blocking tile within dist.
func (a *Arena) Raycast(from, dir geom.Vec3, dist float64) bool {
	d := dir.Flat().Normalize()
	if d.LenSq() == 0 || dist <= 0 {
		return false
	}
	return a.march(from, d, dist, Terrain.Blocking)
}

// LineOfSight reports whether no opaque tile lies between from and to.
func (a *Arena) LineOfSight(from, to geom.Vec3) bool {
	delta := to.Sub(from).Flat()
	dist := delta.Len()
	if dist == 0 {
		return true
	}
	return !a.march(from, delta.Scale(1/dist), dist, Terrain.Opaque)
}

func (a *Arena) march(from, dir geom.Vec3, dist float64, hit func(Terrain) bool) bool {
	step := a.cfg.CellSize / 4
	for t := step; ; t += step {
		if t > dist {
			t = dist
		}
		p := from.Add(dir.Scale(t))
		x, z := a.TileCoord(p)
		if !a.InBounds(x, z) || hit(a.Tile(x, z)) {
			return true
		}
		if t >= dist {
			return false
		}
	}
}

// RandomOpen picks a random non-blocking tile center whose surface layer
// allowed admits. It falls back to a scan when random picks keep missing.
func (a *Arena) RandomOpen(rng *rand.Rand, allowed nav.LayerMask) (geom.Vec3, bool) {
	ok := func(x, z int) bool {
		l, ground := a.Tile(x, z).Layer()
		return ground && allowed.Allows(l)
	}
	for i := 0; i < 64; i++ {
		x, z := rng.Intn(a.cfg.Width), rng.Intn(a.cfg.Depth)
		if ok(x, z) {
			return a.TileCenter(x, z), true
		}
	}
	for z := 0; z < a.cfg.Depth; z++ {
		for x := 0; x < a.cfg.Width; x++ {
			if ok(x, z) {
				return a.TileCenter(x, z), true
			}
		}
	}
	return geom.Vec3{}, false
}

// OpenTileAt snaps pos to the center of its tile when that tile is ground
// whose layer allowed admits.
func (a *Arena) OpenTileAt(pos geom.Vec3, allowed nav.LayerMask) (geom.Vec3, bool) {
	x, z := a.TileCoord(pos)
	l, ground := a.Tile(x, z).Layer()
	if !ground || !allowed.Allows(l) {
		return geom.Vec3{}, false
	}
	return a.TileCenter(x, z), true
}

// String draws the arena with +Z up.
func (a *Arena) String() string {
	var b strings.Builder
	for z := a.cfg.Depth - 1; z >= 0; z-- {
		for x := 0; x < a.cfg.Width; x++ {
			b.WriteByte(a.Tile(x, z).Glyph())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Summary returns a one-line description for logs.
func (a *Arena) Summary() string {
	counts := TerrainCounts(a)
	return fmt.Sprintf("Arena(%dx%d, seed=%d, walls=%d, pits=%d, mud=%d, water=%d)",
		a.cfg.Width, a.cfg.Depth, a.cfg.Seed,
		counts[TerrainWall], counts[TerrainPit], counts[TerrainMud], counts[TerrainWater])
}

var _ nav.Physics = (*Arena)(nil)
