package nav

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/warden/internal/geom"
)

// Grid3DConfig describes a volumetric grid.
type Grid3DConfig struct {
	Center     geom.Vec3
	Size       geom.Vec3
	NodeRadius float64
	// GroundCheckDistance is how far below a cell center the ground probe
	// looks for a supporting surface. Cells without support are blocked.
	GroundCheckDistance     float64
	MaxWalkableSearchRadius int
	MaxOpen                 int
	Logger                  *slog.Logger
	OnFailure               func(Failure)
}

func DefaultGrid3DConfig() Grid3DConfig {
	return Grid3DConfig{
		Size:                    geom.V(40, 2, 40),
		NodeRadius:              0.5,
		GroundCheckDistance:     0.75,
		MaxWalkableSearchRadius: 4,
	}
}

// Grid3D is a 26-connected volumetric grid. Unlike Grid2D it applies no
// corner-cutting guard and measures 10 per axis step (10 × Manhattan), so a
// full diagonal step costs 30. Each cell carries the layer of the surface
// beneath it and FindPath only enters cells whose layer the mask allows.
type Grid3D struct {
	lattice
	cfg Grid3DConfig
}

// NewGrid3D samples physics into a new volumetric grid.
func NewGrid3D(cfg Grid3DConfig, physics Physics) (*Grid3D, error) {
	if cfg.NodeRadius <= 0 {
		return nil, fmt.Errorf("grid3d: node radius must be positive, got %v", cfg.NodeRadius)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	g := &Grid3D{}
	g.name = "grid3d"
	g.topo = topology3D{}
	if err := g.build(cfg, physics); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grid3D) Rebuild(physics Physics) error {
	return g.build(g.Config(), physics)
}

func (g *Grid3D) RebuildToFit(bounds geom.Box, physics Physics) error {
	cfg := g.Config()
	cfg.Center = bounds.Center
	cfg.Size = bounds.Size()
	return g.build(cfg, physics)
}

func (g *Grid3D) build(cfg Grid3DConfig, physics Physics) error {
	d := cfg.NodeRadius * 2
	nx := int(math.Round(cfg.Size.X / d))
	ny := int(math.Round(cfg.Size.Y / d))
	nz := int(math.Round(cfg.Size.Z / d))
	if nx < 1 || ny < 1 || nz < 1 {
		return fmt.Errorf("grid3d: size %v holds no cells of diameter %v", cfg.Size, d)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
	g.log = cfg.Logger
	g.onFailure = cfg.OnFailure
	g.searchRadius = cfg.MaxWalkableSearchRadius
	g.resize(nx, ny, nz)
	g.maxOpen = cfg.MaxOpen
	if g.maxOpen <= 0 {
		g.maxOpen = nx * ny * nz
	}

	origin := g.origin()
	half := geom.V(cfg.NodeRadius, cfg.NodeRadius, cfg.NodeRadius)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				c := Cell{X: x, Y: y, Z: z}
				pos := origin.Add(geom.V(
					float64(x)*d+cfg.NodeRadius,
					float64(y)*d+cfg.NodeRadius,
					float64(z)*d+cfg.NodeRadius,
				))
				n := Node{Cell: c, World: pos}
				if !physics.OverlapsObstacle(geom.Box{Center: pos, Half: half}) {
					n.Layer, n.Walkable = physics.GroundProbe(pos, cfg.GroundCheckDistance)
				}
				g.nodes[g.index(c)] = n
			}
		}
	}
	walkable := g.walkableCount()
	g.log.Info("grid built",
		"grid", g.name,
		"cells", humanize.Comma(int64(nx*ny*nz)),
		"walkable", humanize.Comma(int64(walkable)),
		"dims", fmt.Sprintf("%dx%dx%d", nx, ny, nz),
	)
	if walkable == 0 {
		g.log.Warn("grid has no walkable cells", "grid", g.name, "center", cfg.Center, "size", cfg.Size)
	}
	return nil
}

func (g *Grid3D) origin() geom.Vec3 {
	return g.cfg.Center.Sub(g.cfg.Size.Scale(0.5))
}

func (g *Grid3D) Config() Grid3DConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// Dims returns the cell counts along X, Y and Z.
func (g *Grid3D) Dims() (int, int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nx, g.ny, g.nz
}

func (g *Grid3D) NodeFromWorld(pos geom.Vec3) Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cellAt(pos)
}

func (g *Grid3D) cellAt(pos geom.Vec3) Cell {
	o := g.origin()
	return Cell{
		X: gridIndex(pos.X, o.X, g.cfg.Size.X, g.nx),
		Y: gridIndex(pos.Y, o.Y, g.cfg.Size.Y, g.ny),
		Z: gridIndex(pos.Z, o.Z, g.cfg.Size.Z, g.nz),
	}
}

func (g *Grid3D) Node(c Cell) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.inBounds(c) {
		return Node{}, false
	}
	return g.nodes[g.index(c)], true
}

func (g *Grid3D) WalkableCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.walkableCount()
}

// Neighbors lists cells reachable in one step from c under mask allowed.
func (g *Grid3D) Neighbors(c Cell, allowed LayerMask) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.inBounds(c) {
		return nil
	}
	return g.cells(g.topo.neighbors(&g.lattice, g.index(c), allowed, nil))
}

// Distance is 10 × the Manhattan distance across all three axes.
func (g *Grid3D) Distance(a, b Cell) int { return topology3D{}.distance(a, b) }

// FindPath returns cell centers from start to end through cells whose
// surface layer allowed admits.
func (g *Grid3D) FindPath(start, end geom.Vec3, allowed LayerMask) ([]geom.Vec3, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids, ok := g.findPath(start, end, g.cellAt(start), g.cellAt(end), allowed)
	if !ok {
		return nil, false
	}
	return g.positions(ids), true
}

func (g *Grid3D) FindCellPath(start, end Cell, allowed LayerMask) ([]Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.inBounds(start) || !g.inBounds(end) {
		return nil, false
	}
	from, to := g.nodes[g.index(start)].World, g.nodes[g.index(end)].World
	ids, ok := g.findPath(from, to, start, end, allowed)
	if !ok {
		return nil, false
	}
	return g.cells(ids), true
}

// FindClosestWalkable searches a cubic shell outward from pos.
func (g *Grid3D) FindClosestWalkable(pos geom.Vec3, allowed LayerMask) (geom.Vec3, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.closest(g.cellAt(pos), allowed)
	if !ok {
		return geom.Vec3{}, false
	}
	return g.nodes[id].World, true
}

func (g *Grid3D) ClosestWalkableCell(c Cell, allowed LayerMask) (Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.closest(c, allowed)
	if !ok {
		return Cell{}, false
	}
	return g.cell(id), true
}

func (g *Grid3D) Stats() Stats { return g.stats() }

// String renders each Y slice bottom up. Walkable cells print their lowest
// layer bit as a digit; blocked cells print '#'.
func (g *Grid3D) String() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var b strings.Builder
	for y := 0; y < g.ny; y++ {
		fmt.Fprintf(&b, "y=%d\n", y)
		for z := g.nz - 1; z >= 0; z-- {
			for x := 0; x < g.nx; x++ {
				n := g.nodes[g.index(Cell{X: x, Y: y, Z: z})]
				b.WriteByte(layerGlyph(n))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func layerGlyph(n Node) byte {
	if !n.Walkable {
		return '#'
	}
	for i := 0; i < 10; i++ {
		if n.Layer&(1<<i) != 0 {
			return byte('0' + i)
		}
	}
	return '.'
}

type topology3D struct{}

func (topology3D) neighbors(l *lattice, id int, allowed LayerMask, buf []int) []int {
	c := l.cell(id)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				n := Cell{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
				if !l.inBounds(n) {
					continue
				}
				nid := l.index(n)
				if l.passable(nid, allowed) {
					buf = append(buf, nid)
				}
			}
		}
	}
	return buf
}

func (topology3D) distance(a, b Cell) int {
	return 10 * (abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z))
}
