package nav

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/warden/internal/geom"
)

// Grid2DConfig describes a horizontal grid. Size uses the X and Z extents.
type Grid2DConfig struct {
	Center     geom.Vec3
	Size       geom.Vec3
	NodeRadius float64
	// MaxWalkableSearchRadius bounds the ring search used when an endpoint
	// falls on a blocked cell.
	MaxWalkableSearchRadius int
	// MaxOpen caps the open set; 0 means the node count.
	MaxOpen   int
	Logger    *slog.Logger
	OnFailure func(Failure)
}

func DefaultGrid2DConfig() Grid2DConfig {
	return Grid2DConfig{
		Size:                    geom.V(40, 0, 40),
		NodeRadius:              0.5,
		MaxWalkableSearchRadius: 4,
	}
}

// Grid2D is an 8-connected occupancy grid on the XZ plane. Diagonal moves
// are refused when either flanking orthogonal cell is blocked. Step costs
// are 10 straight and 14 diagonal. Safe for concurrent FindPath calls.
type Grid2D struct {
	lattice
	cfg Grid2DConfig
}

// NewGrid2D samples physics into a new grid.
func NewGrid2D(cfg Grid2DConfig, physics Physics) (*Grid2D, error) {
	if cfg.NodeRadius <= 0 {
		return nil, fmt.Errorf("grid2d: node radius must be positive, got %v", cfg.NodeRadius)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	g := &Grid2D{}
	g.name = "grid2d"
	g.topo = topology2D{}
	if err := g.build(cfg, physics); err != nil {
		return nil, err
	}
	return g, nil
}

// Rebuild resamples every cell, e.g. after obstacles moved.
func (g *Grid2D) Rebuild(physics Physics) error {
	return g.build(g.Config(), physics)
}

// RebuildToFit recenters and resizes the grid to cover bounds, then resamples.
func (g *Grid2D) RebuildToFit(bounds geom.Box, physics Physics) error {
	cfg := g.Config()
	cfg.Center = bounds.Center
	cfg.Size = bounds.Size()
	return g.build(cfg, physics)
}

func (g *Grid2D) build(cfg Grid2DConfig, physics Physics) error {
	d := cfg.NodeRadius * 2
	nx := int(math.Round(cfg.Size.X / d))
	ny := int(math.Round(cfg.Size.Z / d))
	if nx < 1 || ny < 1 {
		return fmt.Errorf("grid2d: size %v holds no cells of diameter %v", cfg.Size, d)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
	g.log = cfg.Logger
	g.onFailure = cfg.OnFailure
	g.searchRadius = cfg.MaxWalkableSearchRadius
	g.resize(nx, ny, 1)
	g.maxOpen = cfg.MaxOpen
	if g.maxOpen <= 0 {
		g.maxOpen = nx * ny
	}

	origin := g.origin()
	half := geom.V(cfg.NodeRadius, cfg.NodeRadius, cfg.NodeRadius)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			c := Cell{X: x, Y: y}
			pos := origin.Add(geom.V(float64(x)*d+cfg.NodeRadius, 0, float64(y)*d+cfg.NodeRadius))
			g.nodes[g.index(c)] = Node{
				Cell:     c,
				World:    pos,
				Walkable: !physics.OverlapsObstacle(geom.Box{Center: pos, Half: half}),
			}
		}
	}
	walkable := g.walkableCount()
	g.log.Info("grid built",
		"grid", g.name,
		"cells", humanize.Comma(int64(nx*ny)),
		"walkable", humanize.Comma(int64(walkable)),
		"dims", fmt.Sprintf("%dx%d", nx, ny),
	)
	if walkable == 0 {
		g.log.Warn("grid has no walkable cells", "grid", g.name, "center", cfg.Center, "size", cfg.Size)
	}
	return nil
}

// origin is the world position of the grid's min corner. Caller holds a lock.
func (g *Grid2D) origin() geom.Vec3 {
	return geom.V(g.cfg.Center.X-g.cfg.Size.X/2, g.cfg.Center.Y, g.cfg.Center.Z-g.cfg.Size.Z/2)
}

// Config returns the grid's current configuration.
func (g *Grid2D) Config() Grid2DConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// Dims returns the column and row counts.
func (g *Grid2D) Dims() (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nx, g.ny
}

// NodeFromWorld maps a world position to its clamped cell.
func (g *Grid2D) NodeFromWorld(pos geom.Vec3) Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cellAt(pos)
}

func (g *Grid2D) cellAt(pos geom.Vec3) Cell {
	o := g.origin()
	return Cell{
		X: gridIndex(pos.X, o.X, g.cfg.Size.X, g.nx),
		Y: gridIndex(pos.Z, o.Z, g.cfg.Size.Z, g.ny),
	}
}

// Node returns the cell at c.
func (g *Grid2D) Node(c Cell) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.inBounds(c) {
		return Node{}, false
	}
	return g.nodes[g.index(c)], true
}

// Walkable reports whether pos falls on a walkable cell.
func (g *Grid2D) Walkable(pos geom.Vec3) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[g.index(g.cellAt(pos))].Walkable
}

// WalkableCount returns the number of walkable cells.
func (g *Grid2D) WalkableCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.walkableCount()
}

// Neighbors lists the cells reachable in one step from c.
func (g *Grid2D) Neighbors(c Cell) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.inBounds(c) {
		return nil
	}
	return g.cells(g.topo.neighbors(&g.lattice, g.index(c), 0, nil))
}

// Distance is the 10/14 step metric between two cells.
func (g *Grid2D) Distance(a, b Cell) int { return topology2D{}.distance(a, b) }

// FindPath returns the cell centers from start to end. The allowed mask is
// ignored; 2D cells carry no surface layer.
func (g *Grid2D) FindPath(start, end geom.Vec3, allowed LayerMask) ([]geom.Vec3, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids, ok := g.findPath(start, end, g.cellAt(start), g.cellAt(end), 0)
	if !ok {
		return nil, false
	}
	return g.positions(ids), true
}

// FindCellPath is FindPath in grid coordinates.
func (g *Grid2D) FindCellPath(start, end Cell) ([]Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.inBounds(start) || !g.inBounds(end) {
		return nil, false
	}
	from, to := g.nodes[g.index(start)].World, g.nodes[g.index(end)].World
	ids, ok := g.findPath(from, to, start, end, 0)
	if !ok {
		return nil, false
	}
	return g.cells(ids), true
}

// FindClosestWalkable returns the center of the nearest walkable cell to
// pos within the configured search radius.
func (g *Grid2D) FindClosestWalkable(pos geom.Vec3) (geom.Vec3, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.closest(g.cellAt(pos), 0)
	if !ok {
		return geom.Vec3{}, false
	}
	return g.nodes[id].World, true
}

// ClosestWalkableCell is FindClosestWalkable in grid coordinates.
func (g *Grid2D) ClosestWalkableCell(c Cell) (Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.closest(c, 0)
	if !ok {
		return Cell{}, false
	}
	return g.cell(id), true
}

// Stats returns cumulative search counters.
func (g *Grid2D) Stats() Stats { return g.stats() }

// String renders the grid row by row, '.' walkable and '#' blocked.
func (g *Grid2D) String() string { return g.Render(nil) }

// Render draws the grid with path cells marked '*'. Row 0 is printed last
// so +Z points up.
func (g *Grid2D) Render(path []Cell) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	marked := make(map[Cell]bool, len(path))
	for _, c := range path {
		marked[c] = true
	}
	var b strings.Builder
	for y := g.ny - 1; y >= 0; y-- {
		for x := 0; x < g.nx; x++ {
			c := Cell{X: x, Y: y}
			switch {
			case marked[c]:
				b.WriteByte('*')
			case g.nodes[g.index(c)].Walkable:
				b.WriteByte('.')
			default:
				b.WriteByte('#')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Cells returns a copy of every node, row-major from row 0.
func (g *Grid2D) Cells() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Node(nil), g.nodes...)
}

type topology2D struct{}

var offsets2D = [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

func (topology2D) neighbors(l *lattice, id int, _ LayerMask, buf []int) []int {
	c := l.cell(id)
	open := func(x, y int) bool {
		n := Cell{X: x, Y: y}
		return l.inBounds(n) && l.nodes[l.index(n)].Walkable
	}
	for _, o := range offsets2D {
		x, y := c.X+o[0], c.Y+o[1]
		if !open(x, y) {
			continue
		}
		if o[0] != 0 && o[1] != 0 && (!open(c.X+o[0], c.Y) || !open(c.X, c.Y+o[1])) {
			continue
		}
		buf = append(buf, l.index(Cell{X: x, Y: y}))
	}
	return buf
}

func (topology2D) distance(a, b Cell) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return 14*dy + 10*(dx-dy)
	}
	return 14*dx + 10*(dy-dx)
}
