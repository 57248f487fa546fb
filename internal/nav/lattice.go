package nav

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/talgya/warden/internal/geom"
)

// Cell is a grid coordinate. Grid2D uses X (columns) and Y (rows) with Z
// always 0; Grid3D uses X, Y (up) and Z.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Node is one sampled grid cell.
type Node struct {
	Cell     Cell      `json:"cell"`
	World    geom.Vec3 `json:"world"`
	Walkable bool      `json:"walkable"`
	// Layer is the supporting surface found by the ground probe; Grid2D
	// leaves it zero.
	Layer LayerMask `json:"layer,omitempty"`
}

// Stats counts pathfinding work since the grid was created.
type Stats struct {
	Searches int64 `json:"searches"`
	Failures int64 `json:"failures"`
	Expanded int64 `json:"expanded"`
}

// topology is what differs between the 2D and 3D variants.
type topology interface {
	neighbors(l *lattice, id int, allowed LayerMask, buf []int) []int
	distance(a, b Cell) int
}

// lattice is the storage and search core shared by both grid variants.
// Searches hold the read lock and draw a private scratch arena from the
// pool; rebuilds hold the write lock and replace the pool.
type lattice struct {
	mu         sync.RWMutex
	nx, ny, nz int
	nodes      []Node
	pool       *sync.Pool

	name         string
	topo         topology
	searchRadius int
	maxOpen      int
	log          *slog.Logger
	onFailure    func(Failure)

	searches atomic.Int64
	failures atomic.Int64
	expanded atomic.Int64
}

// resize reallocates storage. Caller holds the write lock.
func (l *lattice) resize(nx, ny, nz int) {
	l.nx, l.ny, l.nz = nx, ny, nz
	n := nx * ny * nz
	if cap(l.nodes) >= n {
		l.nodes = l.nodes[:n]
	} else {
		l.nodes = make([]Node, n)
	}
	l.pool = &sync.Pool{New: func() any { return newScratch(n) }}
}

func (l *lattice) index(c Cell) int { return (c.Z*l.ny+c.Y)*l.nx + c.X }

func (l *lattice) cell(id int) Cell {
	x := id % l.nx
	rest := id / l.nx
	return Cell{X: x, Y: rest % l.ny, Z: rest / l.ny}
}

func (l *lattice) inBounds(c Cell) bool {
	return c.X >= 0 && c.X < l.nx && c.Y >= 0 && c.Y < l.ny && c.Z >= 0 && c.Z < l.nz
}

func (l *lattice) passable(id int, allowed LayerMask) bool {
	n := &l.nodes[id]
	return n.Walkable && allowed.Allows(n.Layer)
}

func (l *lattice) walkableCount() int {
	count := 0
	for i := range l.nodes {
		if l.nodes[i].Walkable {
			count++
		}
	}
	return count
}

// closest runs the ring search around c and returns the passable cell with
// the smallest squared distance within searchRadius rings. Ties keep the
// first cell found. Caller holds the read lock.
func (l *lattice) closest(c Cell, allowed LayerMask) (int, bool) {
	if l.inBounds(c) && l.passable(l.index(c), allowed) {
		return l.index(c), true
	}
	best, bestD := -1, 0
	for r := 1; r <= l.searchRadius; r++ {
		// Every cell on ring r is at least r*r away.
		if best >= 0 && bestD <= r*r {
			break
		}
		zr := r
		if l.nz == 1 {
			zr = 0
		}
		for dz := -zr; dz <= zr; dz++ {
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if max(abs(dx), abs(dy), abs(dz)) != r {
						continue
					}
					n := Cell{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
					if !l.inBounds(n) {
						continue
					}
					id := l.index(n)
					if !l.passable(id, allowed) {
						continue
					}
					d := dx*dx + dy*dy + dz*dz
					if best < 0 || d < bestD {
						best, bestD = id, d
					}
				}
			}
		}
	}
	return best, best >= 0
}

// search runs A* between two passable node ids and returns the node ids of
// the path, start excluded. Caller holds the read lock.
func (l *lattice) search(start, goal int, allowed LayerMask) ([]int, string) {
	s := l.pool.Get().(*scratch)
	defer l.pool.Put(s)
	s.reset()

	goalCell := l.cell(goal)
	st := s.at(start)
	st.g = 0
	st.h = int32(l.topo.distance(l.cell(start), goalCell))
	s.open.push(start)

	expanded := 0
	defer func() { l.expanded.Add(int64(expanded)) }()

	for s.open.Len() > 0 {
		cur := s.open.pop()
		if cur == goal {
			return retrace(s, start, goal), ""
		}
		cs := s.at(cur)
		cs.closed = true
		expanded++
		curCell := l.cell(cur)

		s.nbuf = l.topo.neighbors(l, cur, allowed, s.nbuf[:0])
		for _, nb := range s.nbuf {
			ns := s.at(nb)
			if ns.closed {
				continue
			}
			nbCell := l.cell(nb)
			g := cs.g + int32(l.topo.distance(curCell, nbCell))
			if g >= ns.g {
				continue
			}
			ns.g = g
			ns.h = int32(l.topo.distance(nbCell, goalCell))
			ns.parent = int32(cur)
			if ns.heapIdx >= 0 {
				s.open.fix(ns.heapIdx)
			} else {
				s.open.push(nb)
			}
		}
		if l.maxOpen > 0 && s.open.Len() > l.maxOpen {
			return nil, ReasonOpenLimit
		}
	}
	return nil, ReasonNoPath
}

func retrace(s *scratch, start, goal int) []int {
	var path []int
	for id := goal; id != start; id = int(s.slots[id].parent) {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// findPath resolves both endpoints, falling back to the nearest passable
// cell, and searches. Caller holds the read lock.
func (l *lattice) findPath(from, to geom.Vec3, sc, tc Cell, allowed LayerMask) ([]int, bool) {
	l.searches.Add(1)
	start, ok := l.closest(sc, allowed)
	if !ok {
		l.fail(ReasonStartUnreachable, from, to)
		return nil, false
	}
	goal, ok := l.closest(tc, allowed)
	if !ok {
		l.fail(ReasonTargetUnreachable, from, to)
		return nil, false
	}
	if start == goal {
		return []int{}, true
	}
	path, reason := l.search(start, goal, allowed)
	if reason != "" {
		l.fail(reason, from, to)
		return nil, false
	}
	return path, true
}

func (l *lattice) fail(reason string, from, to geom.Vec3) {
	l.failures.Add(1)
	l.log.Warn("path not found", "grid", l.name, "reason", reason, "from", from, "to", to, "search_radius", l.searchRadius)
	if l.onFailure != nil {
		l.onFailure(Failure{Grid: l.name, Reason: reason, From: from, To: to})
	}
}

func (l *lattice) positions(ids []int) []geom.Vec3 {
	out := make([]geom.Vec3, len(ids))
	for i, id := range ids {
		out[i] = l.nodes[id].World
	}
	return out
}

func (l *lattice) cells(ids []int) []Cell {
	out := make([]Cell, len(ids))
	for i, id := range ids {
		out[i] = l.cell(id)
	}
	return out
}

func (l *lattice) stats() Stats {
	return Stats{
		Searches: l.searches.Load(),
		Failures: l.failures.Load(),
		Expanded: l.expanded.Load(),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// gridIndex maps a coordinate onto [0, n) by linear interpolation across
// [lo, lo+size], clamping outside values to the edge cells.
func gridIndex(v, lo, size float64, n int) int {
	i := int(geom.Clamp01((v-lo)/size) * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
