package nav

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/warden/internal/geom"
)

const (
	layerStone LayerMask = 1 << 0
	layerMud   LayerMask = 1 << 1
)

func TestGrid3DRejectsFloatingCells(t *testing.T) {
	// Two cell layers: centers at y=0.5 are supported, y=1.5 are not.
	g := newVolume(t, 4, 2, 4, &boxWorld{})
	nx, ny, nz := g.Dims()
	require.Equal(t, [3]int{4, 2, 4}, [3]int{nx, ny, nz})
	assert.Equal(t, 16, g.WalkableCount())

	n, ok := g.Node(Cell{X: 1, Y: 1, Z: 1})
	require.True(t, ok)
	assert.False(t, n.Walkable)
	n, _ = g.Node(Cell{X: 1, Y: 0, Z: 1})
	assert.True(t, n.Walkable)
	assert.Equal(t, layerStone, n.Layer)
}

func TestGrid3DTwentySixNeighbors(t *testing.T) {
	g := newVolume(t, 3, 3, 3, &boxWorld{}, func(c *Grid3DConfig) { c.GroundCheckDistance = 10 })
	assert.Len(t, g.Neighbors(Cell{X: 1, Y: 1, Z: 1}, 0), 26)
	assert.Len(t, g.Neighbors(Cell{X: 0, Y: 0, Z: 0}, 0), 7)
}

func TestGrid3DManhattanMetric(t *testing.T) {
	g := newVolume(t, 3, 3, 3, &boxWorld{})
	assert.Equal(t, 30, g.Distance(Cell{}, Cell{X: 1, Y: 1, Z: 1}))
	assert.Equal(t, 20, g.Distance(Cell{}, Cell{X: 1, Z: 1}))
	assert.Equal(t, 10, g.Distance(Cell{}, Cell{Y: 1}))
}

func TestGrid3DAllowsCornerCutting(t *testing.T) {
	w := &boxWorld{}
	w.block(1, 0, 0)
	w.block(0, 0, 1)
	g := newVolume(t, 3, 1, 3, w)

	path, ok := g.FindCellPath(Cell{}, Cell{X: 1, Z: 1}, 0)
	require.True(t, ok)
	if diff := cmp.Diff([]Cell{{X: 1, Z: 1}}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestGrid3DLayerMask(t *testing.T) {
	// A mud strip at x=2 separates two stone halves.
	w := &boxWorld{layerAt: func(p geom.Vec3) LayerMask {
		if p.X > 2 && p.X < 3 {
			return layerMud
		}
		return layerStone
	}}
	logger, buf := bufferLogger()
	g := newVolume(t, 5, 1, 3, w, func(c *Grid3DConfig) { c.Logger = logger })

	from, to := geom.V(0.5, 0.5, 1.5), geom.V(4.5, 0.5, 1.5)
	path, ok := g.FindPath(from, to, layerStone|layerMud)
	require.True(t, ok)
	assert.Equal(t, geom.V(4.5, 0.5, 1.5), path[len(path)-1])

	path, ok = g.FindPath(from, to, 0)
	require.True(t, ok, "zero mask allows every layer")
	assert.Len(t, path, 4)

	_, ok = g.FindPath(from, to, layerStone)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), ReasonNoPath)

	assert.Len(t, g.Neighbors(Cell{X: 1, Z: 1}, layerStone), 5, "mud cells are excluded")
}

func TestGrid3DMaskedFallback(t *testing.T) {
	w := &boxWorld{layerAt: func(p geom.Vec3) LayerMask {
		if p.X < 2 {
			return layerMud
		}
		return layerStone
	}}
	g := newVolume(t, 5, 1, 1, w, func(c *Grid3DConfig) { c.MaxWalkableSearchRadius = 2 })

	c, ok := g.ClosestWalkableCell(Cell{X: 0}, layerStone)
	require.True(t, ok)
	assert.Equal(t, Cell{X: 2}, c)

	_, ok = g.ClosestWalkableCell(Cell{X: 0}, LayerMask(1<<5))
	assert.False(t, ok)

	pos, ok := g.FindClosestWalkable(geom.V(0.5, 0.5, 0.5), layerStone)
	require.True(t, ok)
	assert.Equal(t, geom.V(2.5, 0.5, 0.5), pos)

	// Start on mud snaps to the nearest stone cell.
	path, ok := g.FindPath(geom.V(0.5, 0.5, 0.5), geom.V(4.5, 0.5, 0.5), layerStone)
	require.True(t, ok)
	assert.Equal(t, []geom.Vec3{geom.V(3.5, 0.5, 0.5), geom.V(4.5, 0.5, 0.5)}, path)
}

func TestGrid3DStringAndRebuild(t *testing.T) {
	w := &boxWorld{}
	w.block(0, 0, 0)
	g := newVolume(t, 2, 1, 1, w)
	assert.Equal(t, "y=0\n#0\n", g.String())

	require.NoError(t, g.RebuildToFit(geom.BoxFromMinMax(geom.V(0, 0, 0), geom.V(3, 1, 2)), &boxWorld{}))
	nx, ny, nz := g.Dims()
	assert.Equal(t, [3]int{3, 1, 2}, [3]int{nx, ny, nz})
	assert.Equal(t, 6, g.WalkableCount())
	assert.Equal(t, Cell{X: 2, Y: 0, Z: 1}, g.NodeFromWorld(geom.V(9, 9, 9)))
}

func TestLayerMask(t *testing.T) {
	assert.True(t, LayerMask(0).Allows(layerMud))
	assert.True(t, (layerStone | layerMud).Allows(layerMud))
	assert.False(t, layerStone.Allows(layerMud))
	assert.False(t, layerStone.Allows(0), "cells without a surface need an unrestricted mask")
	assert.Equal(t, "0|1", (layerStone | layerMud).String())
	assert.Equal(t, "all", AllLayers.String())
}
