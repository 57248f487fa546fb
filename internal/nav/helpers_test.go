package nav

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/warden/internal/geom"
)

// boxWorld is a Physics made of unit obstacle boxes over a ground plane at
// y = 0. layerAt, when set, picks the surface layer under a position.
type boxWorld struct {
	boxes   []geom.Box
	layerAt func(pos geom.Vec3) LayerMask
}

func (w *boxWorld) OverlapsObstacle(b geom.Box) bool {
	for _, o := range w.boxes {
		if o.Overlaps(b) {
			return true
		}
	}
	return false
}

func (w *boxWorld) GroundProbe(from geom.Vec3, maxDist float64) (LayerMask, bool) {
	if from.Y-maxDist > 0 {
		return 0, false
	}
	if w.layerAt != nil {
		return w.layerAt(from), true
	}
	return 1, true
}

func (w *boxWorld) Raycast(from, dir geom.Vec3, dist float64) bool { return false }

// block adds an obstacle filling the unit cell whose min corner is (x, y, z).
func (w *boxWorld) block(x, y, z int) {
	w.boxes = append(w.boxes, geom.Box{
		Center: geom.V(float64(x)+0.5, float64(y)+0.5, float64(z)+0.5),
		Half:   geom.V(0.5, 0.5, 0.5),
	})
}

// block2D blocks grid cell (x, y) of a flat grid whose origin is (0, 0, 0).
func (w *boxWorld) block2D(x, y int) {
	w.boxes = append(w.boxes, geom.Box{
		Center: geom.V(float64(x)+0.5, 0, float64(y)+0.5),
		Half:   geom.V(0.5, 0.5, 0.5),
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// newFlatGrid builds a w×h Grid2D of unit cells with its min corner at the
// origin, so cell (x, y) is centered on (x+0.5, 0, y+0.5).
func newFlatGrid(t *testing.T, w, h int, world *boxWorld, mutate ...func(*Grid2DConfig)) *Grid2D {
	t.Helper()
	cfg := DefaultGrid2DConfig()
	cfg.Center = geom.V(float64(w)/2, 0, float64(h)/2)
	cfg.Size = geom.V(float64(w), 0, float64(h))
	cfg.Logger = quietLogger()
	for _, m := range mutate {
		m(&cfg)
	}
	g, err := NewGrid2D(cfg, world)
	require.NoError(t, err)
	return g
}

func newVolume(t *testing.T, w, h, d int, world *boxWorld, mutate ...func(*Grid3DConfig)) *Grid3D {
	t.Helper()
	cfg := DefaultGrid3DConfig()
	cfg.Center = geom.V(float64(w)/2, float64(h)/2, float64(d)/2)
	cfg.Size = geom.V(float64(w), float64(h), float64(d))
	cfg.Logger = quietLogger()
	for _, m := range mutate {
		m(&cfg)
	}
	g, err := NewGrid3D(cfg, world)
	require.NoError(t, err)
	return g
}

func chebyshev(a, b Cell) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y), abs(a.Z-b.Z))
}
