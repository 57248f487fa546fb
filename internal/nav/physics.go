// Package nav answers "how do I get from here to there" over occupancy
// grids sampled from the world's collision queries. Grid2D covers the
// horizontal plane with 8-connected moves; Grid3D covers a volume with
// 26-connected moves and per-cell surface layers.
package nav

import (
	"fmt"
	"strings"

	"github.com/talgya/warden/internal/geom"
)

// LayerMask is a bitset of surface layers. The zero mask allows every layer.
type LayerMask uint32

// AllLayers allows every surface.
const AllLayers = ^LayerMask(0)

// Allows reports whether a cell on surface l may be entered under mask m.
func (m LayerMask) Allows(l LayerMask) bool {
	return m == 0 || m&l != 0
}

func (m LayerMask) String() string {
	if m == 0 || m == AllLayers {
		return "all"
	}
	var bits []string
	for i := 0; i < 32; i++ {
		if m&(1<<i) != 0 {
			bits = append(bits, fmt.Sprint(i))
		}
	}
	return strings.Join(bits, "|")
}

// Physics is the collision world as seen by navigation. Implementations
// answer queries only; nav never simulates anything.
type Physics interface {
	// OverlapsObstacle reports whether any obstacle intersects box.
	OverlapsObstacle(box geom.Box) bool
	// GroundProbe casts straight down from from. It reports the layer of
	// the first supporting surface within maxDist.
	GroundProbe(from geom.Vec3, maxDist float64) (LayerMask, bool)
	// Raycast reports whether an obstacle lies within dist along dir.
	Raycast(from, dir geom.Vec3, dist float64) bool
}

// Pathfinder finds walkable routes. The returned waypoints exclude the
// start cell and end at the target cell's center; an empty slice with true
// means start and target share a cell.
type Pathfinder interface {
	FindPath(start, end geom.Vec3, allowed LayerMask) ([]geom.Vec3, bool)
}

// Failure reasons reported through logs and Config.OnFailure.
const (
	ReasonStartUnreachable  = "start unreachable"
	ReasonTargetUnreachable = "target unreachable"
	ReasonNoPath            = "no path"
	ReasonOpenLimit         = "open set limit"
)

// Failure describes a FindPath call that returned no path.
type Failure struct {
	Grid   string    `json:"grid"`
	Reason string    `json:"reason"`
	From   geom.Vec3 `json:"from"`
	To     geom.Vec3 `json:"to"`
}

var (
	_ Pathfinder = (*Grid2D)(nil)
	_ Pathfinder = (*Grid3D)(nil)
)
