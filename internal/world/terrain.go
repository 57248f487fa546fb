// Package world provides the procedural arena guards patrol: a tile map of
// floor, mud, water, walls and pits that answers the collision queries
// navigation and perception need.
package world

import "github.com/talgya/warden/internal/nav"

// Terrain types for arena tiles.
type Terrain uint8

const (
	TerrainFloor Terrain = iota // Open stone floor
	TerrainMud                  // Walkable, slows movement
	TerrainWater                // Shallow water; walkable only where layers allow it
	TerrainWall                 // Solid; blocks movement and sight
	TerrainPit                  // Drop with a low rail; blocks movement, not sight
)

// Surface layers reported by the ground probe.
const (
	LayerFloor nav.LayerMask = 1 << iota
	LayerMud
	LayerWater
)

// LayersDry is every surface except water.
const LayersDry = LayerFloor | LayerMud

func (t Terrain) String() string {
	switch t {
	case TerrainFloor:
		return "floor"
	case TerrainMud:
		return "mud"
	case TerrainWater:
		return "water"
	case TerrainWall:
		return "wall"
	case TerrainPit:
		return "pit"
	default:
		return "unknown"
	}
}

// Glyph is the ASCII map character for the tile.
func (t Terrain) Glyph() byte {
	switch t {
	case TerrainFloor:
		return '.'
	case TerrainMud:
		return ','
	case TerrainWater:
		return '~'
	case TerrainWall:
		return '#'
	case TerrainPit:
		return 'O'
	default:
		return '?'
	}
}

// Blocking reports whether the tile stops movement.
func (t Terrain) Blocking() bool { return t == TerrainWall || t == TerrainPit }

// Opaque reports whether the tile stops line of sight.
func (t Terrain) Opaque() bool { return t == TerrainWall }

// Layer is the surface layer of a tile with ground; pits and walls have none.
func (t Terrain) Layer() (nav.LayerMask, bool) {
	switch t {
	case TerrainFloor:
		return LayerFloor, true
	case TerrainMud:
		return LayerMud, true
	case TerrainWater:
		return LayerWater, true
	default:
		return 0, false
	}
}

// SpeedFactor scales movement over the tile.
func (t Terrain) SpeedFactor() float64 {
	switch t {
	case TerrainMud:
		return 0.6
	case TerrainWater:
		return 0.4
	case TerrainFloor:
		return 1
	default:
		return 0
	}
}
