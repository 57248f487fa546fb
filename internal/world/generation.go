// Arena generation using layered simplex noise.
// One noise field carves walls and pits, a second spreads mud and water.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds arena generation parameters.
type GenConfig struct {
	Seed     int64   `yaml:"-"`                  // Random seed (0 = random)
	Width    int     `yaml:"width"`              // Tiles along X
	Depth    int     `yaml:"depth"`              // Tiles along Z
	CellSize float64 `yaml:"cell_size"`          // World units per tile
	WallLvl  float64 `yaml:"obstacle_threshold"` // Structure noise above this is wall (0.0–1.0)
	PitLvl   float64 `yaml:"pit_threshold"`      // Structure noise below this is pit (0.0–1.0)
	MudLvl   float64 `yaml:"mud_threshold"`      // Ground noise above this is mud
	WaterLvl float64 `yaml:"water_threshold"`    // Ground noise above this is water
	Freq     float64 `yaml:"frequency"`          // Base noise frequency per tile
	Octaves  int     `yaml:"octaves"`            // Noise octaves
	Clear    int     `yaml:"clear_radius"`       // Tiles around the center forced to floor
	Height   float64 `yaml:"wall_height"`        // Wall height in world units
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:    40,
		Depth:    40,
		CellSize: 1,
		WallLvl:  0.68,
		PitLvl:   0.22,
		MudLvl:   0.62,
		WaterLvl: 0.78,
		Freq:     0.09,
		Octaves:  3,
		Clear:    3,
		Height:   2,
	}
}

// SmallTestConfig returns a tiny arena for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 12
	cfg.Depth = 12
	cfg.Seed = 42
	cfg.Clear = 2
	return cfg
}

// Generate creates an arena. The outer ring of tiles is always wall.
func Generate(cfg GenConfig) *Arena {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	cfg.Seed = seed

	structure := opensimplex.NewNormalized(seed)
	ground := opensimplex.NewNormalized(seed + 1)

	a := NewArena(cfg)
	cx, cz := float64(cfg.Width-1)/2, float64(cfg.Depth-1)/2
	for z := 0; z < cfg.Depth; z++ {
		for x := 0; x < cfg.Width; x++ {
			if x == 0 || z == 0 || x == cfg.Width-1 || z == cfg.Depth-1 {
				a.SetTile(x, z, TerrainWall)
				continue
			}
			if math.Hypot(float64(x)-cx, float64(z)-cz) <= float64(cfg.Clear) {
				continue
			}
			s := octaveNoise(structure, float64(x), float64(z), cfg.Octaves, cfg.Freq, 0.5)
			g := octaveNoise(ground, float64(x), float64(z), cfg.Octaves, cfg.Freq*1.5, 0.5)
			a.SetTile(x, z, deriveTerrain(s, g, cfg))
		}
	}
	return a
}

// deriveTerrain determines the tile type from the two noise samples.
func deriveTerrain(structure, ground float64, cfg GenConfig) Terrain {
	if structure > cfg.WallLvl {
		return TerrainWall
	}
	if structure < cfg.PitLvl {
		return TerrainPit
	}
	if ground > cfg.WaterLvl {
		return TerrainWater
	}
	if ground > cfg.MudLvl {
		return TerrainMud
	}
	return TerrainFloor
}

// octaveNoise generates fractal noise by layering multiple frequencies.
// The result stays in [0, 1] for normalized noise sources.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of tile type distribution.
func TerrainCounts(a *Arena) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, t := range a.tiles {
		counts[t]++
	}
	return counts
}
