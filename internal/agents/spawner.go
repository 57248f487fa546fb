// Guard spawning: places guards on open ground with a home anchor, an
// archetype and a patrol loop around home.
package agents

import (
	"math"
	"math/rand"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/nav"
)

// Ground answers the placement queries the spawner needs.
type Ground interface {
	RandomOpen(rng *rand.Rand, allowed nav.LayerMask) (geom.Vec3, bool)
	OpenTileAt(pos geom.Vec3, allowed nav.LayerMask) (geom.Vec3, bool)
}

// SpawnConfig controls guard placement.
type SpawnConfig struct {
	Count        int     `yaml:"count"`
	PatrolPoints int     `yaml:"patrol_points"`
	PatrolRadius float64 `yaml:"patrol_radius"`
}

func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{Count: 4, PatrolPoints: 3, PatrolRadius: 6}
}

// Spawner creates guards. The same seed yields the same guards.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates a guard spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
	}
}

// Spawn places up to cfg.Count guards. It stops early when the ground has
// no open tile left to offer.
func (s *Spawner) Spawn(ctx *Context, ground Ground, cfg SpawnConfig, base GuardConfig) []*Guard {
	guards := make([]*Guard, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		home, ok := ground.RandomOpen(s.rng, ctx.Layers)
		if !ok {
			ctx.logger().Warn("no open ground for guard", "placed", len(guards), "wanted", cfg.Count)
			break
		}
		at := Placement{
			Position: home,
			Home:     home,
			Patrol:   s.patrolRoute(ground, ctx.Layers, home, cfg),
		}
		arch := s.pickArchetype()
		g := NewGuard(ctx, s.nextID, s.generateName(), at, ApplyArchetype(arch, base))
		g.Archetype = arch
		s.nextID++
		guards = append(guards, g)
	}
	return guards
}

// patrolRoute spreads points around home, one per sector, snapped to open
// tiles. Sectors with no open tile within a few tries are skipped.
func (s *Spawner) patrolRoute(ground Ground, allowed nav.LayerMask, home geom.Vec3, cfg SpawnConfig) []geom.Vec3 {
	var route []geom.Vec3
	n := cfg.PatrolPoints
	for i := 0; i < n; i++ {
		for try := 0; try < 8; try++ {
			angle := 2*math.Pi*(float64(i)+s.rng.Float64())/float64(n)
			r := cfg.PatrolRadius * (0.5 + 0.5*s.rng.Float64())
			p, ok := ground.OpenTileAt(home.Add(geom.XZ(math.Cos(angle)*r, math.Sin(angle)*r)), allowed)
			if ok {
				route = append(route, p)
				break
			}
		}
	}
	return route
}

func (s *Spawner) pickArchetype() string {
	names := Archetypes()
	total := 0
	for _, n := range names {
		total += archetypeTemplates[n].Weight
	}
	r := s.rng.Intn(total)
	for _, n := range names {
		r -= archetypeTemplates[n].Weight
		if r < 0 {
			return n
		}
	}
	return ArchWatchman
}

func (s *Spawner) generateName() string {
	var firsts []string
	if s.rng.Float32() < 0.5 {
		firsts = maleNames
	} else {
		firsts = femaleNames
	}
	first := firsts[s.rng.Intn(len(firsts))]
	last := lastNames[s.rng.Intn(len(lastNames))]
	return first + " " + last
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Stormcrow", "Frostborn", "Ravenmoor", "Wolfsbane", "Stoneheart",
	"Redforge", "Nightingale", "Steelworth", "Holloway", "Ward", "Cross",
}
