package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/talgya/warden/internal/agents"
	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/nav"
	"github.com/talgya/warden/internal/sensing"
	"github.com/talgya/warden/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// GridConfig selects and sizes the navigation grid laid over the arena.
type GridConfig struct {
	NodeRadius              float64 `yaml:"node_radius"`
	MaxWalkableSearchRadius int     `yaml:"max_walkable_search_radius"`
	MaxOpen                 int     `yaml:"max_open"`
	GroundCheckDistance     float64 `yaml:"ground_check_distance"` // 3D only
	Use3D                   bool    `yaml:"use_3d"`
}

// PerceptionConfig sets how far guards see and hear in clear weather.
type PerceptionConfig struct {
	ViewDistance    float64 `yaml:"view_distance"`
	HearingDistance float64 `yaml:"hearing_distance"` // at full loudness
}

// Config is everything needed to build a Simulation.
type Config struct {
	Seed          int64 // 0 = random
	Arena         world.GenConfig
	Grid          GridConfig
	Planner       goap.PlannerOptions
	Guard         agents.GuardConfig
	Spawn         agents.SpawnConfig
	Perception    PerceptionConfig
	Player        PlayerConfig
	WeatherPeriod float64 // Simulated seconds per weather roll (0 = always clear)
	// Policy picks guard goals; nil uses agents.DefaultPolicy.
	Policy goap.Selector
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Arena: world.DefaultGenConfig(),
		Grid: GridConfig{
			NodeRadius:              0.5,
			MaxWalkableSearchRadius: 4,
			GroundCheckDistance:     0.75,
		},
		Guard:         agents.DefaultGuardConfig(),
		Spawn:         agents.DefaultSpawnConfig(),
		Perception:    PerceptionConfig{ViewDistance: 10, HearingDistance: 12},
		Player:        DefaultPlayerConfig(),
		WeatherPeriod: 60,
	}
}

// Grid is the navigation grid as the simulation uses it.
type Grid interface {
	nav.Pathfinder
	String() string
	Stats() nav.Stats
	WalkableCount() int
}

// Event is a notable occurrence in the arena.
type Event struct {
	Seq         uint64         `json:"seq"`
	Tick        uint64         `json:"tick"`
	Category    string         `json:"category"` // "attack", "goal", "path", "strike", "weather"
	Agent       agents.AgentID `json:"agent,omitempty"`
	Description string         `json:"description"`
}

// SimStats tracks aggregate counters since the run started.
type SimStats struct {
	Guards       int `json:"guards"`
	Replans      int `json:"replans"`
	Fallbacks    int `json:"fallbacks"`
	GoalChanges  int `json:"goal_changes"`
	Hits         int `json:"hits"`    // guard attacks that landed
	Strikes      int `json:"strikes"` // player attacks that landed
	PathFailures int `json:"path_failures"`
	Sightings    int `json:"sightings"` // guard-ticks with the player in view
}

// Snapshot is a consistent copy of the whole simulation.
type Snapshot struct {
	Tick    uint64            `json:"tick"`
	Time    float64           `json:"time"`
	Seed    int64             `json:"seed"`
	Weather world.Weather     `json:"weather"`
	Player  PlayerView        `json:"player"`
	Guards  []agents.Snapshot `json:"guards"`
	Stats   SimStats          `json:"stats"`
}

// Simulation holds the arena, its grid, the guards and the player, and
// advances them together one frame at a time. Step takes the write lock;
// accessors take the read lock, so HTTP handlers may read concurrently.
type Simulation struct {
	mu sync.RWMutex

	cfg    Config
	seed   int64
	log    *slog.Logger
	arena  *world.Arena
	grid   Grid
	ctx    *agents.Context
	clock  *agents.ManualClock
	rng    *rand.Rand
	player *Player

	guards []*agents.Guard
	index  map[agents.AgentID]*agents.Guard
	moving map[agents.AgentID]agents.MoveStatus

	cycle   world.WeatherCycle
	weather world.Weather

	lastTick uint64
	events   []Event
	seq      uint64
	stats    SimStats

	failMu   sync.Mutex
	failures []nav.Failure
}

// NewSimulation generates the arena, lays a grid over it and spawns guards
// and the player.
func NewSimulation(cfg Config) (*Simulation, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	cfg.Arena.Seed = seed

	s := &Simulation{
		cfg:    cfg,
		seed:   seed,
		log:    log,
		clock:  &agents.ManualClock{},
		rng:    rand.New(rand.NewSource(seed + 700)),
		index:  make(map[agents.AgentID]*agents.Guard),
		moving: make(map[agents.AgentID]agents.MoveStatus),
		cycle:  world.WeatherCycle{Seed: seed, Period: cfg.WeatherPeriod},
	}
	s.arena = world.Generate(cfg.Arena)
	grid, err := s.buildGrid()
	if err != nil {
		return nil, fmt.Errorf("build grid: %w", err)
	}
	s.grid = grid

	policy := cfg.Policy
	if policy == nil {
		policy = agents.DefaultPolicy()
	}
	planOpts := cfg.Planner
	if planOpts.Logger == nil {
		planOpts.Logger = log
	}
	s.ctx = &agents.Context{
		Pathfinder: grid,
		Physics:    s.arena,
		Mover:      s.arena,
		Clock:      s.clock,
		Logger:     log,
		Layers:     world.LayersDry,
		Planner:    goap.NewPlanner[*agents.Guard](planOpts),
		Policy:     policy,
	}

	s.guards = agents.NewSpawner(seed).Spawn(s.ctx, s.arena, cfg.Spawn, cfg.Guard)
	for _, g := range s.guards {
		s.index[g.ID] = g
	}
	start, ok := s.arena.OpenTileAt(s.arena.Center(), world.LayersDry)
	if !ok {
		start, ok = s.arena.RandomOpen(s.rng, world.LayersDry)
	}
	if !ok {
		return nil, fmt.Errorf("arena %dx%d has no dry ground for the player", cfg.Arena.Width, cfg.Arena.Depth)
	}
	s.player = newPlayer(cfg.Player, seed, s.arena, grid, start)
	s.weather = s.cycle.At(0)
	s.stats.Guards = len(s.guards)

	log.Info("simulation ready",
		"seed", seed,
		"arena", s.arena.Summary(),
		"guards", len(s.guards),
		"walkable", grid.WalkableCount(),
		"weather", s.weather.Condition,
	)
	return s, nil
}

func (s *Simulation) buildGrid() (Grid, error) {
	gc := s.cfg.Grid
	bounds := s.arena.Bounds()
	if gc.Use3D {
		cfg := nav.DefaultGrid3DConfig()
		cfg.Center = bounds.Center
		cfg.Size = bounds.Size()
		cfg.Logger = s.log
		cfg.OnFailure = s.recordFailure
		if gc.NodeRadius > 0 {
			cfg.NodeRadius = gc.NodeRadius
		}
		if gc.GroundCheckDistance > 0 {
			cfg.GroundCheckDistance = gc.GroundCheckDistance
		}
		cfg.MaxWalkableSearchRadius = gc.MaxWalkableSearchRadius
		cfg.MaxOpen = gc.MaxOpen
		return nav.NewGrid3D(cfg, s.arena)
	}
	cfg := nav.DefaultGrid2DConfig()
	cfg.Center = s.arena.Center()
	cfg.Size = bounds.Size()
	cfg.Logger = s.log
	cfg.OnFailure = s.recordFailure
	if gc.NodeRadius > 0 {
		cfg.NodeRadius = gc.NodeRadius
	}
	cfg.MaxWalkableSearchRadius = gc.MaxWalkableSearchRadius
	cfg.MaxOpen = gc.MaxOpen
	return nav.NewGrid2D(cfg, s.arena)
}

// recordFailure runs on whichever goroutine called FindPath.
func (s *Simulation) recordFailure(f nav.Failure) {
	s.failMu.Lock()
	s.failures = append(s.failures, f)
	if len(s.failures) > maxEvents {
		s.failures = s.failures[len(s.failures)-maxEvents:]
	}
	s.failMu.Unlock()
}

// DrainFailures returns and clears the path failures seen since the last call.
func (s *Simulation) DrainFailures() []nav.Failure {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	out := s.failures
	s.failures = nil
	return out
}

// Step advances every system by dt simulated seconds. It is meant to be
// used as the engine's OnTick callback.
func (s *Simulation) Step(tick uint64, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = tick
	s.clock.Advance(dt)
	if w := s.cycle.At(s.clock.Now()); w.Condition != s.weather.Condition {
		s.weather = w
		s.addEvent(tick, "weather", 0, w.Description)
	}

	s.player.step(dt)
	noise := s.player.noise()
	ppos := s.player.Position()

	for _, g := range s.guards {
		p := s.perceive(g, ppos, noise)
		if p.PlayerVisible {
			s.stats.Sightings++
		}
		hits := g.Hits()
		rep := g.Tick(dt, p)
		s.record(tick, g, rep, hits)
	}

	s.strikeBack(tick, dt)
}

// perceive builds one guard's percepts for this frame.
func (s *Simulation) perceive(g *agents.Guard, player geom.Vec3, loudness float64) sensing.Percepts {
	var p sensing.Percepts
	pos := g.Position()
	dist := geom.FlatDist(pos, player)

	view := s.cfg.Perception.ViewDistance * s.weather.SightScale
	if dist <= view && s.arena.LineOfSight(pos, player) {
		p.PlayerVisible = true
		p.PlayerPos = player
	}
	if loudness > 0 {
		hearing := s.cfg.Perception.HearingDistance * loudness * s.weather.HearingScale
		if dist <= hearing {
			p.NoiseHeard = true
			p.NoisePos = player
			p.NoiseLoudness = loudness
		}
	}
	return p
}

func (s *Simulation) record(tick uint64, g *agents.Guard, rep goap.TickReport, hitsBefore int) {
	if rep.Replanned {
		s.stats.Replans++
	}
	if rep.Fallback {
		s.stats.Fallbacks++
	}
	if rep.GoalChanged {
		s.stats.GoalChanges++
		s.addEvent(tick, "goal", g.ID, fmt.Sprintf("%s now pursues %s (%s)", g.Name, rep.Goal, rep.Reason))
	}
	if n := g.Hits() - hitsBefore; n > 0 {
		s.stats.Hits += n
		s.player.hits += n
		s.addEvent(tick, "attack", g.ID, fmt.Sprintf("%s struck the intruder", g.Name))
	}

	status := g.Locomotion().Status()
	prev := s.moving[g.ID]
	s.moving[g.ID] = status
	if status != prev && (status == agents.MoveBlocked || status == agents.MoveNoPath) {
		s.stats.PathFailures++
		s.addEvent(tick, "path", g.ID, fmt.Sprintf("%s cannot reach %s (%s)", g.Name, g.Locomotion().Target(), status))
	}
}

// strikeBack lets the player hit guards standing within reach.
func (s *Simulation) strikeBack(tick uint64, dt float64) {
	cfg := s.cfg.Player
	if cfg.StrikeDamage <= 0 {
		return
	}
	chance := s.player.strikeChance(dt)
	for _, g := range s.guards {
		if geom.FlatDist(g.Position(), s.player.Position()) > cfg.StrikeRange {
			continue
		}
		if s.rng.Float64() >= chance {
			continue
		}
		g.Damage(cfg.StrikeDamage)
		s.player.strikes++
		s.stats.Strikes++
		s.addEvent(tick, "strike", g.ID, fmt.Sprintf("the intruder struck %s (health %.0f)", g.Name, g.Health()))
	}
}

// addEvent appends to the event log, trimming the oldest entries.
// Callers hold s.mu.
func (s *Simulation) addEvent(tick uint64, category string, agent agents.AgentID, desc string) {
	s.seq++
	s.events = append(s.events, Event{Seq: s.seq, Tick: tick, Category: category, Agent: agent, Description: desc})
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// Seed is the resolved world seed.
func (s *Simulation) Seed() int64 { return s.seed }

// Arena returns the arena. Its tiles are not modified after generation.
func (s *Simulation) Arena() *world.Arena { return s.arena }

// Grid returns the navigation grid. FindPath is safe to call concurrently
// with Step.
func (s *Simulation) Grid() Grid { return s.grid }

// Now returns the simulated time in seconds.
func (s *Simulation) Now() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock.Now()
}

// CurrentTick returns the most recently processed tick.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

// Snapshot copies the full simulation state.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guards := make([]agents.Snapshot, len(s.guards))
	for i, g := range s.guards {
		guards[i] = g.Snapshot()
	}
	return Snapshot{
		Tick:    s.lastTick,
		Time:    s.clock.Now(),
		Seed:    s.seed,
		Weather: s.weather,
		Player:  s.player.view(),
		Guards:  guards,
		Stats:   s.stats,
	}
}

// Guard returns one guard's snapshot.
func (s *Simulation) Guard(id agents.AgentID) (agents.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.index[id]
	if !ok {
		return agents.Snapshot{}, false
	}
	return g.Snapshot(), true
}

// Stats returns the aggregate counters.
func (s *Simulation) Stats() SimStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Events returns up to limit of the most recent events, oldest first.
func (s *Simulation) Events(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	return append([]Event(nil), s.events[start:]...)
}

// EventsSince returns the retained events with a sequence number above seq.
func (s *Simulation) EventsSince(seq uint64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := len(s.events)
	for i > 0 && s.events[i-1].Seq > seq {
		i--
	}
	return append([]Event(nil), s.events[i:]...)
}
