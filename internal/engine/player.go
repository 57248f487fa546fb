package engine

import (
	"math/rand"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/nav"
	"github.com/talgya/warden/internal/world"
)

// PlayerConfig tunes the scripted intruder.
type PlayerConfig struct {
	WalkSpeed    float64 `yaml:"walk_speed"` // World units per second
	RunSpeed     float64 `yaml:"run_speed"`
	RunChance    float64 `yaml:"run_chance"`    // Chance to run to each new destination
	StepNoise    float64 `yaml:"step_noise"`    // Loudness of walking footsteps (0.0–1.0)
	RunNoise     float64 `yaml:"run_noise"`     // Loudness of running footsteps
	StrikeRange  float64 `yaml:"strike_range"`  // Reach when striking back at a guard
	StrikeDamage float64 `yaml:"strike_damage"` // Damage per strike
	StrikeRate   float64 `yaml:"strike_rate"`   // Expected strikes per second while a guard is in reach
}

func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		WalkSpeed:    1.6,
		RunSpeed:     3.4,
		RunChance:    0.3,
		StepNoise:    0.25,
		RunNoise:     0.9,
		StrikeRange:  1.2,
		StrikeDamage: 12,
		StrikeRate:   0.5,
	}
}

// Player is a stand-in intruder that wanders between random open tiles. It
// makes noise while moving and fights back when cornered.
type Player struct {
	cfg   PlayerConfig
	rng   *rand.Rand
	arena *world.Arena
	pf    nav.Pathfinder

	pos     geom.Vec3
	dest    geom.Vec3
	path    []geom.Vec3
	idx     int
	running bool
	moving  bool
	hits    int // times struck by guards
	strikes int // times it struck a guard
}

// PlayerView is the player's public state.
type PlayerView struct {
	Position    geom.Vec3 `json:"position"`
	Destination geom.Vec3 `json:"destination"`
	Running     bool      `json:"running"`
	Hits        int       `json:"hits"`
	Strikes     int       `json:"strikes"`
}

func newPlayer(cfg PlayerConfig, seed int64, arena *world.Arena, pf nav.Pathfinder, start geom.Vec3) *Player {
	return &Player{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed + 500)),
		arena: arena,
		pf:    pf,
		pos:   start,
		dest:  start,
	}
}

func (p *Player) Position() geom.Vec3 { return p.pos }

func (p *Player) view() PlayerView {
	return PlayerView{Position: p.pos, Destination: p.dest, Running: p.running, Hits: p.hits, Strikes: p.strikes}
}

// step walks toward the current destination, choosing a new one on arrival
// or when the route fails.
func (p *Player) step(dt float64) {
	p.moving = false
	if p.idx >= len(p.path) {
		p.pickDestination()
		if p.idx >= len(p.path) {
			return
		}
	}
	speed := p.cfg.WalkSpeed
	if p.running {
		speed = p.cfg.RunSpeed
	}
	wp := p.path[p.idx].Flat()
	next, ok := p.arena.Move(p.pos, geom.MoveTowards(p.pos, wp, speed*dt).Sub(p.pos))
	if !ok {
		p.path = nil
		p.idx = 0
		return
	}
	p.moving = next != p.pos
	p.pos = next
	if geom.FlatDist(p.pos, wp) < 0.05 {
		p.idx++
	}
}

func (p *Player) pickDestination() {
	dest, ok := p.arena.RandomOpen(p.rng, world.LayersDry)
	if !ok {
		return
	}
	path, ok := p.pf.FindPath(p.pos, dest, world.LayersDry)
	if !ok {
		return
	}
	p.dest = dest
	p.path = path
	p.idx = 0
	p.running = p.rng.Float64() < p.cfg.RunChance
}

// noise reports the loudness of this frame's footsteps; zero when still.
func (p *Player) noise() float64 {
	switch {
	case !p.moving:
		return 0
	case p.running:
		return p.cfg.RunNoise
	default:
		return p.cfg.StepNoise
	}
}

// strikeChance is the probability of a strike this frame.
func (p *Player) strikeChance(dt float64) float64 {
	return geom.Clamp01(p.cfg.StrikeRate * dt)
}
