package sensing

import (
	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/goap"
)

// Self is the owning guard's view of its own body and duties.
type Self interface {
	Position() geom.Vec3
	Health() float64
	Home() geom.Vec3
	HasPatrol() bool
}

// BuilderConfig holds the thresholds that turn measurements into booleans.
type BuilderConfig struct {
	AttackRange float64 `yaml:"attack_range"`
	HomeRadius  float64 `yaml:"home_radius"`
	LowHealth   float64 `yaml:"low_health"`
}

func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{AttackRange: 1.5, HomeRadius: 1.0, LowHealth: 30}
}

// Builder assembles a guard's WorldState. It implements goap.Sensor.
type Builder struct {
	self      Self
	memory    *Memory
	cooldowns *Cooldowns
	cfg       BuilderConfig
	percepts  Percepts
}

func NewBuilder(self Self, memory *Memory, cooldowns *Cooldowns, cfg BuilderConfig) *Builder {
	return &Builder{self: self, memory: memory, cooldowns: cooldowns, cfg: cfg}
}

// Sense stores this tick's percepts and folds them into memory. Call it
// before the executor ticks.
func (b *Builder) Sense(p Percepts) {
	b.percepts = p
	b.memory.Observe(p)
}

// Percepts returns the most recent percepts.
func (b *Builder) Percepts() Percepts { return b.percepts }

func (b *Builder) Memory() *Memory       { return b.memory }
func (b *Builder) Cooldowns() *Cooldowns { return b.cooldowns }

// Decay ages memory and cooldowns.
func (b *Builder) Decay(dt float64) {
	b.memory.Decay(dt)
	b.cooldowns.Decay(dt)
}

// WorldState builds a fresh fact mapping. Every fact in Facts is present.
func (b *Builder) WorldState() goap.WorldState {
	pos := b.self.Position()
	p := b.percepts
	ws := goap.NewWorldState()

	near := p.PlayerVisible && geom.FlatDist(pos, p.PlayerPos) <= b.cfg.AttackRange
	ws.SetBool(PlayerVisible, p.PlayerVisible).
		SetBool(PlayerKnown, b.memory.playerKnown).
		SetBool(NearPlayer, near).
		SetBool(AttackReady, b.cooldowns.Ready(CooldownAttack)).
		SetBool(PlayerAttacked, !b.cooldowns.Ready(CooldownHit)).
		SetBool(LastKnownChecked, b.memory.LastKnownChecked()).
		SetBool(TargetUnreachable, !b.cooldowns.Ready(CooldownUnreachable))

	_, loudness, heard := b.memory.Noise()
	ws.SetBool(NoiseHeard, heard && !b.memory.NoiseInvestigated()).
		SetNumber(NoiseLoudness, loudness).
		SetBool(NoiseInvestigated, b.memory.NoiseInvestigated())

	health := b.self.Health()
	ws.SetBool(AtHome, geom.FlatDist(pos, b.self.Home()) <= b.cfg.HomeRadius).
		SetNumber(Health, health).
		SetBool(LowHealth, health < b.cfg.LowHealth).
		SetBool(HasPatrol, b.self.HasPatrol()).
		SetBool(Patrolled, !b.cooldowns.Ready(CooldownPatrol))
	return ws
}
