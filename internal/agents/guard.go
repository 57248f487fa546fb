package agents

import (
	"log/slog"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/sensing"
)

// GuardConfig holds per-guard tuning. Archetypes adjust a copy of it.
type GuardConfig struct {
	Locomotion LocomotionConfig      `yaml:"locomotion"`
	Memory     sensing.MemoryConfig  `yaml:"memory"`
	Sensing    sensing.BuilderConfig `yaml:"sensing"`

	MaxHealth           float64 `yaml:"max_health"`
	AttackCooldown      float64 `yaml:"attack_cooldown"`      // Seconds between swings
	HitWindow           float64 `yaml:"hit_window"`           // Seconds the player counts as attacked after a hit
	UnreachableCooldown float64 `yaml:"unreachable_cooldown"` // Seconds a failed target stays off limits
	PatrolPause         float64 `yaml:"patrol_pause"`         // Seconds spent at each patrol point
	RestRate            float64 `yaml:"rest_rate"`            // Health regained per second at home
	RangeThreshold      float64 `yaml:"range_threshold"`      // In-range distance for ranged actions
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Locomotion:          DefaultLocomotionConfig(),
		Memory:              sensing.DefaultMemoryConfig(),
		Sensing:             sensing.DefaultBuilderConfig(),
		MaxHealth:           100,
		AttackCooldown:      1.2,
		HitWindow:           0.4,
		UnreachableCooldown: 3,
		PatrolPause:         1.5,
		RestRate:            8,
		RangeThreshold:      goap.DefaultRangeThreshold,
	}
}

// Placement is where a guard starts and what it watches over.
type Placement struct {
	Position geom.Vec3
	Home     geom.Vec3
	Patrol   []geom.Vec3
}

// Guard is one GOAP-driven agent. It is not safe for concurrent use; the
// simulation ticks guards one at a time.
type Guard struct {
	ID        AgentID
	Name      string
	Archetype string

	ctx *Context
	cfg GuardConfig
	log *slog.Logger

	pos       geom.Vec3
	home      geom.Vec3
	patrol    []geom.Vec3
	patrolIdx int
	health    float64
	hits      int
	dt        float64
	pursuing  bool

	memory    *sensing.Memory
	cooldowns *sensing.Cooldowns
	sensor    *sensing.Builder
	loco      *Locomotion
	exec      *goap.Executor[*Guard]
	policy    goap.Selector
	actions   []goap.Action[*Guard]
	last      goap.TickReport
}

// NewGuard builds a guard with its own action instances, memory and
// executor. The policy and planner come from ctx.
func NewGuard(ctx *Context, id AgentID, name string, at Placement, cfg GuardConfig) *Guard {
	g := &Guard{
		ID:        id,
		Name:      name,
		ctx:       ctx,
		cfg:       cfg,
		log:       ctx.logger().With("agent", id, "name", name),
		pos:       at.Position,
		home:      at.Home,
		patrol:    append([]geom.Vec3(nil), at.Patrol...),
		health:    cfg.MaxHealth,
		memory:    sensing.NewMemory(cfg.Memory),
		cooldowns: sensing.NewCooldowns(),
	}
	g.sensor = sensing.NewBuilder(g, g.memory, g.cooldowns, cfg.Sensing)
	g.loco = NewLocomotion(ctx, g, cfg.Locomotion)
	g.loco.OnBlocked = g.pathFailed
	g.actions = NewActionSet()

	planner := ctx.Planner
	if planner == nil {
		planner = goap.NewPlanner[*Guard](goap.PlannerOptions{Logger: g.log})
	}
	g.policy = ctx.Policy
	if g.policy == nil {
		g.policy = DefaultPolicy()
	}
	g.exec = goap.NewExecutor(g, g.actions, goap.ExecutorConfig[*Guard]{
		Sensor:         g.sensor,
		Selector:       g.policy,
		Planner:        planner,
		Fallback:       goHome,
		RangeThreshold: cfg.RangeThreshold,
		Logger:         g.log,
	})
	return g
}

// Position implements goap.Agent and sensing.Self.
func (g *Guard) Position() geom.Vec3 { return g.pos }

// SetPosition implements Body.
func (g *Guard) SetPosition(p geom.Vec3) { g.pos = p }

func (g *Guard) Health() float64 { return g.health }
func (g *Guard) Home() geom.Vec3 { return g.home }

// HasPatrol reports whether the guard has at least one patrol point.
func (g *Guard) HasPatrol() bool { return len(g.patrol) > 0 }

// Hits counts swings that landed on the player.
func (g *Guard) Hits() int { return g.hits }

// Damage lowers health, never below zero.
func (g *Guard) Damage(amount float64) {
	g.health -= amount
	if g.health < 0 {
		g.health = 0
	}
}

func (g *Guard) heal(amount float64) {
	g.health += amount
	if g.health > g.cfg.MaxHealth {
		g.health = g.cfg.MaxHealth
	}
}

// Tick feeds this frame's percepts to the sensor and runs one executor tick.
func (g *Guard) Tick(dt float64, p sensing.Percepts) goap.TickReport {
	g.dt = dt
	g.pursuing = false
	g.sensor.Sense(p)
	rep := g.exec.Tick(dt)
	if rep.GoalChanged {
		g.log.Debug("goal adopted", "goal", rep.Goal, "rule", g.Rule())
	}
	g.last = rep
	return rep
}

// LastReport is the result of the most recent Tick.
func (g *Guard) LastReport() goap.TickReport { return g.last }

// Executor exposes the guard's plan executor for debugging.
func (g *Guard) Executor() *goap.Executor[*Guard] { return g.exec }

func (g *Guard) Memory() *sensing.Memory       { return g.memory }
func (g *Guard) Cooldowns() *sensing.Cooldowns { return g.cooldowns }
func (g *Guard) Locomotion() *Locomotion       { return g.loco }

// Rule names the policy rule that picked the current goal, when the policy
// can explain itself.
func (g *Guard) Rule() string {
	type explainer interface {
		Explain(goap.WorldState) string
	}
	if e, ok := g.policy.(explainer); ok {
		return e.Explain(g.exec.WorldState())
	}
	return ""
}

// Snapshot captures the guard for telemetry.
func (g *Guard) Snapshot() Snapshot {
	return Snapshot{
		ID:         g.ID,
		Name:       g.Name,
		Archetype:  g.Archetype,
		Position:   g.pos,
		Home:       g.home,
		Health:     g.health,
		Hits:       g.hits,
		Goal:       g.exec.GoalName(),
		Rule:       g.Rule(),
		Action:     g.exec.ActionName(),
		Plan:       g.exec.PlanNames(),
		State:      g.exec.State(),
		Reason:     g.last.Reason,
		Moving:     g.loco.Status(),
		Path:       append([]geom.Vec3(nil), g.loco.Path()...),
		PathIndex:  g.loco.Index(),
		Cooldowns:  g.cooldowns.Active(),
		WorldState: g.exec.WorldState().Clone(),
	}
}

// moveTo walks toward target. pursuit marks failures as an unreachable
// target so the policy backs off chasing. It returns the step status.
func (g *Guard) moveTo(target geom.Vec3, pursuit bool) MoveStatus {
	g.pursuing = pursuit
	if !g.loco.RequestPath(target) {
		return MoveNoPath
	}
	return g.loco.FollowPath(g.dt)
}

func (g *Guard) pathFailed(target geom.Vec3, status MoveStatus) {
	g.log.Debug("path failed", "target", target, "status", status, "pursuit", g.pursuing)
	if g.pursuing {
		g.cooldowns.Start(sensing.CooldownUnreachable, g.cfg.UnreachableCooldown)
	}
}

// goHome is the executor fallback: walk back to the home anchor.
func goHome(g *Guard) {
	if geom.FlatDist(g.pos, g.home) <= g.cfg.Sensing.HomeRadius {
		return
	}
	if geom.FlatDist(g.loco.Target(), g.home) > g.cfg.Locomotion.RepathDistance {
		g.loco.Invalidate()
	}
	g.moveTo(g.home, false)
}
