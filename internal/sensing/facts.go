// Package sensing turns what a guard perceives into the flat fact mapping the
// planner and goal policy read. The state is rebuilt from scratch every tick
// from percepts, short-term memory and cooldown timers.
package sensing

// Fact names produced by Builder.
const (
	PlayerVisible     = "playerVisible"
	PlayerKnown       = "playerKnown"
	NearPlayer        = "nearPlayer"
	AttackReady       = "attackReady"
	PlayerAttacked    = "playerAttacked"
	NoiseHeard        = "noiseHeard"
	NoiseLoudness     = "noiseLoudness"
	NoiseInvestigated = "noiseInvestigated"
	LastKnownChecked  = "lastKnownChecked"
	TargetUnreachable = "targetUnreachable"
	AtHome            = "atHome"
	Health            = "health"
	LowHealth         = "lowHealth"
	HasPatrol         = "hasPatrol"
	Patrolled         = "patrolled"
)

// Facts lists every fact name in a stable order.
var Facts = []string{
	PlayerVisible, PlayerKnown, NearPlayer, AttackReady, PlayerAttacked,
	NoiseHeard, NoiseLoudness, NoiseInvestigated, LastKnownChecked,
	TargetUnreachable, AtHome, Health, LowHealth, HasPatrol, Patrolled,
}

// Cooldown timer names.
const (
	// CooldownAttack gates the next swing.
	CooldownAttack = "attack"
	// CooldownHit is the window after a landed hit during which the player
	// counts as attacked.
	CooldownHit = "hit"
	// CooldownUnreachable is set when a path to the current target failed.
	CooldownUnreachable = "unreachable"
	// CooldownPatrol is the pause at a reached patrol point.
	CooldownPatrol = "patrol"
)
