// Guard action library. Every guard owns its own instances; the planner
// chains them to satisfy whichever goal the policy picked this tick.
package agents

import (
	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/sensing"
)

// Action names.
const (
	ActChase           = "Chase"
	ActWaitForCooldown = "WaitForCooldown"
	ActAttack          = "Attack"
	ActSearch          = "Search"
	ActInvestigate     = "Investigate"
	ActPatrol          = "Patrol"
	ActReturnHome      = "ReturnHome"
	ActRest            = "Rest"
)

// NewActionSet returns fresh instances of the full guard action library.
func NewActionSet() []goap.Action[*Guard] {
	return []goap.Action[*Guard]{
		newChase(),
		newWaitForCooldown(),
		newAttack(),
		newSearch(),
		newInvestigate(),
		newPatrol(),
		newReturnHome(),
		newRest(),
	}
}

func facts() goap.WorldState { return goap.NewWorldState() }

// travel is embedded by actions that walk somewhere. The first step of each
// attempt drops whatever path an earlier action left cached.
type travel struct {
	started bool
	done    bool
}

func (t *travel) walk(g *Guard, target geom.Vec3, pursuit bool) MoveStatus {
	if !t.started {
		t.started = true
		g.loco.Invalidate()
	}
	return g.moveTo(target, pursuit)
}

func (t *travel) reset() { t.started, t.done = false, false }

func stuck(s MoveStatus) bool { return s == MoveBlocked || s == MoveNoPath }

// nearPlayer matches the nearPlayer fact for the current percepts.
func (g *Guard) nearPlayer() bool {
	p := g.sensor.Percepts()
	return p.PlayerVisible && geom.FlatDist(g.pos, p.PlayerPos) <= g.cfg.Sensing.AttackRange
}

// chase closes in on a visible player.
type chase struct {
	goap.BaseAction
	travel
}

func newChase() *chase {
	return &chase{BaseAction: goap.NewBaseAction(ActChase, 2,
		facts().SetBool(sensing.PlayerVisible, true).SetBool(sensing.TargetUnreachable, false),
		facts().SetBool(sensing.NearPlayer, true))}
}

func (a *chase) Reset() { a.BaseAction.Reset(); a.reset() }

func (a *chase) CheckProceduralPrecondition(g *Guard) bool {
	return g.sensor.Percepts().PlayerVisible
}

func (a *chase) Perform(g *Guard) bool {
	p := g.sensor.Percepts()
	if !p.PlayerVisible {
		return false
	}
	a.SetTarget(p.PlayerPos)
	if !g.nearPlayer() && stuck(a.walk(g, p.PlayerPos, true)) {
		return false
	}
	a.done = g.nearPlayer()
	return true
}

func (a *chase) IsDone(g *Guard) bool { return a.done }

// waitForCooldown holds position until the next swing is ready.
type waitForCooldown struct {
	goap.BaseAction
}

func newWaitForCooldown() *waitForCooldown {
	return &waitForCooldown{BaseAction: goap.NewBaseAction(ActWaitForCooldown, 1,
		facts().SetBool(sensing.AttackReady, false),
		facts().SetBool(sensing.AttackReady, true))}
}

func (a *waitForCooldown) CheckProceduralPrecondition(g *Guard) bool { return true }
func (a *waitForCooldown) Perform(g *Guard) bool                     { return true }

func (a *waitForCooldown) IsDone(g *Guard) bool {
	return g.cooldowns.Ready(sensing.CooldownAttack)
}

// attack swings at the player once in range. Out of range it keeps
// stepping toward them.
type attack struct {
	goap.BaseAction
	travel
}

func newAttack() *attack {
	base := goap.NewBaseAction(ActAttack, 1,
		facts().SetBool(sensing.NearPlayer, true).SetBool(sensing.AttackReady, true),
		facts().SetBool(sensing.PlayerAttacked, true))
	return &attack{BaseAction: base.WithRange()}
}

func (a *attack) Reset() { a.BaseAction.Reset(); a.reset() }

func (a *attack) CheckProceduralPrecondition(g *Guard) bool {
	p := g.sensor.Percepts()
	if !p.PlayerVisible {
		return false
	}
	a.SetTarget(p.PlayerPos)
	return g.cooldowns.Ready(sensing.CooldownAttack)
}

func (a *attack) Perform(g *Guard) bool {
	p := g.sensor.Percepts()
	if !p.PlayerVisible {
		return false
	}
	a.SetTarget(p.PlayerPos)
	if !a.InRange() {
		return !stuck(a.walk(g, p.PlayerPos, true))
	}
	if !g.cooldowns.Ready(sensing.CooldownAttack) {
		return true
	}
	g.hits++
	g.cooldowns.Start(sensing.CooldownAttack, g.cfg.AttackCooldown)
	g.cooldowns.Start(sensing.CooldownHit, g.cfg.HitWindow)
	g.log.Debug("attack landed", "hits", g.hits)
	a.done = true
	return true
}

func (a *attack) IsDone(g *Guard) bool { return a.done }

// search walks to where the player was last seen.
type search struct {
	goap.BaseAction
	travel
}

func newSearch() *search {
	return &search{BaseAction: goap.NewBaseAction(ActSearch, 3,
		facts().SetBool(sensing.PlayerKnown, true).SetBool(sensing.TargetUnreachable, false),
		facts().SetBool(sensing.LastKnownChecked, true))}
}

func (a *search) Reset() { a.BaseAction.Reset(); a.reset() }

func (a *search) CheckProceduralPrecondition(g *Guard) bool {
	_, ok := g.memory.LastKnown()
	return ok && !g.memory.LastKnownChecked()
}

func (a *search) Perform(g *Guard) bool {
	pos, ok := g.memory.LastKnown()
	if !ok {
		return false
	}
	a.SetTarget(pos)
	switch s := a.walk(g, pos, true); {
	case stuck(s):
		return false
	case s == MoveArrived:
		g.memory.MarkLastKnownChecked()
		a.done = true
	}
	return true
}

func (a *search) IsDone(g *Guard) bool { return a.done }

// investigate walks to the remembered noise. An unreachable noise is
// written off as investigated.
type investigate struct {
	goap.BaseAction
	travel
}

func newInvestigate() *investigate {
	return &investigate{BaseAction: goap.NewBaseAction(ActInvestigate, 2,
		facts().SetBool(sensing.NoiseHeard, true),
		facts().SetBool(sensing.NoiseInvestigated, true))}
}

func (a *investigate) Reset() { a.BaseAction.Reset(); a.reset() }

func (a *investigate) CheckProceduralPrecondition(g *Guard) bool {
	_, _, ok := g.memory.Noise()
	return ok && !g.memory.NoiseInvestigated()
}

func (a *investigate) Perform(g *Guard) bool {
	pos, _, ok := g.memory.Noise()
	if !ok {
		return false
	}
	a.SetTarget(pos)
	switch s := a.walk(g, pos, false); {
	case stuck(s):
		g.memory.MarkNoiseInvestigated()
		return false
	case s == MoveArrived:
		g.memory.MarkNoiseInvestigated()
		a.done = true
	}
	return true
}

func (a *investigate) IsDone(g *Guard) bool { return a.done }

// patrol walks to the next patrol point and pauses there.
type patrol struct {
	goap.BaseAction
	travel
}

func newPatrol() *patrol {
	return &patrol{BaseAction: goap.NewBaseAction(ActPatrol, 1,
		facts().SetBool(sensing.HasPatrol, true),
		facts().SetBool(sensing.Patrolled, true))}
}

func (a *patrol) Reset() { a.BaseAction.Reset(); a.reset() }

func (a *patrol) CheckProceduralPrecondition(g *Guard) bool { return g.HasPatrol() }

func (a *patrol) Perform(g *Guard) bool {
	wp := g.patrol[g.patrolIdx]
	a.SetTarget(wp)
	switch s := a.walk(g, wp, false); {
	case stuck(s):
		g.nextPatrolPoint()
		return false
	case s == MoveArrived:
		g.cooldowns.Start(sensing.CooldownPatrol, g.cfg.PatrolPause)
		g.nextPatrolPoint()
		a.done = true
	}
	return true
}

func (a *patrol) IsDone(g *Guard) bool { return a.done }

func (g *Guard) nextPatrolPoint() {
	g.patrolIdx = (g.patrolIdx + 1) % len(g.patrol)
}

// returnHome walks back to the home anchor.
type returnHome struct {
	goap.BaseAction
	travel
}

func newReturnHome() *returnHome {
	return &returnHome{BaseAction: goap.NewBaseAction(ActReturnHome, 1,
		nil,
		facts().SetBool(sensing.AtHome, true))}
}

func (a *returnHome) Reset() { a.BaseAction.Reset(); a.reset() }

func (a *returnHome) CheckProceduralPrecondition(g *Guard) bool { return true }

func (a *returnHome) Perform(g *Guard) bool {
	a.SetTarget(g.home)
	if geom.FlatDist(g.pos, g.home) <= g.cfg.Sensing.HomeRadius {
		a.done = true
		return true
	}
	switch s := a.walk(g, g.home, false); {
	case stuck(s):
		return false
	case s == MoveArrived:
		a.done = true
	}
	return true
}

func (a *returnHome) IsDone(g *Guard) bool { return a.done }

// rest recovers health at home.
type rest struct {
	goap.BaseAction
}

func newRest() *rest {
	return &rest{BaseAction: goap.NewBaseAction(ActRest, 1,
		facts().SetBool(sensing.AtHome, true),
		facts().SetBool(sensing.LowHealth, false))}
}

func (a *rest) CheckProceduralPrecondition(g *Guard) bool {
	return geom.FlatDist(g.pos, g.home) <= g.cfg.Sensing.HomeRadius
}

func (a *rest) Perform(g *Guard) bool {
	g.heal(g.cfg.RestRate * g.dt)
	return true
}

func (a *rest) IsDone(g *Guard) bool { return g.health >= g.cfg.Sensing.LowHealth }
