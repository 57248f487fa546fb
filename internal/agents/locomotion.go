package agents

import (
	"math"

	"github.com/talgya/warden/internal/geom"
)

// MoveStatus is the outcome of one FollowPath step.
type MoveStatus uint8

const (
	MoveIdle    MoveStatus = iota // No path requested
	MoveMoving                    // Stepped toward the current waypoint
	MoveArrived                   // Reached the final waypoint
	MoveBlocked                   // An obstacle stopped the step; path dropped
	MoveNoPath                    // The last request found no route
)

func (s MoveStatus) String() string {
	switch s {
	case MoveIdle:
		return "idle"
	case MoveMoving:
		return "moving"
	case MoveArrived:
		return "arrived"
	case MoveBlocked:
		return "blocked"
	case MoveNoPath:
		return "no_path"
	default:
		return "unknown"
	}
}

func (s MoveStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// LocomotionConfig tunes path following.
type LocomotionConfig struct {
	Speed             float64 `yaml:"speed"`              // World units per second
	RepathCooldown    float64 `yaml:"repath_cooldown"`    // Seconds between pathfinder queries
	RepathDistance    float64 `yaml:"repath_distance"`    // Target movement that warrants a new path
	WaypointTolerance float64 `yaml:"waypoint_tolerance"` // Distance at which a waypoint counts as reached
	ProbeDistance     float64 `yaml:"probe_distance"`     // Obstacle raycast length ahead of each step
}

func DefaultLocomotionConfig() LocomotionConfig {
	return LocomotionConfig{
		Speed:             3,
		RepathCooldown:    0.5,
		RepathDistance:    1,
		WaypointTolerance: 0.2,
		ProbeDistance:     0.6,
	}
}

// Body is the thing locomotion moves.
type Body interface {
	Position() geom.Vec3
	SetPosition(geom.Vec3)
}

// Locomotion bridges a guard to the pathfinder and mover: it caches one
// path, rate-limits repaths and walks the waypoints.
type Locomotion struct {
	ctx  *Context
	cfg  LocomotionConfig
	body Body

	// OnBlocked is called when a request finds no route or a step is
	// stopped by an obstacle.
	OnBlocked func(target geom.Vec3, status MoveStatus)

	path      []geom.Vec3
	index     int
	target    geom.Vec3 // target of the last query
	queried   bool
	lastQuery float64
	failed    bool
	status    MoveStatus
}

func NewLocomotion(ctx *Context, body Body, cfg LocomotionConfig) *Locomotion {
	return &Locomotion{ctx: ctx, cfg: cfg, body: body}
}

// RequestPath makes sure a path toward target is cached. The pathfinder is
// queried at most once per RepathCooldown, and only when there is no path
// yet or target moved more than RepathDistance from the last queried
// target. It reports whether a usable path is cached.
func (l *Locomotion) RequestPath(target geom.Vec3) bool {
	now := l.ctx.Clock.Now()
	if l.queried && now-l.lastQuery < l.cfg.RepathCooldown {
		return !l.failed && l.path != nil
	}
	if l.path != nil && !l.failed && geom.FlatDist(target, l.target) <= l.cfg.RepathDistance {
		return true
	}

	l.queried = true
	l.lastQuery = now
	l.target = target
	path, ok := l.ctx.Pathfinder.FindPath(l.body.Position(), target, l.ctx.Layers)
	if !ok {
		l.path, l.index, l.failed = nil, 0, true
		l.status = MoveNoPath
		if l.OnBlocked != nil {
			l.OnBlocked(target, MoveNoPath)
		}
		return false
	}
	l.path, l.index, l.failed = path, 0, false
	return true
}

// FollowPath advances the body toward the current waypoint by at most
// Speed*dt.
func (l *Locomotion) FollowPath(dt float64) MoveStatus {
	l.status = l.step(dt)
	return l.status
}

func (l *Locomotion) step(dt float64) MoveStatus {
	if l.failed {
		return MoveNoPath
	}
	if l.path == nil {
		return MoveIdle
	}
	pos := l.body.Position()
	tol := math.Max(l.cfg.WaypointTolerance, 0)
	for l.index < len(l.path) && geom.FlatDist(pos, l.path[l.index]) <= tol {
		l.index++
	}
	if l.index >= len(l.path) {
		return MoveArrived
	}

	dir := l.path[l.index].Sub(pos).Flat()
	dist := dir.Len()
	dir = dir.Scale(1 / dist)
	step := math.Min(l.cfg.Speed*dt, dist)

	probe := math.Min(l.cfg.ProbeDistance, dist)
	if l.ctx.Physics != nil && l.ctx.Physics.Raycast(pos, dir, probe) {
		return l.blocked()
	}
	next, ok := l.ctx.Mover.Move(pos, dir.Scale(step))
	if !ok {
		return l.blocked()
	}
	l.body.SetPosition(next)

	if geom.FlatDist(next, l.path[l.index]) <= tol {
		l.index++
	}
	if l.index >= len(l.path) {
		return MoveArrived
	}
	return MoveMoving
}

func (l *Locomotion) blocked() MoveStatus {
	target := l.target
	l.Invalidate()
	if l.OnBlocked != nil {
		l.OnBlocked(target, MoveBlocked)
	}
	return MoveBlocked
}

// Invalidate drops the cached path. The next RequestPath queries
// immediately.
func (l *Locomotion) Invalidate() {
	l.path = nil
	l.index = 0
	l.queried = false
	l.failed = false
}

// Path returns the cached waypoints.
func (l *Locomotion) Path() []geom.Vec3 { return l.path }

// Index is the waypoint currently being walked to.
func (l *Locomotion) Index() int { return l.index }

// Target is the destination of the last pathfinder query.
func (l *Locomotion) Target() geom.Vec3 { return l.target }

// Status is the result of the most recent step or request.
func (l *Locomotion) Status() MoveStatus { return l.status }
