// Package agents provides guards: GOAP-driven agents that sense the player,
// remember where they last saw or heard them, and walk the arena over a
// navigation grid.
package agents

import (
	"log/slog"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/nav"
)

// AgentID is a unique identifier for a guard.
type AgentID uint64

// Clock reports simulated time in seconds.
type Clock interface {
	Now() float64
}

// ManualClock is a Clock advanced explicitly by the frame loop.
type ManualClock struct {
	t float64
}

func (c *ManualClock) Now() float64 { return c.t }

// Advance moves the clock forward by dt seconds.
func (c *ManualClock) Advance(dt float64) { c.t += dt }

// Mover is the collision-aware movement primitive. It returns the new
// position and false when the step was blocked.
type Mover interface {
	Move(from, delta geom.Vec3) (geom.Vec3, bool)
}

// Context carries the services every guard in one arena shares. It is built
// once by the simulation and handed to each guard at construction.
type Context struct {
	Pathfinder nav.Pathfinder
	Physics    nav.Physics
	Mover      Mover
	Clock      Clock
	Logger     *slog.Logger
	// Layers restricts which surfaces guards path over; zero allows all.
	Layers nav.LayerMask

	Planner *goap.Planner[*Guard]
	Policy  goap.Selector
}

func (c *Context) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Snapshot is a read-only view of a guard for telemetry and the API.
type Snapshot struct {
	ID         AgentID         `json:"id"`
	Name       string          `json:"name"`
	Archetype  string          `json:"archetype"`
	Position   geom.Vec3       `json:"position"`
	Home       geom.Vec3       `json:"home"`
	Health     float64         `json:"health"`
	Hits       int             `json:"hits"`
	Goal       string          `json:"goal"`
	Rule       string          `json:"rule,omitempty"`
	Action     string          `json:"action,omitempty"`
	Plan       []string        `json:"plan"`
	State      goap.State      `json:"state"`
	Reason     goap.Reason     `json:"reason"`
	Moving     MoveStatus      `json:"moving"`
	Path       []geom.Vec3     `json:"path,omitempty"`
	PathIndex  int             `json:"path_index"`
	Cooldowns  []string        `json:"cooldowns,omitempty"`
	WorldState goap.WorldState `json:"world_state"`
}
