package goap

import (
	"encoding/json"
	"log/slog"

	"github.com/talgya/warden/internal/geom"
)

// State is the executor's coarse lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StatePlanning
	StateExecutingAction
	StateReplanPending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateExecutingAction:
		return "executing"
	case StateReplanPending:
		return "replan_pending"
	default:
		return "unknown"
	}
}

// MarshalText writes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Reason records why the current plan was dropped or rebuilt.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonGoalChanged
	ReasonPlanExhausted
	ReasonPreconditionFailed
	ReasonPerformFailed
	ReasonGoalAchieved
	ReasonPlanningFailed
	ReasonForced
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonGoalChanged:
		return "goal_changed"
	case ReasonPlanExhausted:
		return "plan_exhausted"
	case ReasonPreconditionFailed:
		return "precondition_failed"
	case ReasonPerformFailed:
		return "perform_failed"
	case ReasonGoalAchieved:
		return "goal_achieved"
	case ReasonPlanningFailed:
		return "planning_failed"
	case ReasonForced:
		return "forced"
	default:
		return "unknown"
	}
}

// MarshalText writes the reason name.
func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Sensor rebuilds the agent's world state. Decay runs once per tick before
// the state is read; WorldState may be called more than once per tick.
type Sensor interface {
	Decay(dt float64)
	WorldState() WorldState
}

// Selector maps a world state to exactly one goal.
type Selector interface {
	Select(ws WorldState) Goal
}

// DefaultRangeThreshold is the distance at which an action counts as in range.
const DefaultRangeThreshold = 1.5

// ExecutorConfig wires an executor's collaborators.
type ExecutorConfig[A Agent] struct {
	Sensor   Sensor
	Selector Selector
	Planner  *Planner[A]
	// Fallback runs whenever planning fails, e.g. walking back to an anchor.
	Fallback       func(agent A)
	RangeThreshold float64
	Logger         *slog.Logger
}

// TickReport describes what one tick did. It replaces change notifications:
// callers compare GoalChanged/ActionChanged or read the names directly.
type TickReport struct {
	State         State  `json:"state"`
	Goal          string `json:"goal"`
	Action        string `json:"action,omitempty"`
	PlanLength    int    `json:"plan_length"`
	Replanned     bool   `json:"replanned"`
	Reason        Reason `json:"reason"`
	Fallback      bool   `json:"fallback"`
	GoalChanged   bool   `json:"goal_changed"`
	ActionChanged bool   `json:"action_changed"`
}

// Executor runs one agent's sense → select → plan → act loop.
// It is not safe for concurrent use; one goroutine ticks one agent.
type Executor[A Agent] struct {
	agent    A
	actions  []Action[A]
	sensor   Sensor
	selector Selector
	planner  *Planner[A]
	fallback func(A)
	rangeSq  float64
	log      *slog.Logger

	state   State
	goal    Goal
	hasGoal bool
	plan    []Action[A]
	current Action[A] // last action that ran Perform successfully
	ws      WorldState
	reason  Reason
	lastAct string
}

// NewExecutor builds an executor over the agent's own action instances.
func NewExecutor[A Agent](agent A, actions []Action[A], cfg ExecutorConfig[A]) *Executor[A] {
	if cfg.Planner == nil {
		cfg.Planner = NewPlanner[A](PlannerOptions{Logger: cfg.Logger})
	}
	if cfg.RangeThreshold <= 0 {
		cfg.RangeThreshold = DefaultRangeThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Executor[A]{
		agent:    agent,
		actions:  actions,
		sensor:   cfg.Sensor,
		selector: cfg.Selector,
		planner:  cfg.Planner,
		fallback: cfg.Fallback,
		rangeSq:  cfg.RangeThreshold * cfg.RangeThreshold,
		log:      cfg.Logger,
		ws:       NewWorldState(),
	}
}

// Tick advances the agent by dt seconds.
func (e *Executor[A]) Tick(dt float64) (rep TickReport) {
	prevGoal := e.goal.Name
	prevAction := e.lastAct
	defer func() {
		rep.State = e.state
		rep.Goal = e.goal.Name
		rep.Action = e.ActionName()
		rep.PlanLength = len(e.plan)
		rep.Reason = e.reason
		rep.GoalChanged = rep.Goal != prevGoal
		rep.ActionChanged = rep.Action != prevAction
		e.lastAct = rep.Action
	}()

	// Decay time-based facts, then rebuild from sensors.
	e.sensor.Decay(dt)
	e.ws = e.sensor.WorldState()

	// Adopt the selected goal; a different fact set invalidates the plan.
	candidate := e.selector.Select(e.ws)
	if !e.hasGoal || !candidate.Same(e.goal) {
		if e.hasGoal {
			e.log.Debug("goal changed", "from", e.goal.Name, "to", candidate.Name)
		}
		e.clearPlan(ReasonGoalChanged)
		e.goal = candidate
		e.hasGoal = true
	}

	// Plan when there is nothing queued.
	if len(e.plan) == 0 {
		e.state = StatePlanning
		rep.Replanned = true
		if !e.replan() {
			e.state = StateIdle
			e.reason = ReasonPlanningFailed
			rep.Fallback = true
			if e.fallback != nil {
				e.fallback(e.agent)
			}
			return rep
		}
		if len(e.plan) == 0 {
			// Goal already holds; nothing to do this tick.
			e.state = StateIdle
			return rep
		}
	}

	// Live precondition check whenever a new action reaches the head.
	head := e.plan[0]
	if !e.isCurrent(head) {
		if !head.CheckProceduralPrecondition(e.agent) {
			e.log.Debug("procedural precondition failed", "action", head.Name(), "goal", e.goal.Name)
			e.forceReplan(ReasonPreconditionFailed)
			return rep
		}
	}

	// Range check against the action's target.
	if head.RequiresInRange() {
		t := head.Target()
		head.SetInRange(t != nil && geom.DistSq(e.agent.Position(), t.Position()) <= e.rangeSq)
	}

	// Perform.
	if !head.Perform(e.agent) {
		e.log.Debug("action failed", "action", head.Name(), "goal", e.goal.Name)
		e.forceReplan(ReasonPerformFailed)
		return rep
	}
	e.current = head
	e.state = StateExecutingAction

	// Retire finished actions.
	if head.IsDone(e.agent) {
		e.plan = e.plan[1:]
		e.current = nil
	}

	// The goal may already hold after this tick's side effects.
	e.ws = e.sensor.WorldState()
	if e.goal.SatisfiedBy(e.ws) && len(e.plan) > 0 {
		e.clearPlan(ReasonGoalAchieved)
		e.state = StateIdle
	} else if len(e.plan) == 0 {
		e.state = StateIdle
		e.reason = ReasonPlanExhausted
	}
	return rep
}

func (e *Executor[A]) replan() bool {
	for _, a := range e.actions {
		a.Reset()
	}
	plan, ok := e.planner.Plan(e.actions, e.ws, e.goal)
	if !ok {
		e.log.Debug("no plan", "goal", e.goal.Name, "state", e.ws.String(), "expanded", plan.Expanded)
		e.plan = nil
		return false
	}
	e.plan = plan.Actions
	e.current = nil
	e.log.Debug("planned", "goal", e.goal.Name, "plan", plan.Names(), "cost", plan.Cost)
	return true
}

func (e *Executor[A]) isCurrent(a Action[A]) bool {
	return e.current != nil && any(e.current) == any(a)
}

func (e *Executor[A]) clearPlan(r Reason) {
	e.plan = nil
	e.current = nil
	e.reason = r
}

func (e *Executor[A]) forceReplan(r Reason) {
	e.clearPlan(r)
	e.state = StateReplanPending
}

// ForceReplan drops the current plan; the next tick plans again.
func (e *Executor[A]) ForceReplan() { e.forceReplan(ReasonForced) }

// State returns the lifecycle state after the last tick.
func (e *Executor[A]) State() State { return e.state }

// Goal returns the adopted goal.
func (e *Executor[A]) Goal() Goal { return e.goal }

// GoalName returns the adopted goal's name.
func (e *Executor[A]) GoalName() string { return e.goal.Name }

// ActionName returns the head of the plan, or "" when there is none.
func (e *Executor[A]) ActionName() string {
	if len(e.plan) == 0 {
		return ""
	}
	return e.plan[0].Name()
}

// PlanNames returns the remaining plan.
func (e *Executor[A]) PlanNames() []string { return Names(e.plan) }

// WorldState returns the most recently built state. Callers must not modify it.
func (e *Executor[A]) WorldState() WorldState { return e.ws }

// Debug is a read-only snapshot for external display.
type Debug struct {
	State      State      `json:"state"`
	Goal       Goal       `json:"goal"`
	Action     string     `json:"action,omitempty"`
	Plan       []string   `json:"plan"`
	WorldState WorldState `json:"world_state"`
	Reason     Reason     `json:"last_reason"`
}

// Debug captures the executor's current view.
func (e *Executor[A]) Debug() Debug {
	return Debug{
		State:      e.state,
		Goal:       Goal{Name: e.goal.Name, Desired: e.goal.Desired.Clone()},
		Action:     e.ActionName(),
		Plan:       e.PlanNames(),
		WorldState: e.ws.Clone(),
		Reason:     e.reason,
	}
}

// Dump serializes the debug snapshot as JSON.
func (e *Executor[A]) Dump() ([]byte, error) {
	return json.Marshal(e.Debug())
}
