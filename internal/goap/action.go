package goap

import "github.com/talgya/warden/internal/geom"

// Agent is the executing agent as seen by the planner and executor.
type Agent interface {
	Position() geom.Vec3
}

// Target is anything an action can be "in range" of.
type Target interface {
	Position() geom.Vec3
}

// Action is one self-contained step of a plan. Preconditions and effects are
// read-only; instances are stateful and owned by a single agent, and are
// Reset before every planning attempt.
type Action[A Agent] interface {
	Name() string
	Preconditions() WorldState
	Effects() WorldState
	Cost() float64

	Reset()
	// CheckProceduralPrecondition is the live check run when the action
	// becomes the head of the plan, e.g. "the target still exists".
	CheckProceduralPrecondition(agent A) bool
	// Perform advances the action by one tick. False means it failed and
	// the plan must be rebuilt.
	Perform(agent A) bool
	IsDone(agent A) bool

	RequiresInRange() bool
	Target() Target
	SetTarget(Target)
	InRange() bool
	SetInRange(bool)
}

// BaseAction stores the data half of the Action contract. Domain actions
// embed it and supply the behavioral methods.
type BaseAction struct {
	name          string
	preconditions WorldState
	effects       WorldState
	cost          float64
	needsRange    bool

	target  Target
	inRange bool
}

// NewBaseAction builds the shared part of an action.
func NewBaseAction(name string, cost float64, preconditions, effects WorldState) BaseAction {
	if preconditions == nil {
		preconditions = NewWorldState()
	}
	if effects == nil {
		effects = NewWorldState()
	}
	return BaseAction{
		name:          name,
		preconditions: preconditions,
		effects:       effects,
		cost:          cost,
	}
}

// WithRange marks the action as requiring the agent to be near its target.
func (b BaseAction) WithRange() BaseAction {
	b.needsRange = true
	return b
}

func (b *BaseAction) Name() string              { return b.name }
func (b *BaseAction) Preconditions() WorldState { return b.preconditions }
func (b *BaseAction) Effects() WorldState       { return b.effects }
func (b *BaseAction) Cost() float64             { return b.cost }
func (b *BaseAction) RequiresInRange() bool     { return b.needsRange }
func (b *BaseAction) Target() Target            { return b.target }
func (b *BaseAction) SetTarget(t Target)        { b.target = t }
func (b *BaseAction) InRange() bool             { return b.inRange }
func (b *BaseAction) SetInRange(v bool)         { b.inRange = v }

// SetCost changes the planning cost, e.g. when distance to the target matters.
func (b *BaseAction) SetCost(c float64) { b.cost = c }

// Reset clears per-attempt state. Embedders that keep more state should
// call it from their own Reset.
func (b *BaseAction) Reset() {
	b.inRange = false
	b.target = nil
}

// Names lists action names in order.
func Names[A Agent](actions []Action[A]) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Name()
	}
	return out
}
