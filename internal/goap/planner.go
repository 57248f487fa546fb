package goap

import (
	"log/slog"
	"math"
)

// DefaultMaxNodes bounds how many search nodes one Plan call may expand.
const DefaultMaxNodes = 20000

// PlannerOptions bounds the search. Zero values pick defaults.
type PlannerOptions struct {
	MaxNodes int // nodes expanded before the search stops (default DefaultMaxNodes)
	MaxDepth int // plan length cap (default: number of actions)
	Logger   *slog.Logger
}

// Plan is the result of a successful planning call.
type Plan[A Agent] struct {
	Actions   []Action[A]
	Cost      float64
	Expanded  int  // search nodes visited
	Truncated bool // budget ran out; best plan found so far
}

// Names returns the action names of the plan in execution order.
func (p Plan[A]) Names() []string { return Names(p.Actions) }

// Planner finds the cheapest action sequence that turns a world state into
// one satisfying a goal. It is a pure function of its inputs and holds no
// per-call state, so one planner may serve many agents.
type Planner[A Agent] struct {
	maxNodes int
	maxDepth int
	log      *slog.Logger
}

// NewPlanner creates a planner.
func NewPlanner[A Agent](opts PlannerOptions) *Planner[A] {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Planner[A]{maxNodes: opts.MaxNodes, maxDepth: opts.MaxDepth, log: opts.Logger}
}

// node is one search tree entry. Parents are indices into the node arena.
type node struct {
	parent int
	cost   float64
	state  WorldState
	action int // index into actions, -1 for the root
	depth  int
	unused actionSet
}

// Plan runs a depth-first branch-and-bound search from ws. Every action whose
// preconditions hold is tried; along one branch an action is used at most
// once. Among all leaves the cheapest wins, ties going to the first found.
// The second result is false when no leaf exists.
func (p *Planner[A]) Plan(actions []Action[A], ws WorldState, goal Goal) (Plan[A], bool) {
	if goal.SatisfiedBy(ws) {
		return Plan[A]{}, true
	}
	if len(actions) == 0 {
		return Plan[A]{}, false
	}

	maxDepth := p.maxDepth
	if maxDepth <= 0 || maxDepth > len(actions) {
		maxDepth = len(actions)
	}

	arena := []node{{parent: -1, state: ws.Clone(), action: -1, unused: fullSet(len(actions))}}
	stack := []int{0}
	// Branch-and-bound is only sound when no action can lower a branch's cost.
	prune := true
	for _, a := range actions {
		if a.Cost() < 0 {
			prune = false
			break
		}
	}

	best, bestCost := -1, math.Inf(1)
	expanded := 0
	truncated := false

	for len(stack) > 0 {
		if expanded >= p.maxNodes {
			truncated = true
			break
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		expanded++

		cur := arena[id]
		if cur.action >= 0 && goal.SatisfiedBy(cur.state) {
			if cur.cost < bestCost {
				best, bestCost = id, cur.cost
			}
			continue
		}
		if cur.depth >= maxDepth {
			continue
		}
		// A branch already at or above the best leaf cannot produce a
		// strictly cheaper one.
		if prune && cur.cost >= bestCost {
			continue
		}

		// Push children in reverse so the first candidate is expanded first,
		// matching recursive discovery order.
		first := len(arena)
		for i := range actions {
			if !cur.unused.has(i) {
				continue
			}
			a := actions[i]
			if !cur.state.Satisfies(a.Preconditions()) {
				continue
			}
			arena = append(arena, node{
				parent: id,
				cost:   cur.cost + a.Cost(),
				state:  cur.state.Apply(a.Effects()),
				action: i,
				depth:  cur.depth + 1,
				unused: cur.unused.without(i),
			})
		}
		for c := len(arena) - 1; c >= first; c-- {
			stack = append(stack, c)
		}
	}

	if truncated {
		p.log.Debug("planner budget exhausted",
			"goal", goal.Name,
			"expanded", expanded,
			"found", best >= 0,
		)
	}
	if best < 0 {
		return Plan[A]{Expanded: expanded, Truncated: truncated}, false
	}

	var seq []Action[A]
	for id := best; arena[id].action >= 0; id = arena[id].parent {
		seq = append(seq, actions[arena[id].action])
	}
	for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = seq[j], seq[i]
	}
	return Plan[A]{Actions: seq, Cost: bestCost, Expanded: expanded, Truncated: truncated}, true
}

// actionSet is a bitset of action indices still usable on a branch.
type actionSet []uint64

func fullSet(n int) actionSet {
	s := make(actionSet, (n+63)/64)
	for i := 0; i < n; i++ {
		s[i/64] |= 1 << (uint(i) % 64)
	}
	return s
}

func (s actionSet) has(i int) bool {
	return s[i/64]&(1<<(uint(i)%64)) != 0
}

func (s actionSet) without(i int) actionSet {
	out := make(actionSet, len(s))
	copy(out, s)
	out[i/64] &^= 1 << (uint(i) % 64)
	return out
}
