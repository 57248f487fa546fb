// Package policy maps an agent's world state to the single goal it pursues
// this tick. Rules are evaluated top to bottom and the first match wins; a
// fallback goal ends the cascade so selection never comes back empty.
package policy

import (
	"github.com/talgya/warden/internal/goap"
)

// FallbackRule is the name Explain reports when no rule matched.
const FallbackRule = "fallback"

// Rule pairs a condition with the goal adopted when it holds.
type Rule struct {
	Name string
	When func(ws goap.WorldState) bool
	Goal goap.Goal
}

// Selector is an ordered rule table. It is immutable after construction and
// safe to share between agents.
type Selector struct {
	rules    []Rule
	fallback goap.Goal
}

// NewSelector builds a cascade. Rules with a nil condition always match.
func NewSelector(fallback goap.Goal, rules ...Rule) *Selector {
	return &Selector{
		rules:    append([]Rule(nil), rules...),
		fallback: fallback,
	}
}

// Select implements goap.Selector.
func (s *Selector) Select(ws goap.WorldState) goap.Goal {
	_, g := s.match(ws)
	return g
}

// Explain returns the name of the rule that would fire for ws.
func (s *Selector) Explain(ws goap.WorldState) string {
	name, _ := s.match(ws)
	return name
}

func (s *Selector) match(ws goap.WorldState) (string, goap.Goal) {
	for _, r := range s.rules {
		if r.When == nil || r.When(ws) {
			return r.Name, r.Goal
		}
	}
	return FallbackRule, s.fallback
}

// Rules returns a copy of the rule table in evaluation order.
func (s *Selector) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Fallback returns the goal used when nothing matches.
func (s *Selector) Fallback() goap.Goal { return s.fallback }

// Goals lists every goal the selector can produce, fallback last.
func (s *Selector) Goals() []goap.Goal {
	out := make([]goap.Goal, 0, len(s.rules)+1)
	for _, r := range s.rules {
		out = append(out, r.Goal)
	}
	return append(out, s.fallback)
}

// IsTrue is a condition helper for a single boolean fact.
func IsTrue(fact string) func(goap.WorldState) bool {
	return func(ws goap.WorldState) bool { return ws.BoolOf(fact) }
}

// Below matches when a numeric fact is present and under limit.
func Below(fact string, limit float64) func(goap.WorldState) bool {
	return func(ws goap.WorldState) bool {
		f, ok := ws.Get(fact)
		if !ok {
			return false
		}
		n, ok := f.Number()
		return ok && n < limit
	}
}

// All matches when every condition matches.
func All(conds ...func(goap.WorldState) bool) func(goap.WorldState) bool {
	return func(ws goap.WorldState) bool {
		for _, c := range conds {
			if !c(ws) {
				return false
			}
		}
		return true
	}
}

// Not negates a condition.
func Not(cond func(goap.WorldState) bool) func(goap.WorldState) bool {
	return func(ws goap.WorldState) bool { return !cond(ws) }
}
