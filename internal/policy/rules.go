package policy

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/talgya/warden/internal/goap"
)

// GoalSpec is the configuration form of a goal.
type GoalSpec struct {
	Name    string         `yaml:"name" json:"name"`
	Desired map[string]any `yaml:"desired" json:"desired"`
}

// RuleSpec is the configuration form of a rule. When is an expr-lang
// boolean expression over fact names, e.g. "playerVisible && health > 30".
type RuleSpec struct {
	Name string   `yaml:"name" json:"name"`
	When string   `yaml:"when" json:"when"`
	Goal GoalSpec `yaml:"goal" json:"goal"`
}

// Goal converts the spec into a goap.Goal.
func (g GoalSpec) Goal() (goap.Goal, error) {
	if g.Name == "" {
		return goap.Goal{}, fmt.Errorf("goal has no name")
	}
	if len(g.Desired) == 0 {
		return goap.Goal{}, fmt.Errorf("goal %q has no desired facts", g.Name)
	}
	desired := goap.NewWorldState()
	for k, v := range g.Desired {
		f, err := goap.FactOf(v)
		if err != nil {
			return goap.Goal{}, fmt.Errorf("goal %q fact %q: %w", g.Name, k, err)
		}
		desired[k] = f
	}
	return goap.NewGoal(g.Name, desired), nil
}

// CompileRule compiles expression into a rule condition. Facts missing from
// the world state evaluate as nil; a runtime evaluation error counts as no
// match and is logged.
func CompileRule(name, expression string, goal goap.Goal, logger *slog.Logger) (Rule, error) {
	if logger == nil {
		logger = slog.Default()
	}
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule %q: %w", name, err)
	}
	return Rule{
		Name: name,
		When: exprCondition(name, program, logger),
		Goal: goal,
	}, nil
}

func exprCondition(name string, program *vm.Program, logger *slog.Logger) func(goap.WorldState) bool {
	return func(ws goap.WorldState) bool {
		out, err := expr.Run(program, ws.Env())
		if err != nil {
			logger.Warn("rule evaluation failed", "rule", name, "error", err)
			return false
		}
		b, _ := out.(bool)
		return b
	}
}

// FromSpecs builds a selector from configuration, preserving rule order.
func FromSpecs(specs []RuleSpec, fallback GoalSpec, logger *slog.Logger) (*Selector, error) {
	fb, err := fallback.Goal()
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	rules := make([]Rule, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate rule %q", s.Name)
		}
		seen[s.Name] = true
		g, err := s.Goal.Goal()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", s.Name, err)
		}
		r, err := CompileRule(s.Name, s.When, g, logger)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return NewSelector(fb, rules...), nil
}
