package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/warden/internal/agents"
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/policy"
)

var (
	planFacts []string
	planGoal  []string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan the guard action library against a hand-written world state",
	Long: `Plan runs the GOAP planner over the guard actions. Facts are name=value
pairs with boolean or numeric values. The goal is either one of the built-in
goal names or name=value pairs; without --goal the configured policy picks it.`,
	Example: `  wardensim plan --fact playerVisible=true --fact nearPlayer=false --fact attackReady=true --goal attack
  wardensim plan --fact atHome=false --goal atHome=true`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringArrayVar(&planFacts, "fact", nil, "world state fact as name=value (repeatable)")
	planCmd.Flags().StringArrayVar(&planGoal, "goal", nil, "goal name, or desired fact as name=value (repeatable)")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ws, err := parseFacts(planFacts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var goal goap.Goal
	if len(planGoal) == 0 {
		sel := agents.DefaultPolicy()
		if len(cfg.Policy.Rules) > 0 {
			if sel, err = policy.FromSpecs(cfg.Policy.Rules, cfg.Policy.Fallback, logger); err != nil {
				return err
			}
		}
		goal = sel.Select(ws)
		fmt.Fprintf(out, "policy: %s\n", sel.Explain(ws))
	} else if goal, err = parseGoal(planGoal); err != nil {
		return err
	}

	planner := goap.NewPlanner[*agents.Guard](goap.PlannerOptions{
		MaxNodes: cfg.Planner.MaxNodes,
		MaxDepth: cfg.Planner.MaxDepth,
		Logger:   logger,
	})
	fmt.Fprintf(out, "state: %s\ngoal:  %s\n", ws, goal)
	if goal.SatisfiedBy(ws) {
		fmt.Fprintln(out, "goal already satisfied")
		return nil
	}
	plan, ok := planner.Plan(agents.NewActionSet(), ws, goal)
	if !ok {
		return fmt.Errorf("no plan reaches %s", goal.Name)
	}
	fmt.Fprintf(out, "plan:  %s (cost %.1f, %d nodes expanded)\n",
		strings.Join(plan.Names(), " -> "), plan.Cost, plan.Expanded)
	if plan.Truncated {
		fmt.Fprintln(out, "search budget ran out; plan may not be the cheapest")
	}
	return nil
}

func parseFacts(pairs []string) (goap.WorldState, error) {
	ws := goap.NewWorldState()
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("fact %q: want name=value", p)
		}
		f, err := goap.ParseFact(v)
		if err != nil {
			return nil, err
		}
		ws[strings.TrimSpace(k)] = f
	}
	return ws, nil
}

func parseGoal(args []string) (goap.Goal, error) {
	if len(args) == 1 && !strings.Contains(args[0], "=") {
		goals := agents.DefaultGoals()
		if g, ok := goals[args[0]]; ok {
			return g, nil
		}
		names := make([]string, 0, len(goals))
		for n := range goals {
			names = append(names, n)
		}
		sort.Strings(names)
		return goap.Goal{}, fmt.Errorf("unknown goal %q (known: %s)", args[0], strings.Join(names, ", "))
	}
	desired, err := parseFacts(args)
	if err != nil {
		return goap.Goal{}, err
	}
	return goap.NewGoal("custom", desired), nil
}
