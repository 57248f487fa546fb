package agents

import (
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/policy"
	"github.com/talgya/warden/internal/sensing"
)

// Goal names used by the default policy.
const (
	GoalRecover     = "recover"
	GoalAttack      = "attack"
	GoalHunt        = "hunt"
	GoalInvestigate = "investigate"
	GoalPatrol      = "patrol"
	GoalHome        = "home"
)

// DefaultGoals maps each default goal name to its desired facts.
func DefaultGoals() map[string]goap.Goal {
	return map[string]goap.Goal{
		GoalRecover:     goap.NewGoal(GoalRecover, facts().SetBool(sensing.LowHealth, false)),
		GoalAttack:      goap.NewGoal(GoalAttack, facts().SetBool(sensing.PlayerAttacked, true)),
		GoalHunt:        goap.NewGoal(GoalHunt, facts().SetBool(sensing.LastKnownChecked, true)),
		GoalInvestigate: goap.NewGoal(GoalInvestigate, facts().SetBool(sensing.NoiseInvestigated, true)),
		GoalPatrol:      goap.NewGoal(GoalPatrol, facts().SetBool(sensing.Patrolled, true)),
		GoalHome:        goap.NewGoal(GoalHome, facts().SetBool(sensing.AtHome, true)),
	}
}

// DefaultPolicy is the guard cascade: recover when hurt, attack a visible
// player, hunt a remembered one, investigate noises, patrol, else go home.
func DefaultPolicy() *policy.Selector {
	goals := DefaultGoals()
	reachable := policy.Not(policy.IsTrue(sensing.TargetUnreachable))
	return policy.NewSelector(goals[GoalHome],
		policy.Rule{Name: GoalRecover, When: policy.IsTrue(sensing.LowHealth), Goal: goals[GoalRecover]},
		policy.Rule{
			Name: GoalAttack,
			When: policy.All(policy.IsTrue(sensing.PlayerVisible), reachable),
			Goal: goals[GoalAttack],
		},
		policy.Rule{
			Name: GoalHunt,
			When: policy.All(policy.IsTrue(sensing.PlayerKnown), policy.Not(policy.IsTrue(sensing.LastKnownChecked)), reachable),
			Goal: goals[GoalHunt],
		},
		policy.Rule{
			Name: GoalInvestigate,
			When: policy.All(policy.IsTrue(sensing.NoiseHeard), policy.Not(policy.IsTrue(sensing.NoiseInvestigated))),
			Goal: goals[GoalInvestigate],
		},
		policy.Rule{Name: GoalPatrol, When: policy.IsTrue(sensing.HasPatrol), Goal: goals[GoalPatrol]},
	)
}
