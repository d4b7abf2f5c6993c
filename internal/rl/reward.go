// internal/rl/reward.go
package rl

import "github.com/xkilldash9x/ares-cli/api/schemas"

// Base reward per outcome kind. Detection is the worst outcome.
var baseRewards = map[schemas.Outcome]float64{
	schemas.OutcomeSuccess:        1.0,
	schemas.OutcomePartialSuccess: 0.5,
	schemas.OutcomeFailure:        -0.5,
	schemas.OutcomeTimeout:        -0.3,
	schemas.OutcomeDetected:       -1.0,
	schemas.OutcomeError:          -0.2,
}

const (
	speedBonus        = 0.2 // execution under 5 seconds
	stealthBonus      = 0.3 // undetected
	complexityPenalty = 0.1 // over 100 lines of code

	speedThresholdSec = 5.0
	complexityLines   = 100

	rewardFloor = -1.0
	rewardCeil  = 1.5
)

// Reward scores a single attempt into a bounded scalar. It is a pure
// function: identical inputs always produce identical output. Speed and
// stealth bonuses apply only to successful attempts; the complexity
// penalty applies regardless of outcome. The result is clamped to
// [-1.0, 1.5].
func Reward(outcome schemas.Outcome, executionTime float64, codeLength int, detected bool) float64 {
	reward := baseRewards[outcome]

	if outcome == schemas.OutcomeSuccess {
		if executionTime < speedThresholdSec {
			reward += speedBonus
		}
		if !detected {
			reward += stealthBonus
		}
	}

	if codeLength > complexityLines {
		reward -= complexityPenalty
	}

	if reward < rewardFloor {
		return rewardFloor
	}
	if reward > rewardCeil {
		return rewardCeil
	}
	return reward
}
