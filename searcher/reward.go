package searcher

import (
	"math"

	"uct/game"
)

// Reward is a normalized win probability in [0,1] for the side to move
// at the node it is attached to.
type Reward float64

const (
	// Logistic scale calibrated so that a value of 600 (about three
	// pawns) maps to a 0.75 winning chance, and -600 to 0.25.
	logisticK = -0.00183102048111
	logisticG = 546.14353597715121 // 1 / |logisticK|

	// Rewards outside this band saturate to +/-ValueKnownWin when
	// converted back to a value, to keep the logit bounded.
	rewardLossClamp = 0.01
	rewardWinClamp  = 0.99
)

// ValueToReward maps an evaluation score to a reward in [0,1] through a
// scaled logistic function. ValueToReward(0) is exactly 0.5.
func ValueToReward(v game.Value) Reward {
	return Reward(1.0 / (1.0 + math.Exp(logisticK*float64(v))))
}

// RewardToValue is the approximate inverse of ValueToReward. Rewards
// near certainty are clamped to +/-ValueKnownWin rather than blowing up
// the logit; the two functions are only mutually inverse inside the
// (0.01, 0.99) band, which is intentional lossy behavior.
func RewardToValue(r Reward) game.Value {
	if r > rewardWinClamp {
		return game.ValueKnownWin
	}
	if r < rewardLossClamp {
		return -game.ValueKnownWin
	}
	v := logisticG * math.Log(float64(r)/(1.0-float64(r)))
	return game.Value(v)
}

// terminalReward maps a game-theoretic outcome at a terminal position
// to the reward for the side to move there.
func terminalReward(o game.Outcome) Reward {
	switch o {
	case game.OutcomeWin:
		return 1.0
	case game.OutcomeLoss:
		return 0.0
	default:
		return 0.5
	}
}
