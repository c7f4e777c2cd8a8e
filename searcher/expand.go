package searcher

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"uct/game"
)

// ErrCapacityExceeded reports that a position produced more legal moves
// than the configured branching capacity. The capacity must be set
// above the game's true maximum branching factor, so hitting this is a
// configuration bug and the search aborts rather than continue with a
// truncated move list.
var ErrCapacityExceeded = errors.New("branching capacity exceeded")

// expandEdges enumerates the legal moves at the cursor's position and
// assigns each a prior by evaluating the successor position at the fast
// prior depth. The caller installs the result into the tree; this part
// touches only the worker-local cursor, so parallel workers run it
// without holding the tree lock.
func (m *MCTS) expandEdges(c *cursor) ([]edge, error) {
	moves := c.pos.LegalMoves()
	if len(moves) > m.maxBranching {
		return nil, fmt.Errorf("%w: %d legal moves, capacity %d",
			ErrCapacityExceeded, len(moves), m.maxBranching)
	}

	edges := make([]edge, 0, len(moves))
	for _, move := range moves {
		c.pos.Apply(move)
		prior := m.moverReward(c.pos, m.priorDepth)
		c.pos.Revert()
		edges = append(edges, edge{move: move, child: noNode, prior: prior})
	}

	// Descending prior order: a lookup optimization only, the UCB scan
	// stays exhaustive. The stable sort keeps the generator's order
	// among equal priors, so tie-breaks stay deterministic.
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].prior > edges[j].prior
	})
	return edges, nil
}

// moverReward scores the position just reached by a move and returns
// the reward from the mover's perspective. The oracle scores for the
// side to move, which after the move is the opponent, so the converted
// reward is flipped once across the ply boundary. Edge statistics are
// therefore always expressed for the player making the edge's move,
// which is what the alternating flip in backup assumes.
func (m *MCTS) moverReward(pos game.Position, depth int) Reward {
	return 1 - m.evaluateReward(pos, depth)
}

// evaluateReward runs the oracle and converts its score to a reward for
// the side to move. An oracle failure degrades to the neutral reward
// 0.5 for that one call instead of aborting the search; no NaN ever
// reaches backup.
func (m *MCTS) evaluateReward(pos game.Position, depth int) Reward {
	m.metrics.AddEvaluation()
	v, err := m.evaluate(pos, depth)
	if err != nil {
		m.metrics.AddOracleFailure()
		log.Warn().Err(err).Msg("evaluation oracle failed, using neutral reward")
		return 0.5
	}
	return ValueToReward(v)
}
