package searcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"uct/game"
)

func TestExpandEdges(t *testing.T) {
	t.Run("creates one edge per legal move sorted by descending prior", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 2, outcome: game.OutcomeDraw}
		// Mover-perspective priors: 1 - sigmoid(value), so a move the
		// opponent scores at -600 is the mover's 0.75.
		oracle := moveOracle(map[string]game.Value{
			"m0": 600,  // prior 0.25
			"m1": -600, // prior 0.75
			"m2": 0,    // prior 0.50
		})
		m := NewMCTS(WithEvaluationFn(oracle), WithDescents(1))
		m.tree = newTree()
		c := newCursor(pos, m.tree.add(nil, 0))

		edges, err := m.expandEdges(c)

		require.NoError(t, err)
		require.Len(t, edges, 3, "One edge per legal move")
		require.Equal(t, mockMove{id: 1}, edges[0].move, "Highest prior first")
		require.Equal(t, mockMove{id: 2}, edges[1].move)
		require.Equal(t, mockMove{id: 0}, edges[2].move, "Lowest prior last")
		for i, e := range edges {
			require.GreaterOrEqual(t, float64(e.prior), 0.0, "Prior must lie in [0,1]")
			require.LessOrEqual(t, float64(e.prior), 1.0, "Prior must lie in [0,1]")
			require.Equal(t, noNode, e.child, "Children must not be materialized yet")
			require.Zero(t, e.visits, "New edge should be unvisited")
			if i > 0 {
				require.GreaterOrEqual(t, edges[i-1].prior, e.prior,
					"Edges should be sorted by descending prior")
			}
		}
		require.Zero(t, pos.ply, "Expansion must restore the position")
		require.Empty(t, pos.applied, "Expansion must undo every probed move")
	})

	t.Run("keeps generation order among equal priors", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 2, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithDescents(1))
		m.tree = newTree()
		c := newCursor(pos, m.tree.add(nil, 0))

		edges, err := m.expandEdges(c)

		require.NoError(t, err)
		for i, e := range edges {
			require.Equal(t, mockMove{id: i}, e.move,
				"Stable sort should preserve the generator's order on ties")
		}
	})

	t.Run("rejects a position exceeding branching capacity", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 2, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)),
			WithMaxBranching(2), WithDescents(1))
		m.tree = newTree()
		c := newCursor(pos, m.tree.add(nil, 0))

		edges, err := m.expandEdges(c)

		require.ErrorIs(t, err, ErrCapacityExceeded,
			"More legal moves than capacity is a configuration bug")
		require.Nil(t, edges, "No edges should be produced on capacity violation")
	})

	t.Run("substitutes a neutral prior when the oracle fails", func(t *testing.T) {
		pos := &mockPosition{branch: 2, maxPly: 2, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(failingOracle(errors.New("inference backend down"))),
			WithDescents(1))
		m.tree = newTree()
		c := newCursor(pos, m.tree.add(nil, 0))

		edges, err := m.expandEdges(c)

		require.NoError(t, err, "Oracle failure is recoverable")
		require.Len(t, edges, 2)
		for _, e := range edges {
			require.Equal(t, Reward(0.5), e.prior,
				"Failed evaluation should degrade to the neutral reward")
		}
	})
}
