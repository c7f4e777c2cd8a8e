package searcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"uct/game"
)

func TestNewMCTS(t *testing.T) {
	t.Run("panics without a computational budget", func(t *testing.T) {
		require.Panics(t, func() {
			NewMCTS(WithEvaluationFn(constantOracle(0)))
		}, "Should panic when no budget is specified")
	})

	t.Run("panics without an evaluation oracle", func(t *testing.T) {
		require.Panics(t, func() {
			NewMCTS(WithDescents(10))
		}, "Should panic when no oracle is specified")
	})
}

func TestSearch(t *testing.T) {
	t.Run("returns the no-move sentinel on a terminal root", func(t *testing.T) {
		pos := &mockPosition{maxPly: 0, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithDescents(10))

		move, err := m.Search(pos)

		require.NoError(t, err, "A terminal root is not an error")
		require.Nil(t, move, "No legal moves means no move")
	})

	t.Run("grows the tree to the configured size then stops", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 4, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithTreeSize(5))

		move, err := m.Search(pos)

		require.NoError(t, err)
		require.NotNil(t, move, "A playable root must yield a move")
		require.Equal(t, 5, m.TreeSize(),
			"Each iteration materializes one node; the budget stops at exactly 5")
	})

	t.Run("leaves the caller's position untouched", func(t *testing.T) {
		pos := &mockPosition{branch: 2, maxPly: 3, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithDescents(20))

		_, err := m.Search(pos)

		require.NoError(t, err)
		require.Zero(t, pos.ply, "Search must work on a snapshot")
		require.Empty(t, pos.applied, "No moves may leak into the input position")
	})

	t.Run("aborts with a capacity violation", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 3, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)),
			WithMaxBranching(2), WithDescents(10))

		move, err := m.Search(pos)

		require.ErrorIs(t, err, ErrCapacityExceeded,
			"Exceeding the branching capacity compromises the search")
		require.Nil(t, move)
	})

	t.Run("orders root edges by prior and descends the best first", func(t *testing.T) {
		moveA, moveB := mockMove{id: 0}, mockMove{id: 1}
		pos := &mockPosition{
			branch:    2,
			maxPly:    3,
			outcome:   game.OutcomeDraw,
			rootMoves: []game.Move{moveB, moveA}, // generator emits B first
		}
		// Mover-perspective priors: A ~0.9, B ~0.1.
		oracle := moveOracle(map[string]game.Value{
			"m0": RewardToValue(0.1),
			"m1": RewardToValue(0.9),
		})
		m := NewMCTS(WithEvaluationFn(oracle), WithDescents(1))

		_, err := m.Search(pos)
		require.NoError(t, err)

		root := m.tree.at(m.root)
		require.Len(t, root.edges, 2)
		require.Equal(t, moveA, root.edges[0].move,
			"Expansion should sort edges by descending prior")
		require.Equal(t, moveB, root.edges[1].move)
		require.InDelta(t, 0.9, float64(root.edges[0].prior), 1e-3)
		require.InDelta(t, 0.1, float64(root.edges[1].prior), 1e-3)

		// With both edge visit counts at zero the next descent must
		// deterministically follow the high-prior edge.
		c := newCursor(pos.Clone(), m.root)
		next := m.treePolicy(c)
		require.Equal(t, moveA, m.tree.at(next).move,
			"Descent should pick the high-prior edge first")
	})

	t.Run("final selection maximizes mean action value at zero exploration", func(t *testing.T) {
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithDescents(1))
		m.tree = newTree()
		m.root = m.tree.add(nil, 0)
		root := m.tree.at(m.root)
		root.expanded = true
		root.visits = 10
		root.edges = []edge{
			{move: mockMove{id: 0}, visits: 9, actionValue: 3.6, meanActionValue: 0.4, prior: 0.9},
			{move: mockMove{id: 1}, visits: 1, actionValue: 0.6, meanActionValue: 0.6, prior: 0.1},
		}

		require.Equal(t, mockMove{id: 1}, m.bestMove(m.root, 0.0),
			"C=0 must pick the higher mean regardless of visits and priors")
	})

	t.Run("backs up terminal outcomes for the mover", func(t *testing.T) {
		// One legal move into an immediate loss for the side to move
		// there: the mover's edge must accumulate full rewards.
		pos := &mockPosition{branch: 1, maxPly: 1, outcome: game.OutcomeLoss}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithDescents(3))

		move, err := m.Search(pos)

		require.NoError(t, err)
		require.Equal(t, mockMove{id: 0}, move)
		e := m.tree.at(m.root).edges[0]
		require.Equal(t, 2, e.visits,
			"Descents after the root expansion revisit the terminal leaf")
		require.InDelta(t, 1.0, e.meanActionValue, 1e-9,
			"A move that loses the game for the opponent is worth 1 to the mover")
	})

	t.Run("parallel workers share one tree and produce a legal move", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 4, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)),
			WithGoroutines(4), WithDescents(200))

		move, err := m.Search(pos)

		require.NoError(t, err)
		require.NotNil(t, move, "Parallel search must still select a move")
		require.True(t, pos.IsLegal(move), "Selected move must be legal")
		require.GreaterOrEqual(t, m.TreeSize(), 1)
	})

	t.Run("honors a custom budget predicate", func(t *testing.T) {
		pos := &mockPosition{branch: 2, maxPly: 3, outcome: game.OutcomeDraw}
		calls := 0
		m := NewMCTS(WithEvaluationFn(constantOracle(0)),
			WithBudget(func() bool {
				calls++
				return calls <= 3
			}))

		_, err := m.Search(pos)

		require.NoError(t, err)
		require.Equal(t, 4, calls,
			"The predicate is polled once per iteration plus the failing check")
	})

	t.Run("records metrics when enabled", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 4, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)),
			WithDescents(10), WithMetrics())

		_, err := m.Search(pos)

		require.NoError(t, err)
		metrics := m.Metrics()
		require.Equal(t, int64(10), metrics.Descents)
		require.Equal(t, 10, metrics.TreeSize,
			"One materialized node per descent in a deep uniform game")
		require.Greater(t, metrics.Evaluations, int64(0))
		require.Zero(t, metrics.OracleFailures)
	})

	t.Run("metrics cover only the latest search", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 4, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)),
			WithDescents(10), WithMetrics())

		_, err := m.Search(pos)
		require.NoError(t, err)
		_, err = m.Search(pos)
		require.NoError(t, err)

		metrics := m.Metrics()
		require.Equal(t, int64(10), metrics.Descents,
			"Counters must reset between invocations, not accumulate")
		require.Equal(t, 10, metrics.TreeSize)
	})

	t.Run("metrics can be polled while a search runs", func(t *testing.T) {
		pos := &mockPosition{branch: 3, maxPly: 4, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)),
			WithDescents(500), WithMetrics())

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 100; i++ {
				_ = m.Metrics()
				_ = m.TreeSize()
			}
		}()

		_, err := m.Search(pos)
		require.NoError(t, err)
		<-done
	})
}

func TestPrincipalVariation(t *testing.T) {
	t.Run("walks the most visited line from the root", func(t *testing.T) {
		pos := &mockPosition{branch: 2, maxPly: 3, outcome: game.OutcomeDraw}
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithDescents(50))

		_, err := m.Search(pos)

		require.NoError(t, err)
		pv := m.PrincipalVariation()
		require.NotEmpty(t, pv, "A searched tree has a principal variation")
		require.LessOrEqual(t, len(pv), 3, "The PV cannot outrun the game length")
		best := m.bestMove(m.root, 0)
		require.NotNil(t, best)
	})

	t.Run("is empty before any search", func(t *testing.T) {
		m := NewMCTS(WithEvaluationFn(constantOracle(0)), WithDescents(1))

		require.Empty(t, m.PrincipalVariation())
	})
}
