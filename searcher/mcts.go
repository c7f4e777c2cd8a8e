package searcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"uct/game"
)

const (
	// DefaultExplorationConstant balances exploitation of accumulated
	// statistics against exploration of high-prior, under-sampled
	// moves during descent.
	DefaultExplorationConstant = 10.0

	// DefaultMaxBranching bounds the number of edges per node. It must
	// exceed the game's true maximum legal-move count; exceeding it at
	// runtime aborts the search with ErrCapacityExceeded.
	DefaultMaxBranching = 128
)

// Budget is a side-effect-free predicate polled strictly between
// iterations; the search keeps iterating while it returns true. It may
// be time-based, descent-based, or anything else.
type Budget func() bool

type Option func(m *MCTS)

// MCTS selects moves by Monte Carlo Tree Search with UCB selection.
// One Search invocation owns one tree; nothing persists across calls
// except configuration.
type MCTS struct {
	explorationC float64
	finalC       float64
	maxBranching int
	priorDepth   int
	leafDepth    int
	goroutines   int
	maxDescents  int64
	maxTreeSize  int
	duration     time.Duration
	budget       Budget
	evaluate     game.Evaluate
	metrics      Collector

	mu       sync.Mutex // guards tree structure, statistics, and lastMetrics
	tree     *tree
	root     nodeIndex
	descents atomic.Int64

	lastMetrics SearchMetrics
}

// WithExplorationConstant sets the UCB exploration constant used while
// descending the tree. Higher values explore more.
func WithExplorationConstant(c float64) Option {
	return func(m *MCTS) {
		m.explorationC = c
	}
}

// WithFinalExplorationConstant sets the constant used for the final
// move decision at the root. The default 0 is pure exploitation.
func WithFinalExplorationConstant(c float64) Option {
	return func(m *MCTS) {
		m.finalC = c
	}
}

// WithMaxBranching sets the edge capacity per node. Configure it above
// the game's true maximum branching factor.
func WithMaxBranching(n int) Option {
	return func(m *MCTS) {
		if n > 0 {
			m.maxBranching = n
		}
	}
}

// WithPriorDepth sets the oracle lookahead used when computing edge
// priors during expansion. 0 requests a direct score.
func WithPriorDepth(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.priorDepth = depth
		}
	}
}

// WithLeafDepth sets the oracle lookahead used to evaluate the selected
// leaf itself, whose reward is what backup propagates.
func WithLeafDepth(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.leafDepth = depth
		}
	}
}

// WithGoroutines enables tree-parallel search with n workers sharing
// one tree behind a coarse lock.
func WithGoroutines(n int) Option {
	return func(m *MCTS) {
		if n > 0 {
			m.goroutines = n
		}
	}
}

// WithDescents stops the search after n completed iterations.
func WithDescents(n int) Option {
	return func(m *MCTS) {
		if n > 0 {
			m.maxDescents = int64(n)
		}
	}
}

// WithTreeSize stops the search once the tree holds n nodes. When the
// whole game tree is smaller than n this predicate alone never trips,
// so pair it with a descent or duration bound for such games.
func WithTreeSize(n int) Option {
	return func(m *MCTS) {
		if n > 0 {
			m.maxTreeSize = n
		}
	}
}

// WithDuration stops the search after the given wall-clock time.
func WithDuration(d time.Duration) Option {
	return func(m *MCTS) {
		if d > 0 {
			m.duration = d
		}
	}
}

// WithBudget adds an arbitrary budget predicate, combined with any
// built-in bounds: the search runs while all configured predicates
// hold.
func WithBudget(b Budget) Option {
	return func(m *MCTS) {
		if b != nil {
			m.budget = b
		}
	}
}

// WithEvaluationFn sets the evaluation oracle. Required.
func WithEvaluationFn(evaluate game.Evaluate) Option {
	return func(m *MCTS) {
		if evaluate != nil {
			m.evaluate = evaluate
		}
	}
}

// WithMetrics enables metrics collection; results are available from
// Metrics after each Search.
func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = NewCollector()
	}
}

func NewMCTS(options ...Option) *MCTS {
	m := &MCTS{
		explorationC: DefaultExplorationConstant,
		maxBranching: DefaultMaxBranching,
		goroutines:   1,
		metrics:      NewNoopCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.evaluate == nil {
		panic("Must specify an evaluation oracle")
	}
	if m.maxDescents <= 0 && m.maxTreeSize <= 0 && m.duration <= 0 && m.budget == nil {
		panic("Must specify a computational budget")
	}
	return m
}

// Search runs MCTS from pos and returns the selected move, or nil when
// the position is already terminal. The caller's position is cloned
// once and never modified. The only non-recoverable error is a
// branching-capacity violation.
func (m *MCTS) Search(pos game.Position) (game.Move, error) {
	if over, _ := pos.Terminal(); over {
		return nil, nil
	}

	m.metrics.Start()
	m.descents.Store(0)

	m.mu.Lock()
	m.tree = newTree()
	m.root = m.tree.add(nil, 0)
	m.mu.Unlock()

	// Hard snapshot of the input position; all make/unmake happens on
	// clones of this.
	snapshot := pos.Clone()
	budget := m.compileBudget()

	var err error
	if m.goroutines > 1 {
		err = m.runWorkers(snapshot, budget)
	} else {
		c := newCursor(snapshot, m.root)
		for budget() {
			if err = m.iteration(c); err != nil {
				break
			}
		}
	}

	m.metrics.SetTreeSize(m.TreeSize())
	completed := m.metrics.Complete()
	m.mu.Lock()
	m.lastMetrics = completed
	m.mu.Unlock()
	log.Debug().
		Int64("descents", completed.Descents).
		Int("tree_size", completed.TreeSize).
		Dur("elapsed", completed.Duration).
		Msg("search complete")

	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bestMove(m.root, m.finalC), nil
}

// Metrics returns the metrics of the last completed Search. Zero value
// unless the searcher was built WithMetrics.
func (m *MCTS) Metrics() SearchMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMetrics
}

// TreeSize returns the number of materialized nodes in the current
// tree. Safe to call from budget predicates.
func (m *MCTS) TreeSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tree == nil {
		return 0
	}
	return m.tree.size()
}

// PrincipalVariation returns the line of most-visited moves from the
// root of the last search, ties broken by prior.
func (m *MCTS) PrincipalVariation() []game.Move {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tree == nil {
		return nil
	}
	var pv []game.Move
	idx := m.root
	for {
		n := m.tree.at(idx)
		i := mostVisitedEdge(n)
		if i < 0 || n.edges[i].visits == 0 {
			break
		}
		pv = append(pv, n.edges[i].move)
		if n.edges[i].child == noNode {
			break
		}
		idx = n.edges[i].child
	}
	return pv
}

func (m *MCTS) compileBudget() Budget {
	var predicates []Budget
	if m.maxDescents > 0 {
		limit := m.maxDescents
		predicates = append(predicates, func() bool {
			return m.descents.Load() < limit
		})
	}
	if m.maxTreeSize > 0 {
		target := m.maxTreeSize
		predicates = append(predicates, func() bool {
			return m.TreeSize() < target
		})
	}
	if m.duration > 0 {
		deadline := time.Now().Add(m.duration)
		predicates = append(predicates, func() bool {
			return time.Now().Before(deadline)
		})
	}
	if m.budget != nil {
		predicates = append(predicates, m.budget)
	}
	return func() bool {
		for _, p := range predicates {
			if !p() {
				return false
			}
		}
		return true
	}
}

func (m *MCTS) runWorkers(snapshot game.Position, budget Budget) error {
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < m.goroutines; i++ {
		pos := snapshot.Clone()
		g.Go(func() error {
			c := newCursor(pos, m.root)
			for ctx.Err() == nil && budget() {
				if err := m.iteration(c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// iteration runs one {select, evaluate/expand, backup} cycle. Oracle
// calls run outside the tree lock; only tree reads/writes hold it.
func (m *MCTS) iteration(c *cursor) error {
	defer c.rewind()
	m.descents.Add(1)
	m.metrics.AddDescent()

	m.mu.Lock()
	leaf := m.treePolicy(c)
	m.mu.Unlock()

	m.metrics.ObservePly(c.ply)

	if over, outcome := c.pos.Terminal(); over {
		// Terminal leaf: no expansion. The outcome is for the side to
		// move at the leaf; the reward backed up starts one ply above,
		// from the mover's perspective.
		m.mu.Lock()
		n := m.tree.at(leaf)
		if !n.expanded {
			n.expanded = true
			n.visits = 1
		}
		m.backup(c, 1-terminalReward(outcome))
		m.mu.Unlock()
		return nil
	}

	reward := m.moverReward(c.pos, m.leafDepth)
	edges, err := m.expandEdges(c)
	if err != nil {
		return err
	}

	m.mu.Lock()
	n := m.tree.at(leaf)
	if !n.expanded {
		// A concurrent worker may have expanded the same leaf first;
		// in that case its edges stand and we only back up our sample.
		n.edges = edges
		n.visits = 1
		n.expanded = true
	}
	m.backup(c, reward)
	m.mu.Unlock()
	return nil
}

// backup walks the cursor's path from the leaf to the root. Each edge
// on the path gains a visit and the current reward; the owning node
// gains a visit. Turn ownership alternates every ply, so the reward is
// flipped after every step: the edge into the leaf receives r, the one
// above it 1-r, and so on. Caller holds the tree lock.
func (m *MCTS) backup(c *cursor, r Reward) {
	for ply := c.ply; ply > 0; ply-- {
		parent := m.tree.at(c.nodes[ply-1])
		e := &parent.edges[c.taken[ply-1]]
		e.visits++
		e.actionValue += float64(r)
		e.meanActionValue = e.actionValue / float64(e.visits)
		parent.visits++
		r = 1 - r
	}
}

// bestMove picks the root move maximizing UCB at the given exploration
// constant, nil when the node has no edges. Caller holds the tree lock.
func (m *MCTS) bestMove(idx nodeIndex, c float64) game.Move {
	n := m.tree.at(idx)
	i := bestEdge(n, c)
	if i < 0 {
		return nil
	}
	return n.edges[i].move
}
