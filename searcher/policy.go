package searcher

import "math"

// ucb scores the edge e out of a node with parentVisits visits:
//
//	UCB = meanActionValue + C * prior * sqrt(parentVisits) / (1 + visits)
//
// The first term exploits accumulated statistics; the second biases
// toward high-prior, under-sampled moves. An unvisited edge contributes
// a zero mean by convention.
func ucb(parentVisits int, e *edge, c float64) float64 {
	return e.meanActionValue +
		c*float64(e.prior)*math.Sqrt(float64(parentVisits))/float64(1+e.visits)
}

// bestEdge returns the index of the edge maximizing the UCB score. Ties
// go to the first edge in storage order, which keeps descents
// deterministic. Returns -1 when the node has no edges.
func bestEdge(n *node, c float64) int {
	best := -1
	bestScore := math.Inf(-1)
	for i := range n.edges {
		if score := ucb(n.visits, &n.edges[i], c); score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// mostVisitedEdge orders edges by visit count, then prior, and returns
// the index of the maximum. Used for principal-variation output, where
// the robust (most sampled) move is wanted rather than the greedy one.
func mostVisitedEdge(n *node) int {
	best := -1
	for i := range n.edges {
		if best < 0 {
			best = i
			continue
		}
		a, b := &n.edges[i], &n.edges[best]
		if a.visits > b.visits || (a.visits == b.visits && a.prior > b.prior) {
			best = i
		}
	}
	return best
}

// treePolicy descends from the root, at each expanded node following
// the maximum-UCB edge, until it reaches an unexpanded node or a
// terminal one (zero edges). Child nodes are materialized the first
// time their edge is traversed. The cursor tracks the path for backup.
func (m *MCTS) treePolicy(c *cursor) nodeIndex {
	idx := c.nodes[0]
	for {
		n := m.tree.at(idx)
		if !n.expanded || len(n.edges) == 0 {
			return idx
		}
		i := bestEdge(n, m.explorationC)
		move, ply := n.edges[i].move, n.ply
		if n.edges[i].child == noNode {
			// The append may relocate the arena, so re-resolve the node
			// before writing the child index back.
			child := m.tree.add(move, ply+1)
			m.tree.at(idx).edges[i].child = child
		}
		child := m.tree.at(idx).edges[i].child
		c.descend(move, i, child)
		idx = child
	}
}
