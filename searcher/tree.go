package searcher

import "uct/game"

// nodeIndex addresses a node inside the tree arena. Stable integer
// indices rather than pointers keep the tree relocatable and simple to
// share under a single lock.
type nodeIndex int32

const noNode nodeIndex = -1

// edge is a directed arc from a node to one legal move's successor. The
// child node is materialized lazily, the first time the edge is
// traversed during selection. The prior is fixed at expansion and never
// changes; visits and actionValue only increase.
type edge struct {
	move            game.Move
	child           nodeIndex
	visits          int
	prior           Reward
	actionValue     float64
	meanActionValue float64
}

// node is a tree vertex bound to the position reached by the move
// sequence from the root. The board state itself is never stored; the
// search cursor replays moves on a cloned position instead.
type node struct {
	move     game.Move // move that led here; nil at the root
	ply      int
	visits   int
	expanded bool
	edges    []edge
}

// terminal reports whether the node has been expanded and found to have
// no successors.
func (n *node) terminal() bool {
	return n.expanded && len(n.edges) == 0
}

// tree is the arena owning all nodes of one search invocation. It is
// created by Search and garbage once Search returns; nothing persists
// across invocations.
type tree struct {
	nodes []node
}

func newTree() *tree {
	return &tree{nodes: make([]node, 0, 256)}
}

func (t *tree) add(move game.Move, ply int) nodeIndex {
	t.nodes = append(t.nodes, node{move: move, ply: ply})
	return nodeIndex(len(t.nodes) - 1)
}

func (t *tree) at(i nodeIndex) *node {
	return &t.nodes[i]
}

func (t *tree) size() int {
	return len(t.nodes)
}

// cursor walks a worker-owned clone of the caller's position during
// descent and expansion. It records, per ply, the node reached and the
// edge index taken out of its parent, which is exactly the path backup
// needs. rewind restores the position to ply 0 after every iteration.
type cursor struct {
	pos   game.Position
	ply   int
	nodes []nodeIndex // nodes[p] = node at ply p; nodes[0] is the root
	taken []int       // taken[p] = edge index chosen at nodes[p]
}

func newCursor(pos game.Position, root nodeIndex) *cursor {
	c := &cursor{
		pos:   pos,
		nodes: make([]nodeIndex, 1, 64),
		taken: make([]int, 0, 64),
	}
	c.nodes[0] = root
	return c
}

// descend applies move on the position and records the traversed edge.
func (c *cursor) descend(move game.Move, edgeIdx int, child nodeIndex) {
	c.pos.Apply(move)
	c.taken = append(c.taken, edgeIdx)
	c.nodes = append(c.nodes, child)
	c.ply++
}

// rewind unwinds all applied moves and resets the path to the root.
func (c *cursor) rewind() {
	for c.ply > 0 {
		c.pos.Revert()
		c.ply--
	}
	c.nodes = c.nodes[:1]
	c.taken = c.taken[:0]
}
