// Package tictactoe implements game.Position for 3x3 tic-tac-toe, small
// enough to verify the searcher end to end against known-best play.
package tictactoe

import (
	"fmt"
	"strings"

	"uct/game"
)

// Cell is a board square in row-major order, 0 through 8. It is the
// move type: playing a cell puts the side to move's mark on it.
type Cell int

func (c Cell) String() string {
	return fmt.Sprintf("%c%d", 'a'+int(c)%3, int(c)/3+1)
}

const (
	empty int8 = iota
	cross      // moves first
	nought
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// Board is a mutable position with make/unmake history.
type Board struct {
	cells   [9]int8
	side    int8
	history []Cell
}

func New() *Board {
	return &Board{side: cross}
}

func (b *Board) Apply(m game.Move) {
	c := m.(Cell)
	b.cells[c] = b.side
	b.side = other(b.side)
	b.history = append(b.history, c)
}

func (b *Board) Revert() {
	last := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	b.cells[last] = empty
	b.side = other(b.side)
}

func (b *Board) LegalMoves() []game.Move {
	if b.winner() != empty {
		return nil
	}
	var moves []game.Move
	for i, mark := range b.cells {
		if mark == empty {
			moves = append(moves, Cell(i))
		}
	}
	return moves
}

func (b *Board) IsLegal(m game.Move) bool {
	c, ok := m.(Cell)
	if !ok || c < 0 || c > 8 {
		return false
	}
	return b.winner() == empty && b.cells[c] == empty
}

// Terminal reports the outcome for the side to move. A completed line
// always belongs to the previous mover, so it is a loss here.
func (b *Board) Terminal() (bool, game.Outcome) {
	if b.winner() != empty {
		return true, game.OutcomeLoss
	}
	for _, mark := range b.cells {
		if mark == empty {
			return false, game.OutcomeNone
		}
	}
	return true, game.OutcomeDraw
}

func (b *Board) Clone() game.Position {
	clone := &Board{cells: b.cells, side: b.side}
	clone.history = append([]Cell(nil), b.history...)
	return clone
}

func (b *Board) winner() int8 {
	for _, line := range lines {
		m := b.cells[line[0]]
		if m != empty && m == b.cells[line[1]] && m == b.cells[line[2]] {
			return m
		}
	}
	return empty
}

func (b *Board) String() string {
	marks := map[int8]string{empty: ".", cross: "X", nought: "O"}
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			sb.WriteString(marks[b.cells[row*3+col]])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func other(mark int8) int8 {
	if mark == cross {
		return nought
	}
	return cross
}

// Line weights for the static evaluation: a line holding two of our
// marks and no opposing ones is close to a win, one mark is a toehold.
const (
	twoInLine = 300
	oneInLine = 40
)

// Evaluate is the evaluation oracle for tic-tac-toe positions. depth 0
// scores open lines statically; depth > 0 runs a bounded negamax over
// the same score. The position is restored before returning.
func Evaluate(p game.Position, depth int) (game.Value, error) {
	b, ok := p.(*Board)
	if !ok {
		return 0, fmt.Errorf("tictactoe: unexpected position type %T", p)
	}
	if depth <= 0 {
		return b.static(), nil
	}
	return b.negamax(depth), nil
}

// static scores the position for the side to move by counting lines
// still open for each player.
func (b *Board) static() game.Value {
	if over, outcome := b.Terminal(); over {
		switch outcome {
		case game.OutcomeLoss:
			return -game.ValueKnownWin
		case game.OutcomeWin:
			return game.ValueKnownWin
		default:
			return 0
		}
	}

	score := 0
	for _, line := range lines {
		var mine, theirs int
		for _, i := range line {
			switch b.cells[i] {
			case b.side:
				mine++
			case other(b.side):
				theirs++
			}
		}
		switch {
		case mine > 0 && theirs > 0: // dead line
		case mine == 2:
			score += twoInLine
		case mine == 1:
			score += oneInLine
		case theirs == 2:
			score -= twoInLine
		case theirs == 1:
			score -= oneInLine
		}
	}
	return game.Value(score)
}

func (b *Board) negamax(depth int) game.Value {
	if over, _ := b.Terminal(); over || depth == 0 {
		return b.static()
	}
	best := -2 * game.ValueKnownWin
	for _, m := range b.LegalMoves() {
		b.Apply(m)
		if v := -b.negamax(depth - 1); v > best {
			best = v
		}
		b.Revert()
	}
	return best
}
