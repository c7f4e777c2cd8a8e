package game

// Move is a single action by the side to move. Implementations should be
// comparable and cheap to copy.
type Move interface {
	String() string
}

// Outcome is the result of a finished game from the perspective of the
// side to move at the terminal position.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeLoss
	OutcomeDraw
	OutcomeWin
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoss:
		return "loss"
	case OutcomeDraw:
		return "draw"
	case OutcomeWin:
		return "win"
	}
	return "none"
}

// Value is an evaluation score on the engine's internal scale. Positive
// values favor the side to move. A value of 600 roughly corresponds to
// a 75% winning chance once mapped to a reward.
type Value int

// ValueKnownWin is the score assigned to positions whose outcome is
// (practically) decided. Rewards outside the logistic conversion's
// working band saturate to +/-ValueKnownWin.
const ValueKnownWin Value = 10000

// Position is the game adapter the searcher walks. Apply and Revert
// form a make/unmake pair: Revert undoes the most recently applied
// move. The searcher always restores a position to the state it found
// it in.
type Position interface {
	Apply(Move)
	Revert()
	// LegalMoves returns the legal moves at the current position. The
	// ordering is a hint from the generator, not a contract. A
	// position with no legal moves must report Terminal.
	LegalMoves() []Move
	IsLegal(Move) bool
	// Terminal reports whether the game is over and, if so, the outcome
	// for the side to move.
	Terminal() (bool, Outcome)
	// Clone returns an independent copy sharing no mutable state with
	// the receiver.
	Clone() Position
}

// Evaluate scores a position from the perspective of the side to move.
// depth 0 requests a direct/quiescence-only score; depth > 0 requests a
// bounded-lookahead score. Implementations must leave the position
// unmodified and must not retain it. Any scoring strategy satisfies the
// contract interchangeably; the searcher never inspects its internals.
type Evaluate func(p Position, depth int) (Value, error)
