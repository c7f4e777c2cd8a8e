// Self-play demo: UCT searchers play tic-tac-toe against each other or
// against a random mover.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"uct/game"
	"uct/searcher"
	"uct/tictactoe"
)

type mover interface {
	pick(pos game.Position) game.Move
}

type uctMover struct {
	mcts *searcher.MCTS
}

func (u uctMover) pick(pos game.Position) game.Move {
	move, err := u.mcts.Search(pos)
	if err != nil {
		log.Fatal().Err(err).Msg("search failed")
	}
	return move
}

type randomMover struct {
	rng *rand.Rand
}

func (r randomMover) pick(pos game.Position) game.Move {
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return nil
	}
	return moves[r.rng.Intn(len(moves))]
}

func main() {
	games := flag.Int("games", 10, "Number of games to play")
	descents := flag.Int("descents", 400, "Search iterations per move")
	duration := flag.Duration("duration", 0, "Optional search time per move (overrides descents)")
	goroutines := flag.Int("goroutines", 1, "Parallel search workers")
	opponent := flag.String("opponent", "random", "Opponent for the first player: random or uct")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for the random opponent")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	players := [2]mover{
		uctMover{mcts: newSearcher(*descents, *duration, *goroutines)},
		nil,
	}
	switch *opponent {
	case "uct":
		players[1] = uctMover{mcts: newSearcher(*descents, *duration, *goroutines)}
	case "random":
		players[1] = randomMover{rng: rand.New(rand.NewSource(*seed))}
	default:
		log.Fatal().Str("opponent", *opponent).Msg("unknown opponent")
	}

	wins := [2]int{}
	draws := 0
	for i := 0; i < *games; i++ {
		winner := playGame(players)
		if winner < 0 {
			draws++
		} else {
			wins[winner]++
		}
		log.Info().Int("game", i+1).Int("winner", winner).Msg("game over")
	}
	log.Info().
		Int("uct_wins", wins[0]).
		Int("opponent_wins", wins[1]).
		Int("draws", draws).
		Msg("self-play finished")
}

func newSearcher(descents int, duration time.Duration, goroutines int) *searcher.MCTS {
	options := []searcher.Option{
		searcher.WithEvaluationFn(tictactoe.Evaluate),
		searcher.WithLeafDepth(1),
		searcher.WithGoroutines(goroutines),
		searcher.WithMetrics(),
	}
	if duration > 0 {
		options = append(options, searcher.WithDuration(duration))
	} else {
		options = append(options, searcher.WithDescents(descents))
	}
	return searcher.NewMCTS(options...)
}

// playGame runs one game and returns the index of the winning player,
// or -1 for a draw.
func playGame(players [2]mover) int {
	board := tictactoe.New()
	turn := 0
	for {
		over, outcome := board.Terminal()
		if over {
			if outcome == game.OutcomeDraw {
				return -1
			}
			// The side to move at a terminal position has lost.
			return 1 - turn%2
		}
		move := players[turn%2].pick(board)
		log.Debug().Stringer("move", move).Int("player", turn%2).Msg("played")
		board.Apply(move)
		turn++
	}
}
