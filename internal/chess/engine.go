// internal/chess/engine.go
package chess

import (
	"errors"
	"fmt"

	nchess "github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrIllegalMove is returned by a RuleEngine for a move the position does not allow.
var ErrIllegalMove = errors.New("illegal move")

// EngineOutcome is the decisive state a move leaves the position in.
type EngineOutcome string

const (
	EngineOngoing   EngineOutcome = ""
	EngineWhiteWins EngineOutcome = "white_wins"
	EngineBlackWins EngineOutcome = "black_wins"
	EngineDraw      EngineOutcome = "draw"
)

// MoveResult is the position after a legal move.
type MoveResult struct {
	FEN     string
	Move    string
	Outcome EngineOutcome
	Method  string
}

// RuleEngine decides move legality. Positions travel as FEN, moves as UCI ("e2e4", "e7e8q").
type RuleEngine interface {
	Apply(fen, move string) (MoveResult, error)
}

// NotnilEngine adapts github.com/notnil/chess.
type NotnilEngine struct{}

func (NotnilEngine) Apply(fen, move string) (MoveResult, error) {
	pos, err := nchess.FEN(fen)
	if err != nil {
		return MoveResult{}, fmt.Errorf("load position: %w", err)
	}
	game := nchess.NewGame(pos, nchess.UseNotation(nchess.UCINotation{}))
	if err := game.MoveStr(move); err != nil {
		return MoveResult{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, move, err)
	}

	res := MoveResult{FEN: game.Position().String(), Move: move}
	switch game.Outcome() {
	case nchess.WhiteWon:
		res.Outcome = EngineWhiteWins
	case nchess.BlackWon:
		res.Outcome = EngineBlackWins
	case nchess.Draw:
		res.Outcome = EngineDraw
	}
	if res.Outcome != EngineOngoing {
		res.Method = game.Method().String()
	}
	return res, nil
}
