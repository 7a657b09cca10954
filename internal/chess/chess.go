// internal/chess/chess.go
package chess

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/guard"
	"github.com/jason-s-yu/stakes/internal/models"
)

// Action types written to the round log.
const (
	ActionMove         = "move"
	ActionResign       = "resign"
	ActionOfferDraw    = "offer_draw"
	ActionRespondDraw  = "respond_draw"
	ActionClaimTimeout = "claim_timeout"
)

// Result reports how the game stands after an action.
type Result struct {
	FEN      string `json:"fen,omitempty"`
	GameOver bool   `json:"game_over,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Start seats players[0] as white and players[1] as black with full clocks. A chess game is a
// single round that stays in the play phase until it ends.
func Start(g *models.Game, now time.Time) {
	white, black := g.Players[0].UserID, g.Players[1].UserID
	clock := int64(g.Settings.ClockSeconds) * 1000
	g.Chess = &models.ChessState{
		FEN:         StartFEN,
		Moves:       []string{},
		WhiteID:     white,
		BlackID:     black,
		RemainingMs: map[uuid.UUID]int64{white: clock, black: clock},
		IncrementMs: int64(g.Settings.IncrementSeconds) * 1000,
		LastMoveAt:  now,
	}
	if g.Rounds == nil {
		g.Rounds = make(map[int]*models.Round)
	}
	g.Rounds[1] = &models.Round{
		Number:              1,
		Phase:               models.PhaseChessPlay,
		CurrentTurnPlayerID: white,
		Actions:             []models.ActionRecord{},
	}
	g.CurrentRound = 1
	g.Status = models.StatusPlaying
}

// Remaining returns userID's clock at now. Only the side to move is running.
func Remaining(g *models.Game, userID uuid.UUID, now time.Time) int64 {
	cs := g.Chess
	left := cs.RemainingMs[userID]
	if r := g.Round(); r != nil && r.Phase == models.PhaseChessPlay && r.CurrentTurnPlayerID == userID {
		left -= now.Sub(cs.LastMoveAt).Milliseconds()
	}
	return left
}

// MakeMove plays move for the side to move. A player whose flag has already fallen loses on
// time instead, and the move is not played.
func MakeMove(g *models.Game, caller uuid.UUID, move string, engine RuleEngine, now time.Time) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhaseChessPlay)); err != nil {
		return Result{}, err
	}
	if move == "" {
		return Result{}, apperr.InvalidArgumentf("missing move")
	}
	r, cs := g.Round(), g.Chess

	left := Remaining(g, caller, now)
	if left <= 0 {
		cs.RemainingMs[caller] = 0
		r.Record(caller, ActionClaimTimeout, map[string]any{"flagged": caller}, now)
		finish(g, winnerOutcome(cs.Opponent(caller), "timeout"))
		return Result{FEN: cs.FEN, GameOver: true, Reason: "timeout"}, nil
	}

	res, err := engine.Apply(cs.FEN, move)
	if errors.Is(err, ErrIllegalMove) {
		return Result{}, apperr.Wrap(apperr.InvalidArgument, err, "illegal move %s", move)
	}
	if err != nil {
		return Result{}, err
	}

	cs.RemainingMs[caller] = left + cs.IncrementMs
	cs.FEN = res.FEN
	cs.Moves = append(cs.Moves, res.Move)
	cs.LastMoveAt = now
	// moving declines any standing offer
	cs.DrawOfferedBy = uuid.Nil
	r.Record(caller, ActionMove, map[string]any{"move": res.Move, "fen": res.FEN}, now)
	r.CurrentTurnPlayerID = cs.Opponent(caller)

	switch res.Outcome {
	case EngineWhiteWins:
		finish(g, winnerOutcome(cs.WhiteID, res.Method))
	case EngineBlackWins:
		finish(g, winnerOutcome(cs.BlackID, res.Method))
	case EngineDraw:
		finish(g, &models.Outcome{Kind: models.OutcomeDraw, Reason: res.Method})
	default:
		return Result{FEN: res.FEN}, nil
	}
	return Result{FEN: res.FEN, GameOver: true, Reason: res.Method}, nil
}

// Resign concedes; either side may resign at any time.
func Resign(g *models.Game, caller uuid.UUID, now time.Time) (Result, error) {
	if err := guard.Check(g, caller, guard.AnySeat(models.PhaseChessPlay)); err != nil {
		return Result{}, err
	}
	g.Round().Record(caller, ActionResign, nil, now)
	finish(g, winnerOutcome(g.Chess.Opponent(caller), "resignation"))
	return Result{GameOver: true, Reason: "resignation"}, nil
}

// OfferDraw puts a draw offer on the table for the opponent to answer.
func OfferDraw(g *models.Game, caller uuid.UUID, now time.Time) (Result, error) {
	if err := guard.Check(g, caller, guard.AnySeat(models.PhaseChessPlay)); err != nil {
		return Result{}, err
	}
	cs := g.Chess
	switch cs.DrawOfferedBy {
	case caller:
		return Result{}, apperr.FailedPreconditionf("draw already offered")
	case cs.Opponent(caller):
		return Result{}, apperr.FailedPreconditionf("respond to your opponent's draw offer instead")
	}
	cs.DrawOfferedBy = caller
	g.Round().Record(caller, ActionOfferDraw, nil, now)
	return Result{}, nil
}

// RespondDraw accepts or declines the opponent's standing offer.
func RespondDraw(g *models.Game, caller uuid.UUID, accept bool, now time.Time) (Result, error) {
	if err := guard.Check(g, caller, guard.AnySeat(models.PhaseChessPlay)); err != nil {
		return Result{}, err
	}
	cs := g.Chess
	if cs.DrawOfferedBy != cs.Opponent(caller) {
		return Result{}, apperr.FailedPreconditionf("no draw offer to respond to")
	}
	cs.DrawOfferedBy = uuid.Nil
	g.Round().Record(caller, ActionRespondDraw, map[string]any{"accept": accept}, now)
	if !accept {
		return Result{}, nil
	}
	finish(g, &models.Outcome{Kind: models.OutcomeDraw, Reason: "agreement"})
	return Result{GameOver: true, Reason: "agreement"}, nil
}

// ClaimTimeout ends the game when the side to move has run out of time. Only their opponent
// may claim.
func ClaimTimeout(g *models.Game, caller uuid.UUID, now time.Time) (Result, error) {
	if err := guard.Check(g, caller, guard.AnySeat(models.PhaseChessPlay)); err != nil {
		return Result{}, err
	}
	r, cs := g.Round(), g.Chess
	mover := r.CurrentTurnPlayerID
	if mover == caller {
		return Result{}, apperr.FailedPreconditionf("cannot claim a timeout on your own move")
	}
	if Remaining(g, mover, now) > 0 {
		return Result{}, apperr.FailedPreconditionf("opponent still has time")
	}
	cs.RemainingMs[mover] = 0
	r.Record(caller, ActionClaimTimeout, map[string]any{"flagged": mover}, now)
	finish(g, winnerOutcome(caller, "timeout"))
	return Result{GameOver: true, Reason: "timeout"}, nil
}

func winnerOutcome(winner uuid.UUID, reason string) *models.Outcome {
	return &models.Outcome{Kind: models.OutcomeWinner, WinnerID: winner, Reason: reason}
}

func finish(g *models.Game, outcome *models.Outcome) {
	g.Round().Phase = models.PhaseChessOver
	g.Status = models.StatusFinished
	g.Outcome = outcome
}
