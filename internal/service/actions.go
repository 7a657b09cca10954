package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/chess"
	"github.com/jason-s-yu/stakes/internal/game"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/jason-s-yu/stakes/internal/trick"
)

func requireVariant(g *models.Game, v models.Variant) error {
	if g.Variant != v {
		return apperr.InvalidArgumentf("action not available in a %s game", g.Variant)
	}
	return nil
}

func (s *Service) cambiaAction(ctx context.Context, caller, gameID uuid.UUID, action string, fn func(g *models.Game, env game.Env) (game.Result, error)) (game.Result, error) {
	return mutate(ctx, s, gameID, caller, action, func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (game.Result, error) {
		if err := requireVariant(g, models.VariantCambia); err != nil {
			return game.Result{}, err
		}
		return fn(g, game.Env{Now: now, Rand: s.newRand()})
	})
}

func (s *Service) trickAction(ctx context.Context, caller, gameID uuid.UUID, action string, fn func(g *models.Game, env trick.Env) (trick.Result, error)) (trick.Result, error) {
	return mutate(ctx, s, gameID, caller, action, func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (trick.Result, error) {
		if err := requireVariant(g, models.VariantTrick); err != nil {
			return trick.Result{}, err
		}
		return fn(g, trick.Env{Now: now, Rand: s.newRand()})
	})
}

func (s *Service) chessAction(ctx context.Context, caller, gameID uuid.UUID, action string, fn func(g *models.Game, now time.Time) (chess.Result, error)) (chess.Result, error) {
	return mutate(ctx, s, gameID, caller, action, func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (chess.Result, error) {
		if err := requireVariant(g, models.VariantChess); err != nil {
			return chess.Result{}, err
		}
		return fn(g, now)
	})
}

func (s *Service) CompleteInitialPeek(ctx context.Context, caller, gameID uuid.UUID, slots []int) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionInitialPeek, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.CompleteInitialPeek(g, caller, slots, env)
	})
}

func (s *Service) Draw(ctx context.Context, caller, gameID uuid.UUID, source models.DrawSource) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionDraw, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.Draw(g, caller, source, env)
	})
}

func (s *Service) Exchange(ctx context.Context, caller, gameID uuid.UUID, slot int) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionExchange, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.Exchange(g, caller, slot, env)
	})
}

func (s *Service) Discard(ctx context.Context, caller, gameID uuid.UUID) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionDiscard, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.Discard(g, caller, env)
	})
}

func (s *Service) AttemptMatch(ctx context.Context, caller, gameID uuid.UUID, slot int) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionAttemptMatch, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.AttemptMatch(g, caller, slot, env)
	})
}

func (s *Service) SkipPower(ctx context.Context, caller, gameID uuid.UUID) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionSkipPower, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.SkipPower(g, caller, env)
	})
}

func (s *Service) ResolvePower(ctx context.Context, caller, gameID uuid.UUID, target game.PowerTarget) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionResolvePower, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.ResolvePower(g, caller, target, env)
	})
}

func (s *Service) Call(ctx context.Context, caller, gameID uuid.UUID) (game.Result, error) {
	return s.cambiaAction(ctx, caller, gameID, game.ActionCall, func(g *models.Game, env game.Env) (game.Result, error) {
		return game.Call(g, caller, env)
	})
}

func (s *Service) PlaceBid(ctx context.Context, caller, gameID uuid.UUID, in trick.BidInput) (trick.Result, error) {
	return s.trickAction(ctx, caller, gameID, trick.ActionBid, func(g *models.Game, env trick.Env) (trick.Result, error) {
		return trick.PlaceBid(g, caller, in, env)
	})
}

func (s *Service) SelectTrump(ctx context.Context, caller, gameID uuid.UUID, suit string) (trick.Result, error) {
	return s.trickAction(ctx, caller, gameID, trick.ActionSelectTrump, func(g *models.Game, env trick.Env) (trick.Result, error) {
		return trick.SelectTrump(g, caller, suit, env)
	})
}

func (s *Service) PlayCard(ctx context.Context, caller, gameID uuid.UUID, card models.Card) (trick.Result, error) {
	return s.trickAction(ctx, caller, gameID, trick.ActionPlayCard, func(g *models.Game, env trick.Env) (trick.Result, error) {
		return trick.PlayCard(g, caller, card, env)
	})
}

func (s *Service) MakeMove(ctx context.Context, caller, gameID uuid.UUID, move string) (chess.Result, error) {
	return s.chessAction(ctx, caller, gameID, chess.ActionMove, func(g *models.Game, now time.Time) (chess.Result, error) {
		return chess.MakeMove(g, caller, move, s.engine, now)
	})
}

func (s *Service) Resign(ctx context.Context, caller, gameID uuid.UUID) (chess.Result, error) {
	return s.chessAction(ctx, caller, gameID, chess.ActionResign, func(g *models.Game, now time.Time) (chess.Result, error) {
		return chess.Resign(g, caller, now)
	})
}

func (s *Service) OfferDraw(ctx context.Context, caller, gameID uuid.UUID) (chess.Result, error) {
	return s.chessAction(ctx, caller, gameID, chess.ActionOfferDraw, func(g *models.Game, now time.Time) (chess.Result, error) {
		return chess.OfferDraw(g, caller, now)
	})
}

func (s *Service) RespondDraw(ctx context.Context, caller, gameID uuid.UUID, accept bool) (chess.Result, error) {
	return s.chessAction(ctx, caller, gameID, chess.ActionRespondDraw, func(g *models.Game, now time.Time) (chess.Result, error) {
		return chess.RespondDraw(g, caller, accept, now)
	})
}

func (s *Service) ClaimTimeout(ctx context.Context, caller, gameID uuid.UUID) (chess.Result, error) {
	return s.chessAction(ctx, caller, gameID, chess.ActionClaimTimeout, func(g *models.Game, now time.Time) (chess.Result, error) {
		return chess.ClaimTimeout(g, caller, now)
	})
}

// TransitionResult reports where a game stands after a round closes.
type TransitionResult struct {
	Round    int  `json:"round"`
	GameOver bool `json:"game_over"`
}

// TransitionRound scores the finished round and deals the next one, or ends the game after the
// last round. Settlement happens in the same transaction.
func (s *Service) TransitionRound(ctx context.Context, caller, gameID uuid.UUID) (TransitionResult, error) {
	return mutate(ctx, s, gameID, caller, "transition_round", func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (TransitionResult, error) {
		var (
			over bool
			err  error
		)
		switch g.Variant {
		case models.VariantCambia:
			var res game.Result
			res, err = game.TransitionRound(g, caller, game.Env{Now: now, Rand: s.newRand()})
			over = res.GameOver
		case models.VariantTrick:
			var res trick.Result
			res, err = trick.TransitionRound(g, caller, trick.Env{Now: now, Rand: s.newRand()})
			over = res.GameOver
		default:
			err = apperr.InvalidArgumentf("a %s game has no rounds to transition", g.Variant)
		}
		if err != nil {
			return TransitionResult{}, err
		}
		return TransitionResult{Round: g.CurrentRound, GameOver: over}, nil
	})
}
