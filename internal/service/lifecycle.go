package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/chess"
	"github.com/jason-s-yu/stakes/internal/game"
	"github.com/jason-s-yu/stakes/internal/ledger"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/jason-s-yu/stakes/internal/trick"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CreateGameInput describes a new game. Settings overrides are applied on top of the variant's
// defaults.
type CreateGameInput struct {
	Variant  models.Variant  `json:"variant"`
	Wager    decimal.Decimal `json:"wager_per_player"`
	Settings map[string]any  `json:"settings,omitempty"`
}

// View is a game as one caller may see it. Hidden cards never leave the service.
type View struct {
	ID              uuid.UUID       `json:"id"`
	Variant         models.Variant  `json:"variant"`
	Status          models.Status   `json:"status"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	Players         []models.Player `json:"players"`
	Settings        models.Settings `json:"settings"`
	WagerPerPlayer  decimal.Decimal `json:"wager_per_player"`
	FeePercent      decimal.Decimal `json:"fee_percent"`
	WagersDebited   bool            `json:"wagers_debited"`
	PayoutProcessed bool            `json:"payout_processed"`
	CurrentRound    int             `json:"current_round"`
	TeamScores      map[int]int     `json:"team_scores,omitempty"`
	Outcome         *models.Outcome `json:"outcome,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Cambia *game.View  `json:"cambia,omitempty"`
	Trick  *trick.View `json:"trick,omitempty"`
	Chess  *chess.View `json:"chess,omitempty"`
}

func buildView(g *models.Game, viewer uuid.UUID, now time.Time) *View {
	v := &View{
		ID:              g.ID,
		Variant:         g.Variant,
		Status:          g.Status,
		CreatedBy:       g.CreatedBy,
		Players:         g.Players,
		Settings:        g.Settings,
		WagerPerPlayer:  g.WagerPerPlayer,
		FeePercent:      g.FeePercent,
		WagersDebited:   g.WagersDebited,
		PayoutProcessed: g.PayoutProcessed,
		CurrentRound:    g.CurrentRound,
		TeamScores:      g.TeamScores,
		Outcome:         g.Outcome,
		UpdatedAt:       g.UpdatedAt,
	}
	switch g.Variant {
	case models.VariantCambia:
		v.Cambia = game.BuildView(g, viewer)
	case models.VariantTrick:
		v.Trick = trick.BuildView(g, viewer)
	case models.VariantChess:
		v.Chess = chess.BuildView(g, now)
	}
	return v
}

func validateSettings(v models.Variant, s models.Settings) error {
	switch v {
	case models.VariantCambia:
		if s.MaxPlayers < game.MinPlayers || s.MaxPlayers > game.MaxPlayers {
			return fmt.Errorf("max_players must be between %d and %d", game.MinPlayers, game.MaxPlayers)
		}
	case models.VariantTrick:
		if s.MaxPlayers != trick.Players {
			return fmt.Errorf("max_players must be %d", trick.Players)
		}
		if s.MinBid > s.MaxBid || s.MaxBid > trick.TricksPerHand {
			return fmt.Errorf("bids must satisfy min_bid <= max_bid <= %d", trick.TricksPerHand)
		}
	case models.VariantChess:
		if s.MaxPlayers != 2 {
			return errors.New("max_players must be 2")
		}
		if s.Rounds != 1 {
			return errors.New("chess is a single round")
		}
	default:
		return fmt.Errorf("unknown variant %q", v)
	}
	return nil
}

// CreateGame opens a game in Waiting with the caller in seat 0.
func (s *Service) CreateGame(ctx context.Context, caller uuid.UUID, in CreateGameInput) (*View, error) {
	if caller == uuid.Nil {
		return nil, apperr.New(apperr.Unauthenticated, "sign in to create a game")
	}
	settings, err := models.ParseSettings(in.Settings, models.DefaultSettings(in.Variant))
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, err, "invalid settings: %v", err)
	}
	if err := validateSettings(in.Variant, settings); err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, err, "invalid settings: %v", err)
	}
	if in.Wager.IsNegative() || in.Wager.Exponent() < -2 {
		return nil, apperr.InvalidArgumentf("wager must be a non-negative amount with at most two decimals")
	}

	now := s.now()
	g := &models.Game{
		ID:             uuid.New(),
		Variant:        in.Variant,
		Status:         models.StatusWaiting,
		CreatedBy:      caller,
		Players:        []models.Player{{UserID: caller}},
		Settings:       settings,
		WagerPerPlayer: in.Wager,
		FeePercent:     s.fees.PercentFor(in.Variant),
		Rounds:         map[int]*models.Round{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.store.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Create(ctx, store.GameKey(g.ID), g)
	})
	if err != nil {
		return nil, s.fail(err, g.ID, caller, "create_game")
	}
	s.log.WithFields(logrus.Fields{
		"game_id": g.ID,
		"caller":  caller,
		"variant": g.Variant,
		"wager":   g.WagerPerPlayer.String(),
	}).Info("game created")
	return buildView(g, caller, now), nil
}

// JoinGame takes the next free seat. Trick-taking seats alternate teams.
func (s *Service) JoinGame(ctx context.Context, caller, gameID uuid.UUID) (*View, error) {
	return mutate(ctx, s, gameID, caller, "join_game", func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (*View, error) {
		if caller == uuid.Nil {
			return nil, apperr.New(apperr.Unauthenticated, "sign in to join a game")
		}
		if g.Status != models.StatusWaiting {
			return nil, apperr.FailedPreconditionf("game is %s", g.Status)
		}
		if g.IsParticipant(caller) {
			return nil, apperr.AlreadyExistsf("already seated in game %s", g.ID)
		}
		if len(g.Players) >= g.Settings.MaxPlayers {
			return nil, apperr.FailedPreconditionf("game is full")
		}
		seat := len(g.Players)
		team := seat
		if g.Variant == models.VariantTrick {
			team = trick.TeamForSeat(seat)
		}
		g.Players = append(g.Players, models.Player{UserID: caller, Seat: seat, Team: team})
		return buildView(g, caller, now), nil
	})
}

// StartGame takes every stake and deals the first round. Only the creator may start. An empty
// key falls back to one derived from the game, so the debit happens once either way. Repeating
// a successful start with the same key returns the game as it is now.
func (s *Service) StartGame(ctx context.Context, caller, gameID uuid.UUID, key string) (*View, error) {
	return mutate(ctx, s, gameID, caller, "start_game", func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (*View, error) {
		if caller != g.CreatedBy {
			return nil, apperr.PermissionDeniedf("only the creator can start the game")
		}
		if key == "" {
			key = startKey(g.ID)
		}
		if g.Status != models.StatusWaiting {
			// a retry of the start that already took the stakes sees the current game
			if g.WagersDebited {
				done, err := ledger.DebitApplied(ctx, tx, key, g.ID)
				if err != nil {
					return nil, err
				}
				if done {
					return buildView(g, caller, now), errUnchanged
				}
			}
			return nil, apperr.FailedPreconditionf("game is %s", g.Status)
		}
		if err := checkPlayerCount(g); err != nil {
			return nil, err
		}
		if _, err := ledger.DebitOnStart(ctx, tx, g, key, now); err != nil {
			return nil, err
		}

		starter := g.Players[0].UserID
		switch g.Variant {
		case models.VariantCambia:
			game.StartRound(g, 1, starter, game.Env{Now: now, Rand: s.newRand()})
		case models.VariantTrick:
			trick.StartRound(g, 1, starter, 0, trick.Env{Now: now, Rand: s.newRand()})
		case models.VariantChess:
			chess.Start(g, now)
		}
		s.log.WithFields(logrus.Fields{
			"game_id": g.ID,
			"players": len(g.Players),
			"pool":    g.Pool().String(),
		}).Info("game started")
		return buildView(g, caller, now), nil
	})
}

func checkPlayerCount(g *models.Game) error {
	n := len(g.Players)
	switch g.Variant {
	case models.VariantCambia:
		if n < game.MinPlayers {
			return apperr.FailedPreconditionf("need at least %d players", game.MinPlayers)
		}
	case models.VariantTrick:
		if n != trick.Players {
			return apperr.FailedPreconditionf("need exactly %d players", trick.Players)
		}
	case models.VariantChess:
		if n != 2 {
			return apperr.FailedPreconditionf("need exactly 2 players")
		}
	}
	return nil
}

// CancelGame abandons a game. The creator may cancel while waiting; an admin may cancel any
// game that has not ended. Stakes already taken are refunded.
func (s *Service) CancelGame(ctx context.Context, caller, gameID uuid.UUID) (*View, error) {
	return mutate(ctx, s, gameID, caller, "cancel_game", func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (*View, error) {
		admin := s.IsAdmin(caller)
		if !admin && caller != g.CreatedBy {
			return nil, apperr.PermissionDeniedf("only the creator can cancel the game")
		}
		if g.IsTerminal() {
			return nil, apperr.FailedPreconditionf("game is already %s", g.Status)
		}
		if !admin && g.Status != models.StatusWaiting {
			return nil, apperr.FailedPreconditionf("game has started")
		}
		if err := cancelGame(ctx, tx, g, "cancelled", now); err != nil {
			return nil, err
		}
		return buildView(g, caller, now), nil
	})
}

// Expire cancels and refunds gameID if it has not changed since cutoff. It reports whether the
// game was cancelled.
func (s *Service) Expire(ctx context.Context, gameID uuid.UUID, cutoff time.Time, reason string) (bool, error) {
	return mutate(ctx, s, gameID, uuid.Nil, "expire_game", func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (bool, error) {
		if g.IsTerminal() || !g.UpdatedAt.Before(cutoff) {
			return false, errUnchanged
		}
		if err := cancelGame(ctx, tx, g, reason, now); err != nil {
			return false, err
		}
		s.log.WithFields(logrus.Fields{
			"game_id": g.ID,
			"reason":  reason,
		}).Info("stale game cancelled")
		return true, nil
	})
}

// cancelGame ends g with a draw outcome and settles it, which refunds every stake taken.
func cancelGame(ctx context.Context, tx store.Tx, g *models.Game, reason string, now time.Time) error {
	g.Status = models.StatusCancelled
	g.Outcome = &models.Outcome{Kind: models.OutcomeDraw, Reason: reason}
	return settleIfFinished(ctx, tx, g, now)
}

// GetGame returns the caller's view of a game.
func (s *Service) GetGame(ctx context.Context, caller, gameID uuid.UUID) (*View, error) {
	var g models.Game
	if err := s.store.Get(ctx, store.GameKey(gameID), &g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("game %s not found", gameID)
		}
		return nil, s.fail(err, gameID, caller, "get_game")
	}
	return buildView(&g, caller, s.now()), nil
}
